// Package cli provides output formatting for the arxivedits command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/alignment"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/pipeline"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/storage"
	"github.com/samuelstevens/arxiv-edits-sub000/pkg/utils"
)

// OutputFormat selects text or JSON output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" and "json" (case-insensitive).
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// textWidth bounds sentence text in text output.
const textWidth = 100

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteResult writes one aligned pair.
func WriteResult(w io.Writer, res *pipeline.Result, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "%s: revision %d, %d edges\n", res.Key, res.Revision.Number, res.Revision.Edges)
	fmt.Fprintf(w, "  identity:  %d\n", res.Identity)
	fmt.Fprintf(w, "  paragraph: %d pairs (%d boring)\n", res.Paragraph.Pairs, res.Paragraph.Boring)
	fmt.Fprintf(w, "  cross:     %d pairs\n", res.Cross.Pairs)
	if res.DP != nil {
		fmt.Fprintf(w, "  dp:        %d pairs\n", res.DP.Pairs)
	}
	fmt.Fprintf(w, "  unaligned: %d\n", len(res.Unaligned))
	if res.ReviewFile != "" {
		fmt.Fprintf(w, "  review:    %s (%d rows)\n", res.ReviewFile, res.ReviewRows)
	}
	return nil
}

type batchPairJSON struct {
	Key    models.PairKey   `json:"key"`
	Result *pipeline.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
	Class  string           `json:"error_class,omitempty"`
}

// WriteBatchReport writes a batch summary. Failed pairs carry their error class.
func WriteBatchReport(w io.Writer, report *pipeline.BatchReport, format OutputFormat) error {
	if format == OutputJSON {
		pairs := make([]batchPairJSON, len(report.Pairs))
		for i, pr := range report.Pairs {
			pairs[i] = batchPairJSON{Key: pr.Key, Result: pr.Result}
			if pr.Err != nil {
				pairs[i].Error = pr.Err.Error()
				pairs[i].Class = models.ErrorClass(pr.Err)
			}
		}
		return writeJSON(w, map[string]interface{}{
			"run_id":    report.RunID,
			"succeeded": report.Succeeded,
			"failed":    report.Failed,
			"duration":  report.Duration.String(),
			"pairs":     pairs,
		})
	}
	fmt.Fprintf(w, "run %s: %d succeeded, %d failed in %s\n",
		report.RunID, report.Succeeded, report.Failed, report.Duration.Round(time.Millisecond))
	for _, pr := range report.Pairs {
		if pr.Err != nil {
			fmt.Fprintf(w, "  FAIL %s [%s]: %v\n", pr.Key, models.ErrorClass(pr.Err), pr.Err)
			continue
		}
		fmt.Fprintf(w, "  ok   %s: %d edges, %d unaligned\n", pr.Key, pr.Result.Revision.Edges, len(pr.Result.Unaligned))
	}
	return nil
}

type sentenceJSON struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// WriteUnaligned writes ids with their text from a, in the given order.
func WriteUnaligned(w io.Writer, a *alignment.Alignment, ids []models.SentenceID, format OutputFormat) error {
	if format == OutputJSON {
		out := make([]sentenceJSON, len(ids))
		for i, id := range ids {
			text, _ := a.Text(id)
			out[i] = sentenceJSON{ID: id.String(), Text: text}
		}
		return writeJSON(w, map[string]interface{}{"key": a.Key, "unaligned": out})
	}
	if len(ids) == 0 {
		fmt.Fprintf(w, "%s: every sentence is aligned\n", a.Key)
		return nil
	}
	fmt.Fprintf(w, "%s: %d unaligned\n", a.Key, len(ids))
	for _, id := range ids {
		text, _ := a.Text(id)
		fmt.Fprintf(w, "%s\t%s\n", id, utils.Truncate(text, textWidth))
	}
	return nil
}

// WriteCorrection writes the outcome of merging one review file.
func WriteCorrection(w io.Writer, res *pipeline.CorrectionResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "%s: merged %s\n", res.Key, res.Path)
	fmt.Fprintf(w, "  rows: %d (aligned %d, partial %d, unaligned %d)\n",
		res.Import.Rows, res.Import.Aligned, res.Import.Partial, res.Import.Unaligned)
	fmt.Fprintf(w, "  revision: %d\n", res.Revision.Number)
	return nil
}

// Status is the summary printed by the status command.
type Status struct {
	Documents      int64  `json:"documents"`
	Sentences      int64  `json:"sentences"`
	Snapshots      int64  `json:"snapshots"`
	Pairs          int    `json:"pairs"`
	DiskUsageBytes int64  `json:"disk_usage_bytes"`
	DatabasePath   string `json:"database_path"`
	ReviewDir      string `json:"review_dir"`
}

// WriteStatus writes storage counts.
func WriteStatus(w io.Writer, st Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Documents:  %d\n", st.Documents)
	fmt.Fprintf(w, "Sentences:  %d\n", st.Sentences)
	fmt.Fprintf(w, "Pairs:      %d\n", st.Pairs)
	fmt.Fprintf(w, "Snapshots:  %d\n", st.Snapshots)
	fmt.Fprintf(w, "Disk usage: %s\n", FormatBytes(st.DiskUsageBytes))
	fmt.Fprintf(w, "Database:   %s\n", st.DatabasePath)
	fmt.Fprintf(w, "Review dir: %s\n", st.ReviewDir)
	return nil
}

// WriteRevisions writes the snapshot history of one pair.
func WriteRevisions(w io.Writer, key models.PairKey, revs []storage.Revision, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"key": key, "revisions": revs})
	}
	fmt.Fprintf(w, "%s: %d revisions\n", key, len(revs))
	for _, r := range revs {
		fmt.Fprintf(w, "  %d\t%s\t%d edges\t%s\n", r.Number, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Edges, r.Checksum[:min(12, len(r.Checksum))])
	}
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
