package review

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/alignment"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
	"github.com/samuelstevens/arxiv-edits-sub000/pkg/utils"
)

// ImportResult counts rows by label.
type ImportResult struct {
	Rows      int `json:"rows"`
	Aligned   int `json:"aligned"`
	Partial   int `json:"partial"`
	Unaligned int `json:"unaligned"`
}

type pendingEdge struct {
	from, to models.SentenceID
}

// Import applies relabeled review rows to a. Every row is validated before a is touched:
// an unknown label or an index that does not resolve aborts the whole import.
// Label 1 connects the pair, label 2 is logged and skipped, label 3 changes nothing.
func Import(a *alignment.Alignment, ren models.Renumbering, rows []models.ReviewRow, logger *zap.Logger) (ImportResult, error) {
	logger = utils.OrNop(logger)
	if ren.Key != a.Key {
		return ImportResult{}, fmt.Errorf("renumbering for %s does not match alignment %s", ren.Key, a.Key)
	}
	resolver := NewResolver(ren)
	res := ImportResult{Rows: len(rows)}
	var edges []pendingEdge

	for i, row := range rows {
		line := i + 2
		label, err := strconv.Atoi(strings.TrimSpace(row.Method))
		if err != nil || label < int(models.LabelAligned) || label > int(models.LabelUnaligned) {
			return ImportResult{}, &models.UnknownLabelError{Row: line, PairID: row.PairID, Label: row.Method}
		}
		switch models.Label(label) {
		case models.LabelAligned:
			from, ok := resolver.Resolve(a.Key.Version1, strings.TrimSpace(row.Sent0Idx))
			if !ok || !a.Has(from) {
				return ImportResult{}, unresolved(line, row.PairID, "sent_0_idx", row.Sent0Idx)
			}
			to, ok := resolver.Resolve(a.Key.Version2, strings.TrimSpace(row.Sent1Idx))
			if !ok || !a.Has(to) {
				return ImportResult{}, unresolved(line, row.PairID, "sent_1_idx", row.Sent1Idx)
			}
			edges = append(edges, pendingEdge{from: from, to: to})
			res.Aligned++
		case models.LabelPartial:
			logger.Info("partial alignment is not supported; row skipped",
				zap.Int("row", line), zap.String("pair_id", row.PairID))
			res.Partial++
		default:
			res.Unaligned++
		}
	}
	for _, e := range edges {
		if err := a.Connect(e.from, e.to); err != nil {
			return res, err
		}
	}
	return res, nil
}

func unresolved(line int, pairID, column, value string) error {
	return &models.InvariantViolation{
		Op:     "import",
		Detail: fmt.Sprintf("row %d (pair %s): %s %q does not resolve to a sentence", line, pairID, column, value),
	}
}

// WriteFile writes rows to path in the format implied by its extension.
func WriteFile(path string, rows []models.ReviewRow) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create review file: %w", err)
	}
	switch format {
	case FormatXLSX:
		err = WriteXLSX(f, rows)
	default:
		err = WriteCSV(f, rows)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// ReadFile reads rows from path in the format implied by its extension.
func ReadFile(path string) ([]models.ReviewRow, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open review file: %w", err)
	}
	defer f.Close()
	if format == FormatXLSX {
		return ReadXLSX(f)
	}
	return ReadCSV(f)
}
