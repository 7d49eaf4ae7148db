package review

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/alignment"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
)

// Columns is the mandatory header of the review table.
var Columns = []string{"pair_ID", "pair_UID", "sent_0_idx", "sent_0", "sent_1_idx", "sent_1", "aligning_method"}

// pairNamespace scopes pair UIDs so they are stable across exports of the same pair.
var pairNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://arxiv.org/review-pairs"))

// Format is the on-disk encoding of a review table.
type Format string

const (
	// FormatCSV is a comma-separated file with a header row.
	FormatCSV Format = "csv"
	// FormatXLSX is a workbook with one sheet.
	FormatXLSX Format = "xlsx"
)

// Export renumbers the unaligned sentences of a and returns the full version1 x version2 cross
// product as review rows, every row labeled unaligned.
func Export(a *alignment.Alignment, boring map[models.SentenceID]struct{}) (models.Renumbering, []models.ReviewRow) {
	ids := Unaligned(a, boring)
	ren := Renumber(a.Key, ids)

	var left, right []models.RenumberEntry
	for _, e := range ren.Entries {
		if e.Version == a.Key.Version1 {
			left = append(left, e)
		} else {
			right = append(right, e)
		}
	}
	rows := make([]models.ReviewRow, 0, len(left)*len(right))
	for _, l := range left {
		lText, _ := a.Text(l.ID)
		for _, r := range right {
			rText, _ := a.Text(r.ID)
			uid := uuid.NewSHA1(pairNamespace, []byte(l.ID.String()+"|"+r.ID.String()))
			rows = append(rows, models.ReviewRow{
				PairID:   strconv.Itoa(len(rows)),
				PairUID:  uid.String(),
				Sent0Idx: Label(l),
				Sent0:    lText,
				Sent1Idx: Label(r),
				Sent1:    rText,
				Method:   strconv.Itoa(int(models.LabelUnaligned)),
			})
		}
	}
	return ren, rows
}

func rowValues(r models.ReviewRow) []string {
	return []string{r.PairID, r.PairUID, r.Sent0Idx, r.Sent0, r.Sent1Idx, r.Sent1, r.Method}
}

// headerIndex maps each column to its position in header. Every column must be present.
func headerIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, c := range Columns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("review table header is missing column %q", c)
		}
	}
	return idx, nil
}

func rowFromValues(idx map[string]int, values []string) models.ReviewRow {
	get := func(col string) string {
		i := idx[col]
		if i >= len(values) {
			return ""
		}
		return values[i]
	}
	return models.ReviewRow{
		PairID:   get("pair_ID"),
		PairUID:  get("pair_UID"),
		Sent0Idx: get("sent_0_idx"),
		Sent0:    get("sent_0"),
		Sent1Idx: get("sent_1_idx"),
		Sent1:    get("sent_1"),
		Method:   get("aligning_method"),
	}
}

var fileNameRe = regexp.MustCompile(`^(.+)_v(\d+)_v(\d+)\.(csv|xlsx)$`)

// FileName returns the review file name for key. Paper ids are path-escaped.
func FileName(key models.PairKey, format Format) string {
	return fmt.Sprintf("%s_v%d_v%d.%s", url.PathEscape(key.PaperID), key.Version1, key.Version2, format)
}

// ParseFileName reverses FileName. Directory components are ignored.
func ParseFileName(path string) (models.PairKey, Format, error) {
	m := fileNameRe.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return models.PairKey{}, "", fmt.Errorf("not a review file name: %s", path)
	}
	paper, err := url.PathUnescape(m[1])
	if err != nil {
		return models.PairKey{}, "", fmt.Errorf("invalid paper id in %s: %w", path, err)
	}
	v1, _ := strconv.Atoi(m[2])
	v2, _ := strconv.Atoi(m[3])
	return models.PairKey{PaperID: paper, Version1: v1, Version2: v2}, Format(m[4]), nil
}

// FormatOf returns the format implied by a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported review file extension: %s", path)
	}
}
