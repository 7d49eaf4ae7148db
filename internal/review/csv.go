package review

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
)

// WriteCSV writes the header and rows.
func WriteCSV(w io.Writer, rows []models.ReviewRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(rowValues(r)); err != nil {
			return fmt.Errorf("failed to write row %s: %w", r.PairID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a review table. The header row is mandatory; columns may appear in any order.
func ReadCSV(r io.Reader) ([]models.ReviewRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("review table is empty: header row is required")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	idx, err := headerIndex(header)
	if err != nil {
		return nil, err
	}
	var rows []models.ReviewRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(rows)+2, err)
		}
		rows = append(rows, rowFromValues(idx, rec))
	}
	return rows, nil
}
