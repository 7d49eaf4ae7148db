package review

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
)

// sheetName is the default sheet of a new workbook.
const sheetName = "Sheet1"

// WriteXLSX writes the header and rows to a single-sheet workbook.
func WriteXLSX(w io.Writer, rows []models.ReviewRow) error {
	f := excelize.NewFile()
	defer f.Close()

	writeRow := func(n int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, n)
		if err != nil {
			return err
		}
		out := make([]interface{}, len(values))
		for i, v := range values {
			out[i] = v
		}
		return f.SetSheetRow(sheetName, cell, &out)
	}
	if err := writeRow(1, Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range rows {
		if err := writeRow(i+2, rowValues(r)); err != nil {
			return fmt.Errorf("write row %s: %w", r.PairID, err)
		}
	}
	_, err := f.WriteTo(w)
	return err
}

// ReadXLSX parses the first sheet of a review workbook.
func ReadXLSX(r io.Reader) ([]models.ReviewRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	values, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("review table is empty: header row is required")
	}
	idx, err := headerIndex(values[0])
	if err != nil {
		return nil, err
	}
	rows := make([]models.ReviewRow, 0, len(values)-1)
	for _, v := range values[1:] {
		if blank(v) {
			continue
		}
		rows = append(rows, rowFromValues(idx, v))
	}
	return rows, nil
}

func blank(values []string) bool {
	for _, v := range values {
		if v != "" {
			return false
		}
	}
	return true
}
