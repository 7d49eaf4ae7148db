package e2e

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const methodColumn = "aligning_method"

// Relabel plays the reviewer: it sets the aligning_method cell of every data row of a review
// file to label, editing the file in place the way a spreadsheet user would.
func Relabel(path, label string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return relabelCSV(path, label)
	case ".xlsx":
		return relabelXLSX(path, label)
	default:
		return fmt.Errorf("unsupported review file %s", path)
	}
}

func columnOf(header []string) (int, error) {
	for i, h := range header {
		if strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) == methodColumn {
			return i, nil
		}
	}
	return 0, fmt.Errorf("header has no %s column", methodColumn)
}

func relabelCSV(path, label string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	records, err := csv.NewReader(f).ReadAll()
	f.Close()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("%s is empty", path)
	}
	col, err := columnOf(records[0])
	if err != nil {
		return err
	}
	for _, rec := range records[1:] {
		rec[col] = label
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(out)
	if err := w.WriteAll(records); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func relabelXLSX(path, label string) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("%s is empty", path)
	}
	col, err := columnOf(rows[0])
	if err != nil {
		return err
	}
	for r := 1; r < len(rows); r++ {
		cell, err := excelize.CoordinatesToCellName(col+1, r+1)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(sheet, cell, label); err != nil {
			return err
		}
	}
	return f.Save()
}
