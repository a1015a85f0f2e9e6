// Package excel reads and writes the workflow's spreadsheet artifacts.
package excel

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// Sheet is one named worksheet: a header row followed by data rows.
// Row values may be string, int64 or float64; excelize preserves the
// native type in the cell.
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]interface{}
}

// WriteWorkbook writes the sheets to a single workbook. The file is
// saved to a temporary sibling and renamed into place so a failed write
// never leaves a partial workbook behind.
func WriteWorkbook(path string, sheets []Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("workbook %s: no sheets to write", path)
	}

	f := excelize.NewFile()
	defer f.Close()

	for _, sheet := range sheets {
		if _, err := f.NewSheet(sheet.Name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sheet.Name, err)
		}
		for i, h := range sheet.Headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			if err := f.SetCellValue(sheet.Name, cell, h); err != nil {
				return fmt.Errorf("failed to write header of sheet %s: %w", sheet.Name, err)
			}
		}
		for r, row := range sheet.Rows {
			for c, v := range row {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
				if err := f.SetCellValue(sheet.Name, cell, v); err != nil {
					return fmt.Errorf("failed to write sheet %s row %d: %w", sheet.Name, r+2, err)
				}
			}
		}
	}

	// drop the default sheet excelize creates
	if sheets[0].Name != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("failed to remove default sheet: %w", err)
		}
	}

	// SaveAs rejects unrecognized extensions, so the temp name ends in
	// .xlsx too
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp.xlsx")
	if err := f.SaveAs(tmp); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move workbook into place at %s: %w", path, err)
	}
	return nil
}
