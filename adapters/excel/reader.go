package excel

import (
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
)

// ReadSheet reads one worksheet back into a header row and string data
// rows. Used by tests and by tools that reopen written workbooks.
func ReadSheet(path, sheetName string) (headers []string, rows [][]string, err error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("workbook not found: %s", path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	all, err := f.GetRows(sheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %s: %w", sheetName, err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("sheet %s is empty", sheetName)
	}
	return all[0], all[1:], nil
}
