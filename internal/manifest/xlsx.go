package manifest

import (
	"fmt"

	"github.com/unidoc/unioffice/spreadsheet"
)

// readWorkbook flattens the first worksheet of an xlsx file into a string
// grid. Only the first sheet is consulted, matching how import manifests are
// produced upstream.
func readWorkbook(path string) ([][]string, error) {
	wb, err := spreadsheet.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotSpreadsheet, err)
	}
	defer wb.Close()

	sheets := wb.Sheets()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrNotSpreadsheet)
	}

	var grid [][]string
	for _, row := range sheets[0].Rows() {
		cells := row.Cells()
		record := make([]string, 0, len(cells))
		for _, cell := range cells {
			record = append(record, cell.GetString())
		}
		grid = append(grid, record)
	}
	return grid, nil
}
