package fetcher

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// RowFunc receives one table row and its 1-based source row or line number.
// Returning an error stops the read and is passed through unchanged.
type RowFunc func(n int, fields []string) error

// EachXLSXRow calls fn for every row of one workbook sheet, header
// included. sheet is a sheet name, a 0-based index such as "1", or empty
// for the first sheet. Trailing empty cells are dropped from each row.
func EachXLSXRow(path, sheet string, fn RowFunc) error {
	wb, err := xlsx.OpenFile(path)
	if err != nil {
		return eris.Wrapf(err, "xlsx: open workbook %s", path)
	}
	sh, err := pickSheet(wb, sheet)
	if err != nil {
		return eris.Wrap(err, path)
	}
	for i, row := range sh.Rows {
		if err := fn(i+1, cellStrings(row)); err != nil {
			return err
		}
	}
	return nil
}

func pickSheet(wb *xlsx.File, sheet string) (*xlsx.Sheet, error) {
	sheet = strings.TrimSpace(sheet)
	if sh, ok := wb.Sheet[sheet]; ok {
		return sh, nil
	}
	idx := 0
	if sheet != "" {
		n, err := strconv.Atoi(sheet)
		if err != nil {
			return nil, eris.Errorf("xlsx: sheet %q not found", sheet)
		}
		idx = n
	}
	if idx < 0 || idx >= len(wb.Sheets) {
		return nil, eris.Errorf("xlsx: sheet %d out of range, workbook has %d", idx, len(wb.Sheets))
	}
	return wb.Sheets[idx], nil
}

func cellStrings(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	out := make([]string, len(row.Cells))
	last := -1
	for i, c := range row.Cells {
		out[i] = c.String()
		if out[i] != "" {
			last = i
		}
	}
	return out[:last+1]
}
