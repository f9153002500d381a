package table

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// decodeXLSX reads the first sheet of a workbook. The first row is the
// header; empty rows inside the data keep their place. Numeric cells become float64, or time.Time when formatted as a
// date; boolean cells become bool; everything else is text.
func decodeXLSX(data []byte) ([]string, [][]any, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, nil, eris.Wrap(err, "xlsx: open workbook")
	}
	if len(f.Sheets) == 0 {
		return nil, nil, eris.New("xlsx: workbook has no sheets")
	}
	sheet := f.Sheets[0]

	var header []string
	var rows [][]any
	for i, row := range sheet.Rows {
		if i == 0 {
			if row != nil {
				header = make([]string, len(row.Cells))
				for j, cell := range row.Cells {
					header[j] = cell.String()
				}
			}
			continue
		}
		var values []any
		if row != nil {
			values = make([]any, len(row.Cells))
			for j, cell := range row.Cells {
				values[j] = cellValue(cell, f.Date1904)
			}
		}
		rows = append(rows, values)
	}
	return header, trimTrailingBlank(rows), nil
}

// trimTrailingBlank drops empty rows after the last populated one. Sheets
// often carry formatted but empty rows below the data.
func trimTrailingBlank(rows [][]any) [][]any {
	for len(rows) > 0 && blank(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	return rows
}

func cellValue(cell *xlsx.Cell, date1904 bool) any {
	if cell == nil {
		return nil
	}
	switch cell.Type() {
	case xlsx.CellTypeNumeric, xlsx.CellTypeDate:
		if cell.Value == "" {
			return nil
		}
		if cell.IsTime() {
			if t, err := cell.GetTime(date1904); err == nil {
				return t
			}
		}
		if f, err := cell.Float(); err == nil {
			return f
		}
	case xlsx.CellTypeBool:
		return cell.Bool()
	case xlsx.CellTypeError:
		return nil
	}
	return textCell(cell.String())
}
