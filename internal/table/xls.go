package table

import (
	"bytes"

	"github.com/extrame/xls"
	"github.com/rotisserie/eris"
)

// oleMagic opens every OLE2 compound file, the container of BIFF .xls
// workbooks.
var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

func isOLE2(data []byte) bool {
	return bytes.HasPrefix(data, oleMagic)
}

// decodeXLS reads the first sheet of a legacy BIFF workbook. Cells come back
// as formatted text; the field parsers take it from there.
func decodeXLS(data []byte) (header []string, rows [][]any, err error) {
	// The BIFF reader panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			header, rows = nil, nil
			err = eris.Errorf("xls: malformed workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, nil, eris.Wrap(err, "xls: open workbook")
	}
	if wb == nil {
		return nil, nil, eris.New("xls: no workbook stream in file")
	}
	if wb.NumSheets() == 0 {
		return nil, nil, eris.New("xls: workbook has no sheets")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, nil, eris.New("xls: workbook has no sheets")
	}

	first := sheet.Row(0)
	if first == nil {
		return nil, nil, nil
	}
	header = make([]string, first.LastCol())
	for j := range header {
		header[j] = first.Col(j)
	}

	for i := 1; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		values := make([]any, len(header))
		for j := range values {
			values[j] = textCell(row.Col(j))
		}
		rows = append(rows, values)
	}
	return header, trimTrailingBlank(rows), nil
}
