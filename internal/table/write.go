package table

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// WriteCSV writes a single header row as UTF-8 CSV.
func WriteCSV(w io.Writer, header []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "table: write csv header")
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "table: flush csv")
}

// WriteXLSX writes a workbook with one sheet holding the header row.
func WriteXLSX(w io.Writer, sheetName string, header []string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrapf(err, "table: add sheet %q", sheetName)
	}
	row := sheet.AddRow()
	for _, h := range header {
		row.AddCell().SetString(h)
	}
	return eris.Wrap(f.Write(w), "table: write xlsx")
}
