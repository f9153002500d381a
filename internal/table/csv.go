package table

import (
	"bytes"
	"encoding/csv"
	"io"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeCSV reads comma-separated text. Files that are not valid UTF-8 are
// decoded as Windows-1256, the usual export charset of Arabic Excel.
func decodeCSV(data []byte) ([]string, [][]any, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		decoded, _, err := transform.Bytes(charmap.Windows1256.NewDecoder(), data)
		if err != nil {
			return nil, nil, eris.Wrap(err, "csv: decode windows-1256")
		}
		data = decoded
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var header []string
	var rows [][]any
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, eris.Wrap(err, "csv: read row")
		}
		if header == nil {
			header = record
			continue
		}
		row := make([]any, len(record))
		for i, field := range record {
			row[i] = textCell(field)
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}
