// Package table decodes uploaded CSV and Excel files into rows of raw cells.
package table

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrUnsupportedFileType is returned for files that are neither CSV nor Excel.
var ErrUnsupportedFileType = eris.New("unsupported file type: use .csv, .xlsx or .xls")

// FormatError reports a supported file whose contents could not be decoded.
type FormatError struct {
	Filename string
	Err      error
}

func (e *FormatError) Error() string { return fmt.Sprintf("%s: %v", e.Filename, e.Err) }

func (e *FormatError) Unwrap() error { return e.Err }

// Table is a decoded sheet. Columns keep the file's header order.
type Table struct {
	Columns []string
	Rows    []Row
}

// Row is one data row. Values align with Table.Columns; a nil value is a
// missing cell. Cells are string, float64, bool or time.Time. Rows whose
// cells are all empty are kept so they count and fail validation.
type Row struct {
	// Number is the row's position as a spreadsheet user sees it: the header
	// is row 1, so the first data record is row 2.
	Number int
	Values []any
}

// Read decodes data according to the filename's extension.
func Read(data []byte, filename string) (*Table, error) {
	var (
		header []string
		rows   [][]any
		err    error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		header, rows, err = decodeCSV(data)
	case ".xlsx":
		header, rows, err = decodeXLSX(data)
	case ".xls":
		// Some exports name OOXML workbooks .xls.
		if isOLE2(data) {
			header, rows, err = decodeXLS(data)
		} else {
			header, rows, err = decodeXLSX(data)
		}
	default:
		return nil, ErrUnsupportedFileType
	}
	if err != nil {
		return nil, &FormatError{Filename: filename, Err: err}
	}
	t, err := build(header, rows)
	if err != nil {
		return nil, &FormatError{Filename: filename, Err: err}
	}
	return t, nil
}

func build(header []string, records [][]any) (*Table, error) {
	for len(header) > 0 && strings.TrimSpace(header[len(header)-1]) == "" {
		header = header[:len(header)-1]
	}
	if len(header) == 0 {
		return nil, eris.New("table: file has no header row")
	}

	t := &Table{Columns: columnNames(header)}
	for i, rec := range records {
		values := make([]any, len(t.Columns))
		copy(values, rec)
		t.Rows = append(t.Rows, Row{Number: i + 2, Values: values})
	}
	return t, nil
}

// columnNames names empty headers "Unnamed: <index>" and suffixes repeated
// headers with ".1", ".2", ... so every column is addressable.
func columnNames(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}

func blank(rec []any) bool {
	for _, v := range rec {
		if v != nil {
			return false
		}
	}
	return true
}

// Payload returns the row's cells keyed by canonical field, following a
// canonical-field to column mapping. Fields whose column is absent map to nil.
func (t *Table) Payload(row Row, mapping map[string]string) map[string]any {
	idx := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		idx[c] = i
	}
	out := make(map[string]any, len(mapping))
	for field, col := range mapping {
		i, ok := idx[col]
		if !ok || i >= len(row.Values) {
			out[field] = nil
			continue
		}
		out[field] = row.Values[i]
	}
	return out
}

// naTokens are cell texts read as missing values.
var naTokens = map[string]bool{
	"": true, "#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true, "-1.#QNAN": true,
	"-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true, "<NA>": true, "N/A": true,
	"NA": true, "NULL": true, "NaN": true, "None": true, "n/a": true, "nan": true, "null": true,
}

func textCell(s string) any {
	if naTokens[s] || strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
