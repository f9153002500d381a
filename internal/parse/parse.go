// Package parse converts raw spreadsheet cells into optional typed values.
// Parsers are total: unparseable or missing input yields an invalid (null)
// value, never an error.
package parse

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

var (
	truthy = map[string]bool{"1": true, "true": true, "yes": true, "y": true, "نعم": true, "صح": true}
	falsy  = map[string]bool{"0": true, "false": true, "no": true, "n": true, "لا": true}
)

// Bool recognizes the closed set of yes/no tokens in English and Arabic.
func Bool(v any) pgtype.Bool {
	if b, ok := v.(bool); ok {
		return pgtype.Bool{Bool: b, Valid: true}
	}
	s, ok := cellText(v)
	if !ok {
		return pgtype.Bool{}
	}
	s = strings.ToLower(s)
	switch {
	case truthy[s]:
		return pgtype.Bool{Bool: true, Valid: true}
	case falsy[s]:
		return pgtype.Bool{Bool: false, Valid: true}
	}
	return pgtype.Bool{}
}

// Int parses a number after stripping thousands separators and truncates it
// toward zero.
func Int(v any) pgtype.Int8 {
	f := Float(v)
	if !f.Valid || f.Float64 >= math.MaxInt64 || f.Float64 <= math.MinInt64 {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: int64(f.Float64), Valid: true}
}

// Float parses a number after stripping thousands separators. NaN and
// infinities are treated as missing.
func Float(v any) pgtype.Float8 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case bool, time.Time:
		return pgtype.Float8{}
	default:
		s, ok := cellText(v)
		if !ok {
			return pgtype.Float8{}
		}
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		if err != nil {
			return pgtype.Float8{}
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return pgtype.Float8{}
	}
	return pgtype.Float8{Float64: f, Valid: true}
}

// Text trims surrounding whitespace. Empty text is missing.
func Text(v any) pgtype.Text {
	s, ok := cellText(v)
	if !ok {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// Date renders timestamps, or text in a recognizable date format, as an
// ISO-8601 date-time string.
func Date(v any) pgtype.Text {
	if t, ok := v.(time.Time); ok {
		return pgtype.Text{String: isoFormat(t), Valid: true}
	}
	if _, ok := v.(string); !ok {
		return pgtype.Text{}
	}
	s, ok := cellText(v)
	if !ok {
		return pgtype.Text{}
	}
	t, ok := parseTime(s)
	if !ok {
		return pgtype.Text{}
	}
	return pgtype.Text{String: isoFormat(t), Valid: true}
}

// DateOnly is Date truncated to the calendar day (YYYY-MM-DD).
func DateOnly(v any) pgtype.Text {
	d := Date(v)
	if !d.Valid {
		return d
	}
	day, _, _ := strings.Cut(d.String, "T")
	return pgtype.Text{String: day, Valid: true}
}

// Or returns t when valid, else fallback (which may itself be invalid).
func Or(t pgtype.Text, fallback string) pgtype.Text {
	if t.Valid {
		return t
	}
	fallback = strings.TrimSpace(fallback)
	return pgtype.Text{String: fallback, Valid: fallback != ""}
}

// cellText renders a cell as trimmed text; ok is false for nil and for
// cells that are empty after trimming.
func cellText(v any) (string, bool) {
	var s string
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s = t
	case float64:
		if math.IsNaN(t) {
			return "", false
		}
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case bool:
		s = strconv.FormatBool(t)
	case time.Time:
		s = isoFormat(t)
	case pgtype.Text:
		if !t.Valid {
			return "", false
		}
		s = t.String
	default:
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"2/1/2006",
	"1-2-2006",
	"2-1-2006",
	"2.1.2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"02-Jan-2006",
	"2006-01",
}

// parseTime tries month-first before day-first for slash dates, so
// 03/04/2025 is March 4th while 25/04/2025 still parses.
func parseTime(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// isoFormat omits the offset for UTC values, which is how naive spreadsheet
// timestamps arrive.
func isoFormat(t time.Time) string {
	layout := "2006-01-02T15:04:05"
	if t.Nanosecond() != 0 {
		layout += ".000000"
	}
	if t.Location() != time.UTC {
		layout += "-07:00"
	}
	return t.Format(layout)
}
