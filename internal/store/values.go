package store

import (
	"database/sql/driver"
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rotisserie/eris"
)

// plain unwraps driver.Valuer values (pgtype.Text, pgtype.Float8, ...) into
// their Go scalar, or nil when the value is NULL.
func plain(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if dv, ok := v.(driver.Valuer); ok {
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return nil, nil
		}
		out, err := dv.Value()
		if err != nil {
			return nil, eris.Wrap(err, "store: resolve value")
		}
		return out, nil
	}
	return v, nil
}

// sqliteValue converts v into something the SQLite driver accepts: scalars
// pass through, maps and slices are stored as JSON text.
func sqliteValue(v any) (any, error) {
	v, err := plain(v)
	if err != nil || v == nil {
		return v, err
	}
	switch v.(type) {
	case string, []byte, bool, int, int32, int64, float32, float64, time.Time:
		return v, nil
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, eris.Wrap(err, "store: encode json column")
		}
		return string(b), nil
	}
	return v, nil
}

// pgValue normalizes values read back through pgx so callers see the same
// shapes regardless of backend.
func pgValue(v any) any {
	switch t := v.(type) {
	case [16]byte:
		return uuid.UUID(t).String()
	case pgtype.Numeric:
		f, err := t.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	default:
		return v
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	if dv, ok := v.(driver.Valuer); ok {
		if p, err := plain(dv); err == nil && p != nil {
			return toFloat(p)
		}
	}
	return 0, false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}
