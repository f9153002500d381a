package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/hrtaj/hrtaj-cli/internal/db"
)

// Memory is an in-process Store used for dry runs without a database and
// for tests. Predicates follow SQL semantics: a NULL column never matches.
type Memory struct {
	mu     sync.RWMutex
	tables map[string][]Record
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{tables: make(map[string][]Record)}
}

// Seed appends rows to table as-is, assigning ids where missing.
func (m *Memory) Seed(table string, rows ...Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		rec := maps.Clone(r)
		if rec.String("id") == "" {
			rec["id"] = uuid.NewString()
		}
		m.tables[table] = append(m.tables[table], rec)
	}
}

// Rows returns a copy of every row in table in insertion order.
func (m *Memory) Rows(table string) []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, len(m.tables[table]))
	for i, r := range m.tables[table] {
		out[i] = maps.Clone(r)
	}
	return out
}

func (m *Memory) Select(_ context.Context, q *Query) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []Record
	for _, row := range m.tables[q.table] {
		ok, err := matchAll(row, q.where)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, row)
		}
	}
	if len(q.order) > 0 {
		slices.SortStableFunc(matched, func(a, b Record) int {
			return compareRows(a, b, q.order)
		})
	}
	if q.limit > 0 && len(matched) > q.limit {
		matched = matched[:q.limit]
	}

	var out []Record
	for _, row := range matched {
		out = append(out, project(row, q.columns))
	}
	return out, nil
}

// compareRows orders two rows by each order column in turn. NULLs sort
// last in either direction.
func compareRows(a, b Record, order []db.Order) int {
	for _, o := range order {
		av, bv := a[o.Column], b[o.Column]
		switch {
		case av == nil && bv == nil:
			continue
		case av == nil:
			return 1
		case bv == nil:
			return -1
		}
		c, _ := compareValues(av, bv)
		if o.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

func (m *Memory) Insert(_ context.Context, table string, rec Record) (string, error) {
	row, err := plainRecord(rec)
	if err != nil {
		return "", err
	}
	id := row.String("id")
	if id == "" {
		id = uuid.NewString()
		row["id"] = id
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.tables[table] {
		if existing.String("id") == id {
			return "", eris.Errorf("memory: insert %s: duplicate id %s", table, id)
		}
	}
	m.tables[table] = append(m.tables[table], row)
	return id, nil
}

func (m *Memory) Update(_ context.Context, table, id string, rec Record) error {
	row, err := plainRecord(rec)
	if err != nil {
		return err
	}
	delete(row, "id")

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.tables[table] {
		if existing.String("id") == id {
			maps.Copy(existing, row)
			return nil
		}
	}
	return eris.Errorf("memory: update %s: row not found: %s", table, id)
}

func (m *Memory) Upsert(_ context.Context, table string, rec Record, conflictKey string) error {
	row, err := plainRecord(rec)
	if err != nil {
		return err
	}
	key, ok := row[conflictKey]
	if !ok {
		return eris.Errorf("memory: upsert %s: conflict key %q missing from record", table, conflictKey)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.tables[table] {
		if key != nil && equalValues(existing[conflictKey], key) {
			delete(row, "id")
			maps.Copy(existing, row)
			return nil
		}
	}
	if row.String("id") == "" {
		row["id"] = uuid.NewString()
	}
	m.tables[table] = append(m.tables[table], row)
	return nil
}

func (m *Memory) Close() error { return nil }

func plainRecord(rec Record) (Record, error) {
	out := make(Record, len(rec))
	for k, v := range rec {
		p, err := plain(v)
		if err != nil {
			return nil, eris.Wrapf(err, "memory: column %s", k)
		}
		out[k] = p
	}
	return out, nil
}

func project(row Record, cols []string) Record {
	if len(cols) == 0 {
		return maps.Clone(row)
	}
	out := make(Record, len(cols))
	for _, c := range cols {
		out[c] = row[c]
	}
	return out
}

func matchAll(row Record, where []db.Predicate) (bool, error) {
	for _, p := range where {
		ok, err := match(row[p.Column], p)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func match(have any, p db.Predicate) (bool, error) {
	if have == nil {
		return false, nil
	}
	want, err := plain(p.Value)
	if err != nil {
		return false, err
	}
	switch p.Op {
	case db.OpEq:
		return want != nil && equalValues(have, want), nil
	case db.OpNeq:
		return want != nil && !equalValues(have, want), nil
	case db.OpLte:
		c, ok := compareValues(have, want)
		return ok && c <= 0, nil
	case db.OpGte:
		c, ok := compareValues(have, want)
		return ok && c >= 0, nil
	case db.OpIn:
		values, ok := want.([]string)
		if ok {
			for _, v := range values {
				if equalValues(have, v) {
					return true, nil
				}
			}
			return false, nil
		}
		if list, ok := want.([]any); ok {
			for _, v := range list {
				if equalValues(have, v) {
					return true, nil
				}
			}
			return false, nil
		}
		return false, eris.Errorf("memory: IN on %s requires []string or []any, got %T", p.Column, want)
	default:
		return false, eris.Errorf("memory: unsupported operator %q", p.Op)
	}
}

func equalValues(a, b any) bool {
	c, ok := compareValues(a, b)
	return ok && c == 0
}

// compareValues orders a and b numerically when either is a number, by time
// when both are timestamps, and as text otherwise.
func compareValues(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	_, aText := a.(string)
	_, bText := b.(string)
	if af, ok := toFloat(a); ok && !(aText && bText) {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			}
			return 0, true
		}
	}
	if at, ok := toTime(a); ok {
		if bt, ok := toTime(b); ok {
			return at.Compare(bt), true
		}
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			if ab == bb {
				return 0, true
			}
			if !ab {
				return -1, true
			}
			return 1, true
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b)), true
}
