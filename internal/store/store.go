// Package store exposes the table-scoped record store the import pipeline,
// lead routing and reporting talk to. Backends: Postgres (pgx), SQLite
// (modernc) and an in-process Memory store.
package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hrtaj/hrtaj-cli/internal/db"
)

// Record is one row keyed by column name.
type Record map[string]any

// String returns the column rendered as text, or "" when absent or null.
func (r Record) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Float returns the column as a float64 when it holds a number.
func (r Record) Float(col string) (float64, bool) {
	return toFloat(r[col])
}

// Time returns the column as a time when it holds a timestamp or an
// ISO-8601 / SQL timestamp string.
func (r Record) Time(col string) (time.Time, bool) {
	return toTime(r[col])
}

// Query describes a filtered select against one table. Build it with From.
type Query struct {
	table   string
	columns []string
	where   []db.Predicate
	order   []db.Order
	limit   int
}

// From starts a query against table.
func From(table string) *Query {
	return &Query{table: table}
}

// Table returns the queried table name.
func (q *Query) Table() string { return q.table }

// Select restricts the returned columns. No call means all columns.
func (q *Query) Select(cols ...string) *Query {
	q.columns = append(q.columns, cols...)
	return q
}

// Eq adds col = v.
func (q *Query) Eq(col string, v any) *Query { return q.add(col, db.OpEq, v) }

// Neq adds col <> v.
func (q *Query) Neq(col string, v any) *Query { return q.add(col, db.OpNeq, v) }

// Lte adds col <= v.
func (q *Query) Lte(col string, v any) *Query { return q.add(col, db.OpLte, v) }

// Gte adds col >= v.
func (q *Query) Gte(col string, v any) *Query { return q.add(col, db.OpGte, v) }

// In adds col IN (values...). values must be a slice.
func (q *Query) In(col string, values any) *Query { return q.add(col, db.OpIn, values) }

// OrderBy sorts the result by col, descending when desc is set. Calls
// accumulate; earlier columns sort first.
func (q *Query) OrderBy(col string, desc bool) *Query {
	q.order = append(q.order, db.Order{Column: col, Desc: desc})
	return q
}

// Limit caps the number of returned rows.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

func (q *Query) add(col string, op db.Op, v any) *Query {
	q.where = append(q.where, db.Predicate{Column: col, Op: op, Value: v})
	return q
}

// String renders the query for logs.
func (q *Query) String() string {
	parts := make([]string, 0, len(q.where))
	for _, p := range q.where {
		parts = append(parts, fmt.Sprintf("%s %s %v", p.Column, p.Op, p.Value))
	}
	return fmt.Sprintf("%s[%s]", q.table, strings.Join(parts, ", "))
}

// Store is the remote record store. Every call is an independent round trip;
// there is no transaction spanning calls.
type Store interface {
	// Select returns the rows matching q.
	Select(ctx context.Context, q *Query) ([]Record, error)
	// Insert writes rec and returns the generated (or supplied) id.
	Insert(ctx context.Context, table string, rec Record) (string, error)
	// Update overwrites the given columns of the row with this id.
	Update(ctx context.Context, table, id string, rec Record) error
	// Upsert inserts rec, or updates the row that already holds the same
	// conflictKey value.
	Upsert(ctx context.Context, table string, rec Record, conflictKey string) error
	Close() error
}
