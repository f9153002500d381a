package db

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Op is a comparison operator usable in a Predicate.
type Op string

// Supported predicate operators.
const (
	OpEq  Op = "="
	OpNeq Op = "<>"
	OpLte Op = "<="
	OpGte Op = ">="
	OpIn  Op = "IN"
)

// Predicate is a single column comparison. For OpIn, Value must be a slice.
type Predicate struct {
	Column string
	Op     Op
	Value  any
}

// Order sorts selected rows by one column.
type Order struct {
	Column string
	Desc   bool
}

// Dialect renders statements for one database engine. The engines differ
// only in how bind parameters are spelled.
type Dialect struct {
	Name string
	bind func(n int) string
}

// Postgres binds parameters as $1, $2, ...
var Postgres = Dialect{Name: "postgres", bind: func(n int) string { return "$" + strconv.Itoa(n) }}

// SQLite binds parameters positionally with ?.
var SQLite = Dialect{Name: "sqlite", bind: func(int) string { return "?" }}

type builder struct {
	d    Dialect
	args []any
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return b.d.bind(len(b.args))
}

// Select renders SELECT <columns> FROM <table> WHERE ... ORDER BY ... LIMIT n.
// Nil columns select everything; a non-positive limit means no limit.
func (d Dialect) Select(table string, columns []string, where []Predicate, limit int, order ...Order) (string, []any, error) {
	b := &builder{d: d}

	cols := "*"
	if len(columns) > 0 {
		cols = quoteAndJoin(columns)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", cols, sanitizeTable(table))

	if len(where) > 0 {
		clauses := make([]string, 0, len(where))
		for _, p := range where {
			clause, err := b.predicate(p)
			if err != nil {
				return "", nil, err
			}
			clauses = append(clauses, clause)
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(clauses, " AND "))
	}

	if len(order) > 0 {
		terms := make([]string, len(order))
		for i, o := range order {
			terms[i] = pgx.Identifier{o.Column}.Sanitize()
			if o.Desc {
				terms[i] += " DESC"
			}
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(terms, ", "))
	}

	if limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", limit)
	}
	return sb.String(), b.args, nil
}

func (b *builder) predicate(p Predicate) (string, error) {
	col := pgx.Identifier{p.Column}.Sanitize()
	switch p.Op {
	case OpEq, OpNeq, OpLte, OpGte:
		return fmt.Sprintf("%s %s %s", col, p.Op, b.arg(p.Value)), nil
	case OpIn:
		values, err := sliceValues(p.Value)
		if err != nil {
			return "", eris.Wrapf(err, "db: predicate on %s", p.Column)
		}
		if len(values) == 0 {
			return "1 = 0", nil
		}
		binds := make([]string, len(values))
		for i, v := range values {
			binds[i] = b.arg(v)
		}
		return fmt.Sprintf("%s IN (%s)", col, strings.Join(binds, ", ")), nil
	default:
		return "", eris.Errorf("db: unsupported operator %q", p.Op)
	}
}

// Insert renders INSERT INTO <table> (...) VALUES (...). When returning is
// set the statement ends with RETURNING CAST(<returning> AS TEXT).
func (d Dialect) Insert(table string, rec map[string]any, returning string) (string, []any) {
	b := &builder{d: d}
	cols := sortedColumns(rec)

	binds := make([]string, len(cols))
	for i, c := range cols {
		binds[i] = b.arg(rec[c])
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		sanitizeTable(table), quoteAndJoin(cols), strings.Join(binds, ", "))
	if returning != "" {
		sql += fmt.Sprintf(" RETURNING CAST(%s AS TEXT)", pgx.Identifier{returning}.Sanitize())
	}
	return sql, b.args
}

// Update renders UPDATE <table> SET ... WHERE <keyCol> = <key>. The key
// column is never part of the SET list.
func (d Dialect) Update(table string, rec map[string]any, keyCol string, key any) (string, []any, error) {
	b := &builder{d: d}

	var sets []string
	for _, c := range sortedColumns(rec) {
		if c == keyCol {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = %s", pgx.Identifier{c}.Sanitize(), b.arg(rec[c])))
	}
	if len(sets) == 0 {
		return "", nil, eris.Errorf("db: update %s: no columns to set", table)
	}

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		sanitizeTable(table), strings.Join(sets, ", "), pgx.Identifier{keyCol}.Sanitize(), b.arg(key))
	return sql, b.args, nil
}

// Upsert renders INSERT ... ON CONFLICT (keys) DO UPDATE SET col = EXCLUDED.col
// for every non-key column in rec. All conflict keys must be present in rec.
// Columns named in preserve are inserted but never overwritten on conflict.
func (d Dialect) Upsert(table string, rec map[string]any, conflictKeys []string, preserve ...string) (string, []any, error) {
	if len(rec) == 0 {
		return "", nil, eris.New("db: upsert: no columns specified")
	}
	if len(conflictKeys) == 0 {
		return "", nil, eris.New("db: upsert: no conflict keys specified")
	}
	for _, k := range conflictKeys {
		if _, ok := rec[k]; !ok {
			return "", nil, eris.Errorf("db: upsert: conflict key %q missing from record", k)
		}
	}

	insertSQL, args := d.Insert(table, rec, "")

	var sets []string
	for _, c := range sortedColumns(rec) {
		if slices.Contains(conflictKeys, c) || slices.Contains(preserve, c) {
			continue
		}
		q := pgx.Identifier{c}.Sanitize()
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", q, q))
	}

	action := "DO NOTHING"
	if len(sets) > 0 {
		action = "DO UPDATE SET " + strings.Join(sets, ", ")
	}
	return fmt.Sprintf("%s ON CONFLICT (%s) %s", insertSQL, quoteAndJoin(conflictKeys), action), args, nil
}

func sortedColumns(rec map[string]any) []string {
	return slices.Sorted(maps.Keys(rec))
}

func sliceValues(v any) ([]any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, eris.Errorf("IN requires a slice, got %T", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// sanitizeTable handles schema-qualified table names like "public.listings".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
