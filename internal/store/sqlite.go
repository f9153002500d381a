package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/hrtaj/hrtaj-cli/internal/db"
)

// SQLite implements Store on a local SQLite file. It serves local runs and
// tests; JSON-shaped columns are stored as text.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and configures WAL mode.
func NewSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLite{db: conn}, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS listings (
	id                TEXT PRIMARY KEY,
	owner_user_id     TEXT,
	developer_id      TEXT,
	project_id        TEXT,
	hr_owner_user_id  TEXT,
	title             TEXT,
	title_ar          TEXT,
	title_en          TEXT,
	type              TEXT,
	purpose           TEXT,
	price             REAL,
	currency          TEXT,
	city              TEXT,
	area              TEXT,
	address           TEXT,
	beds              INTEGER,
	baths             INTEGER,
	size_m2           REAL,
	description       TEXT,
	amenities         TEXT,
	status            TEXT,
	submission_status TEXT,
	unit_code         TEXT,
	inventory_source  TEXT,
	developer_payload TEXT,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS resale_intake (
	id           TEXT PRIMARY KEY,
	listing_id   TEXT UNIQUE REFERENCES listings(id),
	agent_name   TEXT,
	owner_name   TEXT,
	owner_phone  TEXT,
	unit_code    TEXT,
	floor        TEXT,
	size_m2      REAL,
	elevator     BOOLEAN,
	finishing    TEXT,
	meters       TEXT,
	bedrooms     INTEGER,
	reception    INTEGER,
	bathrooms    INTEGER,
	kitchen      BOOLEAN,
	view         TEXT,
	building     TEXT,
	has_images   BOOLEAN,
	entrance     TEXT,
	commission   TEXT,
	intake_date  TEXT,
	target       TEXT,
	ad_channel   TEXT,
	address      TEXT,
	area         TEXT,
	city         TEXT,
	price        REAL,
	currency     TEXT,
	notes        TEXT,
	raw_payload  TEXT,
	created_by   TEXT
);

CREATE TABLE IF NOT EXISTS projects (
	id                TEXT PRIMARY KEY,
	developer_id      TEXT NOT NULL,
	owner_user_id     TEXT,
	project_code      TEXT,
	title_ar          TEXT,
	title_en          TEXT,
	description_ar    TEXT,
	description_en    TEXT,
	city              TEXT,
	area              TEXT,
	submission_status TEXT,
	developer_payload TEXT
);

CREATE TABLE IF NOT EXISTS import_runs (
	id           TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	filename     TEXT,
	status       TEXT NOT NULL,
	started_at   TEXT NOT NULL,
	completed_at TEXT,
	rows_total   INTEGER,
	rows_failed  INTEGER,
	report       TEXT,
	error        TEXT
);

CREATE TABLE IF NOT EXISTS leads (
	id          TEXT PRIMARY KEY,
	listing_id  TEXT,
	source      TEXT,
	phone       TEXT,
	email       TEXT,
	status      TEXT,
	assigned_to TEXT,
	created_at  TEXT,
	updated_at  TEXT
);

CREATE TABLE IF NOT EXISTS lead_assignments (
	id          TEXT PRIMARY KEY,
	lead_id     TEXT UNIQUE,
	assigned_to TEXT,
	created_at  TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);

CREATE TABLE IF NOT EXISTS profiles (
	id   TEXT PRIMARY KEY,
	role TEXT
);

CREATE TABLE IF NOT EXISTS developer_members (
	id           TEXT PRIMARY KEY,
	developer_id TEXT,
	user_id      TEXT
);

CREATE VIEW IF NOT EXISTS report_units_per_day AS
	SELECT date(created_at) AS day, COUNT(*) AS units FROM listings GROUP BY date(created_at);

CREATE VIEW IF NOT EXISTS report_leads_per_day AS
	SELECT date(created_at) AS day, COUNT(*) AS leads FROM leads GROUP BY date(created_at);

CREATE INDEX IF NOT EXISTS idx_listings_unit_code ON listings(unit_code);
CREATE INDEX IF NOT EXISTS idx_resale_intake_match ON resale_intake(owner_phone, address, price);
CREATE INDEX IF NOT EXISTS idx_projects_developer ON projects(developer_id, project_code);
`

// Migrate creates the local tables. Production schemas are owned by the
// hosted database and are not managed here.
func (s *SQLite) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteSchema)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLite) Select(ctx context.Context, q *Query) ([]Record, error) {
	query, args, err := db.SQLite.Select(q.table, q.columns, q.where, q.limit, q.order...)
	if err != nil {
		return nil, err
	}
	for i, a := range args {
		if args[i], err = sqliteValue(a); err != nil {
			return nil, err
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: select %s", q.table)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: columns")
	}

	var out []Record
	for rows.Next() {
		vals := make([]any, len(cols))
		dests := make([]any, len(cols))
		for i := range vals {
			dests[i] = &vals[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan %s", q.table)
		}
		rec := make(Record, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				rec[c] = string(b)
				continue
			}
			rec[c] = vals[i]
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate rows")
}

func (s *SQLite) Insert(ctx context.Context, table string, rec Record) (string, error) {
	row, err := encodeSQLite(rec)
	if err != nil {
		return "", err
	}
	id, _ := row["id"].(string)
	if id == "" {
		id = uuid.NewString()
		row["id"] = id
	}

	query, args := db.SQLite.Insert(table, row, "")
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", eris.Wrapf(err, "sqlite: insert %s", table)
	}
	return id, nil
}

func (s *SQLite) Update(ctx context.Context, table, id string, rec Record) error {
	row, err := encodeSQLite(rec)
	if err != nil {
		return err
	}
	query, args, err := db.SQLite.Update(table, row, "id", id)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update %s %s", table, id)
	}
	return checkRowsAffected(res, table, id)
}

func (s *SQLite) Upsert(ctx context.Context, table string, rec Record, conflictKey string) error {
	row, err := encodeSQLite(rec)
	if err != nil {
		return err
	}
	if _, ok := row["id"]; !ok && conflictKey != "id" {
		row["id"] = uuid.NewString()
	}
	query, args, err := db.SQLite.Upsert(table, row, []string{conflictKey}, "id")
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return eris.Wrapf(err, "sqlite: upsert %s", table)
	}
	return nil
}

func encodeSQLite(rec Record) (map[string]any, error) {
	row := make(map[string]any, len(rec))
	for k, v := range rec {
		enc, err := sqliteValue(v)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: column %s", k)
		}
		row[k] = enc
	}
	return row, nil
}

func checkRowsAffected(res sql.Result, table, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: update %s: row not found: %s", table, id)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
