package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/hrtaj/hrtaj-cli/internal/db"
)

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres opens a pool against connString and pings it.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*Postgres, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &Postgres{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool db.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Select(ctx context.Context, q *Query) ([]Record, error) {
	sql, args, err := db.Postgres.Select(q.table, q.columns, q.where, q.limit, q.order...)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: select %s", q.table)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: scan %s", q.table)
	}

	out := make([]Record, len(maps))
	for i, m := range maps {
		rec := make(Record, len(m))
		for k, v := range m {
			rec[k] = pgValue(v)
		}
		out[i] = rec
	}
	return out, nil
}

func (s *Postgres) Insert(ctx context.Context, table string, rec Record) (string, error) {
	sql, args := db.Postgres.Insert(table, rec, "id")

	var id string
	if err := s.pool.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		return "", eris.Wrapf(err, "postgres: insert %s", table)
	}
	return id, nil
}

func (s *Postgres) Update(ctx context.Context, table, id string, rec Record) error {
	sql, args, err := db.Postgres.Update(table, rec, "id", id)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update %s %s", table, id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: update %s: row not found: %s", table, id)
	}
	return nil
}

func (s *Postgres) Upsert(ctx context.Context, table string, rec Record, conflictKey string) error {
	sql, args, err := db.Postgres.Upsert(table, rec, []string{conflictKey})
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		return eris.Wrapf(err, "postgres: upsert %s", table)
	}
	return nil
}

// Ping checks connectivity.
func (s *Postgres) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}
