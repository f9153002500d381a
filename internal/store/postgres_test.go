package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return NewPostgresWithPool(mock), mock
}

func TestPostgres_Select(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT "id" FROM "listings" WHERE "unit_code" = \$1 LIMIT 1`).
		WithArgs("HR-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("listing-1"))

	rows, err := s.Select(context.Background(), From("listings").Select("id").Eq("unit_code", "HR-1").Limit(1))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "listing-1", rows[0].String("id"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Select_Empty(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT "listing_id" FROM "resale_intake"`).
		WithArgs("0100", "Street 9", 1500000.0).
		WillReturnRows(pgxmock.NewRows([]string{"listing_id"}))

	rows, err := s.Select(context.Background(), From("resale_intake").
		Select("listing_id").
		Eq("owner_phone", "0100").
		Eq("address", "Street 9").
		Eq("price", 1500000.0).
		Limit(1))
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Insert_ReturnsID(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(`INSERT INTO "listings" \("price", "title"\) VALUES \(\$1, \$2\) RETURNING CAST\("id" AS TEXT\)`).
		WithArgs(pgtype.Float8{Float64: 10, Valid: true}, "Flat - Maadi").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("new-id"))

	id, err := s.Insert(context.Background(), "listings", Record{
		"title": "Flat - Maadi",
		"price": pgtype.Float8{Float64: 10, Valid: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "new-id", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Update_NotFound(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`UPDATE "listings" SET "title" = \$1 WHERE "id" = \$2`).
		WithArgs("x", "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.Update(context.Background(), "listings", "missing", Record{"title": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Update(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`UPDATE "leads" SET "assigned_to" = \$1 WHERE "id" = \$2`).
		WithArgs("staff-1", "lead-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.Update(context.Background(), "leads", "lead-1", Record{"assigned_to": "staff-1"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Upsert(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`ON CONFLICT \("lead_id"\) DO UPDATE SET "assigned_to" = EXCLUDED."assigned_to"`).
		WithArgs("staff-1", "lead-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.Upsert(context.Background(), "lead_assignments", Record{"lead_id": "lead-1", "assigned_to": "staff-1"}, "lead_id")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Upsert_MissingKey(t *testing.T) {
	s, _ := newMockPostgres(t)

	err := s.Upsert(context.Background(), "lead_assignments", Record{"assigned_to": "staff-1"}, "lead_id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflict key")
}
