// Package dedup decides whether an imported row refers to a record that is
// already stored, by trying an ordered list of match strategies.
package dedup

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hrtaj/hrtaj-cli/internal/store"
)

// Strategy is one lookup in a cascade. A nil Query means the strategy does
// not apply to this row (its key fields are missing) and is skipped.
type Strategy struct {
	Name     string
	Query    *store.Query
	IDColumn string
}

// Match is the outcome of a cascade. ID is empty when nothing matched.
type Match struct {
	ID       string
	Strategy string
}

// Found reports whether a strategy matched.
func (m Match) Found() bool { return m.ID != "" }

// Resolver runs strategy cascades against a store.
type Resolver struct {
	store store.Store
}

// NewResolver creates a Resolver.
func NewResolver(s store.Store) *Resolver {
	return &Resolver{store: s}
}

// Resolve tries strategies in order and stops at the first one that returns
// a row with a non-empty id. Later strategies are never queried once an
// earlier one matched.
func (r *Resolver) Resolve(ctx context.Context, strategies ...Strategy) (Match, error) {
	for _, s := range strategies {
		if s.Query == nil {
			continue
		}
		rows, err := r.store.Select(ctx, s.Query)
		if err != nil {
			return Match{}, eris.Wrapf(err, "dedup: %s", s.Name)
		}
		if len(rows) == 0 {
			continue
		}
		if id := rows[0].String(s.IDColumn); id != "" {
			zap.L().Debug("dedup: matched existing record",
				zap.String("strategy", s.Name),
				zap.String("table", s.Query.Table()),
				zap.String("id", id),
			)
			return Match{ID: id, Strategy: s.Name}, nil
		}
	}
	return Match{}, nil
}

// ResaleListing matches a resale row by unit code, then by the owner phone,
// address and exact price recorded on earlier intakes.
func ResaleListing(unitCode, ownerPhone, address pgtype.Text, price pgtype.Float8) []Strategy {
	var byCode, byOwner *store.Query
	if unitCode.Valid {
		byCode = store.From("listings").Select("id").Eq("unit_code", unitCode.String).Limit(1)
	}
	if address.Valid && ownerPhone.Valid && price.Valid {
		byOwner = store.From("resale_intake").Select("listing_id").
			Eq("owner_phone", ownerPhone.String).
			Eq("address", address.String).
			Eq("price", price.Float64).
			Limit(1)
	}
	return []Strategy{
		{Name: "unit_code", Query: byCode, IDColumn: "id"},
		{Name: "owner_phone_address_price", Query: byOwner, IDColumn: "listing_id"},
	}
}

// Project matches a developer's project by code, then by Arabic title.
func Project(developerID string, code, title pgtype.Text) []Strategy {
	var byCode, byTitle *store.Query
	if code.Valid {
		byCode = store.From("projects").Select("id").
			Eq("developer_id", developerID).
			Eq("project_code", code.String).
			Limit(1)
	}
	if title.Valid {
		byTitle = store.From("projects").Select("id").
			Eq("developer_id", developerID).
			Eq("title_ar", title.String).
			Limit(1)
	}
	return []Strategy{
		{Name: "project_code", Query: byCode, IDColumn: "id"},
		{Name: "project_title", Query: byTitle, IDColumn: "id"},
	}
}

// ProjectUnit matches a unit by its code within one project.
func ProjectUnit(projectID string, unitCode pgtype.Text) []Strategy {
	var byCode *store.Query
	if projectID != "" && unitCode.Valid {
		byCode = store.From("listings").Select("id").
			Eq("project_id", projectID).
			Eq("unit_code", unitCode.String).
			Limit(1)
	}
	return []Strategy{{Name: "project_unit_code", Query: byCode, IDColumn: "id"}}
}

// ProjectCache remembers project ids resolved or created during one import,
// keyed by project code, or title when the row has no code. It is not safe
// for concurrent use and must not outlive the import call.
type ProjectCache struct {
	ids map[string]string
}

// NewProjectCache returns an empty cache.
func NewProjectCache() *ProjectCache {
	return &ProjectCache{ids: make(map[string]string)}
}

// Key returns the cache key for a row: the code when present, else the title.
func (c *ProjectCache) Key(code, title pgtype.Text) string {
	if code.Valid {
		return code.String
	}
	return title.String
}

// Get returns the cached id for key.
func (c *ProjectCache) Get(key string) (string, bool) {
	id, ok := c.ids[key]
	return id, ok && id != ""
}

// Put records id under key.
func (c *ProjectCache) Put(key, id string) {
	c.ids[key] = id
}

// Len returns the number of cached projects.
func (c *ProjectCache) Len() int { return len(c.ids) }
