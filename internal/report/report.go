// Package report aggregates listing and lead activity for dashboards.
package report

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/hrtaj/hrtaj-cli/internal/store"
)

// Service reads report views from the store.
type Service struct {
	store store.Store
	now   func() time.Time
}

// New creates a Service.
func New(s store.Store) *Service {
	return &Service{store: s, now: time.Now}
}

// Daily holds the per-day unit and lead rows since the cutoff date.
type Daily struct {
	Units []store.Record `json:"units"`
	Leads []store.Record `json:"leads"`
}

// Pipeline counts leads by status over a window.
type Pipeline struct {
	Counts     map[string]int `json:"counts"`
	WindowDays int            `json:"window_days"`
}

// Daily returns report_units_per_day and report_leads_per_day rows for the
// last days calendar days.
func (s *Service) Daily(ctx context.Context, days int) (*Daily, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -days).Format(time.DateOnly)

	units, err := s.store.Select(ctx, store.From("report_units_per_day").Gte("day", cutoff))
	if err != nil {
		return nil, eris.Wrap(err, "report: units per day")
	}
	leads, err := s.store.Select(ctx, store.From("report_leads_per_day").Gte("day", cutoff))
	if err != nil {
		return nil, eris.Wrap(err, "report: leads per day")
	}
	return &Daily{Units: nonNil(units), Leads: nonNil(leads)}, nil
}

// Pipeline counts leads created in the last days days by status. Leads
// without a status count as "new".
func (s *Service) Pipeline(ctx context.Context, days int) (*Pipeline, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -days).Format(time.RFC3339Nano)
	rows, err := s.store.Select(ctx, store.From("leads").Select("status", "created_at").Gte("created_at", cutoff))
	if err != nil {
		return nil, eris.Wrap(err, "report: pipeline")
	}

	counts := make(map[string]int)
	for _, r := range rows {
		status := r.String("status")
		if status == "" {
			status = "new"
		}
		counts[status]++
	}
	return &Pipeline{Counts: counts, WindowDays: days}, nil
}

func nonNil(rows []store.Record) []store.Record {
	if rows == nil {
		return []store.Record{}
	}
	return rows
}
