// Package lead scores inbound leads and routes them to the least loaded
// staff member or developer team member.
package lead

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hrtaj/hrtaj-cli/internal/store"
)

// Service evaluates lead rules against the store.
type Service struct {
	store store.Store
	now   func() time.Time
}

// New creates a Service.
func New(s store.Store) *Service {
	return &Service{store: s, now: time.Now}
}

// ScoreRequest identifies a lead and optionally overrides its listing,
// source and price.
type ScoreRequest struct {
	LeadID    string   `json:"lead_id,omitempty"`
	ListingID string   `json:"listing_id,omitempty"`
	Source    string   `json:"source,omitempty"`
	Price     *float64 `json:"price,omitempty"`
}

// ScoreResult is a 0-100 score with its label and follow-up action.
type ScoreResult struct {
	Score                 int    `json:"score"`
	Label                 string `json:"label"`
	RecommendedNextAction string `json:"recommended_next_action"`
}

var prioritySources = map[string]bool{"campaign": true, "partner": true, "referral": true}

// Score rates a lead on contact details, source, freshness and price.
func (s *Service) Score(ctx context.Context, req ScoreRequest) (*ScoreResult, error) {
	var lead store.Record
	listingID, source := req.ListingID, req.Source
	if req.LeadID != "" {
		rows, err := s.store.Select(ctx, store.From("leads").Eq("id", req.LeadID).Limit(1))
		if err != nil {
			return nil, eris.Wrap(err, "lead: load lead")
		}
		if len(rows) > 0 {
			lead = rows[0]
			if listingID == "" {
				listingID = lead.String("listing_id")
			}
			if source == "" {
				source = lead.String("source")
			}
		}
	}

	var price float64
	if req.Price != nil {
		price = *req.Price
	}
	if price == 0 && listingID != "" {
		rows, err := s.store.Select(ctx, store.From("listings").Select("price", "inventory_source").Eq("id", listingID).Limit(1))
		if err != nil {
			return nil, eris.Wrap(err, "lead: load listing")
		}
		if len(rows) > 0 {
			price, _ = rows[0].Float("price")
		}
	}

	score := 0
	if lead != nil {
		if lead.String("phone") != "" {
			score += 30
		}
		if lead.String("email") != "" {
			score += 20
		}
	}
	if prioritySources[strings.ToLower(source)] {
		score += 15
	}
	if created, ok := lead.Time("created_at"); ok {
		switch age := s.now().Sub(created); {
		case age < 24*time.Hour:
			score += 15
		case age < 7*24*time.Hour:
			score += 5
		}
	}
	if price > 0 {
		score += 10
	}
	score = min(score, 100)

	res := &ScoreResult{Score: score}
	switch {
	case score >= 80:
		res.Label, res.RecommendedNextAction = "hot", "call_within_2_hours"
	case score >= 50:
		res.Label, res.RecommendedNextAction = "warm", "follow_up_today"
	default:
		res.Label, res.RecommendedNextAction = "cold", "qualify_later"
	}
	return res, nil
}

// Routing modes.
const (
	ModeNotFound      = "not_found"
	ModeStaff         = "staff"
	ModeDeveloper     = "developer"
	ModeStaffFallback = "staff_fallback"
)

// RouteRequest asks for a lead to be assigned. WindowHours bounds the
// assignment history used to measure load; it defaults to 24.
type RouteRequest struct {
	LeadID      string `json:"lead_id"`
	DryRun      bool   `json:"dry_run"`
	PreferStaff bool   `json:"prefer_staff"`
	AreaHint    string `json:"area_hint,omitempty"`
	WindowHours int    `json:"window_hours"`
}

// RouteResult names the chosen assignee, if any, and the candidates
// considered.
type RouteResult struct {
	LeadID     string   `json:"lead_id"`
	AssignedTo *string  `json:"assigned_to"`
	Mode       string   `json:"mode"`
	Candidates []string `json:"candidates"`
}

// Route assigns a lead. Resale listings (and PreferStaff requests) go to
// admin/ops staff; project listings go to the developer's members, falling
// back to staff when the developer has none. Among candidates the one with
// the fewest assignments in the window wins, ties going to the first.
func (s *Service) Route(ctx context.Context, req RouteRequest) (*RouteResult, error) {
	if req.WindowHours <= 0 {
		req.WindowHours = 24
	}
	res := &RouteResult{LeadID: req.LeadID, Candidates: []string{}}

	leads, err := s.store.Select(ctx, store.From("leads").Select("id", "listing_id", "assigned_to").Eq("id", req.LeadID).Limit(1))
	if err != nil {
		return nil, eris.Wrap(err, "lead: load lead")
	}
	if len(leads) == 0 {
		res.Mode = ModeNotFound
		return res, nil
	}

	var listing store.Record
	if listingID := leads[0].String("listing_id"); listingID != "" {
		rows, err := s.store.Select(ctx, store.From("listings").
			Select("id", "developer_id", "inventory_source", "area").
			Eq("id", listingID).
			Limit(1))
		if err != nil {
			return nil, eris.Wrap(err, "lead: load listing")
		}
		if len(rows) > 0 {
			listing = rows[0]
		}
	}

	source := listing.String("inventory_source")
	if source == "" {
		source = "resale"
	}

	var candidates []string
	if req.PreferStaff || source == "resale" {
		res.Mode = ModeStaff
		candidates, err = s.staff(ctx)
	} else {
		res.Mode = ModeDeveloper
		candidates, err = s.developerMembers(ctx, listing.String("developer_id"))
		if err == nil && len(candidates) == 0 {
			res.Mode = ModeStaffFallback
			candidates, err = s.staff(ctx)
		}
	}
	if err != nil {
		return nil, err
	}
	if len(candidates) > 0 {
		res.Candidates = candidates
	}

	counts, err := s.loadCounts(ctx, candidates, req.WindowHours)
	if err != nil {
		return nil, err
	}
	for _, c := range candidates {
		if res.AssignedTo == nil || counts[c] < counts[*res.AssignedTo] {
			res.AssignedTo = &c
		}
	}

	if res.AssignedTo != nil && !req.DryRun {
		assignee := *res.AssignedTo
		if err := s.store.Update(ctx, "leads", req.LeadID, store.Record{"assigned_to": assignee}); err != nil {
			return nil, eris.Wrap(err, "lead: assign")
		}
		if err := s.store.Upsert(ctx, "lead_assignments", store.Record{
			"lead_id":     req.LeadID,
			"assigned_to": assignee,
			"created_at":  s.timestamp(s.now()),
		}, "lead_id"); err != nil {
			return nil, eris.Wrap(err, "lead: record assignment")
		}
		zap.L().Info("lead: routed",
			zap.String("lead_id", req.LeadID),
			zap.String("assigned_to", assignee),
			zap.String("mode", res.Mode),
		)
	}
	return res, nil
}

func (s *Service) staff(ctx context.Context) ([]string, error) {
	rows, err := s.store.Select(ctx, store.From("profiles").Select("id", "role").In("role", []string{"admin", "ops"}))
	if err != nil {
		return nil, eris.Wrap(err, "lead: load staff")
	}
	return column(rows, "id"), nil
}

func (s *Service) developerMembers(ctx context.Context, developerID string) ([]string, error) {
	if developerID == "" {
		return nil, nil
	}
	rows, err := s.store.Select(ctx, store.From("developer_members").Select("user_id").Eq("developer_id", developerID))
	if err != nil {
		return nil, eris.Wrap(err, "lead: load developer members")
	}
	return column(rows, "user_id"), nil
}

// loadCounts counts each candidate's assignments created within the window.
func (s *Service) loadCounts(ctx context.Context, candidates []string, windowHours int) (map[string]int, error) {
	counts := make(map[string]int, len(candidates))
	if len(candidates) == 0 {
		return counts, nil
	}
	since := s.now().Add(-time.Duration(windowHours) * time.Hour)
	rows, err := s.store.Select(ctx, store.From("lead_assignments").
		Select("assigned_to").
		In("assigned_to", candidates).
		Gte("created_at", s.timestamp(since)))
	if err != nil {
		return nil, eris.Wrap(err, "lead: load assignment counts")
	}
	for _, r := range rows {
		counts[r.String("assigned_to")]++
	}
	return counts, nil
}

// SLABreached lists open leads (not won or lost) untouched for at least
// minutes.
func (s *Service) SLABreached(ctx context.Context, minutes int) ([]store.Record, error) {
	threshold := s.now().Add(-time.Duration(minutes) * time.Minute)
	rows, err := s.store.Select(ctx, store.From("leads").
		Select("id", "listing_id", "status", "updated_at", "created_at").
		Lte("updated_at", s.timestamp(threshold)).
		Neq("status", "won").
		Neq("status", "lost"))
	if err != nil {
		return nil, eris.Wrap(err, "lead: sla breached")
	}
	if rows == nil {
		rows = []store.Record{}
	}
	return rows, nil
}

func (s *Service) timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func column(rows []store.Record, col string) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if v := r.String(col); v != "" {
			out = append(out, v)
		}
	}
	return out
}
