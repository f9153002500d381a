package model

import (
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hrtaj/hrtaj-cli/internal/store"
)

// InventorySource records which import produced a listing.
type InventorySource string

const (
	SourceResale  InventorySource = "resale"
	SourceProject InventorySource = "project"
)

// Listing lifecycle values set on every imported row.
const (
	StatusDraft               = "draft"
	SubmissionStatusSubmitted = "submitted"
	PurposeNewDevelopment     = "new-development"
	DefaultTitle              = "HRTAJ Unit"
)

// ListingRecord is the normalized public listing built from one row.
type ListingRecord struct {
	OwnerUserID      string
	DeveloperID      pgtype.Text
	ProjectID        pgtype.Text
	HROwnerUserID    pgtype.Text
	Title            string
	Type             string
	Purpose          string
	Price            float64
	Currency         string
	City             pgtype.Text
	Area             pgtype.Text
	Address          pgtype.Text
	Beds             int64
	Baths            int64
	SizeM2           pgtype.Float8
	Description      pgtype.Text
	Amenities        []string
	UnitCode         string
	InventorySource  InventorySource
	DeveloperPayload map[string]any
}

// Title builds "<type> - <area>", falling back to whichever is present and
// finally to DefaultTitle.
func Title(unitType, area pgtype.Text) string {
	switch {
	case unitType.Valid && area.Valid:
		return unitType.String + " - " + area.String
	case unitType.Valid:
		return unitType.String
	case area.Valid:
		return area.String
	}
	return DefaultTitle
}

// Amenities lists the amenity flags that are set.
func Amenities(elevator, kitchen pgtype.Bool) []string {
	out := []string{}
	if elevator.Valid && elevator.Bool {
		out = append(out, "elevator")
	}
	if kitchen.Valid && kitchen.Bool {
		out = append(out, "kitchen")
	}
	return out
}

// Record returns the listings row. Resale listings carry the HR owner;
// project listings carry the project link and the source row.
func (l *ListingRecord) Record() store.Record {
	amenities := l.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	rec := store.Record{
		"owner_user_id":     l.OwnerUserID,
		"developer_id":      l.DeveloperID,
		"title":             l.Title,
		"title_ar":          l.Title,
		"title_en":          l.Title,
		"type":              l.Type,
		"purpose":           l.Purpose,
		"price":             l.Price,
		"currency":          l.Currency,
		"city":              l.City,
		"area":              l.Area,
		"address":           l.Address,
		"beds":              l.Beds,
		"baths":             l.Baths,
		"size_m2":           l.SizeM2,
		"description":       l.Description,
		"amenities":         amenities,
		"status":            StatusDraft,
		"submission_status": SubmissionStatusSubmitted,
		"unit_code":         l.UnitCode,
		"inventory_source":  string(l.InventorySource),
	}
	switch l.InventorySource {
	case SourceProject:
		rec["project_id"] = l.ProjectID
		rec["developer_payload"] = l.DeveloperPayload
	default:
		rec["hr_owner_user_id"] = l.HROwnerUserID
	}
	return rec
}

// IntakeRecord keeps the resale-specific columns and the raw row next to
// the listing it was imported into.
type IntakeRecord struct {
	ListingID  string
	AgentName  pgtype.Text
	OwnerName  pgtype.Text
	OwnerPhone pgtype.Text
	UnitCode   string
	Floor      pgtype.Text
	SizeM2     pgtype.Float8
	Elevator   pgtype.Bool
	Finishing  pgtype.Text
	Meters     pgtype.Text
	Bedrooms   pgtype.Int8
	Reception  pgtype.Int8
	Bathrooms  pgtype.Int8
	Kitchen    pgtype.Bool
	View       pgtype.Text
	Building   pgtype.Text
	HasImages  pgtype.Bool
	Entrance   pgtype.Text
	Commission pgtype.Text
	IntakeDate pgtype.Text
	Target     pgtype.Text
	AdChannel  pgtype.Text
	Address    string
	Area       pgtype.Text
	City       string
	Price      float64
	Currency   string
	Notes      pgtype.Text
	RawPayload map[string]any
	CreatedBy  string
}

// Record returns the resale_intake row.
func (r *IntakeRecord) Record() store.Record {
	return store.Record{
		"listing_id":  r.ListingID,
		"agent_name":  r.AgentName,
		"owner_name":  r.OwnerName,
		"owner_phone": r.OwnerPhone,
		"unit_code":   r.UnitCode,
		"floor":       r.Floor,
		"size_m2":     r.SizeM2,
		"elevator":    r.Elevator,
		"finishing":   r.Finishing,
		"meters":      r.Meters,
		"bedrooms":    r.Bedrooms,
		"reception":   r.Reception,
		"bathrooms":   r.Bathrooms,
		"kitchen":     r.Kitchen,
		"view":        r.View,
		"building":    r.Building,
		"has_images":  r.HasImages,
		"entrance":    r.Entrance,
		"commission":  r.Commission,
		"intake_date": r.IntakeDate,
		"target":      r.Target,
		"ad_channel":  r.AdChannel,
		"address":     r.Address,
		"area":        r.Area,
		"city":        r.City,
		"price":       r.Price,
		"currency":    r.Currency,
		"notes":       r.Notes,
		"raw_payload": r.RawPayload,
		"created_by":  r.CreatedBy,
	}
}
