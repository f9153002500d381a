package model

import (
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hrtaj/hrtaj-cli/internal/store"
)

// ProjectRecord is a developer project created on first reference during a
// project import.
type ProjectRecord struct {
	DeveloperID      string
	OwnerUserID      string
	ProjectCode      pgtype.Text
	Title            pgtype.Text
	City             pgtype.Text
	Area             pgtype.Text
	DeveloperPayload map[string]any
}

// Record returns the projects row. Descriptions start empty.
func (p *ProjectRecord) Record() store.Record {
	return store.Record{
		"developer_id":      p.DeveloperID,
		"owner_user_id":     p.OwnerUserID,
		"project_code":      p.ProjectCode,
		"title_ar":          p.Title,
		"title_en":          p.Title,
		"description_ar":    nil,
		"description_en":    nil,
		"city":              p.City,
		"area":              p.Area,
		"submission_status": SubmissionStatusSubmitted,
		"developer_payload": p.DeveloperPayload,
	}
}
