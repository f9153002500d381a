package importer

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hrtaj/hrtaj-cli/internal/dedup"
	"github.com/hrtaj/hrtaj-cli/internal/model"
	"github.com/hrtaj/hrtaj-cli/internal/parse"
	"github.com/hrtaj/hrtaj-cli/internal/table"
)

// DryRunProjectID stands in for projects a dry run would have created.
const DryRunProjectID = "dry-run"

// ProjectOptions are the arguments of a project import. DeveloperID and
// OwnerUserID are mandatory.
type ProjectOptions struct {
	DeveloperID string
	OwnerUserID string
	DryRun      bool
	Defaults    Defaults
}

// ImportProjects imports developer project units. Each row names its project
// by code or title; the project is found or created on first reference and
// reused for later rows of the same run.
func (im *Importer) ImportProjects(ctx context.Context, data []byte, filename string, opts ProjectOptions) (*Report, error) {
	if opts.DeveloperID == "" {
		return nil, ErrDeveloperRequired
	}
	if opts.OwnerUserID == "" {
		return nil, ErrOwnerRequired
	}

	tbl, err := table.Read(data, filename)
	if err != nil {
		return nil, err
	}
	mapping, _ := im.headers.Map(tbl.Columns)
	report := newReport(len(tbl.Rows), mapping)

	if missing := missingHeaders(mapping, "type", "price"); len(missing) > 0 {
		return report.failAll("headers", missingHeadersMessage(missing)), nil
	}

	projects := dedup.NewProjectCache()
	for _, row := range tbl.Rows {
		payload := tbl.Payload(row, mapping)
		unit, errs := transformProjectUnit(row.Number, payload)
		if len(errs) > 0 {
			report.rejectRow(errs)
			continue
		}

		projectID, err := im.resolveProject(ctx, projects, unit, opts)
		if err != nil {
			return nil, eris.Wrapf(err, "importer: project row %d", row.Number)
		}
		listing := im.projectListing(unit, projectID, opts)

		if opts.DryRun {
			report.RowsInserted++
			continue
		}

		updated, err := im.persistProjectUnit(ctx, projectID, listing)
		if err != nil {
			return nil, eris.Wrapf(err, "importer: project row %d", row.Number)
		}
		if updated {
			report.RowsUpdated++
		} else {
			report.RowsInserted++
		}
	}

	zap.L().Info("importer: project import finished",
		zap.String("file", filename),
		zap.String("developer_id", opts.DeveloperID),
		zap.Bool("dry_run", opts.DryRun),
		zap.Int("projects", projects.Len()),
		zap.Int("rows_total", report.RowsTotal),
		zap.Int("rows_inserted", report.RowsInserted),
		zap.Int("rows_updated", report.RowsUpdated),
		zap.Int("rows_failed", report.RowsFailed),
	)
	return report, nil
}

// projectUnit is a validated project import row.
type projectUnit struct {
	payload      map[string]any
	projectTitle pgtype.Text
	projectCode  pgtype.Text
	unitType     pgtype.Text
	price        pgtype.Float8
}

func transformProjectUnit(rowNumber int, p map[string]any) (*projectUnit, []RowError) {
	u := &projectUnit{
		payload:      p,
		projectTitle: parse.Text(p["project_title"]),
		projectCode:  parse.Text(p["project_code"]),
		unitType:     parse.Text(p["type"]),
		price:        parse.Float(p["price"]),
	}

	var errs []RowError
	if !u.projectTitle.Valid && !u.projectCode.Valid {
		errs = append(errs, RowError{Row: rowNumber, Field: "project_title", Message: "Missing project title or code."})
	}
	if !u.unitType.Valid {
		errs = append(errs, RowError{Row: rowNumber, Field: "type", Message: "Missing unit type."})
	}
	if !u.price.Valid {
		errs = append(errs, RowError{Row: rowNumber, Field: "price", Message: "Invalid price."})
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return u, nil
}

// resolveProject returns the row's project id from the run cache, then from
// the store, creating the project when neither knows it. Dry runs never
// create and use DryRunProjectID instead.
func (im *Importer) resolveProject(ctx context.Context, cache *dedup.ProjectCache, u *projectUnit, opts ProjectOptions) (string, error) {
	key := cache.Key(u.projectCode, u.projectTitle)
	if id, ok := cache.Get(key); ok {
		return id, nil
	}

	match, err := im.resolver.Resolve(ctx, dedup.Project(opts.DeveloperID, u.projectCode, u.projectTitle)...)
	if err != nil {
		return "", err
	}
	id := match.ID
	if !match.Found() {
		if opts.DryRun {
			id = DryRunProjectID
		} else {
			project := model.ProjectRecord{
				DeveloperID:      opts.DeveloperID,
				OwnerUserID:      opts.OwnerUserID,
				ProjectCode:      u.projectCode,
				Title:            u.projectTitle,
				City:             parse.Text(u.payload["project_city"]),
				Area:             parse.Text(u.payload["project_area"]),
				DeveloperPayload: u.payload,
			}
			if id, err = im.store.Insert(ctx, "projects", project.Record()); err != nil {
				return "", err
			}
			zap.L().Debug("importer: created project", zap.String("key", key), zap.String("id", id))
		}
	}
	cache.Put(key, id)
	return id, nil
}

func (im *Importer) projectListing(u *projectUnit, projectID string, opts ProjectOptions) model.ListingRecord {
	p := u.payload
	unitCode := parse.Text(p["unit_code"])
	if !unitCode.Valid {
		unitCode = pgtype.Text{String: im.unitCode("PR"), Valid: true}
	}
	area := parse.Text(p["area"])
	city := parse.Text(p["city"])
	if !city.Valid {
		city = parse.Or(parse.Text(p["project_city"]), area.String)
	}

	project := pgtype.Text{String: projectID, Valid: projectID != "" && projectID != DryRunProjectID}
	return model.ListingRecord{
		OwnerUserID:      opts.OwnerUserID,
		DeveloperID:      optionalText(opts.DeveloperID),
		ProjectID:        project,
		Title:            model.Title(u.unitType, area),
		Type:             u.unitType.String,
		Purpose:          model.PurposeNewDevelopment,
		Price:            u.price.Float64,
		Currency:         parse.Or(parse.Text(p["currency"]), opts.Defaults.Currency).String,
		City:             city,
		Area:             area,
		Address:          parse.Text(p["address"]),
		Beds:             parse.Int(p["bedrooms"]).Int64,
		Baths:            parse.Int(p["bathrooms"]).Int64,
		SizeM2:           parse.Float(p["size_m2"]),
		Description:      parse.Text(p["notes"]),
		Amenities:        []string{},
		UnitCode:         unitCode.String,
		InventorySource:  model.SourceProject,
		DeveloperPayload: p,
	}
}

// persistProjectUnit updates the unit with the same code in the project, or
// inserts a new one. It reports whether a unit was updated.
func (im *Importer) persistProjectUnit(ctx context.Context, projectID string, listing model.ListingRecord) (bool, error) {
	match, err := im.resolver.Resolve(ctx, dedup.ProjectUnit(projectID, optionalText(listing.UnitCode))...)
	if err != nil {
		return false, err
	}
	if match.Found() {
		return true, im.store.Update(ctx, "listings", match.ID, listing.Record())
	}
	_, err = im.store.Insert(ctx, "listings", listing.Record())
	return false, err
}
