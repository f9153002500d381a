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

// ResaleOptions are the caller overrides for a resale import.
type ResaleOptions struct {
	OwnerUserID    string
	HROwnerUserID  string
	DefaultCity    string
	DefaultPurpose string
	DryRun         bool
	Defaults       Defaults
}

const ownerRequiredMessage = "owner_user_id is required (HRTAJ_STAFF_OWNER_USER_ID not set)."

// ImportResale imports resale units. Missing required headers or a missing
// owner fail the whole file inside the report; only read and store errors
// are returned as errors.
func (im *Importer) ImportResale(ctx context.Context, data []byte, filename string, opts ResaleOptions) (*Report, error) {
	tbl, err := table.Read(data, filename)
	if err != nil {
		return nil, err
	}
	mapping, _ := im.headers.Map(tbl.Columns)
	report := newReport(len(tbl.Rows), mapping)

	if missing := missingHeaders(mapping, "type", "price", "address"); len(missing) > 0 {
		return report.failAll("headers", missingHeadersMessage(missing)), nil
	}

	owner := opts.OwnerUserID
	if owner == "" {
		owner = opts.Defaults.StaffOwnerUserID
	}
	if owner == "" {
		return report.failAll("owner_user_id", ownerRequiredMessage), nil
	}

	purpose := opts.DefaultPurpose
	if purpose == "" {
		purpose = opts.Defaults.Purpose
	}
	settings := resaleSettings{
		owner:       owner,
		hrOwner:     opts.HROwnerUserID,
		defaultCity: opts.DefaultCity,
		currency:    opts.Defaults.Currency,
		purpose:     purpose,
	}

	for _, row := range tbl.Rows {
		payload := tbl.Payload(row, mapping)
		unit, errs := im.transformResale(row.Number, payload, settings)
		if len(errs) > 0 {
			report.rejectRow(errs)
			continue
		}

		if opts.DryRun {
			report.RowsInserted++
			continue
		}

		updated, err := im.persistResale(ctx, unit)
		if err != nil {
			return nil, eris.Wrapf(err, "importer: resale row %d", row.Number)
		}
		if updated {
			report.RowsUpdated++
		} else {
			report.RowsInserted++
		}
	}

	zap.L().Info("importer: resale import finished",
		zap.String("file", filename),
		zap.Bool("dry_run", opts.DryRun),
		zap.Int("rows_total", report.RowsTotal),
		zap.Int("rows_inserted", report.RowsInserted),
		zap.Int("rows_updated", report.RowsUpdated),
		zap.Int("rows_failed", report.RowsFailed),
	)
	return report, nil
}

type resaleSettings struct {
	owner       string
	hrOwner     string
	defaultCity string
	currency    string
	purpose     string
}

// resaleUnit is a validated row ready to persist.
type resaleUnit struct {
	listing model.ListingRecord
	intake  model.IntakeRecord
	// dedup keys
	unitCode   pgtype.Text
	ownerPhone pgtype.Text
	address    pgtype.Text
	price      pgtype.Float8
}

// transformResale validates one row and builds its listing and intake.
// Required: type, a parseable price, address, and a city resolved from the
// row, the caller's default city or the row's area. Optional fields that
// fail to parse are left empty.
func (im *Importer) transformResale(rowNumber int, p map[string]any, s resaleSettings) (*resaleUnit, []RowError) {
	unitType := parse.Text(p["type"])
	price := parse.Float(p["price"])
	address := parse.Text(p["address"])
	area := parse.Text(p["area"])
	city := parse.Text(p["city"])
	if !city.Valid {
		city = parse.Or(parse.Text(s.defaultCity), area.String)
	}

	var errs []RowError
	if !unitType.Valid {
		errs = append(errs, RowError{Row: rowNumber, Field: "type", Message: "Missing unit type."})
	}
	if !price.Valid {
		errs = append(errs, RowError{Row: rowNumber, Field: "price", Message: "Invalid price."})
	}
	if !address.Valid {
		errs = append(errs, RowError{Row: rowNumber, Field: "address", Message: "Missing address."})
	}
	if !city.Valid {
		errs = append(errs, RowError{Row: rowNumber, Field: "city", Message: "Missing city or default_city."})
	}
	if len(errs) > 0 {
		return nil, errs
	}

	unitCode := parse.Text(p["unit_code"])
	if !unitCode.Valid {
		unitCode = pgtype.Text{String: im.unitCode("HR"), Valid: true}
	}
	ownerPhone := parse.Text(p["owner_phone"])
	sizeM2 := parse.Float(p["size_m2"])
	elevator := parse.Bool(p["elevator"])
	kitchen := parse.Bool(p["kitchen"])
	bedrooms := parse.Int(p["bedrooms"])
	bathrooms := parse.Int(p["bathrooms"])
	notes := parse.Text(p["notes"])
	currency := parse.Or(parse.Text(p["currency"]), s.currency)
	purpose := parse.Or(parse.Text(p["purpose"]), s.purpose)

	createdBy := s.hrOwner
	if createdBy == "" {
		createdBy = s.owner
	}

	return &resaleUnit{
		listing: model.ListingRecord{
			OwnerUserID:     s.owner,
			HROwnerUserID:   optionalText(s.hrOwner),
			Title:           model.Title(unitType, area),
			Type:            unitType.String,
			Purpose:         purpose.String,
			Price:           price.Float64,
			Currency:        currency.String,
			City:            city,
			Area:            area,
			Address:         address,
			Beds:            bedrooms.Int64,
			Baths:           bathrooms.Int64,
			SizeM2:          sizeM2,
			Description:     notes,
			Amenities:       model.Amenities(elevator, kitchen),
			UnitCode:        unitCode.String,
			InventorySource: model.SourceResale,
		},
		intake: model.IntakeRecord{
			AgentName:  parse.Text(p["agent"]),
			OwnerName:  parse.Text(p["owner_name"]),
			OwnerPhone: ownerPhone,
			UnitCode:   unitCode.String,
			Floor:      parse.Text(p["floor"]),
			SizeM2:     sizeM2,
			Elevator:   elevator,
			Finishing:  parse.Text(p["finishing"]),
			Meters:     parse.Text(p["meters"]),
			Bedrooms:   bedrooms,
			Reception:  parse.Int(p["reception"]),
			Bathrooms:  bathrooms,
			Kitchen:    kitchen,
			View:       parse.Text(p["view"]),
			Building:   parse.Text(p["building"]),
			HasImages:  parse.Bool(p["has_images"]),
			Entrance:   parse.Text(p["entrance"]),
			Commission: parse.Text(p["commission"]),
			IntakeDate: parse.DateOnly(p["date"]),
			Target:     parse.Text(p["target"]),
			AdChannel:  parse.Text(p["ad_channel"]),
			Address:    address.String,
			Area:       area,
			City:       city.String,
			Price:      price.Float64,
			Currency:   currency.String,
			Notes:      notes,
			RawPayload: p,
			CreatedBy:  createdBy,
		},
		unitCode:   unitCode,
		ownerPhone: ownerPhone,
		address:    address,
		price:      price,
	}, nil
}

// persistResale updates the matched listing and upserts its intake, or
// inserts both. It reports whether an existing listing was updated.
func (im *Importer) persistResale(ctx context.Context, u *resaleUnit) (bool, error) {
	match, err := im.resolver.Resolve(ctx, dedup.ResaleListing(u.unitCode, u.ownerPhone, u.address, u.price)...)
	if err != nil {
		return false, err
	}

	if match.Found() {
		if err := im.store.Update(ctx, "listings", match.ID, u.listing.Record()); err != nil {
			return false, err
		}
		u.intake.ListingID = match.ID
		if err := im.store.Upsert(ctx, "resale_intake", u.intake.Record(), "listing_id"); err != nil {
			return false, err
		}
		return true, nil
	}

	id, err := im.store.Insert(ctx, "listings", u.listing.Record())
	if err != nil {
		return false, err
	}
	u.intake.ListingID = id
	if _, err := im.store.Insert(ctx, "resale_intake", u.intake.Record()); err != nil {
		return false, err
	}
	return false, nil
}

func optionalText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
