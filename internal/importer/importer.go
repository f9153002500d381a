// Package importer drives spreadsheet imports: it reads the file, maps its
// headers, validates and transforms each row, resolves duplicates and
// persists listings, intakes and projects, returning a per-run Report.
//
// Rows are processed one at a time in file order. Later rows observe what
// earlier rows wrote (projects, generated unit codes), and there is no
// transaction across rows: an infrastructure error aborts the run but leaves
// rows already persisted in place.
package importer

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/hrtaj/hrtaj-cli/internal/dedup"
	"github.com/hrtaj/hrtaj-cli/internal/headers"
	"github.com/hrtaj/hrtaj-cli/internal/store"
)

// Argument errors for project imports. They are returned before the file is
// read.
var (
	ErrDeveloperRequired = eris.New("developer_id is required for project import")
	ErrOwnerRequired     = eris.New("owner_user_id is required for project import")
)

// Defaults are the process-wide fallbacks, read from configuration by the
// caller and passed into each import.
type Defaults struct {
	Currency         string `json:"currency"`
	Purpose          string `json:"purpose"`
	StaffOwnerUserID string `json:"staff_owner_user_id"`
}

// RowError describes one rejected field. Row 0 is used for file-level
// errors; data rows start at 2.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Report is the result of one import run.
type Report struct {
	RowsTotal    int               `json:"rows_total"`
	RowsInserted int               `json:"rows_inserted"`
	RowsUpdated  int               `json:"rows_updated"`
	RowsFailed   int               `json:"rows_failed"`
	Mapping      map[string]string `json:"mapping"`
	Errors       []RowError        `json:"errors"`
}

func newReport(rowsTotal int, mapping map[string]string) *Report {
	return &Report{RowsTotal: rowsTotal, Mapping: mapping, Errors: []RowError{}}
}

// failAll marks every row failed with a single file-level error.
func (r *Report) failAll(field, message string) *Report {
	r.Errors = append(r.Errors, RowError{Row: 0, Field: field, Message: message})
	r.RowsFailed = r.RowsTotal
	return r
}

func (r *Report) rejectRow(errs []RowError) {
	r.Errors = append(r.Errors, errs...)
	r.RowsFailed++
}

// missingHeaders returns the required fields absent from mapping, sorted.
func missingHeaders(mapping map[string]string, required ...string) []string {
	var missing []string
	for _, f := range required {
		if _, ok := mapping[f]; !ok {
			missing = append(missing, f)
		}
	}
	slices.Sort(missing)
	return missing
}

func missingHeadersMessage(missing []string) string {
	return "Missing required headers: " + strings.Join(missing, ", ")
}

// Importer runs resale and project imports against a store.
type Importer struct {
	store    store.Store
	resolver *dedup.Resolver
	headers  *headers.Table
	now      func() time.Time
	intn     func(n int) int
}

// Option configures an Importer.
type Option func(*Importer)

// WithClock sets the clock used for generated unit codes.
func WithClock(now func() time.Time) Option {
	return func(im *Importer) { im.now = now }
}

// WithRand sets the source of the random unit code suffix. intn must return
// a value in [0, n).
func WithRand(intn func(n int) int) Option {
	return func(im *Importer) { im.intn = intn }
}

// WithHeaders replaces the built-in alias table.
func WithHeaders(t *headers.Table) Option {
	return func(im *Importer) { im.headers = t }
}

// New creates an Importer. s is typically wrapped in store.Retrying.
func New(s store.Store, opts ...Option) *Importer {
	im := &Importer{
		store:    s,
		resolver: dedup.NewResolver(s),
		headers:  headers.Default(),
		now:      time.Now,
		intn:     rand.IntN,
	}
	for _, o := range opts {
		o(im)
	}
	return im
}

// unitCode generates PREFIX-yyyymmdd-NNNN from the current UTC date and a
// four digit random suffix.
func (im *Importer) unitCode(prefix string) string {
	return fmt.Sprintf("%s-%s-%d", prefix, im.now().UTC().Format("20060102"), 1000+im.intn(9000))
}
