// Package importlog records import runs in the import_runs table.
package importlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hrtaj/hrtaj-cli/internal/importer"
	"github.com/hrtaj/hrtaj-cli/internal/store"
)

const table = "import_runs"

// Status is the state of an import run.
type Status string

const (
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Run is one row of import_runs.
type Run struct {
	ID          string           `json:"id"`
	Kind        string           `json:"kind"`
	Filename    string           `json:"filename"`
	Status      Status           `json:"status"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	RowsTotal   int              `json:"rows_total"`
	RowsFailed  int              `json:"rows_failed"`
	Report      *importer.Report `json:"report,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// Log reads and writes import_runs.
type Log struct {
	store store.Store
	now   func() time.Time
}

// New creates a Log backed by s.
func New(s store.Store) *Log {
	return &Log{store: s, now: time.Now}
}

// Start records the beginning of a run and returns its id.
func (l *Log) Start(ctx context.Context, kind, filename string) (string, error) {
	id, err := l.store.Insert(ctx, table, store.Record{
		"kind":       kind,
		"filename":   filename,
		"status":     string(StatusRunning),
		"started_at": l.timestamp(),
	})
	if err != nil {
		return "", eris.Wrapf(err, "importlog: start %s run", kind)
	}
	return id, nil
}

// Complete marks a run finished and stores its report.
func (l *Log) Complete(ctx context.Context, id string, report *importer.Report) error {
	rec := store.Record{
		"status":       string(StatusComplete),
		"completed_at": l.timestamp(),
	}
	if report != nil {
		b, err := json.Marshal(report)
		if err != nil {
			return eris.Wrap(err, "importlog: marshal report")
		}
		rec["report"] = string(b)
		rec["rows_total"] = report.RowsTotal
		rec["rows_failed"] = report.RowsFailed
	}
	return eris.Wrapf(l.store.Update(ctx, table, id, rec), "importlog: complete run %s", id)
}

// Fail marks a run failed with an error message.
func (l *Log) Fail(ctx context.Context, id, errMsg string) error {
	err := l.store.Update(ctx, table, id, store.Record{
		"status":       string(StatusFailed),
		"completed_at": l.timestamp(),
		"error":        errMsg,
	})
	return eris.Wrapf(err, "importlog: fail run %s", id)
}

// Track runs an import between Start and Complete, or Fail when fn errors.
// A run that cannot be started is not attempted. Failures to finish the
// log entry are logged and do not mask the import result.
func (l *Log) Track(ctx context.Context, kind, filename string, fn func(context.Context) (*importer.Report, error)) (*importer.Report, error) {
	id, err := l.Start(ctx, kind, filename)
	if err != nil {
		return nil, err
	}

	report, err := fn(ctx)
	if err != nil {
		if ferr := l.Fail(ctx, id, err.Error()); ferr != nil {
			zap.L().Warn("importlog: record failed run", zap.String("run_id", id), zap.Error(ferr))
		}
		return nil, err
	}
	if cerr := l.Complete(ctx, id, report); cerr != nil {
		zap.L().Warn("importlog: record completed run", zap.String("run_id", id), zap.Error(cerr))
	}
	return report, nil
}

// List returns up to limit runs, most recent first. A non-positive limit
// returns every run.
func (l *Log) List(ctx context.Context, limit int) ([]Run, error) {
	rows, err := l.store.Select(ctx, store.From(table).OrderBy("started_at", true).Limit(limit))
	if err != nil {
		return nil, eris.Wrap(err, "importlog: list")
	}

	runs := make([]Run, 0, len(rows))
	for _, r := range rows {
		runs = append(runs, toRun(r))
	}
	return runs, nil
}

// timestampLayout is fixed width so text columns sort chronologically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func (l *Log) timestamp() string {
	return l.now().UTC().Format(timestampLayout)
}

func toRun(r store.Record) Run {
	run := Run{
		ID:       r.String("id"),
		Kind:     r.String("kind"),
		Filename: r.String("filename"),
		Status:   Status(r.String("status")),
		Error:    r.String("error"),
	}
	run.StartedAt, _ = r.Time("started_at")
	if t, ok := r.Time("completed_at"); ok {
		run.CompletedAt = &t
	}
	if f, ok := r.Float("rows_total"); ok {
		run.RowsTotal = int(f)
	}
	if f, ok := r.Float("rows_failed"); ok {
		run.RowsFailed = int(f)
	}
	if raw := r.String("report"); raw != "" {
		var rep importer.Report
		if json.Unmarshal([]byte(raw), &rep) == nil {
			run.Report = &rep
		}
	}
	return run
}
