package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/tally/internal/model"
	"github.com/roach88/tally/internal/report"
)

// Persister durably stores dataset snapshots. Load returns
// model.ErrNoDataset when nothing has been saved yet.
type Persister interface {
	Load(ctx context.Context) (model.Dataset, error)
	Save(ctx context.Context, d model.Dataset) error
}

// Engine holds the current dataset snapshot and applies every mutation.
//
// Thread-safety: all methods are safe for concurrent use. Mutations are
// serialized by mu; each one publishes a complete new snapshot.
type Engine struct {
	mu         sync.Mutex
	data       model.Dataset
	persist    Persister
	clock      Clock
	ids        model.IDGenerator
	loc        *time.Location
	log        *slog.Logger
	stopping   *StopGuard
	persistErr error
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithIDGenerator replaces the UUIDv7 id generator.
func WithIDGenerator(g model.IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithLocation sets the zone bucket dates and report windows are computed
// in. Default: time.Local.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		e.loc = loc
	}
}

// WithLogger replaces slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// New loads the stored dataset, or the default dataset on first run, and
// normalizes it. A load failure other than model.ErrNoDataset is returned
// rather than papered over with defaults, since the next save would
// overwrite whatever could not be read.
func New(ctx context.Context, p Persister, opts ...Option) (*Engine, error) {
	e := &Engine{
		persist:  p,
		clock:    SystemClock{},
		ids:      model.UUIDv7Generator{},
		loc:      time.Local,
		log:      slog.Default(),
		stopping: NewStopGuard(),
	}
	for _, opt := range opts {
		opt(e)
	}

	d, err := p.Load(ctx)
	switch {
	case errors.Is(err, model.ErrNoDataset):
		e.log.Info("no stored dataset, starting from defaults")
		d = model.DefaultDataset(e.now())
	case err != nil:
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	normalized, fixes := model.Normalize(d)
	for _, fix := range fixes {
		e.log.Warn("repaired stored dataset", "fix", fix)
	}
	e.data = normalized
	return e, nil
}

// now is the engine's single source of wall time, in the engine's zone.
func (e *Engine) now() time.Time {
	return e.clock.Now().In(e.loc)
}

// Now returns the engine's current time.
func (e *Engine) Now() time.Time {
	return e.now()
}

// Location returns the zone used for bucket dates.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Snapshot returns a copy of the current dataset.
func (e *Engine) Snapshot() model.Dataset {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.data.Clone()
}

// PersistErr returns the error of the most recent save, or nil if it
// succeeded.
func (e *Engine) PersistErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.persistErr
}

// Check reports invariant violations in the current snapshot.
func (e *Engine) Check() []model.Violation {
	return model.Check(e.Snapshot())
}

// Breakdown returns the stored totals for a subject. The open session, if
// any, is not included; see LiveBreakdown.
func (e *Engine) Breakdown(subjectID string) report.Breakdown {
	d := e.Snapshot()
	return report.ComputeBreakdown(subjectID, d.TimeEntries, e.now())
}

// LiveBreakdown is Breakdown plus the elapsed seconds of the subject's open
// session. Nothing is persisted for the session until it stops.
func (e *Engine) LiveBreakdown(subjectID string) report.Breakdown {
	d := e.Snapshot()
	now := e.now()
	b := report.ComputeBreakdown(subjectID, d.TimeEntries, now)
	if s, ok := d.FindSubject(subjectID); ok && s.Tracking() {
		b = b.Add(model.Elapsed(*s.StartTime, now))
	}
	return b
}

// Live returns the live total for one time frame.
func (e *Engine) Live(subjectID string, tf report.TimeFrame) int64 {
	return e.LiveBreakdown(subjectID).Get(tf)
}

// TypeTotal sums stored totals for every subject of the type.
func (e *Engine) TypeTotal(typeID string, tf report.TimeFrame) int64 {
	return report.TotalForType(typeID, e.Snapshot(), tf, e.now())
}

// Summary builds the report for tf, including the open session.
func (e *Engine) Summary(tf report.TimeFrame) report.Summary {
	return report.Summarize(e.Snapshot(), tf, e.now())
}

// commitLocked publishes next as the snapshot and saves it. The caller holds
// e.mu. lastUpdated, version and the advisory totals are refreshed here so
// no mutation path can skip them.
func (e *Engine) commitLocked(ctx context.Context, op string, next model.Dataset, now time.Time) {
	next.LastUpdated = now.UnixMilli()
	next.Version = model.CurrentVersion
	next.RecomputeTotals()
	e.data = next

	if err := e.persist.Save(ctx, next.Clone()); err != nil {
		e.persistErr = &PersistError{Op: op, Err: err}
		e.log.Error("save failed, keeping in-memory dataset", "op", op, "error", err)
		return
	}
	e.persistErr = nil
	e.log.Debug("dataset saved", "op", op, "entries", len(next.TimeEntries))
}
