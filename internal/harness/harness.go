package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/tally/internal/dataset"
	"github.com/roach88/tally/internal/engine"
	"github.com/roach88/tally/internal/model"
	"github.com/roach88/tally/internal/store"
	"github.com/roach88/tally/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs scenarios with a settable clock and sequential ids.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	clock  *testutil.FakeClock
	loc    *time.Location
	dir    string
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database and engine (default dataset)
// 2. Execute setup steps, which must all succeed
// 3. Execute steps, checking each expect clause
// 4. Evaluate assertions against the final dataset
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	start, err := time.Parse(time.RFC3339, scenario.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid start: %w", err)
	}
	loc := time.UTC
	if scenario.Timezone != "" {
		if loc, err = time.LoadLocation(scenario.Timezone); err != nil {
			return nil, fmt.Errorf("invalid timezone: %w", err)
		}
	}

	ctx := context.Background()
	clock := testutil.NewFakeClock(start)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in scenarios
	eng, err := engine.New(ctx, st,
		engine.WithClock(clock),
		engine.WithIDGenerator(model.NewSequenceGenerator("id")),
		engine.WithLocation(loc),
		engine.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start engine: %w", err)
	}

	h := &Harness{
		store:  st,
		engine: eng,
		clock:  clock,
		loc:    loc,
		dir:    scenario.dir,
		logger: logger,
	}

	result := NewResult()
	for i, step := range scenario.Setup {
		if ev := h.execute(ctx, i, step); ev.Error != "" {
			return nil, fmt.Errorf("setup step %d (%s): %s", i, step.Action, ev.Error)
		}
	}

	for i, step := range scenario.Steps {
		ev := h.execute(ctx, i, step)
		result.AddTrace(ev)
		for _, msg := range checkExpect(h.engine.Snapshot(), step, ev) {
			result.AddError(fmt.Sprintf("steps[%d] %s: %s", i, step.Action, msg))
		}
	}

	// Nothing is saved until the first commit
	stored, err := st.Load(ctx)
	if errors.Is(err, model.ErrNoDataset) {
		stored, err = eng.Snapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reload final dataset: %w", err)
	}
	if perr := eng.PersistErr(); perr != nil {
		result.AddError(perr.Error())
	}
	result.Final = stored

	actx := &AssertionContext{Engine: eng, Dataset: stored}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// execute runs one step and records what it did.
func (h *Harness) execute(ctx context.Context, index int, step Step) TraceEvent {
	ev := TraceEvent{Step: index, Action: step.Action}
	err := h.apply(ctx, step, &ev)
	if err != nil {
		ev.Error = err.Error()
	}
	ev.At = h.clock.Now().In(h.loc).Format(time.RFC3339)

	h.logger.Info("step completed", "step", index, "action", step.Action, "error", ev.Error)
	return ev
}

func (h *Harness) apply(ctx context.Context, step Step, ev *TraceEvent) error {
	eng := h.engine
	switch step.Action {
	case ActionAdvance:
		d, err := time.ParseDuration(step.Duration)
		if err != nil {
			return err
		}
		h.clock.Advance(d)
		return nil

	case ActionSetClock:
		at, err := time.Parse(time.RFC3339, step.At)
		if err != nil {
			return err
		}
		h.clock.Set(at)
		return nil

	case ActionStart:
		id, err := h.subjectID(step.Subject, ev)
		if err != nil {
			return err
		}
		stopped, err := eng.Start(ctx, id)
		if err == nil {
			ev.Started = id
			ev.Stopped = stopped
		}
		return err

	case ActionStop:
		var (
			entry *model.TimeEntry
			err   error
		)
		if step.Subject == "" {
			entry, err = eng.StopActive(ctx)
		} else {
			id, rerr := h.subjectID(step.Subject, ev)
			if rerr != nil {
				return rerr
			}
			entry, err = eng.Stop(ctx, id)
		}
		ev.Stopped = entry
		return err

	case ActionToggle:
		id, err := h.subjectID(step.Subject, ev)
		if err != nil {
			return err
		}
		tr, err := eng.Toggle(ctx, id)
		ev.Started, ev.Stopped = tr.Started, tr.Stopped
		return err

	case ActionLog:
		id, err := h.subjectID(step.Subject, ev)
		if err != nil {
			return err
		}
		entry, err := eng.AddManualEntry(ctx, id, step.Minutes)
		if err == nil {
			ev.Stopped = &entry
		}
		return err

	case ActionCreateType:
		_, err := eng.CreateType(ctx, step.Name, step.Icon)
		return err

	case ActionCreateSubject:
		var typeID string
		if step.Type != "" {
			t, err := dataset.ResolveType(eng.Snapshot(), step.Type)
			if err != nil {
				return err
			}
			typeID = t.ID
		}
		s, err := eng.CreateSubject(ctx, step.Name, typeID, step.Icon)
		ev.Subject = s.ID
		return err

	case ActionRenameType:
		t, err := dataset.ResolveType(eng.Snapshot(), step.Type)
		if err != nil {
			return err
		}
		return eng.RenameType(ctx, t.ID, step.Name)

	case ActionRenameSubject:
		id, err := h.subjectID(step.Subject, ev)
		if err != nil {
			return err
		}
		return eng.RenameSubject(ctx, id, step.Name)

	case ActionMoveSubject:
		id, err := h.subjectID(step.Subject, ev)
		if err != nil {
			return err
		}
		t, err := dataset.ResolveType(eng.Snapshot(), step.Type)
		if err != nil {
			return err
		}
		return eng.MoveSubject(ctx, id, t.ID)

	case ActionDeleteSubject:
		id, err := h.subjectID(step.Subject, ev)
		if err != nil {
			return err
		}
		_, err = eng.DeleteSubject(ctx, id)
		return err

	case ActionDeleteType:
		t, err := dataset.ResolveType(eng.Snapshot(), step.Type)
		if err != nil {
			return err
		}
		_, err = eng.DeleteType(ctx, t.ID)
		return err

	case ActionImport:
		payload := []byte(step.Payload)
		if step.File != "" {
			path := step.File
			if !filepath.IsAbs(path) {
				path = filepath.Join(h.dir, path)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			payload = data
		}
		_, err := eng.Import(ctx, payload)
		return err

	case ActionClear:
		return eng.Clear(ctx)

	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
}

// subjectID resolves a subject reference and records it on the event.
func (h *Harness) subjectID(ref string, ev *TraceEvent) (string, error) {
	s, err := dataset.ResolveSubject(h.engine.Snapshot(), ref)
	if err != nil {
		return "", err
	}
	ev.Subject = s.ID
	return s.ID, nil
}
