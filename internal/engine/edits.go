package engine

import (
	"context"

	"github.com/roach88/tally/internal/dataset"
	"github.com/roach88/tally/internal/model"
)

// AddManualEntry records minutes of untracked time for subjectID, ending
// now. The subject's tracking state is unaffected.
func (e *Engine) AddManualEntry(ctx context.Context, subjectID string, minutes int64) (model.TimeEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.data.SubjectIndex(subjectID) < 0 {
		return model.TimeEntry{}, unknownSubject(subjectID)
	}
	now := e.now()
	entry, err := model.NewManualEntry(e.ids.NewID(), subjectID, minutes, now)
	if err != nil {
		return model.TimeEntry{}, err
	}

	next := e.data.Clone()
	next.TimeEntries = append(next.TimeEntries, entry)
	e.commitLocked(ctx, "log", next, now)
	return entry, nil
}

// CreateType adds a type with a fresh id.
func (e *Engine) CreateType(ctx context.Context, name, icon string) (model.Type, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, t, err := dataset.CreateType(e.data, e.ids.NewID(), name, icon)
	if err != nil {
		return model.Type{}, err
	}
	e.commitLocked(ctx, "create type", next, e.now())
	return t, nil
}

// CreateSubject adds an idle subject with a fresh id. An empty typeID puts
// it in the first type.
func (e *Engine) CreateSubject(ctx context.Context, name, typeID, icon string) (model.Subject, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, s, err := dataset.CreateSubject(e.data, e.ids.NewID(), name, typeID, icon)
	if err != nil {
		return model.Subject{}, err
	}
	e.commitLocked(ctx, "create subject", next, e.now())
	return s, nil
}

// RenameType renames a type.
func (e *Engine) RenameType(ctx context.Context, id, name string) error {
	return e.apply(ctx, "rename type", func(d model.Dataset) (model.Dataset, error) {
		return dataset.RenameType(d, id, name)
	})
}

// SetTypeIcon changes a type's icon.
func (e *Engine) SetTypeIcon(ctx context.Context, id, icon string) error {
	return e.apply(ctx, "type icon", func(d model.Dataset) (model.Dataset, error) {
		return dataset.SetTypeIcon(d, id, icon)
	})
}

// RenameSubject renames a subject.
func (e *Engine) RenameSubject(ctx context.Context, id, name string) error {
	return e.apply(ctx, "rename subject", func(d model.Dataset) (model.Dataset, error) {
		return dataset.RenameSubject(d, id, name)
	})
}

// SetSubjectIcon changes a subject's icon.
func (e *Engine) SetSubjectIcon(ctx context.Context, id, icon string) error {
	return e.apply(ctx, "subject icon", func(d model.Dataset) (model.Dataset, error) {
		return dataset.SetSubjectIcon(d, id, icon)
	})
}

// MoveSubject re-categorizes a subject under typeID. A running session
// keeps running.
func (e *Engine) MoveSubject(ctx context.Context, subjectID, typeID string) error {
	return e.apply(ctx, "move subject", func(d model.Dataset) (model.Dataset, error) {
		return dataset.MoveSubject(d, subjectID, typeID)
	})
}

// DeleteSubject removes a subject. A running session on it is discarded
// without writing an entry.
func (e *Engine) DeleteSubject(ctx context.Context, id string) (model.Subject, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, removed, err := dataset.DeleteSubject(e.data, id)
	if err != nil {
		return model.Subject{}, err
	}
	if removed.Tracking() {
		e.log.Warn("deleted subject was tracking, session discarded", "subject", id,
			"elapsed", model.Elapsed(*removed.StartTime, e.now()))
	}
	e.commitLocked(ctx, "delete subject", next, e.now())
	return removed, nil
}

// DeleteType removes a type and moves its subjects to the first remaining
// type. Deleting the only type is refused with a LAST_TYPE rule error and
// changes nothing.
func (e *Engine) DeleteType(ctx context.Context, id string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, moved, err := dataset.DeleteType(e.data, id)
	if err != nil {
		if dataset.IsNoOp(err) {
			e.log.Warn("delete type ignored", "type", id, "reason", err)
		}
		return 0, err
	}
	e.commitLocked(ctx, "delete type", next, e.now())
	return moved, nil
}

// apply runs a copy-on-write rule against the current snapshot and commits
// the result. A rule error leaves the snapshot untouched.
func (e *Engine) apply(ctx context.Context, op string, rule func(model.Dataset) (model.Dataset, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, err := rule(e.data)
	if err != nil {
		return err
	}
	e.commitLocked(ctx, op, next, e.now())
	return nil
}
