package engine

import (
	"context"
	"time"

	"github.com/roach88/tally/internal/model"
)

// Transition describes what a Toggle did. Started is the subject id that
// began tracking, empty if none did. Stopped is the entry committed by a
// stop, nil if none was.
type Transition struct {
	Started string           `json:"started,omitempty"`
	Stopped *model.TimeEntry `json:"stopped,omitempty"`
}

// Session is the open tracking session, if any.
type Session struct {
	Subject model.Subject `json:"subject"`
	Start   time.Time     `json:"start"`
	Elapsed int64         `json:"elapsed"`
}

// Active returns the tracking subject.
func (e *Engine) Active() (model.Subject, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.data.ActiveSubject()
}

// Session returns the open session with its elapsed seconds as of now.
func (e *Engine) Session() (Session, bool) {
	s, ok := e.Active()
	if !ok {
		return Session{}, false
	}
	now := e.now()
	return Session{
		Subject: s,
		Start:   time.UnixMilli(*s.StartTime).In(e.loc),
		Elapsed: model.Elapsed(*s.StartTime, now),
	}, true
}

// Start begins tracking subjectID. Any other tracking subject is stopped
// first and its entry returned; both changes land in one snapshot. Starting
// the subject that is already tracking changes nothing.
func (e *Engine) Start(ctx context.Context, subjectID string) (*model.TimeEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startLocked(ctx, subjectID)
}

func (e *Engine) startLocked(ctx context.Context, subjectID string) (*model.TimeEntry, error) {
	i := e.data.SubjectIndex(subjectID)
	if i < 0 {
		return nil, unknownSubject(subjectID)
	}
	if e.data.Subjects[i].Tracking() {
		e.log.Debug("start ignored, already tracking", "subject", subjectID)
		return nil, nil
	}

	now := e.now()
	next := e.data.Clone()

	var stopped *model.TimeEntry
	if prev, ok := next.ActiveSubject(); ok {
		entry := e.closeSession(&next, prev.ID, now)
		stopped = &entry
		e.log.Debug("implicit stop", "subject", prev.ID, "duration", entry.Duration)
	}

	startMs := now.UnixMilli()
	next.Subjects[i].IsActive = true
	next.Subjects[i].StartTime = &startMs

	e.commitLocked(ctx, "start", next, now)
	e.log.Debug("tracking started", "subject", subjectID)
	return stopped, nil
}

// Stop ends the session of subjectID and returns the committed entry.
//
// Stopping an idle or unknown subject returns a nil entry. So does a stop
// that arrives while another stop for the same subject is still saving;
// the marker is held until the Persister returns.
func (e *Engine) Stop(ctx context.Context, subjectID string) (*model.TimeEntry, error) {
	if !e.stopping.Acquire(subjectID) {
		e.log.Warn("stop already in flight, ignoring", "subject", subjectID)
		return nil, nil
	}
	defer e.stopping.Release(subjectID)

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopLocked(ctx, subjectID), nil
}

func (e *Engine) stopLocked(ctx context.Context, subjectID string) *model.TimeEntry {
	s, ok := e.data.FindSubject(subjectID)
	if !ok || !s.Tracking() {
		e.log.Warn("stop ignored, subject is not tracking", "subject", subjectID)
		return nil
	}

	now := e.now()
	next := e.data.Clone()
	entry := e.closeSession(&next, subjectID, now)
	e.commitLocked(ctx, "stop", next, now)
	e.log.Debug("tracking stopped", "subject", subjectID, "duration", entry.Duration)
	return &entry
}

// StopActive stops whichever subject is tracking. It returns nil when
// nothing is.
func (e *Engine) StopActive(ctx context.Context) (*model.TimeEntry, error) {
	s, ok := e.Active()
	if !ok {
		return nil, nil
	}
	return e.Stop(ctx, s.ID)
}

// Toggle stops subjectID if it is tracking and starts it otherwise. The
// decision and the transition happen under one lock. A toggle that would
// stop a subject whose stop is already in flight does nothing.
func (e *Engine) Toggle(ctx context.Context, subjectID string) (Transition, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.data.FindSubject(subjectID)
	if !ok {
		return Transition{}, unknownSubject(subjectID)
	}

	if s.Tracking() {
		// Acquire does not block, so taking it under mu cannot deadlock with Stop
		if !e.stopping.Acquire(subjectID) {
			e.log.Warn("toggle ignored, stop already in flight", "subject", subjectID)
			return Transition{}, nil
		}
		defer e.stopping.Release(subjectID)
		return Transition{Stopped: e.stopLocked(ctx, subjectID)}, nil
	}

	stopped, err := e.startLocked(ctx, subjectID)
	if err != nil {
		return Transition{}, err
	}
	return Transition{Started: subjectID, Stopped: stopped}, nil
}

// closeSession appends the entry for subjectID's open session to d and
// marks the subject idle. d must be a private copy.
func (e *Engine) closeSession(d *model.Dataset, subjectID string, now time.Time) model.TimeEntry {
	i := d.SubjectIndex(subjectID)
	s := &d.Subjects[i]
	start := time.UnixMilli(*s.StartTime).In(e.loc)

	entry := model.NewCompletedEntry(e.ids.NewID(), subjectID, start, now)
	d.TimeEntries = append(d.TimeEntries, entry)
	s.IsActive = false
	s.StartTime = nil
	return entry
}
