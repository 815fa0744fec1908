package engine

import "sync"

// StopGuard tracks subjects whose stop operation is in flight.
//
// A stop acquires the subject's marker before touching the snapshot and
// releases it only after the resulting dataset has been handed to the
// Persister. A second stop for the same subject arriving in between fails
// to acquire and is dropped, so one session can never emit two entries.
//
// Thread-safe: all methods may be called concurrently.
type StopGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewStopGuard creates an empty guard.
func NewStopGuard() *StopGuard {
	return &StopGuard{inFlight: make(map[string]struct{})}
}

// Acquire marks subjectID as stopping. It returns false if a stop for the
// subject is already in flight.
func (g *StopGuard) Acquire(subjectID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.inFlight[subjectID]; busy {
		return false
	}
	g.inFlight[subjectID] = struct{}{}
	return true
}

// Release clears the marker for subjectID.
func (g *StopGuard) Release(subjectID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.inFlight, subjectID)
}

// InFlight reports whether a stop for subjectID is in progress.
func (g *StopGuard) InFlight(subjectID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, busy := g.inFlight[subjectID]
	return busy
}

// Size returns the number of stops in flight.
func (g *StopGuard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.inFlight)
}
