// Package engine implements the tally tracking engine.
//
// The engine owns the one in-memory dataset of a session and is the only
// thing that mutates it. Every operation builds a new dataset from a clone
// of the current one, publishes it as the snapshot, and hands it to the
// Persister. Readers always get copies, so no caller holds state that can
// drift from the snapshot.
//
// TRACKING:
//
// A subject is Idle (IsActive=false, no StartTime) or Tracking (IsActive=true,
// StartTime set). At most one subject is Tracking. Start on B while A tracks
// closes A's session and opens B's in the same snapshot. Stop turns the open
// session into a TimeEntry and appends it; Stop on an Idle subject is a
// logged no-op.
//
// A StopGuard marks a subject while its stop is in flight, so a duplicate
// stop for the same subject is suppressed until the first one has saved.
//
// PERSISTENCE:
//
// Save failures never roll back the snapshot. They are logged and kept in
// PersistErr for the caller to report.
package engine
