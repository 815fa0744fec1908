package model

import "time"

// DateLayout is the bucket date format. It is zero padded, so lexicographic
// order matches chronological order.
const DateLayout = "2006-01-02"

// BucketDate returns the calendar day of t in t's location. Entry creation
// and report windows must both go through this function.
func BucketDate(t time.Time) string {
	return t.Format(DateLayout)
}

// NewCompletedEntry builds the entry for a session spanning [start, end].
//
// An end before start (clock skew) is clamped: the entry becomes a zero
// length span at start rather than carrying negative time.
func NewCompletedEntry(id, subjectID string, start, end time.Time) TimeEntry {
	startMs := start.UnixMilli()
	endMs := end.UnixMilli()
	if endMs < startMs {
		endMs = startMs
	}
	return TimeEntry{
		ID:        id,
		SubjectID: subjectID,
		StartTime: startMs,
		EndTime:   endMs,
		Duration:  (endMs - startMs) / 1000,
		Date:      BucketDate(start),
	}
}

// NewManualEntry builds an entry for time that was not tracked live, ending
// at now. The duration is minutes*60 exactly.
func NewManualEntry(id, subjectID string, minutes int64, now time.Time) (TimeEntry, error) {
	if minutes <= 0 {
		return TimeEntry{}, ErrInvalidDuration
	}
	endMs := now.UnixMilli()
	startMs := endMs - minutes*int64(time.Minute/time.Millisecond)
	return TimeEntry{
		ID:        id,
		SubjectID: subjectID,
		StartTime: startMs,
		EndTime:   endMs,
		Duration:  minutes * 60,
		Date:      BucketDate(time.UnixMilli(startMs).In(now.Location())),
	}, nil
}

// Elapsed returns the whole seconds between startMs and now, never negative.
func Elapsed(startMs int64, now time.Time) int64 {
	d := now.UnixMilli() - startMs
	if d < 0 {
		return 0
	}
	return d / 1000
}
