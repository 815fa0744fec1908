// Package report computes time totals from time entries.
//
// Everything here is a pure function of the entries and a reference instant.
// Windows are compared on bucket date strings, so time zone and DST handling
// lives entirely in model.BucketDate.
package report

import (
	"fmt"
	"time"

	"github.com/roach88/tally/internal/model"
)

// TimeFrame selects one field of a Breakdown.
type TimeFrame string

const (
	Daily   TimeFrame = "daily"
	Weekly  TimeFrame = "weekly"
	Monthly TimeFrame = "monthly"
	AllTime TimeFrame = "allTime"
)

// TimeFrames lists the frames in display order.
var TimeFrames = []TimeFrame{Daily, Weekly, Monthly, AllTime}

// ParseTimeFrame accepts the frame names used in exported files and selectors.
func ParseTimeFrame(s string) (TimeFrame, error) {
	for _, tf := range TimeFrames {
		if string(tf) == s {
			return tf, nil
		}
	}
	if s == "all" || s == "all-time" || s == "alltime" {
		return AllTime, nil
	}
	return "", fmt.Errorf("unknown time frame %q: must be one of %v", s, TimeFrames)
}

// Breakdown is the per-window total for one subject, in seconds.
type Breakdown struct {
	Daily   int64 `json:"daily"`
	Weekly  int64 `json:"weekly"`
	Monthly int64 `json:"monthly"`
	AllTime int64 `json:"allTime"`
}

// Get returns the field for tf. Unknown frames fall back to AllTime.
func (b Breakdown) Get(tf TimeFrame) int64 {
	switch tf {
	case Daily:
		return b.Daily
	case Weekly:
		return b.Weekly
	case Monthly:
		return b.Monthly
	default:
		return b.AllTime
	}
}

// Add increases every window by seconds. Used for live sessions, which count
// toward every window that contains now.
func (b Breakdown) Add(seconds int64) Breakdown {
	return Breakdown{
		Daily:   b.Daily + seconds,
		Weekly:  b.Weekly + seconds,
		Monthly: b.Monthly + seconds,
		AllTime: b.AllTime + seconds,
	}
}

// Windows holds the boundary bucket dates derived from a reference instant.
type Windows struct {
	Today      string `json:"today"`
	WeekStart  string `json:"weekStart"`
	MonthStart string `json:"monthStart"`
}

// WindowsAt derives the windows containing now, in now's location.
// Weeks start on Sunday.
func WindowsAt(now time.Time) Windows {
	year, month, _ := now.Date()
	weekStart := now.AddDate(0, 0, -int(now.Weekday()))
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
	return Windows{
		Today:      model.BucketDate(now),
		WeekStart:  model.BucketDate(weekStart),
		MonthStart: model.BucketDate(monthStart),
	}
}

// ComputeBreakdown sums the subject's entries into the windows containing now.
//
// Entries dated after today still count toward the weekly and monthly
// windows, matching the string comparison the windows are defined by.
func ComputeBreakdown(subjectID string, entries []model.TimeEntry, now time.Time) Breakdown {
	w := WindowsAt(now)

	var b Breakdown
	for _, e := range entries {
		if e.SubjectID != subjectID {
			continue
		}
		if e.Date == w.Today {
			b.Daily += e.Duration
		}
		if e.Date >= w.WeekStart {
			b.Weekly += e.Duration
		}
		if e.Date >= w.MonthStart {
			b.Monthly += e.Duration
		}
		b.AllTime += e.Duration
	}
	return b
}

// SubjectTotal is the all-time total for one subject.
func SubjectTotal(subjectID string, entries []model.TimeEntry) int64 {
	var total int64
	for _, e := range entries {
		if e.SubjectID == subjectID {
			total += e.Duration
		}
	}
	return total
}

// TotalForType sums the tf window over every subject of the type.
func TotalForType(typeID string, d model.Dataset, tf TimeFrame, now time.Time) int64 {
	var total int64
	for _, s := range d.SubjectsOfType(typeID) {
		total += ComputeBreakdown(s.ID, d.TimeEntries, now).Get(tf)
	}
	return total
}
