package report

import (
	"fmt"
	"time"

	"github.com/roach88/tally/internal/model"
)

// SubjectSummary is one subject line of a report.
type SubjectSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Tracking  bool      `json:"tracking"`
	Seconds   int64     `json:"seconds"`
	Breakdown Breakdown `json:"breakdown"`
}

// TypeSummary is one type column of a report.
type TypeSummary struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Icon     string           `json:"icon"`
	Seconds  int64            `json:"seconds"`
	Subjects []SubjectSummary `json:"subjects"`
}

// Summary is the whole report for one time frame.
type Summary struct {
	Frame   TimeFrame     `json:"frame"`
	Windows Windows       `json:"windows"`
	Types   []TypeSummary `json:"types"`
}

// Summarize builds the per-type and per-subject totals for tf, in display
// order. The tracking subject's running session is included: its seconds are
// the stored window total plus the elapsed session time.
func Summarize(d model.Dataset, tf TimeFrame, now time.Time) Summary {
	out := Summary{Frame: tf, Windows: WindowsAt(now), Types: make([]TypeSummary, 0, len(d.Types))}
	for _, t := range d.Types {
		ts := TypeSummary{ID: t.ID, Name: t.Name, Icon: t.Icon, Subjects: []SubjectSummary{}}
		for _, s := range d.SubjectsOfType(t.ID) {
			b := ComputeBreakdown(s.ID, d.TimeEntries, now)
			if s.Tracking() {
				b = b.Add(model.Elapsed(*s.StartTime, now))
			}
			ss := SubjectSummary{
				ID:        s.ID,
				Name:      s.Name,
				Tracking:  s.Tracking(),
				Seconds:   b.Get(tf),
				Breakdown: b,
			}
			ts.Seconds += ss.Seconds
			ts.Subjects = append(ts.Subjects, ss)
		}
		out.Types = append(out.Types, ts)
	}
	return out
}

// FormatDuration renders seconds as h:mm:ss, or m:ss below an hour.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
