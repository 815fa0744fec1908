package testutil

import (
	"time"

	"github.com/roach88/tally/internal/model"
)

// Reference is the default instant tests run at: Wednesday 2026-03-18
// 12:00 UTC. The week containing it starts on Sunday 2026-03-15.
var Reference = time.Date(2026, time.March, 18, 12, 0, 0, 0, time.UTC)

// SampleDataset returns a small idle dataset with two types and three
// subjects and no entries:
//
//	t1 Work      s1 Alpha, s2 Beta
//	t2 Personal  s3 Gamma
func SampleDataset() model.Dataset {
	return model.Dataset{
		Types: []model.Type{
			{ID: "t1", Name: "Work", Icon: "Briefcase"},
			{ID: "t2", Name: "Personal", Icon: "Code"},
		},
		Subjects: []model.Subject{
			{ID: "s1", Name: "Alpha", TypeID: "t1", Icon: "BookOpen"},
			{ID: "s2", Name: "Beta", TypeID: "t1", Icon: "BookOpen"},
			{ID: "s3", Name: "Gamma", TypeID: "t2", Icon: "Code"},
		},
		TimeEntries: []model.TimeEntry{},
		LastUpdated: Reference.UnixMilli(),
		Version:     model.CurrentVersion,
	}
}

// Entry builds a completed entry of seconds length starting at start.
func Entry(id, subjectID string, start time.Time, seconds int64) model.TimeEntry {
	return model.NewCompletedEntry(id, subjectID, start, start.Add(time.Duration(seconds)*time.Second))
}
