package model

import "time"

// DefaultDataset is what a first run (or a cleared store) starts with.
func DefaultDataset(now time.Time) Dataset {
	return Dataset{
		Types: []Type{
			{ID: "1", Name: "Courses", Icon: "GraduationCap"},
			{ID: "2", Name: "Work", Icon: "Briefcase"},
			{ID: "3", Name: "Projects", Icon: "Code"},
		},
		Subjects: []Subject{
			{ID: "1", Name: "React Course", TypeID: "1", Icon: "BookOpen"},
			{ID: "2", Name: "Client Project", TypeID: "2", Icon: "Briefcase"},
			{ID: "3", Name: "Portfolio Website", TypeID: "3", Icon: "Code"},
		},
		TimeEntries: []TimeEntry{},
		LastUpdated: now.UnixMilli(),
		Version:     CurrentVersion,
	}
}
