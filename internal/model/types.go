package model

// Type is a user-defined category grouping subjects.
type Type struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Subject is a trackable unit of work.
//
// StartTime is set if and only if IsActive is true. TotalTime is advisory:
// it is recomputed from time entries on every commit and never read back as
// a source of truth.
type Subject struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	TypeID    string `json:"typeId"`
	Icon      string `json:"icon"`
	IsActive  bool   `json:"isActive"`
	TotalTime int64  `json:"totalTime"`
	StartTime *int64 `json:"startTime,omitempty"`
}

// Tracking reports whether the subject holds the tracking slot.
func (s Subject) Tracking() bool {
	return s.IsActive && s.StartTime != nil
}

// TimeEntry is an immutable record of one completed span of tracked time.
// SubjectID is not required to reference an existing subject.
type TimeEntry struct {
	ID        string `json:"id"`
	SubjectID string `json:"subjectId"`
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime"`
	Duration  int64  `json:"duration"`
	Date      string `json:"date"`
}

// Dataset is the aggregate root. Types and Subjects are in display order;
// TimeEntries are in the order their sessions ended.
type Dataset struct {
	Types       []Type      `json:"types"`
	Subjects    []Subject   `json:"subjects"`
	TimeEntries []TimeEntry `json:"timeEntries"`
	LastUpdated int64       `json:"lastUpdated"`
	Version     string      `json:"version"`
}

// Clone returns a deep copy. Every mutation in tally starts from a clone so
// that a published snapshot is never modified in place.
func (d Dataset) Clone() Dataset {
	out := Dataset{
		Types:       make([]Type, len(d.Types)),
		Subjects:    make([]Subject, len(d.Subjects)),
		TimeEntries: make([]TimeEntry, len(d.TimeEntries)),
		LastUpdated: d.LastUpdated,
		Version:     d.Version,
	}
	copy(out.Types, d.Types)
	copy(out.TimeEntries, d.TimeEntries)
	for i, s := range d.Subjects {
		if s.StartTime != nil {
			start := *s.StartTime
			s.StartTime = &start
		}
		out.Subjects[i] = s
	}
	return out
}

// TypeIndex returns the display index of the type, or -1.
func (d Dataset) TypeIndex(id string) int {
	for i, t := range d.Types {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// SubjectIndex returns the display index of the subject, or -1.
func (d Dataset) SubjectIndex(id string) int {
	for i, s := range d.Subjects {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// FindType looks a type up by id.
func (d Dataset) FindType(id string) (Type, bool) {
	if i := d.TypeIndex(id); i >= 0 {
		return d.Types[i], true
	}
	return Type{}, false
}

// FindSubject looks a subject up by id.
func (d Dataset) FindSubject(id string) (Subject, bool) {
	if i := d.SubjectIndex(id); i >= 0 {
		return d.Subjects[i], true
	}
	return Subject{}, false
}

// ActiveSubject returns the subject holding the tracking slot, if any.
func (d Dataset) ActiveSubject() (Subject, bool) {
	for _, s := range d.Subjects {
		if s.IsActive {
			return s, true
		}
	}
	return Subject{}, false
}

// SubjectsOfType returns the subjects whose TypeID is typeID, in display order.
func (d Dataset) SubjectsOfType(typeID string) []Subject {
	var out []Subject
	for _, s := range d.Subjects {
		if s.TypeID == typeID {
			out = append(out, s)
		}
	}
	return out
}
