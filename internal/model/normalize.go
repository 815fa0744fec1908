package model

import (
	"fmt"
	"time"
)

// Normalize migrates a loaded or imported dataset to the current version and
// repairs legacy inconsistencies so the invariants hold before the engine
// publishes it. It returns the repaired copy and a description of each fix.
//
// Repairs, in order:
//   - nil collections become empty
//   - version is stamped with CurrentVersion
//   - later records reusing an id already seen in their collection are dropped
//   - startTime is dropped from idle subjects; active subjects without a
//     startTime become idle
//   - only the first active subject, in display order, keeps the slot
//   - subjects without any type get the first default type
//   - subjects pointing at a missing type move to the first type
//   - entries ending before they start, or with a negative duration, are
//     clamped to zero length
//   - totalTime is recomputed from entries
func Normalize(d Dataset) (Dataset, []string) {
	out := d.Clone()
	var fixes []string

	if out.Version != CurrentVersion {
		fixes = append(fixes, fmt.Sprintf("version %q migrated to %q", out.Version, CurrentVersion))
		out.Version = CurrentVersion
	}

	out.Types = dedupe(out.Types, func(t Type) string { return t.ID }, "type", &fixes)
	out.Subjects = dedupe(out.Subjects, func(s Subject) string { return s.ID }, "subject", &fixes)
	out.TimeEntries = dedupe(out.TimeEntries, func(e TimeEntry) string { return e.ID }, "time entry", &fixes)

	if len(out.Types) == 0 && len(out.Subjects) > 0 {
		seed := DefaultDataset(time.Time{}).Types[0]
		out.Types = append(out.Types, seed)
		fixes = append(fixes, fmt.Sprintf("type %s: seeded, subjects had no type", seed.ID))
	}

	activeSeen := false
	for i := range out.Subjects {
		s := &out.Subjects[i]
		switch {
		case !s.IsActive && s.StartTime != nil:
			s.StartTime = nil
			fixes = append(fixes, fmt.Sprintf("subject %s: dropped start time of idle subject", s.ID))
		case s.IsActive && s.StartTime == nil:
			s.IsActive = false
			fixes = append(fixes, fmt.Sprintf("subject %s: active without start time, made idle", s.ID))
		case s.IsActive && activeSeen:
			s.IsActive = false
			s.StartTime = nil
			fixes = append(fixes, fmt.Sprintf("subject %s: second active subject, made idle", s.ID))
		}
		if s.IsActive {
			activeSeen = true
		}

		if out.TypeIndex(s.TypeID) < 0 {
			fixes = append(fixes, fmt.Sprintf("subject %s: unknown type %q, moved to %q", s.ID, s.TypeID, out.Types[0].ID))
			s.TypeID = out.Types[0].ID
		}
	}

	for i := range out.TimeEntries {
		e := &out.TimeEntries[i]
		if e.EndTime < e.StartTime || e.Duration < 0 {
			fixes = append(fixes, fmt.Sprintf("time entry %s: negative span, clamped to zero", e.ID))
			e.EndTime = e.StartTime
			e.Duration = 0
		}
	}

	out.RecomputeTotals()
	return out, fixes
}

// dedupe keeps the first record for each id.
func dedupe[T any](items []T, id func(T) string, kind string, fixes *[]string) []T {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, item := range items {
		k := id(item)
		if seen[k] {
			*fixes = append(*fixes, fmt.Sprintf("%s %s: duplicate id, dropped", kind, k))
			continue
		}
		seen[k] = true
		out = append(out, item)
	}
	return out
}

// RecomputeTotals rewrites every subject's advisory TotalTime from the entries.
func (d *Dataset) RecomputeTotals() {
	totals := make(map[string]int64, len(d.Subjects))
	for _, e := range d.TimeEntries {
		totals[e.SubjectID] += e.Duration
	}
	for i := range d.Subjects {
		d.Subjects[i].TotalTime = totals[d.Subjects[i].ID]
	}
}
