package model

import (
	"fmt"
	"time"
)

// Violation describes one broken dataset invariant.
type Violation struct {
	Rule    string `json:"rule"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	if v.ID != "" {
		return fmt.Sprintf("%s [%s]: %s", v.Rule, v.ID, v.Message)
	}
	return fmt.Sprintf("%s: %s", v.Rule, v.Message)
}

// Invariant rule names reported by Check.
const (
	RuleUniqueID       = "unique-id"
	RuleSingleActive   = "single-active"
	RuleStartIffActive = "start-iff-active"
	RuleTypeRef        = "type-ref"
	RuleEntrySpan      = "entry-span"
	RuleEntryDate      = "entry-date"
)

// Check reports every invariant the dataset violates. A dataset produced by
// Normalize and the dataset rules always checks clean.
func Check(d Dataset) []Violation {
	var out []Violation

	seen := map[string]bool{}
	for _, t := range d.Types {
		if seen[t.ID] {
			out = append(out, Violation{Rule: RuleUniqueID, ID: t.ID, Message: "duplicate type id"})
		}
		seen[t.ID] = true
	}

	seen = map[string]bool{}
	active := 0
	for _, s := range d.Subjects {
		if seen[s.ID] {
			out = append(out, Violation{Rule: RuleUniqueID, ID: s.ID, Message: "duplicate subject id"})
		}
		seen[s.ID] = true
		if s.IsActive {
			active++
		}
		if s.IsActive != (s.StartTime != nil) {
			out = append(out, Violation{Rule: RuleStartIffActive, ID: s.ID, Message: "start time present without active flag or vice versa"})
		}
		if d.TypeIndex(s.TypeID) < 0 {
			out = append(out, Violation{Rule: RuleTypeRef, ID: s.ID, Message: fmt.Sprintf("references missing type %q", s.TypeID)})
		}
	}
	if active > 1 {
		out = append(out, Violation{Rule: RuleSingleActive, Message: fmt.Sprintf("%d subjects are active", active)})
	}

	seen = map[string]bool{}
	for _, e := range d.TimeEntries {
		if seen[e.ID] {
			out = append(out, Violation{Rule: RuleUniqueID, ID: e.ID, Message: "duplicate time entry id"})
		}
		seen[e.ID] = true
		if e.EndTime < e.StartTime || e.Duration < 0 {
			out = append(out, Violation{Rule: RuleEntrySpan, ID: e.ID, Message: "negative span or duration"})
		}
		if _, err := time.Parse(DateLayout, e.Date); err != nil {
			out = append(out, Violation{Rule: RuleEntryDate, ID: e.ID, Message: fmt.Sprintf("bad bucket date %q", e.Date)})
		}
	}

	return out
}
