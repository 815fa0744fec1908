package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/tally/internal/dataset"
	"github.com/roach88/tally/internal/engine"
	"github.com/roach88/tally/internal/model"
	"github.com/roach88/tally/internal/report"
)

// AssertionContext provides what assertions evaluate against.
type AssertionContext struct {
	Engine  *engine.Engine
	Dataset model.Dataset
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion %s failed: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(a Assertion, actx *AssertionContext) error {
	d := actx.Dataset
	switch a.Type {
	case AssertActive:
		return assertActive(d, a)
	case AssertBreakdown:
		return assertBreakdown(actx, a)
	case AssertEntries:
		return assertEntries(d, a)
	case AssertTypeTotal:
		return assertTypeTotal(actx, a)
	case AssertSubjectType:
		return assertSubjectType(d, a)
	case AssertTypes:
		return assertTypes(d, a)
	case AssertConsistent:
		return assertConsistent(d)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertActive(d model.Dataset, a Assertion) error {
	active, tracking := d.ActiveSubject()
	if a.Subject == "" {
		if tracking {
			return &AssertionError{Type: a.Type, Expected: "no tracking subject", Actual: active.Name}
		}
		return nil
	}
	want, err := dataset.ResolveSubject(d, a.Subject)
	if err != nil {
		return err
	}
	if !tracking {
		return &AssertionError{Type: a.Type, Expected: want.Name, Actual: "no tracking subject"}
	}
	if active.ID != want.ID {
		return &AssertionError{Type: a.Type, Expected: want.Name, Actual: active.Name}
	}
	return nil
}

func assertBreakdown(actx *AssertionContext, a Assertion) error {
	s, err := dataset.ResolveSubject(actx.Dataset, a.Subject)
	if err != nil {
		return err
	}
	b := actx.Engine.Breakdown(s.ID)
	if a.Live {
		b = actx.Engine.LiveBreakdown(s.ID)
	}

	var mismatches []string
	for _, tf := range report.TimeFrames {
		for key, want := range a.Expect {
			frame, _ := report.ParseTimeFrame(key)
			if frame != tf {
				continue
			}
			if got := b.Get(tf); got != want {
				mismatches = append(mismatches, fmt.Sprintf("%s=%d (want %d)", tf, got, want))
			}
		}
	}
	if len(mismatches) > 0 {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s totals %v", s.Name, a.Expect),
			Actual:   strings.Join(mismatches, ", "),
		}
	}
	return nil
}

func assertEntries(d model.Dataset, a Assertion) error {
	count := len(d.TimeEntries)
	label := "all subjects"
	if a.Subject != "" {
		id := a.Subject
		if s, err := dataset.ResolveSubject(d, a.Subject); err == nil {
			id = s.ID
		}
		label = a.Subject
		count = 0
		for _, e := range d.TimeEntries {
			if e.SubjectID == id {
				count++
			}
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d entries for %s", a.Count, label),
			Actual:   fmt.Sprintf("%d", count),
		}
	}
	return nil
}

func assertTypeTotal(actx *AssertionContext, a Assertion) error {
	t, err := dataset.ResolveType(actx.Dataset, a.TypeRef)
	if err != nil {
		return err
	}
	tf, _ := report.ParseTimeFrame(a.Frame)
	if got := actx.Engine.TypeTotal(t.ID, tf); got != a.Seconds {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s %s total %d", t.Name, tf, a.Seconds),
			Actual:   fmt.Sprintf("%d", got),
		}
	}
	return nil
}

func assertSubjectType(d model.Dataset, a Assertion) error {
	s, err := dataset.ResolveSubject(d, a.Subject)
	if err != nil {
		return err
	}
	t, err := dataset.ResolveType(d, a.TypeRef)
	if err != nil {
		return err
	}
	if s.TypeID != t.ID {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%s in %s", s.Name, t.Name), Actual: s.TypeID}
	}
	return nil
}

func assertTypes(d model.Dataset, a Assertion) error {
	names := make([]string, len(d.Types))
	for i, t := range d.Types {
		names[i] = t.Name
	}
	if strings.Join(names, "\x00") != strings.Join(a.Names, "\x00") {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%v", a.Names), Actual: fmt.Sprintf("%v", names)}
	}
	return nil
}

func assertConsistent(d model.Dataset) error {
	violations := model.Check(d)
	if len(violations) == 0 {
		return nil
	}
	msgs := make([]string, len(violations))
	for i, v := range violations {
		msgs[i] = v.String()
	}
	return &AssertionError{Type: AssertConsistent, Expected: "no violations", Actual: strings.Join(msgs, "; ")}
}

// checkExpect compares a step's event with its expect clause.
func checkExpect(d model.Dataset, step Step, ev TraceEvent) []string {
	exp := step.Expect
	if exp == nil {
		if ev.Error != "" {
			return []string{"unexpected error: " + ev.Error}
		}
		return nil
	}

	var errs []string
	switch {
	case exp.Error == "" && ev.Error != "":
		errs = append(errs, "unexpected error: "+ev.Error)
	case exp.Error != "" && !strings.Contains(ev.Error, exp.Error):
		errs = append(errs, fmt.Sprintf("expected error containing %q, got %q", exp.Error, ev.Error))
	}

	if exp.NoEntry && ev.Stopped != nil {
		errs = append(errs, fmt.Sprintf("expected no entry, got %s for %s", ev.Stopped.ID, ev.Stopped.SubjectID))
	}
	if exp.Stopped != "" {
		want := exp.Stopped
		if s, err := dataset.ResolveSubject(d, exp.Stopped); err == nil {
			want = s.ID
		}
		switch {
		case ev.Stopped == nil:
			errs = append(errs, fmt.Sprintf("expected an entry for %s, got none", exp.Stopped))
		case ev.Stopped.SubjectID != want:
			errs = append(errs, fmt.Sprintf("expected an entry for %s, got one for %s", exp.Stopped, ev.Stopped.SubjectID))
		}
	}
	if exp.Duration != nil {
		switch {
		case ev.Stopped == nil:
			errs = append(errs, fmt.Sprintf("expected an entry of %ds, got none", *exp.Duration))
		case ev.Stopped.Duration != *exp.Duration:
			errs = append(errs, fmt.Sprintf("expected duration %d, got %d", *exp.Duration, ev.Stopped.Duration))
		}
	}
	return errs
}
