package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tally/internal/report"
)

// Scenario defines one tracking scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Start is the initial clock reading, RFC 3339.
	Start string `yaml:"start"`

	// Timezone is the IANA zone bucket dates are computed in. Default UTC.
	Timezone string `yaml:"timezone,omitempty"`

	// Setup steps run before Steps and must all succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Steps is the main flow.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`

	// dir is the scenario file's directory, for relative import paths.
	dir string
}

// Step is one action against the engine or the clock.
type Step struct {
	// Action is one of the Action constants.
	Action string `yaml:"action"`

	// Subject and Type are ids or names.
	Subject string `yaml:"subject,omitempty"`
	Type    string `yaml:"type,omitempty"`

	// Name and Icon feed create and rename actions.
	Name string `yaml:"name,omitempty"`
	Icon string `yaml:"icon,omitempty"`

	// Minutes is the manual entry length for log.
	Minutes int64 `yaml:"minutes,omitempty"`

	// Duration is a time.ParseDuration string for advance.
	Duration string `yaml:"duration,omitempty"`

	// At is an RFC 3339 instant for set_clock.
	At string `yaml:"at,omitempty"`

	// Payload is inline AppData JSON for import; File is a path to it,
	// relative to the scenario file.
	Payload string `yaml:"payload,omitempty"`
	File    string `yaml:"file,omitempty"`

	// Expect checks the step's outcome. Without it the step must succeed.
	Expect *StepExpect `yaml:"expect,omitempty"`
}

// StepExpect checks one step's outcome.
type StepExpect struct {
	// Error is a substring the step's error must contain.
	Error string `yaml:"error,omitempty"`

	// Stopped names the subject whose entry the step must emit.
	Stopped string `yaml:"stopped,omitempty"`

	// Duration is the emitted entry's expected duration in seconds.
	Duration *int64 `yaml:"duration,omitempty"`

	// NoEntry requires that the step emitted no entry.
	NoEntry bool `yaml:"no_entry,omitempty"`
}

// Step actions.
const (
	ActionAdvance       = "advance"
	ActionSetClock      = "set_clock"
	ActionStart         = "start"
	ActionStop          = "stop"
	ActionToggle        = "toggle"
	ActionLog           = "log"
	ActionCreateType    = "create_type"
	ActionCreateSubject = "create_subject"
	ActionRenameType    = "rename_type"
	ActionRenameSubject = "rename_subject"
	ActionMoveSubject   = "move_subject"
	ActionDeleteSubject = "delete_subject"
	ActionDeleteType    = "delete_type"
	ActionImport        = "import"
	ActionClear         = "clear"
)

// Assertion validates the final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "active": Subject is the tracking subject; empty Subject means none
	// - "breakdown": Subject's totals match Expect (frame -> seconds)
	// - "entries": the entry count, optionally for one Subject, is Count
	// - "type_total": Type's total for Frame is Seconds
	// - "subject_type": Subject belongs to Type
	// - "types": type names in display order equal Names
	// - "consistent": the dataset has no invariant violations
	Type string `yaml:"type"`

	Subject string           `yaml:"subject,omitempty"`
	TypeRef string           `yaml:"of_type,omitempty"`
	Frame   string           `yaml:"frame,omitempty"`
	Seconds int64            `yaml:"seconds,omitempty"`
	Count   int              `yaml:"count,omitempty"`
	Names   []string         `yaml:"names,omitempty"`
	Expect  map[string]int64 `yaml:"expect,omitempty"`

	// Live includes the running session in breakdown totals.
	Live bool `yaml:"live,omitempty"`
}

// Assertion type constants.
const (
	AssertActive      = "active"
	AssertBreakdown   = "breakdown"
	AssertEntries     = "entries"
	AssertTypeTotal   = "type_total"
	AssertSubjectType = "subject_type"
	AssertTypes       = "types"
	AssertConsistent  = "consistent"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	scenario.dir = filepath.Dir(path)
	return scenario, nil
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if _, err := time.Parse(time.RFC3339, s.Start); err != nil {
		return fmt.Errorf("start must be an RFC 3339 time: %w", err)
	}

	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("timezone: %w", err)
		}
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(step Step) error {
	switch step.Action {
	case ActionAdvance:
		if _, err := time.ParseDuration(step.Duration); err != nil {
			return fmt.Errorf("advance needs a duration: %w", err)
		}
	case ActionSetClock:
		if _, err := time.Parse(time.RFC3339, step.At); err != nil {
			return fmt.Errorf("set_clock needs an RFC 3339 at: %w", err)
		}
	case ActionStart, ActionToggle, ActionDeleteSubject, ActionLog:
		if step.Subject == "" {
			return fmt.Errorf("%s needs a subject", step.Action)
		}
	case ActionRenameSubject:
		if step.Subject == "" || step.Name == "" {
			return fmt.Errorf("rename_subject needs subject and name")
		}
	case ActionMoveSubject:
		if step.Subject == "" || step.Type == "" {
			return fmt.Errorf("move_subject needs subject and type")
		}
	case ActionRenameType:
		if step.Type == "" || step.Name == "" {
			return fmt.Errorf("rename_type needs type and name")
		}
	case ActionDeleteType:
		if step.Type == "" {
			return fmt.Errorf("delete_type needs a type")
		}
	case ActionImport:
		if (step.Payload == "") == (step.File == "") {
			return fmt.Errorf("import needs exactly one of payload or file")
		}
	case ActionStop, ActionCreateType, ActionCreateSubject, ActionClear:
	case "":
		return fmt.Errorf("action is required")
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertActive, AssertConsistent:
	case AssertBreakdown:
		if a.Subject == "" {
			return fmt.Errorf("assertions[%d]: subject is required for breakdown", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for breakdown", index)
		}
		for frame := range a.Expect {
			if _, err := report.ParseTimeFrame(frame); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
	case AssertEntries:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for entries", index)
		}
	case AssertTypeTotal:
		if a.TypeRef == "" {
			return fmt.Errorf("assertions[%d]: of_type is required for type_total", index)
		}
		if _, err := report.ParseTimeFrame(a.Frame); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertSubjectType:
		if a.Subject == "" || a.TypeRef == "" {
			return fmt.Errorf("assertions[%d]: subject and of_type are required for subject_type", index)
		}
	case AssertTypes:
		if len(a.Names) == 0 {
			return fmt.Errorf("assertions[%d]: names is required for types", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
