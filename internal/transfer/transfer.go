// Package transfer reads and writes the AppData JSON envelope used by
// export and import.
//
// Import is all-or-nothing: Decode either returns a complete, normalized
// dataset or a *ValidationError, and callers only replace their state on
// success.
package transfer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/tally/internal/model"
)

// Messages carried by ValidationError.Reason.
const (
	ReasonInvalidJSON   = "Invalid JSON format"
	ReasonInvalidFormat = "Invalid data format"
)

// requiredKeys must be present and non-null at the top level.
var requiredKeys = []string{"types", "subjects", "timeEntries"}

// ValidationError reports a rejected import. Reason is one of the Reason
// constants; Detail says what was wrong.
type ValidationError struct {
	Reason string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
	}
	return e.Reason
}

// IsValidationError reports whether err is a rejected import payload.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Result is the discriminated outcome of an import, shaped for display.
type Result struct {
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
	Fixes   []string `json:"fixes,omitempty"`
}

// ResultOf folds an import error into a Result.
func ResultOf(err error, fixes []string) Result {
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return Result{Success: false, Error: ve.Reason}
		}
		return Result{Success: false, Error: err.Error()}
	}
	return Result{Success: true, Fixes: fixes}
}

// Export renders the dataset as pretty-printed JSON with lastUpdated set to
// now. The dataset is otherwise written verbatim.
func Export(d model.Dataset, now time.Time) ([]byte, error) {
	out := d.Clone()
	out.LastUpdated = now.UnixMilli()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("encode dataset: %w", err)
	}
	// Encoder adds a trailing newline, drop it
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode parses and validates an AppData payload.
//
// Checks, in order: the payload is JSON; types, subjects and timeEntries are
// present and non-null; the payload matches the #AppData schema; no entry
// ends before it starts; subjects come with at least one type. The result is
// then normalized (see model.Normalize) and the applied fixes returned.
func Decode(data []byte) (model.Dataset, []string, error) {
	if !json.Valid(data) {
		return model.Dataset{}, nil, &ValidationError{Reason: ReasonInvalidJSON}
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return model.Dataset{}, nil, &ValidationError{Reason: ReasonInvalidFormat, Detail: "top level is not an object"}
	}
	for _, key := range requiredKeys {
		raw, ok := top[key]
		if !ok || string(bytes.TrimSpace(raw)) == "null" {
			return model.Dataset{}, nil, &ValidationError{Reason: ReasonInvalidFormat, Detail: fmt.Sprintf("missing %q", key)}
		}
	}

	if err := validateSchema(data); err != nil {
		return model.Dataset{}, nil, &ValidationError{Reason: ReasonInvalidFormat, Detail: err.Error()}
	}

	var d model.Dataset
	if err := json.Unmarshal(data, &d); err != nil {
		return model.Dataset{}, nil, &ValidationError{Reason: ReasonInvalidFormat, Detail: err.Error()}
	}

	if err := checkReferences(d); err != nil {
		return model.Dataset{}, nil, err
	}

	out, fixes := model.Normalize(d)
	return out, fixes, nil
}

func checkReferences(d model.Dataset) error {
	for _, e := range d.TimeEntries {
		if e.EndTime < e.StartTime {
			return &ValidationError{Reason: ReasonInvalidFormat, Detail: fmt.Sprintf("time entry %s ends before it starts", e.ID)}
		}
	}
	if len(d.Types) == 0 && len(d.Subjects) > 0 {
		return &ValidationError{Reason: ReasonInvalidFormat, Detail: "subjects present without any type"}
	}
	return nil
}
