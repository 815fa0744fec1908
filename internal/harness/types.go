package harness

import "github.com/roach88/tally/internal/model"

// TraceEvent records what one step did.
type TraceEvent struct {
	Step    int              `json:"step"`
	Action  string           `json:"action"`
	At      string           `json:"at"`
	Subject string           `json:"subject,omitempty"`
	Started string           `json:"started,omitempty"`
	Stopped *model.TimeEntry `json:"stopped,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace has one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the dataset after the last step.
	Final model.Dataset `json:"final"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
