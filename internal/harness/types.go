package harness

import "github.com/roach88/ritual/internal/model"

// Trace operations.
const (
	OpSet      = "set"
	OpRollover = "rollover"
	OpReset    = "reset"
)

// TraceEvent is one gate operation and the state it left behind.
type TraceEvent struct {
	Seq        int                    `json:"seq"`
	Op         string                 `json:"op"`
	SubGoal    string                 `json:"sub_goal,omitempty"`
	Value      *bool                  `json:"value,omitempty"`
	Completion *model.DailyCompletion `json:"completion,omitempty"`
	Streak     model.StreakState      `json:"streak"`
	Awarded    bool                   `json:"awarded,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds every gate operation in order.
	Trace []TraceEvent `json:"trace"`

	// Final is the persisted streak after the last step.
	Final model.StreakState `json:"final"`

	// Errors contains one message per failed check.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addTrace appends an event with the next sequence number.
func (r *Result) addTrace(ev TraceEvent) {
	ev.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, ev)
}
