package harness

import "github.com/roach88/snapvault/internal/doc"

// Step outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found" // rollback target missing or of another kind
	OutcomeExists   = "exists"    // branch already exists
	OutcomeNoSource = "no_source" // merge source has no head
	OutcomeRefused  = "refused"   // delete_branch removed nothing
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Step      int            `json:"step"` // 1-based
	Op        string         `json:"op"`
	Kind      string         `json:"kind"`
	Branch    string         `json:"branch,omitempty"`
	Outcome   string         `json:"outcome"`
	Commit    string         `json:"commit,omitempty"` // label of the commit the step wrote
	Parent    string         `json:"parent,omitempty"`
	Message   string         `json:"message,omitempty"`
	Added     int            `json:"added"`
	Removed   int            `json:"removed"`
	Conflicts []doc.Conflict `json:"conflicts,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds assertion failures. Empty if Pass is true.
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

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}

// event returns the trace event for a 1-based step number.
func (r *Result) event(step int) (TraceEvent, bool) {
	if step < 1 || step > len(r.Trace) {
		return TraceEvent{}, false
	}
	return r.Trace[step-1], true
}
