package harness

// Trace event types.
const (
	EventFrame  = "frame"
	EventReject = "reject"
	EventReset  = "reset"
)

// TraceEvent is one step of a scenario execution: an applied frame, a
// rejected frame or a session reset.
// Keys are hex strings so a golden trace is readable and stable.
type TraceEvent struct {
	Type     string   `json:"type"`
	Frame    int      `json:"frame"`
	Seq      int64    `json:"seq"`
	Bytes    int      `json:"bytes,omitempty"`
	Messages int      `json:"messages,omitempty"`
	Added    []string `json:"added,omitempty"`
	Removed  []string `json:"removed,omitempty"`
	Live     int      `json:"live"`
	Error    string   `json:"error,omitempty"`
	Reason   string   `json:"reason,omitempty"`
}

// SceneEntry is one object left in the scene after the last frame.
type SceneEntry struct {
	Key  string `json:"key"`
	Type string `json:"type"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect and final clause matched.
	Pass bool `json:"pass"`

	// SessionID is the id the session ran under.
	SessionID string `json:"session_id"`

	// Trace holds one event per frame and per reset, in order.
	Trace []TraceEvent `json:"trace"`

	// Scene is the final scene ordered by key.
	Scene []SceneEntry `json:"scene"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Scene:  []SceneEntry{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddEvent appends ev to the trace.
func (r *Result) AddEvent(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}

// LiveByType counts the final scene per primitive type name.
func (r *Result) LiveByType() map[string]int {
	out := make(map[string]int)
	for _, e := range r.Scene {
		out[e.Type]++
	}
	return out
}
