package framework

import "time"

// LoopStatus tracks the terminal state of one ReAct loop run.
type LoopStatus string

const (
	StatusRunning         LoopStatus = "running"
	StatusFinishedNormal  LoopStatus = "finished_normal"
	StatusFinishedMaxIter LoopStatus = "finished_max_iter"
	StatusFailed          LoopStatus = "failed"
)

// ActionRequest is one entry of a batch: an action name plus its raw,
// still-unparsed argument string.
type ActionRequest struct {
	Action      string `json:"action"`
	ActionInput string `json:"action_input"`
}

// Thought is one reasoning step produced by the model. ActionInput stays a
// raw string here; parsing is deferred to the tolerant action-input parser so
// a malformed payload never prevents the thought from entering history.
// Immutable after creation.
type Thought struct {
	Thought        string          `json:"thought"`
	Action         string          `json:"action,omitempty"`
	ActionInput    string          `json:"action_input,omitempty"`
	Batch          []ActionRequest `json:"actions,omitempty"`
	ShouldContinue bool            `json:"should_continue"`
}

// Observation is the outcome of executing one action. Failures are encoded as
// an "error" key inside Result, never as a loose error value, so history stays
// uniformly serializable.
type Observation struct {
	Action    string         `json:"action"`
	Result    map[string]any `json:"result"`
	Timestamp time.Time      `json:"timestamp"`
}

// IsError reports whether the observation carries an error flag.
func (o Observation) IsError() bool {
	_, ok := o.Result["error"]
	return ok
}

// History accumulates the thoughts and observations of exactly one loop run.
// Batch actions emit several observations per thought, so the two sequences
// are ordered but not length-matched.
type History struct {
	Thoughts     []Thought
	Observations []Observation
	FinalAnswer  string
}

// AddThought appends a reasoning step.
func (h *History) AddThought(t Thought) {
	h.Thoughts = append(h.Thoughts, t)
}

// AddObservation appends an action outcome.
func (h *History) AddObservation(o Observation) {
	h.Observations = append(h.Observations, o)
}

// LastObservation returns the most recent observation, if any.
func (h *History) LastObservation() (Observation, bool) {
	if len(h.Observations) == 0 {
		return Observation{}, false
	}
	return h.Observations[len(h.Observations)-1], true
}

// FindObservation returns the first observation for the named action.
func (h *History) FindObservation(action string) (Observation, bool) {
	for _, o := range h.Observations {
		if o.Action == action {
			return o, true
		}
	}
	return Observation{}, false
}
