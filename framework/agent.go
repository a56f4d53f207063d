package framework

import "context"

// Task carries the immutable instruction handed to an agent. Params hold
// whatever the caller wants the agent's prompt or tools to see (target path,
// size thresholds, prior findings) without widening the Agent signature.
type Task struct {
	ID          string
	Instruction string
	Params      map[string]any
}

// AgentResult is the terminal output of any agent boundary. It is constructed
// fresh at each boundary and never mutated afterwards: Reasoning is an ordered
// human-readable trace, Error a human-readable failure cause. Success=false
// with a populated Error is the only failure channel an agent exposes; callers
// never see a raw panic or provider exception.
type AgentResult struct {
	Success   bool
	Data      map[string]any
	Reasoning []string
	Error     string
	Metadata  map[string]any
}

// FailedResult builds the conventional failure payload.
func FailedResult(reason string, trace []string) *AgentResult {
	return &AgentResult{
		Success:   false,
		Reasoning: trace,
		Error:     reason,
		Data:      map[string]any{},
		Metadata:  map[string]any{},
	}
}

// Agent is the contract shared by every worker in the system, whether it is a
// full ReAct loop or a deterministic rule pass. Execute returns a well-formed
// AgentResult for every internal failure; the error return is reserved for
// context cancellation so supervisors can tell "the work failed" apart from
// "the caller gave up".
type Agent interface {
	Name() string
	Execute(ctx context.Context, task *Task, session *Session) (*AgentResult, error)
}
