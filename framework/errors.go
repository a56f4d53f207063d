package framework

import (
	"fmt"
	"strings"
)

// InvalidActionError is raised when the model names a tool that is not
// registered during a single (non-batch) action. It is fatal to the owning
// loop, which terminates with success=false.
type InvalidActionError struct {
	Action    string
	Available []string
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("invalid action %q. Available: %s", e.Action, strings.Join(e.Available, ", "))
}

// ToolNotFoundError is returned by registry lookups for unknown names. It
// carries the sorted set of names that were valid at call time, since the
// available set can change between lookups.
type ToolNotFoundError struct {
	Name      string
	Available []string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool %q not found. Available tools: %s", e.Name, strings.Join(e.Available, ", "))
}

// ToolExecutionError wraps a failure inside a registered tool. Always
// recoverable: the loop converts it into an error-flagged observation.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %q execution failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// PlanExecutionError reports a fatal plan failure: a step failed past the
// replanning window, or replanning itself could not produce a plan.
type PlanExecutionError struct {
	StepID string
	Err    error
}

func (e *PlanExecutionError) Error() string {
	return fmt.Sprintf("plan step %q failed: %v", e.StepID, e.Err)
}

func (e *PlanExecutionError) Unwrap() error { return e.Err }

// LLMError wraps a language-model collaborator failure so provider-specific
// error types never leak into loop logic.
type LLMError struct {
	Op  string
	Err error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("llm %s failed: %v", e.Op, e.Err)
}

func (e *LLMError) Unwrap() error { return e.Err }
