package framework

import "time"

// StepStatus is the lifecycle state of one plan step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// PlanStep is one unit of supervised work delegated to a named sub-agent.
// Dependencies are informational: NextStep selects purely by list order and
// does not consult them.
type PlanStep struct {
	ID           string
	AgentName    string
	Description  string
	Dependencies []string
	Status       StepStatus
	Result       *AgentResult
}

// ExecutionPlan is an ordered step list with a creation timestamp. Steps
// execute strictly in list order; there is no DAG scheduling.
type ExecutionPlan struct {
	Steps     []*PlanStep
	CreatedAt time.Time
}

// NewExecutionPlan stamps a plan with the current time and pending steps.
func NewExecutionPlan(steps []*PlanStep) *ExecutionPlan {
	for _, s := range steps {
		if s.Status == "" {
			s.Status = StepPending
		}
	}
	return &ExecutionPlan{Steps: steps, CreatedAt: time.Now().UTC()}
}

// IsComplete reports whether every step has completed.
func (p *ExecutionPlan) IsComplete() bool {
	for _, s := range p.Steps {
		if s.Status != StepCompleted {
			return false
		}
	}
	return len(p.Steps) > 0
}

// NextStep returns the first pending step in list order, or nil.
func (p *ExecutionPlan) NextStep() *PlanStep {
	for _, s := range p.Steps {
		if s.Status == StepPending {
			return s
		}
	}
	return nil
}

// IndexOf returns the position of the step with the given id, or -1.
func (p *ExecutionPlan) IndexOf(stepID string) int {
	for i, s := range p.Steps {
		if s.ID == stepID {
			return i
		}
	}
	return -1
}

// Step returns the step with the given id, or nil.
func (p *ExecutionPlan) Step(stepID string) *PlanStep {
	if i := p.IndexOf(stepID); i >= 0 {
		return p.Steps[i]
	}
	return nil
}
