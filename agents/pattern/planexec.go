package pattern

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lexcodex/reliquary/framework"
)

// Planner produces an ExecutionPlan for a task. The base behavior is a fixed
// static sequence; LLM-driven planners satisfy the same contract.
type Planner interface {
	CreatePlan(ctx context.Context, task *framework.Task, session *framework.Session) (*framework.ExecutionPlan, error)
}

// AgentDirectory resolves sub-agent names to instances.
type AgentDirectory interface {
	Lookup(name string) (framework.Agent, bool)
}

// MergeFunc folds one completed step's result into the shared session.
// Supervisors install agent-specific rules here (discovery steps append
// discoveries, classifier steps append classifications, and so on).
type MergeFunc func(session *framework.Session, step *framework.PlanStep, result *framework.AgentResult)

// Supervisor runs a plan-and-execute workflow: create a plan, execute pending
// steps strictly in list order by delegating to named sub-agents, merge each
// success into the session, and replan on early failures.
//
// Replanning policy: a failed step in the first half of the plan (by index)
// regenerates the plan and copies every previously completed step's status
// and result onto the new step sharing the same id; a failure in the second
// half is fatal and yields a success=false result.
type Supervisor struct {
	SupervisorName string
	Planner        Planner
	Agents         AgentDirectory
	Merge          MergeFunc
	Log            zerolog.Logger

	// OnStep, when set, observes step status transitions. UI layers hook
	// progress displays here.
	OnStep func(stepID string, status framework.StepStatus)
}

func (s *Supervisor) notify(stepID string, status framework.StepStatus) {
	if s.OnStep != nil {
		s.OnStep(stepID, status)
	}
}

// Name implements framework.Agent.
func (s *Supervisor) Name() string { return s.SupervisorName }

// Execute drives the workflow to completion or fatal failure. Like every
// agent boundary it returns a structured result for internal failures and
// reserves the error return for context cancellation.
func (s *Supervisor) Execute(ctx context.Context, task *framework.Task, session *framework.Session) (*framework.AgentResult, error) {
	plan, err := s.Planner.CreatePlan(ctx, task, session)
	if err != nil {
		return framework.FailedResult(fmt.Sprintf("plan creation failed: %v", err), nil), nil
	}
	s.Log.Info().Int("steps", len(plan.Steps)).Str("supervisor", s.SupervisorName).Msg("plan created")

	for !plan.IsComplete() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		step := plan.NextStep()
		if step == nil {
			// failed steps remain but nothing is pending
			break
		}
		step.Status = framework.StepRunning
		s.notify(step.ID, framework.StepRunning)
		s.Log.Info().Str("step", step.ID).Str("agent", step.AgentName).Msg("step running")

		result := s.executeStep(ctx, task, session, step)
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if result.Success {
			step.Status = framework.StepCompleted
			s.notify(step.ID, framework.StepCompleted)
			step.Result = result
			if s.Merge != nil {
				s.Merge(session, step, result)
			}
			s.Log.Info().Str("step", step.ID).Msg("step completed")
			continue
		}

		step.Status = framework.StepFailed
		s.notify(step.ID, framework.StepFailed)
		step.Result = result
		session.AddError(fmt.Sprintf("step %s failed: %s", step.ID, result.Error))
		s.Log.Warn().Str("step", step.ID).Str("error", result.Error).Msg("step failed")

		if !s.shouldReplan(plan, step) {
			planErr := &framework.PlanExecutionError{StepID: step.ID, Err: fmt.Errorf("%s", result.Error)}
			return framework.FailedResult(planErr.Error(), checklist(plan)), nil
		}

		replanned, err := s.replan(ctx, task, session, plan)
		if err != nil {
			return framework.FailedResult(fmt.Sprintf("replanning failed: %v", err), checklist(plan)), nil
		}
		plan = replanned
	}

	return s.compile(session, plan), nil
}

// executeStep dispatches to the named sub-agent. An unknown name becomes a
// failed step result, never a crash.
func (s *Supervisor) executeStep(ctx context.Context, task *framework.Task, session *framework.Session, step *framework.PlanStep) *framework.AgentResult {
	agent, ok := s.Agents.Lookup(step.AgentName)
	if !ok {
		return framework.FailedResult(fmt.Sprintf("unknown agent %q for step %s", step.AgentName, step.ID), nil)
	}
	stepTask := &framework.Task{
		ID:          task.ID + "/" + step.ID,
		Instruction: step.Description,
		Params:      task.Params,
	}
	result, err := agent.Execute(ctx, stepTask, session)
	if err != nil {
		// context cancellation surfaces through ctx.Err() in the caller;
		// anything else is an agent contract violation, treated as failure
		return framework.FailedResult(err.Error(), nil)
	}
	if result == nil {
		return framework.FailedResult(fmt.Sprintf("agent %q returned no result", step.AgentName), nil)
	}
	return result
}

// shouldReplan applies the midpoint rule: only failures strictly before the
// plan's true midpoint are recoverable. The middle step of an odd-length plan
// sits before the midpoint, so it still replans.
func (s *Supervisor) shouldReplan(plan *framework.ExecutionPlan, failed *framework.PlanStep) bool {
	idx := plan.IndexOf(failed.ID)
	if idx < 0 {
		return false
	}
	return 2*idx < len(plan.Steps)
}

// replan regenerates the plan and copies completed work forward by step id.
// Completed steps with no counterpart in the new plan are silently dropped.
func (s *Supervisor) replan(ctx context.Context, task *framework.Task, session *framework.Session, old *framework.ExecutionPlan) (*framework.ExecutionPlan, error) {
	s.Log.Info().Msg("replanning after early step failure")
	fresh, err := s.Planner.CreatePlan(ctx, task, session)
	if err != nil {
		return nil, err
	}
	for _, prev := range old.Steps {
		if prev.Status != framework.StepCompleted {
			continue
		}
		if next := fresh.Step(prev.ID); next != nil {
			next.Status = framework.StepCompleted
			next.Result = prev.Result
		}
	}
	return fresh, nil
}

// compile builds the checklist result: one line per step, success equal to
// plan completeness, data the final session context.
func (s *Supervisor) compile(session *framework.Session, plan *framework.ExecutionPlan) *framework.AgentResult {
	return &framework.AgentResult{
		Success:   plan.IsComplete(),
		Data:      session.ContextCopy(),
		Reasoning: checklist(plan),
		Metadata: map[string]any{
			"steps":      len(plan.Steps),
			"created_at": plan.CreatedAt,
		},
	}
}

func checklist(plan *framework.ExecutionPlan) []string {
	lines := make([]string, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		mark := "✗"
		if step.Status == framework.StepCompleted {
			mark = "✓"
		}
		lines = append(lines, fmt.Sprintf("%s %s", mark, step.Description))
	}
	return lines
}

// StaticPlanner returns a fixed step sequence on every call, the base
// planning behavior for supervisors with a known workflow shape.
type StaticPlanner struct {
	Build func() []*framework.PlanStep
}

// CreatePlan implements Planner.
func (p *StaticPlanner) CreatePlan(ctx context.Context, task *framework.Task, session *framework.Session) (*framework.ExecutionPlan, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return framework.NewExecutionPlan(p.Build()), nil
}
