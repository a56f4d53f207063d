package pattern

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/reliquary/framework"
)

type scriptedAgent struct {
	name     string
	results  []*framework.AgentResult
	idx      int
	execute  int
	lastTask *framework.Task
}

func (a *scriptedAgent) Name() string { return a.name }

// Execute pops the next scripted result, repeating the last one when the
// script runs out.
func (a *scriptedAgent) Execute(ctx context.Context, task *framework.Task, session *framework.Session) (*framework.AgentResult, error) {
	a.execute++
	a.lastTask = task
	if a.idx >= len(a.results) {
		return a.results[len(a.results)-1], nil
	}
	r := a.results[a.idx]
	a.idx++
	return r, nil
}

type agentMap map[string]framework.Agent

func (m agentMap) Lookup(name string) (framework.Agent, bool) {
	a, ok := m[name]
	return a, ok
}

func okResult() *framework.AgentResult {
	return &framework.AgentResult{Success: true, Data: map[string]any{}}
}

func fourStepPlanner() *StaticPlanner {
	return &StaticPlanner{Build: func() []*framework.PlanStep {
		return []*framework.PlanStep{
			{ID: "a", AgentName: "A", Description: "step a"},
			{ID: "b", AgentName: "B", Description: "step b"},
			{ID: "c", AgentName: "C", Description: "step c"},
			{ID: "d", AgentName: "D", Description: "step d"},
		}
	}}
}

func newSupervisor(planner Planner, agents agentMap) *Supervisor {
	return &Supervisor{
		SupervisorName: "TestSupervisor",
		Planner:        planner,
		Agents:         agents,
		Log:            zerolog.Nop(),
	}
}

func TestSupervisorRunsStepsInListOrder(t *testing.T) {
	var order []string
	agents := agentMap{}
	for _, name := range []string{"A", "B", "C", "D"} {
		n := name
		agents[n] = &orderTrackingAgent{name: n, order: &order}
	}
	sup := newSupervisor(fourStepPlanner(), agents)

	result, err := sup.Execute(context.Background(), &framework.Task{ID: "run"}, framework.NewSession())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"A", "B", "C", "D"}, order)
	for _, line := range result.Reasoning {
		assert.Contains(t, line, "✓")
	}
}

type orderTrackingAgent struct {
	name  string
	order *[]string
}

func (a *orderTrackingAgent) Name() string { return a.name }

func (a *orderTrackingAgent) Execute(ctx context.Context, task *framework.Task, session *framework.Session) (*framework.AgentResult, error) {
	*a.order = append(*a.order, a.name)
	return okResult(), nil
}

func TestEarlyFailureTriggersReplanWithCopyForward(t *testing.T) {
	a := &scriptedAgent{name: "A", results: []*framework.AgentResult{okResult()}}
	// B fails once then succeeds after the replan
	b := &scriptedAgent{name: "B", results: []*framework.AgentResult{
		framework.FailedResult("transient", nil),
		okResult(),
	}}
	c := &scriptedAgent{name: "C", results: []*framework.AgentResult{okResult()}}
	d := &scriptedAgent{name: "D", results: []*framework.AgentResult{okResult()}}
	sup := newSupervisor(fourStepPlanner(), agentMap{"A": a, "B": b, "C": c, "D": d})

	result, err := sup.Execute(context.Background(), &framework.Task{ID: "run"}, framework.NewSession())
	require.NoError(t, err)
	assert.True(t, result.Success)
	// step a completed before the replan and must not run again
	assert.Equal(t, 1, a.execute)
	assert.Equal(t, 2, b.execute)
}

func TestMiddleStepOfOddLengthPlanReplans(t *testing.T) {
	planner := &StaticPlanner{Build: func() []*framework.PlanStep {
		return []*framework.PlanStep{
			{ID: "a", AgentName: "A", Description: "step a"},
			{ID: "b", AgentName: "B", Description: "step b"},
			{ID: "c", AgentName: "C", Description: "step c"},
		}
	}}
	a := &scriptedAgent{name: "A", results: []*framework.AgentResult{okResult()}}
	// index 1 sits before the midpoint of a 3-step plan, so this failure
	// replans rather than aborting
	b := &scriptedAgent{name: "B", results: []*framework.AgentResult{
		framework.FailedResult("transient", nil),
		okResult(),
	}}
	c := &scriptedAgent{name: "C", results: []*framework.AgentResult{okResult()}}
	sup := newSupervisor(planner, agentMap{"A": a, "B": b, "C": c})

	result, err := sup.Execute(context.Background(), &framework.Task{ID: "run"}, framework.NewSession())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, a.execute)
	assert.Equal(t, 2, b.execute)
	assert.Equal(t, 1, c.execute)
}

func TestLateFailureIsFatal(t *testing.T) {
	a := &scriptedAgent{name: "A", results: []*framework.AgentResult{okResult()}}
	b := &scriptedAgent{name: "B", results: []*framework.AgentResult{okResult()}}
	c := &scriptedAgent{name: "C", results: []*framework.AgentResult{framework.FailedResult("broken", nil)}}
	d := &scriptedAgent{name: "D", results: []*framework.AgentResult{okResult()}}
	sup := newSupervisor(fourStepPlanner(), agentMap{"A": a, "B": b, "C": c, "D": d})

	result, err := sup.Execute(context.Background(), &framework.Task{ID: "run"}, framework.NewSession())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, `plan step "c" failed`)
	// the checklist still reports the completed prefix
	assert.Contains(t, result.Reasoning[0], "✓")
	assert.Contains(t, result.Reasoning[2], "✗")
	assert.Equal(t, 0, d.execute)
}

func TestUnknownAgentBecomesFailedStep(t *testing.T) {
	planner := &StaticPlanner{Build: func() []*framework.PlanStep {
		return []*framework.PlanStep{
			{ID: "x", AgentName: "Ghost", Description: "haunt"},
		}
	}}
	sup := newSupervisor(planner, agentMap{})

	result, err := sup.Execute(context.Background(), &framework.Task{ID: "run"}, framework.NewSession())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, `unknown agent "Ghost"`)
}

func TestMergeFoldsStepResults(t *testing.T) {
	a := &scriptedAgent{name: "A", results: []*framework.AgentResult{
		{Success: true, Data: map[string]any{"value": 7}},
	}}
	planner := &StaticPlanner{Build: func() []*framework.PlanStep {
		return []*framework.PlanStep{{ID: "only", AgentName: "A", Description: "the one step"}}
	}}
	sup := newSupervisor(planner, agentMap{"A": a})
	sup.Merge = func(session *framework.Session, step *framework.PlanStep, result *framework.AgentResult) {
		session.Set("merged_"+step.ID, result.Data["value"])
	}

	session := framework.NewSession()
	result, err := sup.Execute(context.Background(), &framework.Task{ID: "run"}, session)
	require.NoError(t, err)
	assert.True(t, result.Success)
	merged, ok := session.Get("merged_only")
	require.True(t, ok)
	assert.Equal(t, 7, merged)
}

func TestStepTaskCarriesDescriptionAndParams(t *testing.T) {
	a := &scriptedAgent{name: "A", results: []*framework.AgentResult{okResult()}}
	planner := &StaticPlanner{Build: func() []*framework.PlanStep {
		return []*framework.PlanStep{{ID: "scan", AgentName: "A", Description: "scan the attic"}}
	}}
	sup := newSupervisor(planner, agentMap{"A": a})

	task := &framework.Task{ID: "run", Params: map[string]any{"path": "/attic"}}
	_, err := sup.Execute(context.Background(), task, framework.NewSession())
	require.NoError(t, err)
	assert.Equal(t, "run/scan", a.lastTask.ID)
	assert.Equal(t, "scan the attic", a.lastTask.Instruction)
	assert.Equal(t, "/attic", a.lastTask.Params["path"])
}

func TestOnStepObservesTransitions(t *testing.T) {
	a := &scriptedAgent{name: "A", results: []*framework.AgentResult{okResult()}}
	planner := &StaticPlanner{Build: func() []*framework.PlanStep {
		return []*framework.PlanStep{{ID: "solo", AgentName: "A", Description: "solo"}}
	}}
	sup := newSupervisor(planner, agentMap{"A": a})

	var seen []framework.StepStatus
	sup.OnStep = func(stepID string, status framework.StepStatus) {
		seen = append(seen, status)
	}
	_, err := sup.Execute(context.Background(), &framework.Task{ID: "run"}, framework.NewSession())
	require.NoError(t, err)
	assert.Equal(t, []framework.StepStatus{framework.StepRunning, framework.StepCompleted}, seen)
}
