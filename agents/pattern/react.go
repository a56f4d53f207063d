package pattern

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexcodex/reliquary/framework"
)

// FinishAction is the conventional terminal tool name. A terminating thought
// that carries arguments but no action is routed here.
const FinishAction = "finish"

// ResultCompiler shapes the final AgentResult from whatever the loop
// accumulated. The default scans for the finish observation; agents with
// richer payloads plug in their own.
type ResultCompiler interface {
	Compile(session *framework.Session, history *framework.History, status framework.LoopStatus) *framework.AgentResult
}

// ReActLoop drives the bounded thought/action/observation state machine. It
// is deliberately one concrete type composed from small interfaces rather
// than a base-class hierarchy: swap the ThoughtProvider for a stub in tests,
// swap the compiler per agent, and the loop body never changes.
type ReActLoop struct {
	AgentName     string
	Provider      ThoughtProvider
	Tools         *framework.ToolRegistry
	Parser        *ActionInputParser
	Compiler      ResultCompiler
	MaxIterations int
	Log           zerolog.Logger
}

// NewReActLoop wires a loop with defaults for the optional collaborators.
func NewReActLoop(name string, provider ThoughtProvider, tools *framework.ToolRegistry, maxIterations int, log zerolog.Logger) *ReActLoop {
	if tools == nil {
		tools = framework.NewToolRegistry()
	}
	if maxIterations <= 0 {
		maxIterations = 10
	}
	return &ReActLoop{
		AgentName:     name,
		Provider:      provider,
		Tools:         tools,
		Parser:        NewActionInputParser(log),
		Compiler:      &FinishCompiler{},
		MaxIterations: maxIterations,
		Log:           log,
	}
}

// Name implements framework.Agent.
func (l *ReActLoop) Name() string { return l.AgentName }

// Execute runs the loop to a terminal state. Internal failures (provider
// errors, invalid actions) terminate with a success=false result carrying the
// partial reasoning trace; only context cancellation propagates as an error.
func (l *ReActLoop) Execute(ctx context.Context, task *framework.Task, session *framework.Session) (*framework.AgentResult, error) {
	history := &framework.History{}
	status := framework.StatusRunning
	var failReason string

	for iter := 0; iter < l.MaxIterations && status == framework.StatusRunning; iter++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		thought, err := l.Provider.NextThought(ctx, task, session, history)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			l.Log.Error().Err(err).Int("iteration", iter).Msg("thought provider failed")
			status = framework.StatusFailed
			failReason = err.Error()
			break
		}
		history.AddThought(*thought)
		action := normalizeAction(thought.Action)
		l.Log.Debug().Int("iteration", iter).Str("action", action).Bool("continue", thought.ShouldContinue).Msg("iteration")

		if !thought.ShouldContinue {
			// Models sometimes hand over finish arguments without naming the
			// action; route them to the terminal tool before stopping.
			if action == "" && strings.TrimSpace(thought.ActionInput) != "" {
				action = FinishAction
			}
			if action != "" {
				if err := l.runSingle(ctx, session, action, thought.ActionInput, history); err != nil {
					status = framework.StatusFailed
					failReason = err.Error()
					break
				}
			}
			history.FinalAnswer = thought.Thought
			status = framework.StatusFinishedNormal
			break
		}

		if len(thought.Batch) > 0 {
			l.runBatch(ctx, session, thought.Batch, history)
			continue
		}

		// continue=true with no usable action is treated as a stop signal
		if action == "" {
			history.FinalAnswer = thought.Thought
			status = framework.StatusFinishedNormal
			break
		}

		if err := l.runSingle(ctx, session, action, thought.ActionInput, history); err != nil {
			status = framework.StatusFailed
			failReason = err.Error()
			break
		}
	}

	if status == framework.StatusRunning {
		// Bound reached without a termination signal: soft-terminal, the
		// partial history still compiles into a usable result.
		l.Log.Warn().Int("max_iterations", l.MaxIterations).Str("agent", l.AgentName).Msg("iteration bound reached")
		status = framework.StatusFinishedMaxIter
	}

	compiler := l.Compiler
	if compiler == nil {
		compiler = &FinishCompiler{}
	}
	result := compiler.Compile(session, history, status)
	if status == framework.StatusFailed {
		result.Success = false
		result.Error = failReason
	}
	return result, nil
}

// runSingle executes one action with single-action semantics: an unknown name
// is fatal (returned as InvalidActionError), a tool failure degrades to an
// error-flagged observation and returns nil so the loop continues.
func (l *ReActLoop) runSingle(ctx context.Context, session *framework.Session, action, rawInput string, history *framework.History) error {
	args := l.Parser.Parse(rawInput)
	result, err := l.Tools.Invoke(ctx, session, action, args)
	if err != nil {
		var notFound *framework.ToolNotFoundError
		if errors.As(err, &notFound) {
			return &framework.InvalidActionError{Action: notFound.Name, Available: notFound.Available}
		}
		l.Log.Warn().Err(err).Str("action", action).Msg("tool failed, recording error observation")
		history.AddObservation(errorObservation(action, err))
		return nil
	}
	history.AddObservation(framework.Observation{Action: action, Result: result, Timestamp: time.Now().UTC()})
	return nil
}

// runBatch executes batched actions sequentially in list order. Any failure,
// including an unknown name, flags that observation and the batch proceeds.
func (l *ReActLoop) runBatch(ctx context.Context, session *framework.Session, batch []framework.ActionRequest, history *framework.History) {
	for _, item := range batch {
		action := normalizeAction(item.Action)
		if action == "" {
			history.AddObservation(errorObservation(item.Action, errors.New("empty action in batch")))
			continue
		}
		args := l.Parser.Parse(item.ActionInput)
		result, err := l.Tools.Invoke(ctx, session, action, args)
		if err != nil {
			l.Log.Warn().Err(err).Str("action", action).Msg("batch action failed, continuing")
			history.AddObservation(errorObservation(action, err))
			continue
		}
		history.AddObservation(framework.Observation{Action: action, Result: result, Timestamp: time.Now().UTC()})
	}
}

// normalizeAction strips the trailing empty-parenthesis artifact some models
// append and maps null-ish names to the empty action.
func normalizeAction(action string) string {
	a := strings.TrimSpace(action)
	a = strings.TrimSuffix(a, "()")
	a = strings.TrimSpace(a)
	if strings.EqualFold(a, "null") || strings.EqualFold(a, "none") {
		return ""
	}
	return a
}

func errorObservation(action string, err error) framework.Observation {
	return framework.Observation{
		Action:    action,
		Result:    map[string]any{"error": err.Error()},
		Timestamp: time.Now().UTC(),
	}
}

// FinishCompiler is the default result shaper: data comes from the finish
// observation when present, otherwise the last observation; reasoning is the
// ordered thought trace. Only a FAILED status yields success=false; the
// iteration bound is a soft success since partial discoveries keep value.
type FinishCompiler struct{}

// Compile implements ResultCompiler.
func (c *FinishCompiler) Compile(session *framework.Session, history *framework.History, status framework.LoopStatus) *framework.AgentResult {
	data := map[string]any{}
	if obs, ok := history.FindObservation(FinishAction); ok {
		data = obs.Result
	} else if obs, ok := history.LastObservation(); ok {
		data = obs.Result
	}
	reasoning := make([]string, 0, len(history.Thoughts))
	for _, t := range history.Thoughts {
		reasoning = append(reasoning, t.Thought)
	}
	return &framework.AgentResult{
		Success:   status != framework.StatusFailed,
		Data:      data,
		Reasoning: reasoning,
		Metadata: map[string]any{
			"status":       string(status),
			"iterations":   len(history.Thoughts),
			"final_answer": history.FinalAnswer,
			"observations": len(history.Observations),
		},
	}
}
