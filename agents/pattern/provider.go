package pattern

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lexcodex/reliquary/framework"
)

// ThoughtProvider produces the next reasoning step for a loop. Implementations
// must wrap provider failures in framework.LLMError (or another typed error);
// the loop converts any provider error into a failed result.
type ThoughtProvider interface {
	NextThought(ctx context.Context, task *framework.Task, session *framework.Session, history *framework.History) (*framework.Thought, error)
}

// LLMThoughtProvider asks a language model for a JSON thought record. The
// prompt lists only the tools currently available for the session, so
// availability changes between iterations are reflected immediately.
type LLMThoughtProvider struct {
	Model        framework.LanguageModel
	Tools        *framework.ToolRegistry
	Options      *framework.LLMOptions
	SystemPrompt string
	Log          zerolog.Logger
}

// NextThought prompts the model and parses its response into a Thought.
func (p *LLMThoughtProvider) NextThought(ctx context.Context, task *framework.Task, session *framework.Session, history *framework.History) (*framework.Thought, error) {
	messages := []framework.Message{
		{Role: "system", Content: p.systemPrompt(ctx, session)},
		{Role: "user", Content: p.userPrompt(task, history)},
	}
	resp, err := p.Model.Chat(ctx, messages, p.Options)
	if err != nil {
		return nil, err
	}
	thought := parseThought(resp.Text)
	p.Log.Debug().Str("action", thought.Action).Bool("continue", thought.ShouldContinue).Msg("thought parsed")
	return thought, nil
}

// systemPrompt renders the instruction header plus the live tool listing.
func (p *LLMThoughtProvider) systemPrompt(ctx context.Context, session *framework.Session) string {
	var lines []string
	if p.Tools != nil {
		for _, tool := range p.Tools.Available(ctx, session) {
			params := make([]string, 0, len(tool.Parameters()))
			for _, param := range tool.Parameters() {
				params = append(params, fmt.Sprintf("%s (%s)", param.Name, param.Type))
			}
			lines = append(lines, fmt.Sprintf("- %s: %s [%s]", tool.Name(), tool.Description(), strings.Join(params, ", ")))
		}
	}
	header := p.SystemPrompt
	if header == "" {
		header = "You are an analysis agent. Reason step by step and call tools when needed."
	}
	return fmt.Sprintf(`%s
Available tools:
%s
Respond with a JSON object: {"thought": "...", "action": "tool_name", "action_input": "{...}", "should_continue": true}.
For several actions in one step use "actions": [{"action": "...", "action_input": "{...}"}].
Set "should_continue": false and call finish when done.`, header, strings.Join(lines, "\n"))
}

// userPrompt restates the task plus the most recent observations.
func (p *LLMThoughtProvider) userPrompt(task *framework.Task, history *framework.History) string {
	var b strings.Builder
	b.WriteString("Task: ")
	b.WriteString(task.Instruction)
	b.WriteRune('\n')
	if len(task.Params) > 0 {
		if data, err := json.Marshal(task.Params); err == nil {
			b.WriteString("Parameters: ")
			b.Write(data)
			b.WriteRune('\n')
		}
	}
	// last few observations keep the prompt bounded without a token budget
	obs := history.Observations
	if len(obs) > 5 {
		obs = obs[len(obs)-5:]
	}
	for _, o := range obs {
		data, err := json.Marshal(o.Result)
		if err != nil {
			data = []byte(fmt.Sprint(o.Result))
		}
		fmt.Fprintf(&b, "Observation[%s]: %s\n", o.Action, data)
	}
	return b.String()
}

// parseThought normalizes the model's free-text response into a Thought.
// Unparseable responses become a terminal thought carrying the raw text as
// rationale, mirroring how an unstructured "I'm done" answer is treated.
func parseThought(raw string) *framework.Thought {
	snippet := ExtractJSON(raw)
	var generic map[string]any
	if err := json.Unmarshal([]byte(snippet), &generic); err != nil || len(generic) == 0 {
		return &framework.Thought{Thought: strings.TrimSpace(raw), ShouldContinue: false}
	}
	thought := &framework.Thought{ShouldContinue: true}
	if v, ok := generic["thought"].(string); ok && v != "" {
		thought.Thought = v
	} else {
		thought.Thought = strings.TrimSpace(raw)
	}
	if v, ok := generic["action"].(string); ok {
		thought.Action = v
	}
	thought.ActionInput = rawInputString(generic["action_input"])
	if v, ok := generic["should_continue"].(bool); ok {
		thought.ShouldContinue = v
	}
	if batch, ok := generic["actions"].([]any); ok {
		for _, item := range batch {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			action, _ := entry["action"].(string)
			thought.Batch = append(thought.Batch, framework.ActionRequest{
				Action:      action,
				ActionInput: rawInputString(entry["action_input"]),
			})
		}
	}
	return thought
}

// rawInputString keeps action_input as an unparsed string whether the model
// emitted it as a string or an inline object.
func rawInputString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}
