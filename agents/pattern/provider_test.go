package pattern

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/reliquary/framework"
)

func TestExtractJSONHandlesFences(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, ExtractJSON("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, ExtractJSON(`prefix {"a": 1} suffix`))
	assert.Equal(t, "{}", ExtractJSON("no json here"))
}

func TestParseThoughtStructured(t *testing.T) {
	thought := parseThought(`{"thought": "scan first", "action": "scan_directory",
"action_input": "{\"path\": \"/tmp\"}", "should_continue": true}`)
	assert.Equal(t, "scan first", thought.Thought)
	assert.Equal(t, "scan_directory", thought.Action)
	assert.Equal(t, `{"path": "/tmp"}`, thought.ActionInput)
	assert.True(t, thought.ShouldContinue)
}

func TestParseThoughtInlineObjectInput(t *testing.T) {
	thought := parseThought(`{"thought": "go", "action": "scan", "action_input": {"path": "/tmp"}, "should_continue": true}`)
	assert.JSONEq(t, `{"path": "/tmp"}`, thought.ActionInput)
}

func TestParseThoughtDefaultsShouldContinue(t *testing.T) {
	thought := parseThought(`{"thought": "hm", "action": "scan"}`)
	assert.True(t, thought.ShouldContinue)
}

func TestParseThoughtUnparseableIsTerminal(t *testing.T) {
	thought := parseThought("I believe the work is complete.")
	assert.False(t, thought.ShouldContinue)
	assert.Equal(t, "I believe the work is complete.", thought.Thought)
	assert.Empty(t, thought.Action)
}

func TestParseThoughtBatch(t *testing.T) {
	thought := parseThought(`{"thought": "both at once",
"actions": [
  {"action": "a", "action_input": "{\"x\": 1}"},
  {"action": "b", "action_input": {"y": 2}}
], "should_continue": true}`)
	require.Len(t, thought.Batch, 2)
	assert.Equal(t, "a", thought.Batch[0].Action)
	assert.Equal(t, `{"x": 1}`, thought.Batch[0].ActionInput)
	assert.JSONEq(t, `{"y": 2}`, thought.Batch[1].ActionInput)
}

type echoModel struct {
	reply      string
	lastSystem string
}

func (m *echoModel) Generate(ctx context.Context, prompt string, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	return &framework.LLMResponse{Text: m.reply}, nil
}

func (m *echoModel) Chat(ctx context.Context, messages []framework.Message, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	if len(messages) > 0 && messages[0].Role == "system" {
		m.lastSystem = messages[0].Content
	}
	return &framework.LLMResponse{Text: m.reply}, nil
}

type gatedTool struct {
	stubTool
	open bool
}

func (t *gatedTool) Available(ctx context.Context, session *framework.Session) bool { return t.open }

func TestSystemPromptListsOnlyAvailableTools(t *testing.T) {
	registry := framework.NewToolRegistry()
	visible := &stubTool{name: "visible"}
	hidden := &gatedTool{stubTool: stubTool{name: "hidden"}}
	require.NoError(t, registry.Register(visible))
	require.NoError(t, registry.Register(hidden))

	model := &echoModel{reply: `{"thought": "ok", "should_continue": false}`}
	provider := &LLMThoughtProvider{Model: model, Tools: registry, Log: zerolog.Nop()}

	_, err := provider.NextThought(context.Background(), &framework.Task{Instruction: "look around"}, framework.NewSession(), &framework.History{})
	require.NoError(t, err)
	assert.Contains(t, model.lastSystem, "visible")
	assert.NotContains(t, model.lastSystem, "- hidden:")

	hidden.open = true
	_, err = provider.NextThought(context.Background(), &framework.Task{Instruction: "look around"}, framework.NewSession(), &framework.History{})
	require.NoError(t, err)
	assert.Contains(t, model.lastSystem, "- hidden:")
}
