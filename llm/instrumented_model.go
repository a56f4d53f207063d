package llm

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexcodex/reliquary/framework"
)

// InstrumentedModel wraps a LanguageModel and logs every call with latency
// and usage. Prompt/response bodies are only logged at debug level.
type InstrumentedModel struct {
	Inner framework.LanguageModel
	Log   zerolog.Logger
}

func NewInstrumentedModel(inner framework.LanguageModel, log zerolog.Logger) *InstrumentedModel {
	return &InstrumentedModel{Inner: inner, Log: log}
}

func (m *InstrumentedModel) Generate(ctx context.Context, prompt string, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	m.Log.Debug().
		Str("kind", "generate").
		Str("model", modelFromOptions(options)).
		Int("prompt_chars", len(prompt)).
		Str("prompt_preview", clip(prompt, 1024)).
		Msg("llm prompt")
	start := time.Now()
	resp, err := m.Inner.Generate(ctx, prompt, options)
	m.logResponse("generate", start, resp, err)
	return resp, err
}

func (m *InstrumentedModel) Chat(ctx context.Context, messages []framework.Message, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	roles := make([]string, 0, len(messages))
	chars := 0
	for _, msg := range messages {
		roles = append(roles, msg.Role)
		chars += len(msg.Content)
	}
	m.Log.Debug().
		Str("kind", "chat").
		Str("model", modelFromOptions(options)).
		Int("message_count", len(messages)).
		Strs("roles", roles).
		Int("prompt_chars", chars).
		Msg("llm prompt")
	start := time.Now()
	resp, err := m.Inner.Chat(ctx, messages, options)
	m.logResponse("chat", start, resp, err)
	return resp, err
}

func (m *InstrumentedModel) logResponse(kind string, start time.Time, resp *framework.LLMResponse, err error) {
	event := m.Log.Debug().
		Str("kind", kind).
		Dur("elapsed", time.Since(start))
	if err != nil {
		m.Log.Warn().Str("kind", kind).Dur("elapsed", time.Since(start)).Err(err).Msg("llm call failed")
		return
	}
	if resp != nil {
		event = event.
			Str("finish_reason", resp.FinishReason).
			Str("text_preview", clip(resp.Text, 1024))
		if resp.Usage != nil {
			event = event.Interface("usage", resp.Usage)
		}
	}
	event.Msg("llm response")
}

func modelFromOptions(options *framework.LLMOptions) string {
	if options != nil && options.Model != "" {
		return options.Model
	}
	return ""
}

func clip(s string, max int) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
