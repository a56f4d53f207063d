package llm

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/lexcodex/reliquary/framework"
)

// OpenAIClient implements framework.LanguageModel on top of langchaingo's
// OpenAI binding.
type OpenAIClient struct {
	llm *openai.LLM
	Log zerolog.Logger
}

// NewOpenAIClient builds a client for the given API key and default model.
func NewOpenAIClient(apiKey, model string, log zerolog.Logger) (*OpenAIClient, error) {
	opts := []openai.Option{openai.WithToken(apiKey)}
	if model != "" {
		opts = append(opts, openai.WithModel(model))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, &framework.LLMError{Op: "init", Err: err}
	}
	return &OpenAIClient{llm: client, Log: log}, nil
}

// Generate implements single prompt completion.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}
	resp, err := c.call(ctx, messages, options)
	if err != nil {
		return nil, &framework.LLMError{Op: "generate", Err: err}
	}
	return resp, nil
}

// Chat implements chat style conversation.
func (c *OpenAIClient) Chat(ctx context.Context, messages []framework.Message, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	converted := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		converted = append(converted, llms.TextParts(chatRole(msg.Role), msg.Content))
	}
	resp, err := c.call(ctx, converted, options)
	if err != nil {
		return nil, &framework.LLMError{Op: "chat", Err: err}
	}
	return resp, nil
}

func (c *OpenAIClient) call(ctx context.Context, messages []llms.MessageContent, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	var callOpts []llms.CallOption
	if options != nil {
		if options.Model != "" {
			callOpts = append(callOpts, llms.WithModel(options.Model))
		}
		if options.Temperature != 0 {
			callOpts = append(callOpts, llms.WithTemperature(options.Temperature))
		}
		if options.MaxTokens != 0 {
			callOpts = append(callOpts, llms.WithMaxTokens(options.MaxTokens))
		}
		if len(options.Stop) > 0 {
			callOpts = append(callOpts, llms.WithStopWords(options.Stop))
		}
	}
	resp, err := c.llm.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return &framework.LLMResponse{}, nil
	}
	choice := resp.Choices[0]
	c.Log.Debug().Str("stop_reason", choice.StopReason).Msg("openai response")
	return &framework.LLMResponse{
		Text:         choice.Content,
		FinishReason: choice.StopReason,
	}, nil
}

func chatRole(role string) schema.ChatMessageType {
	switch role {
	case "system":
		return schema.ChatMessageTypeSystem
	case "assistant":
		return schema.ChatMessageTypeAI
	case "tool":
		return schema.ChatMessageType("tool")
	default:
		return schema.ChatMessageTypeHuman
	}
}
