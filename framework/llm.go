package framework

import "context"

// LLMOptions configures language model calls. Keeping the options struct in
// the framework avoids hard-coding provider-specific fields in agent code.
type LLMOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Stop        []string
}

// LLMResponse is the result of a language model invocation.
type LLMResponse struct {
	Text         string         `json:"text,omitempty"`
	FinishReason string         `json:"finish_reason,omitempty"`
	Usage        map[string]int `json:"usage,omitempty"`
}

// Message is used for chat-style interactions.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LanguageModel is the narrow contract the loops need from a provider.
// Implementations must wrap transport failures in LLMError rather than
// letting client-library error types escape.
type LanguageModel interface {
	Generate(ctx context.Context, prompt string, options *LLMOptions) (*LLMResponse, error)
	Chat(ctx context.Context, messages []Message, options *LLMOptions) (*LLMResponse, error)
}
