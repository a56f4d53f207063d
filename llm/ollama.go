package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexcodex/reliquary/framework"
)

// OllamaClient implements framework.LanguageModel against a local Ollama
// server.
type OllamaClient struct {
	Endpoint string
	Model    string
	Log      zerolog.Logger
	client   *http.Client
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaResponse struct {
	Response        string         `json:"response"`
	Message         *ollamaMessage `json:"message"`
	DoneReason      string         `json:"done_reason"`
	EvalCount       int            `json:"eval_count"`
	PromptEvalCount int            `json:"prompt_eval_count"`
}

// NewOllamaClient builds a client for endpoint, defaulting to the local
// Ollama port.
func NewOllamaClient(endpoint, model string, log zerolog.Logger) *OllamaClient {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	return &OllamaClient{
		Endpoint: endpoint,
		Model:    model,
		Log:      log,
		client:   &http.Client{Timeout: 3 * time.Minute},
	}
}

// Generate implements single prompt completion via /api/generate.
func (c *OllamaClient) Generate(ctx context.Context, prompt string, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	payload := map[string]any{
		"model":  c.model(options),
		"prompt": prompt,
		"stream": false,
	}
	applyOptions(payload, options)
	resp, err := c.doRequest(ctx, "/api/generate", payload)
	if err != nil {
		return nil, &framework.LLMError{Op: "generate", Err: err}
	}
	return resp, nil
}

// Chat implements chat style conversation via /api/chat.
func (c *OllamaClient) Chat(ctx context.Context, messages []framework.Message, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	converted := make([]ollamaMessage, 0, len(messages))
	for _, msg := range messages {
		converted = append(converted, ollamaMessage{Role: msg.Role, Content: msg.Content})
	}
	payload := map[string]any{
		"model":    c.model(options),
		"messages": converted,
		"stream":   false,
	}
	applyOptions(payload, options)
	resp, err := c.doRequest(ctx, "/api/chat", payload)
	if err != nil {
		return nil, &framework.LLMError{Op: "chat", Err: err}
	}
	return resp, nil
}

func (c *OllamaClient) model(options *framework.LLMOptions) string {
	if options != nil && options.Model != "" {
		return options.Model
	}
	if c.Model != "" {
		return c.Model
	}
	return "llama3"
}

func applyOptions(payload map[string]any, options *framework.LLMOptions) {
	if options == nil {
		return
	}
	opts := map[string]any{}
	if options.Temperature != 0 {
		opts["temperature"] = options.Temperature
	}
	if options.MaxTokens != 0 {
		opts["num_predict"] = options.MaxTokens
	}
	if options.Stop != nil {
		opts["stop"] = options.Stop
	}
	if len(opts) > 0 {
		payload["options"] = opts
	}
}

func (c *OllamaClient) doRequest(ctx context.Context, path string, payload any) (*framework.LLMResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	c.Log.Debug().Str("path", path).Int("bytes", len(body)).Msg("ollama request")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		detail := strings.TrimSpace(string(msg))
		if detail != "" {
			return nil, fmt.Errorf("ollama error: %s: %s", resp.Status, detail)
		}
		return nil, fmt.Errorf("ollama error: %s", resp.Status)
	}
	var raw ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return decodeResponse(raw), nil
}

func decodeResponse(raw ollamaResponse) *framework.LLMResponse {
	out := &framework.LLMResponse{
		Text:         raw.Response,
		FinishReason: raw.DoneReason,
	}
	if out.Text == "" && raw.Message != nil {
		out.Text = raw.Message.Content
	}
	usage := map[string]int{}
	if raw.EvalCount > 0 {
		usage["completion_tokens"] = raw.EvalCount
	}
	if raw.PromptEvalCount > 0 {
		usage["prompt_tokens"] = raw.PromptEvalCount
	}
	if len(usage) > 0 {
		out.Usage = usage
	}
	return out
}
