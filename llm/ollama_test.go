package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/reliquary/framework"
)

func TestGenerateDecodesResponse(t *testing.T) {
	var gotPath string
	var gotPayload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response":          "hello",
			"done_reason":       "stop",
			"eval_count":        5,
			"prompt_eval_count": 9,
		})
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL, "llama3", zerolog.Nop())
	resp, err := client.Generate(context.Background(), "hi", &framework.LLMOptions{Temperature: 0.2, MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, "/api/generate", gotPath)
	assert.Equal(t, "llama3", gotPayload["model"])
	assert.Equal(t, "hello", resp.Text)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 5, resp.Usage["completion_tokens"])
	assert.Equal(t, 9, resp.Usage["prompt_tokens"])
}

func TestChatUsesMessageContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": "chat reply"},
		})
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL, "llama3", zerolog.Nop())
	resp, err := client.Chat(context.Background(), []framework.Message{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hi"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "chat reply", resp.Text)
}

func TestServerErrorWrappedAsLLMError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL, "llama3", zerolog.Nop())
	_, err := client.Generate(context.Background(), "hi", nil)
	require.Error(t, err)
	var llmErr *framework.LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, "generate", llmErr.Op)
	assert.Contains(t, err.Error(), "model not loaded")
}
