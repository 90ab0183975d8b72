// internal/llm/openai/openai_test.go
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/tradelab/internal/config"
	"github.com/newthinker/tradelab/internal/core"
	"github.com/newthinker/tradelab/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_ImplementsInterface(t *testing.T) {
	var _ llm.Provider = (*Provider)(nil)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(config.OpenAIConfig{Model: "model"})
	assert.True(t, errors.Is(err, core.ErrConfigMissing))
}

func TestNew_DefaultModel(t *testing.T) {
	p, err := New(config.OpenAIConfig{APIKey: "test-key"})
	require.NoError(t, err)
	assert.Equal(t, defaultModel, p.model)
}

func TestChat_CompatibleEndpoint(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "c1",
			"object": "chat.completion",
			"model": "gpt-test",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "fine"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 2, "total_tokens": 12}
		}`))
	}))
	defer srv.Close()

	p, err := New(config.OpenAIConfig{APIKey: "test-key", Model: "gpt-test", BaseURL: srv.URL})
	require.NoError(t, err)

	resp, err := p.Chat(context.Background(), llm.UserPrompt("sys", "hi"))
	require.NoError(t, err)
	assert.Equal(t, "fine", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 10, resp.Usage.InputTokens)
	assert.Equal(t, 2, resp.Usage.OutputTokens)

	assert.Equal(t, "gpt-test", got["model"])
	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 2)
}

func TestChat_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "boom", "type": "server_error"}}`))
	}))
	defer srv.Close()

	p, err := New(config.OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = p.Chat(context.Background(), llm.UserPrompt("", "hi"))
	assert.True(t, errors.Is(err, core.ErrLLMFailed))
}
