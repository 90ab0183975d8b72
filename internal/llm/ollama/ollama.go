// internal/llm/ollama/ollama.go
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/tradelab/internal/config"
	"github.com/newthinker/tradelab/internal/core"
	"github.com/newthinker/tradelab/internal/llm"
)

const (
	defaultEndpoint = "http://localhost:11434"
	defaultModel    = "llama3"
)

// Provider implements the LLM interface for a local Ollama server.
type Provider struct {
	endpoint string
	model    string
	client   *http.Client
}

// New creates a new Ollama provider.
func New(cfg config.OllamaConfig) (*Provider, error) {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Provider{
		endpoint: endpoint,
		model:    model,
		client:   &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "ollama"
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

type chatResponse struct {
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	DoneReason      string      `json:"done_reason,omitempty"`
	PromptEvalCount int         `json:"prompt_eval_count,omitempty"`
	EvalCount       int         `json:"eval_count,omitempty"`
	Error           string      `json:"error,omitempty"`
}

// Chat sends a non-streaming request to /api/chat.
func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	messages := make([]chatMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(chatRequest{
		Model:    p.model,
		Messages: messages,
		Options: chatOptions{
			NumPredict:  req.MaxTokensOrDefault(),
			Temperature: req.Temperature,
		},
	})
	if err != nil {
		return nil, core.WrapError(core.ErrLLMFailed, fmt.Errorf("marshaling request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, core.WrapError(core.ErrLLMFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, core.WrapError(core.ErrLLMFailed, err)
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, core.WrapError(core.ErrLLMFailed, fmt.Errorf("decoding response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		msg := out.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, core.WrapError(core.ErrLLMFailed, fmt.Errorf("ollama status %d: %s", resp.StatusCode, msg))
	}

	return &llm.ChatResponse{
		Content: out.Message.Content,
		Usage: llm.Usage{
			InputTokens:  out.PromptEvalCount,
			OutputTokens: out.EvalCount,
		},
		FinishReason: out.DoneReason,
	}, nil
}
