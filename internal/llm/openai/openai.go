// internal/llm/openai/openai.go
package openai

import (
	"context"
	"errors"

	"github.com/newthinker/tradelab/internal/config"
	"github.com/newthinker/tradelab/internal/core"
	"github.com/newthinker/tradelab/internal/llm"
	"github.com/sashabaranov/go-openai"
)

const defaultModel = "gpt-4o-mini"

var errMissingKey = errors.New("openai api key is required")

// Provider implements the LLM interface for OpenAI and OpenAI-compatible endpoints.
type Provider struct {
	client *openai.Client
	model  string
}

// New creates a new OpenAI provider. A non-empty BaseURL points the client
// at a compatible gateway.
func New(cfg config.OpenAIConfig) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, core.WrapError(core.ErrConfigMissing, errMissingKey)
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Provider{client: openai.NewClientWithConfig(clientCfg), model: model}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "openai"
}

// Chat sends a chat request to the chat completions endpoint.
func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.request(req))
	if err != nil {
		return nil, core.WrapError(core.ErrLLMFailed, err)
	}
	if len(resp.Choices) == 0 {
		return nil, core.WrapError(core.ErrLLMFailed, errors.New("no choices returned"))
	}

	choice := resp.Choices[0]
	return &llm.ChatResponse{
		Content: choice.Message.Content,
		Usage: llm.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
		FinishReason: string(choice.FinishReason),
	}, nil
}

func (p *Provider) request(req llm.ChatRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	return openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokensOrDefault(),
		Temperature: float32(req.Temperature),
	}
}
