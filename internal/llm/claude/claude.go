// internal/llm/claude/claude.go
package claude

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/newthinker/tradelab/internal/config"
	"github.com/newthinker/tradelab/internal/core"
	"github.com/newthinker/tradelab/internal/llm"
)

const defaultModel = "claude-sonnet-4-20250514"

var errMissingKey = errors.New("claude api key is required")

// Provider implements the LLM interface for Claude/Anthropic.
type Provider struct {
	client anthropic.Client
	model  string
}

// New creates a new Claude provider.
func New(cfg config.ClaudeConfig) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, core.WrapError(core.ErrConfigMissing, errMissingKey)
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Provider{client: client, model: model}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "claude"
}

// Model returns the configured model id.
func (p *Provider) Model() string {
	return p.model
}

// Chat sends a chat request to the Claude API.
func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	resp, err := p.client.Messages.New(ctx, p.params(req))
	if err != nil {
		return nil, core.WrapError(core.ErrLLMFailed, err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return &llm.ChatResponse{
		Content: sb.String(),
		Usage: llm.Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
		FinishReason: string(resp.StopReason),
	}, nil
}

func (p *Provider) params(req llm.ChatRequest) anthropic.MessageNewParams {
	messages := make([]anthropic.MessageParam, len(req.Messages))
	for i, m := range req.Messages {
		if m.Role == "assistant" {
			messages[i] = anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content))
		} else {
			messages[i] = anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   int64(req.MaxTokensOrDefault()),
		Messages:    messages,
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	return params
}
