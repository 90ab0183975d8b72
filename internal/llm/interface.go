// Package llm wraps the chat-completion providers used for run summaries.
package llm

import (
	"context"
	"strings"
)

// Provider defines the interface for LLM providers
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest holds the request parameters
type ChatRequest struct {
	SystemPrompt string
	Messages     []Message
	MaxTokens    int
	Temperature  float64
}

// Message represents a chat message
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// ChatResponse holds the response from the LLM
type ChatResponse struct {
	Content      string
	Usage        Usage
	FinishReason string
}

// Usage tracks token consumption
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// DefaultMaxTokens caps a completion when the request leaves MaxTokens unset.
const DefaultMaxTokens = 512

// UserPrompt builds a single-turn request.
func UserPrompt(system, prompt string) ChatRequest {
	return ChatRequest{
		SystemPrompt: system,
		Messages:     []Message{{Role: "user", Content: prompt}},
		MaxTokens:    DefaultMaxTokens,
		Temperature:  0.2,
	}
}

// MaxTokensOrDefault returns req.MaxTokens or DefaultMaxTokens when unset.
func (req ChatRequest) MaxTokensOrDefault() int {
	if req.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return req.MaxTokens
}

// Text returns the trimmed completion text.
func (r *ChatResponse) Text() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.Content)
}
