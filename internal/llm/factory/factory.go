// internal/llm/factory/factory.go
package factory

import (
	"github.com/newthinker/tradelab/internal/config"
	"github.com/newthinker/tradelab/internal/core"
	"github.com/newthinker/tradelab/internal/llm"
	"github.com/newthinker/tradelab/internal/llm/claude"
	"github.com/newthinker/tradelab/internal/llm/ollama"
	"github.com/newthinker/tradelab/internal/llm/openai"
)

// New creates an LLM provider based on configuration. An empty provider
// name yields a nil provider and no error.
func New(cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "claude":
		p, err := claude.New(cfg.Claude)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "openai":
		p, err := openai.New(cfg.OpenAI)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "ollama":
		p, err := ollama.New(cfg.Ollama)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, core.Configf("unknown LLM provider: %s", cfg.Provider)
	}
}
