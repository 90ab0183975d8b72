// Package summary turns a run's metrics into a short narrative.
package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/tradelab/internal/backtest"
	"github.com/newthinker/tradelab/internal/llm"
	"github.com/newthinker/tradelab/internal/metrics"
	"github.com/newthinker/tradelab/internal/report"
	"go.uber.org/zap"
)

// TemplateProvider names summaries produced without an LLM.
const TemplateProvider = "template"

const defaultTimeout = 30 * time.Second

const systemPrompt = `You are a quantitative analyst reviewing a single backtest.
Write a concise plain-text summary (at most five sentences) of the results.
Comment on return, risk-adjusted performance, drawdown and consistency.
Do not invent numbers beyond those given and do not give investment advice.`

// Input is everything a summary may depend on. The price series is
// deliberately absent.
type Input struct {
	Symbol   string           `json:"symbol"`
	Strategy string           `json:"strategy"`
	Metrics  backtest.Metrics `json:"metrics"`
}

// Summary is a generated narrative and where it came from.
type Summary struct {
	Text     string `json:"summary"`
	Provider string `json:"provider"`
}

// Summarizer produces summaries, preferring the configured LLM provider and
// falling back to a fixed template.
type Summarizer struct {
	provider llm.Provider
	registry *metrics.Registry
	logger   *zap.Logger
	timeout  time.Duration
}

// New creates a Summarizer. provider and registry may be nil.
func New(provider llm.Provider, registry *metrics.Registry, logger *zap.Logger) *Summarizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{
		provider: provider,
		registry: registry,
		logger:   logger,
		timeout:  defaultTimeout,
	}
}

// Summarize never fails: any provider error degrades to the template.
func (s *Summarizer) Summarize(ctx context.Context, in Input) Summary {
	if s.provider == nil {
		s.record(TemplateProvider, "success")
		return Summary{Text: Template(in), Provider: TemplateProvider}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.provider.Chat(ctx, llm.UserPrompt(systemPrompt, Prompt(in)))
	if err == nil && resp.Text() != "" {
		s.record(s.provider.Name(), "success")
		return Summary{Text: resp.Text(), Provider: s.provider.Name()}
	}

	if err == nil {
		err = errors.New("empty completion")
	}
	s.logger.Warn("llm summary failed, using template",
		zap.String("provider", s.provider.Name()),
		zap.String("symbol", in.Symbol),
		zap.String("strategy", in.Strategy),
		zap.Error(err),
	)
	s.record(s.provider.Name(), "error")
	return Summary{Text: Template(in), Provider: TemplateProvider}
}

func (s *Summarizer) record(provider, status string) {
	if s.registry != nil {
		s.registry.RecordSummary(provider, status)
	}
}

// Prompt is the user message sent to the provider.
func Prompt(in Input) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Backtest of the %s strategy on %s.\n", in.Strategy, in.Symbol)
	sb.WriteString("Metrics:\n")
	for _, l := range report.Lines(in.Metrics) {
		fmt.Fprintf(&sb, "- %s: %s\n", l.Label, l.Value)
	}
	return sb.String()
}

// Template renders the deterministic summary.
func Template(in Input) string {
	f := report.Format(in.Metrics)
	var sb strings.Builder
	fmt.Fprintf(&sb, "Performance Summary for %s on %s:\n", in.Strategy, in.Symbol)
	sb.WriteString(strings.Repeat("-", 51) + "\n")
	fmt.Fprintf(&sb, "The strategy achieved a Total Return of %s with an Annualized Return of %s.\n",
		f[report.LabelTotalReturn], f[report.LabelAnnualizedReturn])
	fmt.Fprintf(&sb, "Risk-adjusted performance was %s (Sharpe Ratio).\n", f[report.LabelSharpeRatio])
	fmt.Fprintf(&sb, "The maximum drawdown experienced was %s.\n", f[report.LabelMaxDrawdown])
	fmt.Fprintf(&sb, "Win rate for trades was %s.", f[report.LabelWinRate])
	return sb.String()
}
