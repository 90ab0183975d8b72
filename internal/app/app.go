// Package app wires configuration into the collaborators a backtest needs
// and runs backtests on behalf of the CLI and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/newthinker/tradelab/internal/backtest"
	"github.com/newthinker/tradelab/internal/collector"
	"github.com/newthinker/tradelab/internal/collector/alpaca"
	"github.com/newthinker/tradelab/internal/collector/cached"
	"github.com/newthinker/tradelab/internal/collector/csvfile"
	"github.com/newthinker/tradelab/internal/collector/yahoo"
	"github.com/newthinker/tradelab/internal/config"
	"github.com/newthinker/tradelab/internal/core"
	"github.com/newthinker/tradelab/internal/llm/factory"
	"github.com/newthinker/tradelab/internal/metrics"
	"github.com/newthinker/tradelab/internal/notifier"
	"github.com/newthinker/tradelab/internal/notifier/webhook"
	"github.com/newthinker/tradelab/internal/storage/archive"
	"github.com/newthinker/tradelab/internal/storage/runs"
	"github.com/newthinker/tradelab/internal/strategy"
	strategyfactory "github.com/newthinker/tradelab/internal/strategy/factory"
	"github.com/newthinker/tradelab/internal/summary"
	"go.uber.org/zap"
)

// Request is a backtest as callers phrase it. Zero dates and a nil capital
// or commission fall back to the configured defaults. An explicit capital
// is passed through as is and validated by the simulation.
type Request struct {
	Symbol         string
	Strategy       string
	Params         map[string]any
	Start          time.Time
	End            time.Time
	InitialCapital *float64
	Commission     *float64
}

// App is the main application orchestrator
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	collectors *collector.Registry
	provider   collector.HistoryProvider
	strategies *strategy.Engine
	runner     *backtest.Runner
	history    runs.Store
	archive    archive.Storage
	summarizer *summary.Summarizer
	metrics    *metrics.Registry
	notifiers  *notifier.Registry
	params     map[string]map[string]any // configured params by canonical strategy name
}

// Option customises New, mainly for tests.
type Option func(*App)

// WithProvider replaces the configured data provider.
func WithProvider(p collector.HistoryProvider) Option {
	return func(a *App) { a.provider = p }
}

// WithNotifier adds a notifier told about every finished run.
func WithNotifier(n notifier.Notifier) Option {
	return func(a *App) {
		if err := a.notifiers.Register(n); err != nil {
			a.logger.Warn("notifier not registered", zap.Error(err))
		}
	}
}

// WithMetrics shares an existing metrics registry.
func WithMetrics(reg *metrics.Registry) Option {
	return func(a *App) { a.metrics = reg }
}

// New builds an App from cfg. The returned App owns the history store and
// must be closed.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		cfg:        cfg,
		logger:     logger,
		collectors: collector.NewRegistry(),
		strategies: strategyfactory.NewEngine(logger),
		notifiers:  notifier.NewRegistry(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.metrics == nil {
		a.metrics = metrics.NewRegistry()
	}

	params, err := strategyParams(cfg, a.strategies)
	if err != nil {
		return nil, err
	}
	a.params = params

	if cfg.Data.Cache && !cfg.Storage.Archive.Enabled {
		return nil, core.Configf("data.cache requires storage.archive.enabled")
	}
	if cfg.Storage.Archive.Enabled {
		store, err := archive.New(archive.Config{
			Type: cfg.Storage.Archive.Type,
			Path: cfg.Storage.Archive.Path,
			S3:   archive.S3Config(cfg.Storage.Archive.S3),
		})
		if err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, err)
		}
		a.archive = store
	}

	if a.provider == nil {
		if err := a.registerCollectors(); err != nil {
			return nil, err
		}
		p, err := a.collectors.MustGet(cfg.Data.Provider)
		if err != nil {
			return nil, err
		}
		a.provider = p
	}
	if a.archive != nil && cfg.Data.Cache {
		a.provider = cached.New(a.provider, a.archive, logger)
	}

	for i, wh := range cfg.Notify.Webhooks {
		name := wh.Name
		if name == "" {
			name = fmt.Sprintf("webhook-%d", i+1)
		}
		n, err := webhook.New(name, wh.URL, wh.Headers, wh.Timeout)
		if err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, err)
		}
		if err := a.notifiers.Register(n); err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, err)
		}
	}

	provider, err := factory.New(cfg.LLM)
	if err != nil {
		return nil, err
	}
	a.summarizer = summary.New(provider, a.metrics, logger)

	history, err := runs.Open(cfg.Storage.History.Type, cfg.Storage.History.Path, cfg.Storage.History.MaxRuns)
	if err != nil {
		return nil, err
	}
	a.history = history

	a.runner = backtest.New(a.provider, a.strategies, logger)

	logger.Info("app initialized",
		zap.String("data_provider", a.provider.Name()),
		zap.Strings("strategies", a.strategies.Names()),
		zap.String("history", cfg.Storage.History.Type),
		zap.Bool("archive", a.archive != nil),
		zap.Strings("notifiers", a.notifiers.Names()),
	)
	return a, nil
}

func (a *App) registerCollectors() error {
	a.collectors.Register(yahoo.New(collector.Config{
		BaseURL: a.cfg.Collectors.Yahoo.BaseURL,
		Timeout: a.cfg.Collectors.Yahoo.Timeout,
	}))

	if a.cfg.Data.CSVDir != "" {
		p, err := csvfile.New(collector.Config{Dir: a.cfg.Data.CSVDir})
		if err != nil {
			return err
		}
		a.collectors.Register(p)
	}

	alpacaCfg := a.cfg.Collectors.Alpaca
	if alpacaCfg.APIKey != "" && alpacaCfg.APISecret != "" {
		p, err := alpaca.New(collector.Config{
			APIKey:    alpacaCfg.APIKey,
			APISecret: alpacaCfg.APISecret,
			BaseURL:   alpacaCfg.BaseURL,
			Timeout:   alpacaCfg.Timeout,
		})
		if err != nil {
			return err
		}
		a.collectors.Register(p)
	}
	return nil
}

// Backtest runs one backtest, records it in the run history and, when
// enabled, archives the full result. Persistence failures are logged and
// do not fail the run.
func (a *App) Backtest(ctx context.Context, req Request) (*backtest.Result, error) {
	resolved, err := a.resolve(req)
	if err != nil {
		a.metrics.RecordBacktest(req.Strategy, errorCode(err), 0)
		return nil, err
	}

	began := time.Now()
	result, err := a.runner.Run(ctx, resolved)
	elapsed := time.Since(began).Seconds()
	if err != nil {
		a.metrics.RecordBacktest(resolved.Strategy, errorCode(err), elapsed)
		a.logger.Warn("backtest failed",
			zap.String("symbol", resolved.Symbol),
			zap.String("strategy", resolved.Strategy),
			zap.Error(err),
		)
		return nil, err
	}
	a.metrics.RecordBacktest(result.Strategy, "success", elapsed)

	a.persist(ctx, result)
	a.notify(ctx, result)
	return result, nil
}

// resolve applies configured defaults to req.
func (a *App) resolve(req Request) (backtest.Request, error) {
	name, ok := a.strategies.Resolve(req.Strategy)
	if !ok {
		// the runner reports the unknown name with the list of known ones
		name = req.Strategy
	}

	params := make(map[string]any)
	maps.Copy(params, a.params[name])
	maps.Copy(params, req.Params)

	start, end := req.Start, req.End
	if start.IsZero() || end.IsZero() {
		defStart, defEnd, err := a.cfg.Data.Range()
		if err != nil {
			return backtest.Request{}, err
		}
		if start.IsZero() {
			start = defStart
		}
		if end.IsZero() {
			end = defEnd
		}
	}

	capital := a.cfg.Backtest.InitialCapital
	if req.InitialCapital != nil {
		capital = *req.InitialCapital
	}
	commission := a.cfg.Backtest.Commission
	if req.Commission != nil {
		commission = *req.Commission
	}

	return backtest.Request{
		Symbol:         req.Symbol,
		Strategy:       name,
		Params:         params,
		Start:          start,
		End:            end,
		InitialCapital: capital,
		CommissionRate: commission,
	}, nil
}

func (a *App) persist(ctx context.Context, result *backtest.Result) {
	log := a.logger.With(zap.String("run_id", result.ID))

	if err := a.history.Save(ctx, runs.FromResult(result)); err != nil {
		log.Warn("saving run history failed", zap.Error(err))
	}

	if a.archive == nil {
		return
	}
	path := archive.ResultPath(result.Symbol, result.Strategy, result.ID)
	if err := archive.WriteJSON(ctx, a.archive, path, result); err != nil {
		log.Warn("archiving result failed", zap.String("path", path), zap.Error(err))
		return
	}
	log.Debug("result archived", zap.String("path", path))
}

func (a *App) notify(ctx context.Context, result *backtest.Result) {
	if a.notifiers.Len() == 0 {
		return
	}
	errs := a.notifiers.NotifyAll(ctx, notifier.RunCompleted(result))
	for _, name := range a.notifiers.Names() {
		err := errs[name]
		a.metrics.RecordNotification(name, err)
		if err != nil {
			a.logger.Warn("run notification failed",
				zap.String("run_id", result.ID),
				zap.String("notifier", name),
				zap.Error(err),
			)
		}
	}
}

// Summarize describes a finished run.
func (a *App) Summarize(ctx context.Context, symbol, strategyName string, m backtest.Metrics) summary.Summary {
	return a.summarizer.Summarize(ctx, summary.Input{Symbol: symbol, Strategy: strategyName, Metrics: m})
}

// LoadResult reads an archived result back.
func (a *App) LoadResult(ctx context.Context, id string) (*backtest.Result, error) {
	rec, err := a.history.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.archive == nil {
		return nil, core.WrapError(core.ErrRunNotFound, fmt.Errorf("archive disabled, only metrics are kept for run %s", id))
	}
	var result backtest.Result
	err = archive.ReadJSON(ctx, a.archive, archive.ResultPath(rec.Symbol, rec.Strategy, rec.ID), &result)
	if errors.Is(err, archive.ErrNotFound) {
		return nil, core.WrapError(core.ErrRunNotFound, err)
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// StrategyParams returns the configured params for a strategy name or
// alias, or nil.
func (a *App) StrategyParams(name string) map[string]any {
	if canonical, ok := a.strategies.Resolve(name); ok {
		return a.params[canonical]
	}
	return nil
}

// strategyParams keys the configured strategy params by canonical name.
// Unknown strategies, a strategy configured under two names, and params
// the strategy rejects are configuration errors.
func strategyParams(cfg *config.Config, engine *strategy.Engine) (map[string]map[string]any, error) {
	keys := slices.Sorted(maps.Keys(cfg.Strategies))
	out := make(map[string]map[string]any, len(keys))
	for _, key := range keys {
		name, ok := engine.Resolve(key)
		if !ok {
			return nil, core.Configf("strategies.%s: unknown strategy, expected one of [%s]",
				key, strings.Join(engine.Names(), ", "))
		}
		if _, dup := out[name]; dup {
			return nil, core.Configf("strategies.%s: %s is already configured", key, name)
		}
		params := cfg.Strategies[key].Params
		if _, err := engine.New(name, strategy.Config{Params: params}); err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("strategies.%s: %w", key, err))
		}
		out[name] = params
	}
	return out, nil
}

// Config returns the configuration the App was built from.
func (a *App) Config() *config.Config { return a.cfg }

// Strategies returns the strategy engine.
func (a *App) Strategies() *strategy.Engine { return a.strategies }

// History returns the run history store.
func (a *App) History() runs.Store { return a.history }

// Metrics returns the metrics registry.
func (a *App) Metrics() *metrics.Registry { return a.metrics }

// Provider returns the active data provider.
func (a *App) Provider() collector.HistoryProvider { return a.provider }

// Close releases the history store.
func (a *App) Close() error {
	return a.history.Close()
}

// errorCode labels an error for metrics.
func errorCode(err error) string {
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		return coreErr.Code
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "CANCELED"
	}
	return "INTERNAL"
}
