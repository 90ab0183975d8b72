package backtest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/tradelab/internal/core"
	"github.com/newthinker/tradelab/internal/pipeline"
	"github.com/newthinker/tradelab/internal/strategy"
	"go.uber.org/zap"
)

// OHLCVProvider defines the interface for fetching historical OHLCV data
type OHLCVProvider interface {
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error)
}

// Request describes one backtest run
type Request struct {
	Symbol         string
	Strategy       string
	Params         map[string]any
	Start          time.Time
	End            time.Time
	InitialCapital float64
	CommissionRate float64
}

// Runner runs strategy backtests against historical data
type Runner struct {
	provider   OHLCVProvider
	strategies *strategy.Engine
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a new Runner with the given OHLCV provider and strategy engine
func New(provider OHLCVProvider, strategies *strategy.Engine, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		provider:   provider,
		strategies: strategies,
		logger:     logger,
		now:        time.Now,
	}
}

// Run fetches history for the request, generates signals, simulates the
// strategy and computes its metrics
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Symbol == "" {
		return nil, core.Configf("symbol is required")
	}
	if !req.End.IsZero() && req.End.Before(req.Start) {
		return nil, core.Configf("end date %s is before start date %s",
			req.End.Format("2006-01-02"), req.Start.Format("2006-01-02"))
	}

	// Build the strategy first so bad names and params fail without I/O
	strat, err := r.strategies.New(req.Strategy, strategy.Config{Params: req.Params})
	if err != nil {
		return nil, err
	}

	log := r.logger.With(
		zap.String("symbol", req.Symbol),
		zap.String("strategy", strat.Name()),
	)

	raw, err := r.provider.FetchHistory(ctx, req.Symbol, req.Start, req.End, "1d")
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, core.ErrNoData
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bars := pipeline.Clean(raw)
	log.Debug("history cleaned", zap.Int("raw_rows", len(raw)), zap.Int("rows", len(bars)))
	if len(bars) == 0 {
		return nil, core.ErrNoData
	}
	if err := pipeline.Validate(bars); err != nil {
		return nil, err
	}

	series, err := strat.GenerateSignals(bars)
	if err != nil {
		return nil, err
	}
	series.Symbol = req.Symbol
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	curve, err := Simulate(series, req.InitialCapital, req.CommissionRate)
	if err != nil {
		return nil, err
	}

	metrics, err := CalculateMetrics(curve)
	if err != nil {
		return nil, err
	}

	trades := ExtractTrades(curve)
	log.Info("backtest completed",
		zap.Int("rows", curve.Len()),
		zap.Int("warmup", strat.Warmup()),
		zap.Int("trades", len(trades)),
	)

	start, end := req.Start, req.End
	if start.IsZero() {
		start = bars[0].Time
	}
	if end.IsZero() {
		end = bars[len(bars)-1].Time
	}

	return &Result{
		ID:             uuid.NewString(),
		Strategy:       strat.Name(),
		Description:    strat.Description(),
		Symbol:         req.Symbol,
		StartDate:      start,
		EndDate:        end,
		InitialCapital: req.InitialCapital,
		CommissionRate: req.CommissionRate,
		FinalEquity:    curve.FinalEquity(),
		Metrics:        metrics,
		Curve:          curve,
		Trades:         trades,
		CreatedAt:      r.now().UTC(),
	}, nil
}
