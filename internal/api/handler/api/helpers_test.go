package api

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/tradelab/internal/app"
	"github.com/newthinker/tradelab/internal/config"
	"github.com/newthinker/tradelab/internal/core"
)

type fakeProvider struct {
	bars []core.OHLCV
	err  error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bars, nil
}

func trendingBars(n int) []core.OHLCV {
	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]core.OHLCV, n)
	for i := range bars {
		price := 100 + float64(i%7)*1.5 + float64(i)*0.5
		bars[i] = core.OHLCV{Symbol: "SPY", Interval: "1d", Close: price, Time: base.AddDate(0, 0, i)}
	}
	return bars
}

func newTestApp(t *testing.T, p *fakeProvider) *app.App {
	t.Helper()
	cfg := config.Defaults()
	cfg.Data.CSVDir = ""
	cfg.Strategies["ma_crossover"] = config.StrategyConfig{Params: map[string]any{"fast_window": 3, "slow_window": 5}}
	cfg.Storage.Archive.Enabled = true
	cfg.Storage.Archive.Path = filepath.Join(t.TempDir(), "archive")

	a, err := app.New(cfg, nil, app.WithProvider(p))
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}
