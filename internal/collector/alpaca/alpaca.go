// Package alpaca fetches daily bars from the Alpaca market data API.
package alpaca

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/newthinker/tradelab/internal/collector"
	"github.com/newthinker/tradelab/internal/core"
)

// barSource is the subset of the marketdata client used here
type barSource interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// Alpaca implements collector.HistoryProvider using split and dividend
// adjusted daily bars
type Alpaca struct {
	client barSource
	feed   marketdata.Feed
}

var _ collector.HistoryProvider = (*Alpaca)(nil)

// New creates an Alpaca provider from API credentials
func New(cfg collector.Config) (*Alpaca, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("alpaca requires api_key and api_secret"))
	}
	opts := marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.BaseURL != "" {
		opts.BaseURL = cfg.BaseURL
	}
	return &Alpaca{client: marketdata.NewClient(opts), feed: marketdata.IEX}, nil
}

func (a *Alpaca) Name() string {
	return "alpaca"
}

// FetchHistory fetches daily bars for symbol. The marketdata client has no
// context support, so cancellation is only checked before the call.
func (a *Alpaca) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, core.Configf("symbol cannot be empty")
	}

	req := marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Adjustment: marketdata.All,
		Feed:       a.feed,
		Start:      start,
	}
	if !end.IsZero() {
		req.End = end.AddDate(0, 0, 1)
	}

	bars, err := a.client.GetBars(symbol, req)
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("alpaca GetBars %s: %w", symbol, err))
	}
	return toOHLCV(symbol, interval, bars, start, end), nil
}

func toOHLCV(symbol, interval string, bars []marketdata.Bar, start, end time.Time) []core.OHLCV {
	out := make([]core.OHLCV, 0, len(bars))
	for _, b := range bars {
		ts := b.Timestamp.UTC()
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		if !collector.InRange(day, start, end) {
			continue
		}
		out = append(out, core.OHLCV{
			Symbol:   symbol,
			Interval: interval,
			Open:     b.Open,
			High:     b.High,
			Low:      b.Low,
			Close:    b.Close,
			Volume:   float64(b.Volume),
			Time:     day,
		})
	}
	return out
}
