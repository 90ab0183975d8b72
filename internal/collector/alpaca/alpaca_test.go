package alpaca

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/newthinker/tradelab/internal/collector"
	"github.com/newthinker/tradelab/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	bars    []marketdata.Bar
	err     error
	symbol  string
	request marketdata.GetBarsRequest
}

func (f *fakeSource) GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
	f.symbol = symbol
	f.request = req
	return f.bars, f.err
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(collector.Config{APIKey: "key"})
	assert.ErrorIs(t, err, core.ErrConfigMissing)

	a, err := New(collector.Config{APIKey: "key", APISecret: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "alpaca", a.Name())
}

func TestAlpaca_FetchHistory(t *testing.T) {
	src := &fakeSource{bars: []marketdata.Bar{
		{Timestamp: time.Date(2024, 1, 2, 5, 0, 0, 0, time.UTC), Open: 470, High: 473, Low: 469, Close: 472.5, Volume: 123456},
		{Timestamp: time.Date(2024, 1, 3, 5, 0, 0, 0, time.UTC), Open: 471, High: 472, Low: 467, Close: 468, Volume: 99},
	}}
	a := &Alpaca{client: src, feed: marketdata.IEX}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars, err := a.FetchHistory(context.Background(), " spy ", start, end, "1d")
	require.NoError(t, err)

	assert.Equal(t, "SPY", src.symbol)
	assert.Equal(t, marketdata.OneDay, src.request.TimeFrame)
	assert.Equal(t, marketdata.All, src.request.Adjustment)
	assert.Equal(t, end.AddDate(0, 0, 1), src.request.End)

	require.Len(t, bars, 1, "bars after end are dropped")
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), bars[0].Time)
	assert.Equal(t, 472.5, bars[0].Close)
	assert.Equal(t, 123456.0, bars[0].Volume)
	assert.Equal(t, "SPY", bars[0].Symbol)
}

func TestAlpaca_FetchHistory_Errors(t *testing.T) {
	a := &Alpaca{client: &fakeSource{err: errors.New("forbidden")}}

	_, err := a.FetchHistory(context.Background(), "SPY", time.Time{}, time.Time{}, "1d")
	assert.ErrorIs(t, err, core.ErrCollectorFailed)

	_, err = a.FetchHistory(context.Background(), "  ", time.Time{}, time.Time{}, "1d")
	assert.ErrorIs(t, err, core.ErrConfigInvalid)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.FetchHistory(ctx, "SPY", time.Time{}, time.Time{}, "1d")
	assert.ErrorIs(t, err, context.Canceled)
}
