package backtest

import (
	"testing"
	"time"

	"github.com/newthinker/tradelab/internal/core"
	"github.com/newthinker/tradelab/internal/strategy"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func makeBars(closes ...float64) []core.OHLCV {
	bars := make([]core.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = core.OHLCV{
			Symbol: "TEST", Interval: "1d",
			Open: c, High: c, Low: c, Close: c, Volume: 1000,
			Time: baseTime.AddDate(0, 0, i),
		}
	}
	return bars
}

func makeSeries(t *testing.T, closes []float64, signals ...core.Direction) *strategy.Series {
	t.Helper()
	s, err := strategy.NewSeries(makeBars(closes...))
	require.NoError(t, err)
	require.Len(t, signals, len(closes))
	copy(s.Signals, signals)
	return s
}

func repeat(d core.Direction, n int) []core.Direction {
	out := make([]core.Direction, n)
	for i := range out {
		out[i] = d
	}
	return out
}
