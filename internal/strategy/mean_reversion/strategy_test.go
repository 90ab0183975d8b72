package mean_reversion

import (
	"errors"
	"testing"
	"time"

	"github.com/newthinker/tradelab/internal/core"
	"github.com/newthinker/tradelab/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bars(prices ...float64) []core.OHLCV {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	ohlcv := make([]core.OHLCV, len(prices))
	for i, p := range prices {
		ohlcv[i] = core.OHLCV{Symbol: "TEST", Close: p, Time: start.AddDate(0, 0, i)}
	}
	return ohlcv
}

func TestMeanReversion_ImplementsStrategy(t *testing.T) {
	var _ strategy.Strategy = (*MeanReversion)(nil)
}

func TestMeanReversion_FlatSeries(t *testing.T) {
	s := New(3, 2)

	series, err := s.GenerateSignals(bars(10, 10, 10, 10, 10))
	require.NoError(t, err)

	for i, sig := range series.Signals {
		assert.Equal(t, core.Flat, sig, "row %d must stay flat when deviation is zero", i)
	}
}

func TestMeanReversion_Signals(t *testing.T) {
	s := New(3, 1)

	// window [1,2,3] -> z = +1 (not beyond the band)
	// window [2,3,10] -> z = 5/sqrt(19) ~ 1.147 -> short
	// window [3,10,0] -> mean 4.33, z ~ -0.84 -> flat
	// window [10,0,-20] -> mean -3.33, z ~ -1.09 -> long
	// window [0,-20,30] -> mean 3.33, std ~25.2, z ~ 1.06 -> short
	// window [-20,30,-40] -> mean -10, std ~36.06, z ~ -0.83 -> flat
	series, err := s.GenerateSignals(bars(1, 2, 3, 10, 0, -20, 30, -40))
	require.NoError(t, err)

	want := []core.Direction{core.Flat, core.Flat, core.Flat, core.Short, core.Flat, core.Long, core.Short, core.Flat}
	assert.Equal(t, want, series.Signals)
}

func TestMeanReversion_LongBelowBand(t *testing.T) {
	s := New(3, 1)

	// window [10,9,1]: mean 6.67, std ~4.93, z ~ -1.149 -> long
	series, err := s.GenerateSignals(bars(10, 9, 1))
	require.NoError(t, err)
	assert.Equal(t, core.Long, series.Signals[2])

	z := series.Indicators["z_score"]
	require.Len(t, z, 3)
	assert.InDelta(t, -1.1488, z[2], 1e-3)
}

func TestMeanReversion_WarmupIsFlat(t *testing.T) {
	s := New(20, 2)
	series, err := s.GenerateSignals(bars(1, 50, 1, 50, 1))
	require.NoError(t, err)

	for _, sig := range series.Signals {
		assert.Equal(t, core.Flat, sig)
	}
	assert.Equal(t, 19, s.Warmup())
}

func TestMeanReversion_EmptySeries(t *testing.T) {
	_, err := New(3, 2).GenerateSignals([]core.OHLCV{})
	assert.True(t, errors.Is(err, core.ErrSchemaInvalid))
}

func TestMeanReversion_Init(t *testing.T) {
	s := New(DefaultWindow, DefaultStdDev)
	require.NoError(t, s.Init(strategy.Config{Params: map[string]any{"window": 10, "std_dev": 1.5}}))
	assert.Equal(t, 10, s.window)
	assert.Equal(t, 1.5, s.threshold)

	err := New(DefaultWindow, DefaultStdDev).Init(strategy.Config{Params: map[string]any{"window": 0}})
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))

	err = New(DefaultWindow, DefaultStdDev).Init(strategy.Config{Params: map[string]any{"std_dev": -1}})
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))

	err = New(DefaultWindow, DefaultStdDev).Init(strategy.Config{Params: map[string]any{"std_dev": "wide"}})
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))

	err = New(DefaultWindow, DefaultStdDev).Init(strategy.Config{Params: map[string]any{"threshold": 1.5}})
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
	assert.Contains(t, err.Error(), `"threshold"`)
}
