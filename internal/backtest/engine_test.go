package backtest

import (
	"errors"
	"math"
	"testing"

	"github.com/newthinker/tradelab/internal/core"
	"github.com/newthinker/tradelab/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenarioCloses = []float64{100, 102, 101, 105, 104}

func TestSimulate_AllLongScenario(t *testing.T) {
	series := makeSeries(t, scenarioCloses, repeat(core.Long, 5)...)

	curve, err := Simulate(series, 100000, 0)
	require.NoError(t, err)
	require.Equal(t, 5, curve.Len())

	wantPos := []core.Direction{core.Flat, core.Long, core.Long, core.Long, core.Long}
	wantEquity := []float64{100000, 102000, 101000, 105000, 104000}
	wantTrade := []float64{0, 1, 0, 0, 0}

	for i, row := range curve.Rows {
		assert.Equal(t, wantPos[i], row.Position, "position row %d", i)
		assert.InDelta(t, wantEquity[i], row.Equity, 1e-6, "equity row %d", i)
		assert.Equal(t, wantTrade[i], row.TradeIndicator, "trade row %d", i)
		assert.Equal(t, core.Long, row.Signal)
	}

	assert.True(t, math.IsNaN(curve.Rows[0].MarketReturn))
	assert.True(t, math.IsNaN(curve.Rows[0].StrategyReturn))
	assert.Equal(t, 0.0, curve.Rows[0].NetReturn)
	assert.InDelta(t, 0.02, curve.Rows[1].MarketReturn, 1e-12)
	assert.Equal(t, 100000.0, curve.InitialCapital)
}

func TestSimulate_CommissionOnEntryRow(t *testing.T) {
	series := makeSeries(t, scenarioCloses, repeat(core.Long, 5)...)

	curve, err := Simulate(series, 100000, 0.001)
	require.NoError(t, err)

	assert.InDelta(t, 0.001, curve.Rows[1].TransactionCost, 1e-12)
	assert.InDelta(t, 0.019, curve.Rows[1].NetReturn, 1e-12)
	assert.InDelta(t, 101900, curve.Rows[1].Equity, 1e-6)
	for _, row := range curve.Rows[2:] {
		assert.Equal(t, 0.0, row.TransactionCost)
	}
}

func TestSimulate_FlipCostsTwice(t *testing.T) {
	series := makeSeries(t, []float64{100, 100, 100, 100},
		core.Long, core.Short, core.Short, core.Flat)

	curve, err := Simulate(series, 1000, 0.01)
	require.NoError(t, err)

	// positions: flat, long, short, short
	assert.Equal(t, []float64{0, 1, 2, 0}, []float64{
		curve.Rows[0].TradeIndicator, curve.Rows[1].TradeIndicator,
		curve.Rows[2].TradeIndicator, curve.Rows[3].TradeIndicator,
	})
	assert.InDelta(t, 0.02, curve.Rows[2].TransactionCost, 1e-12)
}

func TestSimulate_ShortProfitsFromDecline(t *testing.T) {
	series := makeSeries(t, []float64{100, 90}, core.Short, core.Short)

	curve, err := Simulate(series, 1000, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1100, curve.FinalEquity(), 1e-9)
}

func TestSimulate_SingleRow(t *testing.T) {
	series := makeSeries(t, []float64{100}, core.Long)

	curve, err := Simulate(series, 5000, 0.5)
	require.NoError(t, err)
	require.Equal(t, 1, curve.Len())
	assert.Equal(t, 5000.0, curve.Rows[0].Equity)
	assert.Equal(t, core.Flat, curve.Rows[0].Position)
}

func TestSimulate_NoLookahead(t *testing.T) {
	closes := []float64{100, 101, 99, 103, 107, 104}
	signals := []core.Direction{core.Long, core.Short, core.Long, core.Flat, core.Long, core.Short}
	base, err := Simulate(makeSeries(t, closes, signals...), 10000, 0.002)
	require.NoError(t, err)

	for k := 1; k < len(closes); k++ {
		perturbed := append([]float64(nil), closes...)
		perturbed[k] *= 3
		flipped := append([]core.Direction(nil), signals...)
		flipped[k] = -flipped[k]

		curve, err := Simulate(makeSeries(t, perturbed, flipped...), 10000, 0.002)
		require.NoError(t, err)

		for i := 0; i < k; i++ {
			assert.Equal(t, base.Rows[i].Position, curve.Rows[i].Position, "k=%d row %d", k, i)
			assert.Equal(t, base.Rows[i].Equity, curve.Rows[i].Equity, "k=%d row %d", k, i)
		}
		// position at k depends only on the signal at k-1
		assert.Equal(t, base.Rows[k].Position, curve.Rows[k].Position, "k=%d", k)
	}
}

func TestSimulate_ZeroSignalIdempotence(t *testing.T) {
	closes := []float64{100, 250, 3, 77, 1000}
	curve, err := Simulate(makeSeries(t, closes, repeat(core.Flat, 5)...), 12345, 0.05)
	require.NoError(t, err)

	for i, row := range curve.Rows {
		assert.Equal(t, 12345.0, row.Equity, "row %d", i)
		assert.Equal(t, 0.0, row.TradeIndicator)
	}
}

func TestSimulate_EquityPositivity(t *testing.T) {
	closes := []float64{100, 180, 40, 200, 10, 90, 95}
	signals := []core.Direction{core.Long, core.Short, core.Long, core.Short, core.Long, core.Short, core.Long}

	curve, err := Simulate(makeSeries(t, closes, signals...), 1000, 0.001)
	require.NoError(t, err)

	// Losses above 100% are possible on short rows, so only rows whose
	// returns stay above -1 are asserted positive.
	for i, row := range curve.Rows {
		if i > 0 && 1+row.NetReturn <= 0 {
			return
		}
		assert.Greater(t, row.Equity, 0.0, "row %d", i)
	}
}

func TestSimulate_CommissionMonotonicity(t *testing.T) {
	closes := []float64{100, 103, 101, 104, 102, 106, 105}
	signals := []core.Direction{core.Long, core.Flat, core.Long, core.Short, core.Long, core.Long, core.Flat}

	var prev float64
	for i, c := range []float64{0, 0.0005, 0.001, 0.01} {
		curve, err := Simulate(makeSeries(t, closes, signals...), 1000, c)
		require.NoError(t, err)
		if i > 0 {
			assert.LessOrEqual(t, curve.FinalEquity(), prev, "commission %v", c)
		}
		prev = curve.FinalEquity()
	}
}

func TestSimulate_DoesNotMutateSeries(t *testing.T) {
	series := makeSeries(t, scenarioCloses, repeat(core.Long, 5)...)
	before := append([]core.Direction(nil), series.Signals...)

	_, err := Simulate(series, 100000, 0.001)
	require.NoError(t, err)
	assert.Equal(t, before, series.Signals)
	assert.Equal(t, 100.0, series.Bars[0].Close)
}

func TestSimulate_Errors(t *testing.T) {
	valid := func() *strategy.Series { return makeSeries(t, scenarioCloses, repeat(core.Long, 5)...) }

	tests := []struct {
		name       string
		series     *strategy.Series
		capital    float64
		commission float64
		want       *core.Error
	}{
		{"nil series", nil, 1000, 0, core.ErrSchemaInvalid},
		{"no rows", &strategy.Series{Signals: []core.Direction{}}, 1000, 0, core.ErrSchemaInvalid},
		{"missing signals", &strategy.Series{Bars: makeBars(1, 2)}, 1000, 0, core.ErrSchemaInvalid},
		{"misaligned signals", &strategy.Series{Bars: makeBars(1, 2), Signals: []core.Direction{core.Long}}, 1000, 0, core.ErrSchemaInvalid},
		{"zero capital", valid(), 0, 0, core.ErrConfigInvalid},
		{"negative capital", valid(), -5, 0, core.ErrConfigInvalid},
		{"infinite capital", valid(), math.Inf(1), 0, core.ErrConfigInvalid},
		{"negative commission", valid(), 1000, -0.01, core.ErrConfigInvalid},
		{"nan commission", valid(), 1000, math.NaN(), core.ErrConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			curve, err := Simulate(tt.series, tt.capital, tt.commission)
			assert.Nil(t, curve)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}
