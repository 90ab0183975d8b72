package backtest

import (
	"math"

	"github.com/newthinker/tradelab/internal/core"
	"github.com/newthinker/tradelab/internal/strategy"
)

// Simulate turns a signal series into an equity curve.
//
// The position held on row i is the signal of row i-1: a signal computed
// from a close can only be acted on during the following row. The first
// row is always flat and never records a trade. Returns that cannot be
// computed are booked as 0 so they do not poison the compounding.
func Simulate(series *strategy.Series, initialCapital, commissionRate float64) (*EquityCurve, error) {
	if err := series.Validate(); err != nil {
		return nil, err
	}
	if !(initialCapital > 0) || math.IsInf(initialCapital, 0) {
		return nil, core.Configf("initial capital must be a positive number, got %v", initialCapital)
	}
	if !(commissionRate >= 0) || math.IsInf(commissionRate, 0) {
		return nil, core.Configf("commission rate must be >= 0, got %v", commissionRate)
	}

	rows := make([]Row, series.Len())
	cumulative := 1.0
	prevPosition := core.Flat

	for i, bar := range series.Bars {
		row := Row{
			Time:           bar.Time,
			Close:          bar.Close,
			Signal:         series.Signals[i],
			Position:       core.Flat,
			MarketReturn:   math.NaN(),
			StrategyReturn: math.NaN(),
		}

		if i > 0 {
			row.Position = series.Signals[i-1]
			row.MarketReturn = bar.Close/series.Bars[i-1].Close - 1
			row.StrategyReturn = row.Position.Float() * row.MarketReturn
			row.TradeIndicator = math.Abs(row.Position.Float() - prevPosition.Float())
		}

		row.TransactionCost = row.TradeIndicator * commissionRate
		row.NetReturn = definedOrZero(row.StrategyReturn - row.TransactionCost)

		cumulative *= 1 + row.NetReturn
		row.Equity = initialCapital * cumulative

		rows[i] = row
		prevPosition = row.Position
	}

	return &EquityCurve{
		Symbol:         series.Symbol,
		InitialCapital: initialCapital,
		CommissionRate: commissionRate,
		Rows:           rows,
	}, nil
}

func definedOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
