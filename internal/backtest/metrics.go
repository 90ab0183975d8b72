package backtest

import (
	"math"

	"github.com/newthinker/tradelab/internal/core"
	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is used to annualize daily statistics
const TradingDaysPerYear = 252

// CalculateMetrics reduces an equity curve to its performance statistics
func CalculateMetrics(curve *EquityCurve) (Metrics, error) {
	if curve == nil || len(curve.Rows) == 0 {
		return Metrics{}, core.Schemaf("equity curve has no rows")
	}

	first := curve.Rows[0].Equity
	if !(first > 0) {
		return Metrics{}, core.Schemaf("first equity value must be positive, got %v", first)
	}

	n := len(curve.Rows)
	totalReturn := curve.Rows[n-1].Equity/first - 1
	returns := curve.NetReturns()

	trades := 0
	for _, r := range curve.Rows {
		if r.TradeIndicator > 0 {
			trades++
		}
	}

	return Metrics{
		TotalReturn:      totalReturn,
		AnnualizedReturn: annualizeReturn(totalReturn, n),
		SharpeRatio:      calculateSharpeRatio(returns),
		MaxDrawdown:      calculateMaxDrawdown(returns),
		WinRate:          calculateWinRate(returns),
		TotalTrades:      trades,
	}, nil
}

// annualizeReturn compounds a total return over n daily rows to a yearly
// rate. A single row cannot be extrapolated and returns the total as is.
// Growth too large to represent saturates at math.MaxFloat64 so the value
// stays finite for JSON and SQL sinks.
func annualizeReturn(totalReturn float64, n int) float64 {
	if n <= 1 {
		return totalReturn
	}
	growth := 1 + totalReturn
	if growth <= 0 {
		return -1
	}
	annualized := math.Pow(growth, float64(TradingDaysPerYear)/float64(n)) - 1
	if math.IsInf(annualized, 1) || math.IsNaN(annualized) {
		return math.MaxFloat64
	}
	return annualized
}

// calculateSharpeRatio computes the annualized risk-adjusted return.
// Assumes risk-free rate of 0; zero or undefined deviation yields 0.
func calculateSharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	mean, stdDev := stat.MeanStdDev(returns, nil)
	if stdDev == 0 || math.IsNaN(stdDev) {
		return 0
	}

	return mean / stdDev * math.Sqrt(TradingDaysPerYear)
}

// calculateMaxDrawdown finds the largest relative decline of the compounded
// return curve from its running peak, as a value in [-1, 0]
func calculateMaxDrawdown(returns []float64) float64 {
	var maxDD float64
	peak := math.Inf(-1)
	cumulative := 1.0

	for _, r := range returns {
		cumulative *= 1 + r
		if cumulative > peak {
			peak = cumulative
		}
		if peak <= 0 {
			return -1
		}
		dd := (cumulative - peak) / peak
		if dd < maxDD {
			maxDD = dd
		}
	}

	return math.Max(maxDD, -1)
}

// calculateWinRate is the share of positive rows among rows with a
// non-zero net return
func calculateWinRate(returns []float64) float64 {
	var wins, losses int
	for _, r := range returns {
		switch {
		case r > 0:
			wins++
		case r < 0:
			losses++
		}
	}
	if wins+losses == 0 {
		return 0
	}
	return float64(wins) / float64(wins+losses)
}
