// Package report renders backtest output for people: formatted metrics,
// chart points and trade exports.
package report

import (
	"math"
	"strconv"

	"github.com/newthinker/tradelab/internal/backtest"
)

// Metric labels, in display order.
const (
	LabelTotalReturn      = "Total Return"
	LabelAnnualizedReturn = "Annualized Return"
	LabelSharpeRatio      = "Sharpe Ratio"
	LabelMaxDrawdown      = "Max Drawdown"
	LabelWinRate          = "Win Rate"
	LabelTotalTrades      = "Total Trades"
)

// Line is one labelled, formatted metric.
type Line struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Lines returns the formatted metrics in display order.
func Lines(m backtest.Metrics) []Line {
	return []Line{
		{LabelTotalReturn, Percent(m.TotalReturn)},
		{LabelAnnualizedReturn, Percent(m.AnnualizedReturn)},
		{LabelSharpeRatio, Ratio(m.SharpeRatio)},
		{LabelMaxDrawdown, Percent(m.MaxDrawdown)},
		{LabelWinRate, Percent(m.WinRate)},
		{LabelTotalTrades, strconv.Itoa(m.TotalTrades)},
	}
}

// Format returns the formatted metrics keyed by label.
func Format(m backtest.Metrics) map[string]string {
	lines := Lines(m)
	out := make(map[string]string, len(lines))
	for _, l := range lines {
		out[l.Label] = l.Value
	}
	return out
}

// Percent renders a fraction as a percentage with two decimals: 0.1234 -> "12.34%".
func Percent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fixed2(v*100) + "%"
}

// Ratio renders a plain number with two decimals.
func Ratio(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fixed2(v)
}

// fixed2 formats v with two decimals. Values that round to zero print
// unsigned, so -0.001 is "0.00" rather than "-0.00".
func fixed2(v float64) string {
	out := strconv.FormatFloat(v, 'f', 2, 64)
	if out == "-0.00" {
		return "0.00"
	}
	return out
}
