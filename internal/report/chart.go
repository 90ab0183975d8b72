package report

import (
	"github.com/newthinker/tradelab/internal/backtest"
	"github.com/newthinker/tradelab/internal/core"
)

// ChartPoint is one equity sample for plotting.
type ChartPoint struct {
	Date   string  `json:"date"`
	Equity float64 `json:"equity"`
}

const chartDateLayout = "2006-01-02"

// ChartPoints converts a curve into chart points. With trimWarmup set,
// leading rows before the first non-flat position are skipped; the curve
// itself is left untouched. A curve that never takes a position is
// returned in full.
func ChartPoints(curve *backtest.EquityCurve, trimWarmup bool) []ChartPoint {
	if curve == nil || len(curve.Rows) == 0 {
		return []ChartPoint{}
	}

	start := 0
	if trimWarmup {
		start = firstActiveRow(curve.Rows)
	}

	points := make([]ChartPoint, 0, len(curve.Rows)-start)
	for _, row := range curve.Rows[start:] {
		points = append(points, ChartPoint{
			Date:   row.Time.UTC().Format(chartDateLayout),
			Equity: row.Equity,
		})
	}
	return points
}

// firstActiveRow returns the index of the row before the first non-flat
// position, so the plot starts at the entry price, or 0 if there is none.
func firstActiveRow(rows []backtest.Row) int {
	for i, row := range rows {
		if row.Position != core.Flat {
			if i == 0 {
				return 0
			}
			return i - 1
		}
	}
	return 0
}
