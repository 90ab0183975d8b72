package backtest

import "github.com/newthinker/tradelab/internal/core"

// ExtractTrades splits an equity curve into contiguous non-flat holdings.
//
// A position held from row i is taken at the close of row i-1, so that
// close is the entry price. The return compounds the net returns of the
// held rows, which include the cost of opening the position, and then
// deducts one commission unit for closing it. On a flip the row's double
// cost is split: one unit closes the old trade and one opens the new one.
// A trade still open at the end has paid no exit cost.
func ExtractTrades(curve *EquityCurve) []Trade {
	if curve == nil {
		return nil
	}

	var trades []Trade
	var open *Trade

	for i, row := range curve.Rows {
		// cost of closing the trade that ends on this row
		exitCost := 0.0
		if open != nil && row.Position != open.Direction {
			prev := curve.Rows[i-1]
			exitCost = curve.CommissionRate
			open.ExitTime = prev.Time
			open.ExitPrice = prev.Close
			open.Open = false
			open.Return *= 1 - exitCost
			trades = append(trades, *open)
			open = nil
		}

		if open == nil && row.Position != core.Flat && i > 0 {
			entry := curve.Rows[i-1]
			open = &Trade{
				Direction:  row.Position,
				EntryTime:  entry.Time,
				EntryPrice: entry.Close,
				Return:     1,
			}
		}

		if open != nil {
			open.Bars++
			open.Return *= 1 + row.NetReturn + exitCost
		}
	}

	// Position still held at the end of the data
	if open != nil {
		last := curve.Rows[len(curve.Rows)-1]
		open.ExitTime = last.Time
		open.ExitPrice = last.Close
		open.Open = true
		trades = append(trades, *open)
	}

	for i := range trades {
		trades[i].Return--
	}
	return trades
}
