package backtest

import (
	"encoding/json"
	"math"
	"time"

	"github.com/newthinker/tradelab/internal/core"
)

// Row is one simulated day of an equity curve
type Row struct {
	Time            time.Time
	Close           float64
	Signal          core.Direction
	Position        core.Direction // Signal of the previous row
	MarketReturn    float64        // NaN on the first row
	StrategyReturn  float64        // NaN on the first row
	TradeIndicator  float64        // 0, 1 or 2
	TransactionCost float64
	NetReturn       float64 // undefined values already replaced by 0
	Equity          float64
}

// MarshalJSON encodes undefined returns as null
func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Time            time.Time      `json:"time"`
		Close           float64        `json:"close"`
		Signal          core.Direction `json:"signal"`
		Position        core.Direction `json:"position"`
		MarketReturn    *float64       `json:"market_return"`
		StrategyReturn  *float64       `json:"strategy_return"`
		TradeIndicator  float64        `json:"trade_indicator"`
		TransactionCost float64        `json:"transaction_cost"`
		NetReturn       float64        `json:"net_return"`
		Equity          float64        `json:"equity"`
	}{
		Time:            r.Time,
		Close:           r.Close,
		Signal:          r.Signal,
		Position:        r.Position,
		MarketReturn:    finiteOrNil(r.MarketReturn),
		StrategyReturn:  finiteOrNil(r.StrategyReturn),
		TradeIndicator:  r.TradeIndicator,
		TransactionCost: r.TransactionCost,
		NetReturn:       r.NetReturn,
		Equity:          r.Equity,
	})
}

// UnmarshalJSON restores null returns as NaN
func (r *Row) UnmarshalJSON(data []byte) error {
	var raw struct {
		Time            time.Time      `json:"time"`
		Close           float64        `json:"close"`
		Signal          core.Direction `json:"signal"`
		Position        core.Direction `json:"position"`
		MarketReturn    *float64       `json:"market_return"`
		StrategyReturn  *float64       `json:"strategy_return"`
		TradeIndicator  float64        `json:"trade_indicator"`
		TransactionCost float64        `json:"transaction_cost"`
		NetReturn       float64        `json:"net_return"`
		Equity          float64        `json:"equity"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Row{
		Time:            raw.Time,
		Close:           raw.Close,
		Signal:          raw.Signal,
		Position:        raw.Position,
		MarketReturn:    nilOrNaN(raw.MarketReturn),
		StrategyReturn:  nilOrNaN(raw.StrategyReturn),
		TradeIndicator:  raw.TradeIndicator,
		TransactionCost: raw.TransactionCost,
		NetReturn:       raw.NetReturn,
		Equity:          raw.Equity,
	}
	return nil
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func nilOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// EquityCurve is the capital trajectory produced by Simulate
type EquityCurve struct {
	Symbol         string  `json:"symbol"`
	InitialCapital float64 `json:"initial_capital"`
	CommissionRate float64 `json:"commission_rate"`
	Rows           []Row   `json:"rows"`
}

// Len returns the number of rows
func (c *EquityCurve) Len() int {
	return len(c.Rows)
}

// FinalEquity returns the equity of the last row, or the initial capital
// for an empty curve
func (c *EquityCurve) FinalEquity() float64 {
	if len(c.Rows) == 0 {
		return c.InitialCapital
	}
	return c.Rows[len(c.Rows)-1].Equity
}

// NetReturns returns the net return column
func (c *EquityCurve) NetReturns() []float64 {
	out := make([]float64, len(c.Rows))
	for i, r := range c.Rows {
		out[i] = r.NetReturn
	}
	return out
}

// Equities returns the equity column
func (c *EquityCurve) Equities() []float64 {
	out := make([]float64, len(c.Rows))
	for i, r := range c.Rows {
		out[i] = r.Equity
	}
	return out
}

// Metrics holds the performance statistics of one run
type Metrics struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown"` // in [-1, 0]
	WinRate          float64 `json:"win_rate"`     // fraction of non-zero return rows that were positive
	TotalTrades      int     `json:"total_trades"` // rows on which the position changed
}

// Trade is one contiguous holding of a non-flat position
type Trade struct {
	Direction  core.Direction `json:"direction"`
	EntryTime  time.Time      `json:"entry_time"`
	ExitTime   time.Time      `json:"exit_time"`
	EntryPrice float64        `json:"entry_price"`
	ExitPrice  float64        `json:"exit_price"`
	Bars       int            `json:"bars"`   // rows the position was held
	Return     float64        `json:"return"` // compounded net return over the held rows
	Open       bool           `json:"open"`   // still held on the last row
}

// IsWin returns true if the trade was profitable
func (t Trade) IsWin() bool {
	return t.Return > 0
}

// IsClosed returns true if the trade has an exit
func (t Trade) IsClosed() bool {
	return !t.Open
}

// Result holds the complete backtest output
type Result struct {
	ID             string       `json:"id"`
	Strategy       string       `json:"strategy"`
	Description    string       `json:"description"`
	Symbol         string       `json:"symbol"`
	StartDate      time.Time    `json:"start_date"`
	EndDate        time.Time    `json:"end_date"`
	InitialCapital float64      `json:"initial_capital"`
	CommissionRate float64      `json:"commission_rate"`
	FinalEquity    float64      `json:"final_equity"`
	Metrics        Metrics      `json:"metrics"`
	Curve          *EquityCurve `json:"curve"`
	Trades         []Trade      `json:"trades"`
	CreatedAt      time.Time    `json:"created_at"`
}
