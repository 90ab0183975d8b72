package core

import "time"

// OHLCV represents a daily candlestick/bar
type OHLCV struct {
	Symbol   string    `json:"symbol"`
	Interval string    `json:"interval"` // always "1d" for backtests
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
	Time     time.Time `json:"time"`
}

// Direction is the directional intent of a signal or held position
type Direction int

const (
	Short Direction = -1
	Flat  Direction = 0
	Long  Direction = 1
)

// String returns the lower-case name of the direction
func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "flat"
	}
}

// Float returns the direction as a position multiplier
func (d Direction) Float() float64 {
	return float64(d)
}

// IsValid reports whether d is one of Short, Flat or Long
func (d Direction) IsValid() bool {
	return d >= Short && d <= Long
}
