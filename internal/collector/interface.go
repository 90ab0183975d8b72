// Package collector fetches daily price history from market data sources.
package collector

import (
	"context"
	"time"

	"github.com/newthinker/tradelab/internal/core"
)

// Config holds collector configuration
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string
	Dir       string // csv directory
	Timeout   time.Duration
}

// HistoryProvider defines the interface for historical data sources
type HistoryProvider interface {
	Name() string
	// FetchHistory returns bars for symbol between start and end inclusive.
	// Zero start or end leaves that side of the range open.
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error)
}

// InRange reports whether t falls between start and end inclusive, with a
// zero bound treated as open
func InRange(t, start, end time.Time) bool {
	if !start.IsZero() && t.Before(start) {
		return false
	}
	if !end.IsZero() && t.After(end) {
		return false
	}
	return true
}
