package strategy

import (
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/newthinker/tradelab/internal/core"
)

// Config holds strategy parameters
type Config struct {
	Params map[string]any
}

// Allow rejects any parameter whose key is not one of keys.
func (c Config) Allow(keys ...string) error {
	var unknown []string
	for k := range c.Params {
		if !slices.Contains(keys, k) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return core.Configf("unknown parameter %q, expected one of [%s]", unknown[0], strings.Join(keys, ", "))
}

// Int returns an integer parameter or def when the key is absent.
func (c Config) Int(key string, def int) (int, error) {
	v, ok := c.Params[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, core.Configf("%s must be an integer, got %v", key, n)
		}
		return int(n), nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, core.Configf("%s must be an integer, got %q", key, n)
		}
		return i, nil
	default:
		return 0, core.Configf("%s has unsupported type %T", key, v)
	}
}

// Float returns a float parameter or def when the key is absent.
func (c Config) Float(key string, def float64) (float64, error) {
	v, ok := c.Params[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, core.Configf("%s must be a number, got %q", key, n)
		}
		return f, nil
	default:
		return 0, core.Configf("%s has unsupported type %T", key, v)
	}
}

// Series is a price series augmented with one signal per row
type Series struct {
	Symbol     string
	Bars       []core.OHLCV
	Signals    []core.Direction
	Indicators map[string][]float64 // row-aligned, NaN where undefined
}

// Len returns the number of rows
func (s *Series) Len() int {
	return len(s.Bars)
}

// Closes returns a copy of the close column
func (s *Series) Closes() []float64 {
	return Closes(s.Bars)
}

// Validate checks that the signal column is present and aligned
func (s *Series) Validate() error {
	if s == nil {
		return core.Schemaf("series is nil")
	}
	if len(s.Bars) == 0 {
		return core.Schemaf("series has no rows")
	}
	if s.Signals == nil {
		return core.Schemaf("series has no Signal column")
	}
	if len(s.Signals) != len(s.Bars) {
		return core.Schemaf("Signal column has %d rows, series has %d", len(s.Signals), len(s.Bars))
	}
	for i, sig := range s.Signals {
		if !sig.IsValid() {
			return core.Schemaf("row %d: signal %d outside {-1,0,1}", i, int(sig))
		}
	}
	return nil
}

// Closes extracts closing prices from bars
func Closes(bars []core.OHLCV) []float64 {
	prices := make([]float64, len(bars))
	for i, bar := range bars {
		prices[i] = bar.Close
	}
	return prices
}

// NewSeries copies bars into a fresh series with an all-flat signal column
func NewSeries(bars []core.OHLCV) (*Series, error) {
	if len(bars) == 0 {
		return nil, core.Schemaf("price series must contain at least one row")
	}
	copied := make([]core.OHLCV, len(bars))
	copy(copied, bars)
	return &Series{
		Symbol:     copied[0].Symbol,
		Bars:       copied,
		Signals:    make([]core.Direction, len(copied)),
		Indicators: make(map[string][]float64),
	}, nil
}

// Strategy turns a price series into a signal series
type Strategy interface {
	Name() string
	Description() string
	// Warmup is the number of leading rows that cannot carry a signal
	Warmup() int
	Init(cfg Config) error
	GenerateSignals(bars []core.OHLCV) (*Series, error)
}

// Constructor builds a fresh, unconfigured strategy instance
type Constructor func() Strategy
