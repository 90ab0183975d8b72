package ma_crossover

import (
	"fmt"

	"github.com/newthinker/tradelab/internal/core"
	"github.com/newthinker/tradelab/internal/indicator"
	"github.com/newthinker/tradelab/internal/strategy"
)

const (
	DefaultFastWindow = 50
	DefaultSlowWindow = 200
)

// MACrossover goes long while the fast moving average is above the slow
// one and short while it is below
type MACrossover struct {
	fastWindow int
	slowWindow int
}

// New creates a new MA Crossover strategy
func New(fastWindow, slowWindow int) *MACrossover {
	return &MACrossover{
		fastWindow: fastWindow,
		slowWindow: slowWindow,
	}
}

// Default creates an MA Crossover strategy with the 50/200 windows
func Default() strategy.Strategy {
	return New(DefaultFastWindow, DefaultSlowWindow)
}

func (m *MACrossover) Name() string {
	return "ma_crossover"
}

func (m *MACrossover) Description() string {
	return fmt.Sprintf("MA Crossover (%d/%d)", m.fastWindow, m.slowWindow)
}

func (m *MACrossover) Warmup() int {
	return max(m.fastWindow, m.slowWindow) - 1
}

func (m *MACrossover) Init(cfg strategy.Config) error {
	if err := cfg.Allow("fast_window", "slow_window"); err != nil {
		return err
	}
	fast, err := cfg.Int("fast_window", m.fastWindow)
	if err != nil {
		return err
	}
	slow, err := cfg.Int("slow_window", m.slowWindow)
	if err != nil {
		return err
	}
	if fast < 1 {
		return core.Configf("fast_window must be >= 1, got %d", fast)
	}
	if slow < 1 {
		return core.Configf("slow_window must be >= 1, got %d", slow)
	}
	m.fastWindow = fast
	m.slowWindow = slow
	return nil
}

func (m *MACrossover) GenerateSignals(bars []core.OHLCV) (*strategy.Series, error) {
	series, err := strategy.NewSeries(bars)
	if err != nil {
		return nil, err
	}

	prices := series.Closes()
	fastMA := indicator.SMA(prices, m.fastWindow)
	slowMA := indicator.SMA(prices, m.slowWindow)

	for i := range prices {
		if !indicator.Defined(fastMA[i]) || !indicator.Defined(slowMA[i]) {
			continue // warm-up stays flat
		}
		switch {
		case fastMA[i] > slowMA[i]:
			series.Signals[i] = core.Long
		case fastMA[i] < slowMA[i]:
			series.Signals[i] = core.Short
		}
	}

	series.Indicators["sma_fast"] = fastMA
	series.Indicators["sma_slow"] = slowMA
	return series, nil
}
