package mean_reversion

import (
	"fmt"
	"math"

	"github.com/newthinker/tradelab/internal/core"
	"github.com/newthinker/tradelab/internal/indicator"
	"github.com/newthinker/tradelab/internal/strategy"
)

const (
	DefaultWindow = 20
	DefaultStdDev = 2.0
)

// MeanReversion fades moves that stretch the close more than a number of
// standard deviations away from its rolling mean
type MeanReversion struct {
	window    int
	threshold float64
}

// New creates a new z-score mean reversion strategy
func New(window int, threshold float64) *MeanReversion {
	return &MeanReversion{window: window, threshold: threshold}
}

// Default creates a mean reversion strategy with a 20-row window and a
// 2 standard deviation band
func Default() strategy.Strategy {
	return New(DefaultWindow, DefaultStdDev)
}

func (m *MeanReversion) Name() string { return "mean_reversion" }

func (m *MeanReversion) Description() string {
	return fmt.Sprintf("Z-Score Mean Reversion (window: %d, band: %.1f)", m.window, m.threshold)
}

func (m *MeanReversion) Warmup() int { return m.window - 1 }

func (m *MeanReversion) Init(cfg strategy.Config) error {
	if err := cfg.Allow("window", "std_dev"); err != nil {
		return err
	}
	window, err := cfg.Int("window", m.window)
	if err != nil {
		return err
	}
	threshold, err := cfg.Float("std_dev", m.threshold)
	if err != nil {
		return err
	}
	if window < 1 {
		return core.Configf("window must be >= 1, got %d", window)
	}
	if threshold < 0 || math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return core.Configf("std_dev must be a finite number >= 0, got %v", threshold)
	}
	m.window = window
	m.threshold = threshold
	return nil
}

func (m *MeanReversion) GenerateSignals(bars []core.OHLCV) (*strategy.Series, error) {
	series, err := strategy.NewSeries(bars)
	if err != nil {
		return nil, err
	}

	z := indicator.ZScore(series.Closes(), m.window)
	for i, score := range z {
		if !indicator.Defined(score) {
			continue
		}
		switch {
		case score < -m.threshold:
			series.Signals[i] = core.Long
		case score > m.threshold:
			series.Signals[i] = core.Short
		}
	}

	series.Indicators["z_score"] = z
	return series, nil
}
