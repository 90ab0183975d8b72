package ma_crossover

import (
	"errors"
	"testing"
	"time"

	"github.com/newthinker/tradelab/internal/core"
	"github.com/newthinker/tradelab/internal/strategy"
)

func bars(prices ...float64) []core.OHLCV {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	ohlcv := make([]core.OHLCV, len(prices))
	for i, p := range prices {
		ohlcv[i] = core.OHLCV{
			Symbol: "TEST",
			Open:   p,
			High:   p,
			Low:    p,
			Close:  p,
			Time:   start.AddDate(0, 0, i),
		}
	}
	return ohlcv
}

func TestMACrossover_ImplementsStrategy(t *testing.T) {
	var _ strategy.Strategy = (*MACrossover)(nil)
}

func TestMACrossover_Name(t *testing.T) {
	s := New(5, 10)
	if s.Name() != "ma_crossover" {
		t.Errorf("expected 'ma_crossover', got '%s'", s.Name())
	}
	if s.Description() != "MA Crossover (5/10)" {
		t.Errorf("unexpected description %q", s.Description())
	}
}

func TestMACrossover_RisingSeries(t *testing.T) {
	s := New(2, 3)

	series, err := s.GenerateSignals(bars(1, 2, 3, 4, 5, 6))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// rows 0 and 1 lack slow-window history; afterwards the fast average
	// of a rising series is always above the slow one
	want := []core.Direction{core.Flat, core.Flat, core.Long, core.Long, core.Long, core.Long}
	for i, w := range want {
		if series.Signals[i] != w {
			t.Errorf("signal[%d] = %s, want %s", i, series.Signals[i], w)
		}
	}
}

func TestMACrossover_FallingSeries(t *testing.T) {
	s := New(2, 3)

	series, err := s.GenerateSignals(bars(6, 5, 4, 3, 2, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []core.Direction{core.Flat, core.Flat, core.Short, core.Short, core.Short, core.Short}
	for i, w := range want {
		if series.Signals[i] != w {
			t.Errorf("signal[%d] = %s, want %s", i, series.Signals[i], w)
		}
	}
}

func TestMACrossover_EqualAveragesAreFlat(t *testing.T) {
	s := New(2, 4)

	// flat then a cross: equality must not carry the previous signal forward
	series, err := s.GenerateSignals(bars(10, 10, 10, 10, 12, 10, 10, 10, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if series.Signals[3] != core.Flat {
		t.Errorf("signal[3] = %s, want flat on equal averages", series.Signals[3])
	}
	if series.Signals[4] != core.Long {
		t.Errorf("signal[4] = %s, want long after the spike", series.Signals[4])
	}
	if series.Signals[8] != core.Flat {
		t.Errorf("signal[8] = %s, want flat once averages converge", series.Signals[8])
	}
}

func TestMACrossover_NotEnoughData(t *testing.T) {
	s := New(50, 200)

	prices := make([]float64, 100)
	for i := range prices {
		prices[i] = float64(100 + i)
	}

	series, err := s.GenerateSignals(bars(prices...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, sig := range series.Signals {
		if sig != core.Flat {
			t.Fatalf("signal[%d] = %s, want flat with insufficient history", i, sig)
		}
	}
}

func TestMACrossover_NoLookahead(t *testing.T) {
	s := New(2, 3)
	base := bars(5, 4, 6, 7, 3, 8, 2, 9)

	original, err := s.GenerateSignals(base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mutated := make([]core.OHLCV, len(base))
	copy(mutated, base)
	mutated[5].Close = 1000

	changed, err := s.GenerateSignals(mutated)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 5; i++ {
		if original.Signals[i] != changed.Signals[i] {
			t.Errorf("signal[%d] changed after mutating a later row", i)
		}
	}
}

func TestMACrossover_DoesNotMutateInput(t *testing.T) {
	input := bars(1, 2, 3)
	if _, err := New(1, 2).GenerateSignals(input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if input[2].Close != 3 {
		t.Error("input bars were mutated")
	}
}

func TestMACrossover_EmptySeries(t *testing.T) {
	_, err := New(2, 3).GenerateSignals(nil)
	if !errors.Is(err, core.ErrSchemaInvalid) {
		t.Errorf("expected SCHEMA_INVALID, got %v", err)
	}
}

func TestMACrossover_Init(t *testing.T) {
	tests := []struct {
		name     string
		params   map[string]any
		wantErr  bool
		wantFast int
		wantSlow int
	}{
		{"defaults", nil, false, 50, 200},
		{"ints", map[string]any{"fast_window": 5, "slow_window": 20}, false, 5, 20},
		{"json floats", map[string]any{"fast_window": 5.0, "slow_window": 20.0}, false, 5, 20},
		{"strings", map[string]any{"fast_window": "3"}, false, 3, 200},
		{"zero fast", map[string]any{"fast_window": 0}, true, 0, 0},
		{"negative slow", map[string]any{"slow_window": -4}, true, 0, 0},
		{"fractional", map[string]any{"fast_window": 2.5}, true, 0, 0},
		{"unknown key", map[string]any{"fast": 5, "slow_window": 20}, true, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(DefaultFastWindow, DefaultSlowWindow)
			err := s.Init(strategy.Config{Params: tt.params})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Init() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, core.ErrConfigInvalid) {
					t.Errorf("expected CONFIG_INVALID, got %v", err)
				}
				return
			}
			if s.fastWindow != tt.wantFast || s.slowWindow != tt.wantSlow {
				t.Errorf("windows = %d/%d, want %d/%d", s.fastWindow, s.slowWindow, tt.wantFast, tt.wantSlow)
			}
		})
	}
}
