package strategy

import (
	"errors"
	"strings"
	"testing"

	"github.com/newthinker/tradelab/internal/core"
)

type mockStrategy struct {
	name    string
	initErr error
	signal  core.Direction
}

func (m *mockStrategy) Name() string          { return m.name }
func (m *mockStrategy) Description() string   { return "mock strategy" }
func (m *mockStrategy) Warmup() int           { return 0 }
func (m *mockStrategy) Init(cfg Config) error { return m.initErr }
func (m *mockStrategy) GenerateSignals(bars []core.OHLCV) (*Series, error) {
	s, err := NewSeries(bars)
	if err != nil {
		return nil, err
	}
	for i := range s.Signals {
		s.Signals[i] = m.signal
	}
	return s, nil
}

func TestEngine_RegisterAndGenerate(t *testing.T) {
	engine := NewEngine()
	engine.Register(func() Strategy { return &mockStrategy{name: "mock", signal: core.Long} })

	series, err := engine.Generate("mock", Config{}, []core.OHLCV{{Close: 1}, {Close: 2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if series.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", series.Len())
	}
	if series.Signals[1] != core.Long {
		t.Errorf("expected long signal, got %s", series.Signals[1])
	}
}

func TestEngine_Names(t *testing.T) {
	engine := NewEngine()
	engine.Register(func() Strategy { return &mockStrategy{name: "b"} })
	engine.Register(func() Strategy { return &mockStrategy{name: "a"} }, "alias_a")

	names := engine.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("expected [a b], got %v", names)
	}

	if canonical, ok := engine.Resolve("alias_a"); !ok || canonical != "a" {
		t.Errorf("Resolve(alias_a) = %s, %v", canonical, ok)
	}
}

func TestEngine_UnknownStrategy(t *testing.T) {
	engine := NewEngine()

	_, err := engine.New("missing", Config{})
	if !errors.Is(err, core.ErrUnknownStrategy) {
		t.Errorf("expected UNKNOWN_STRATEGY, got %v", err)
	}
}

func TestEngine_InitError(t *testing.T) {
	engine := NewEngine()
	engine.Register(func() Strategy {
		return &mockStrategy{name: "broken", initErr: core.Configf("bad window")}
	})

	_, err := engine.Generate("broken", Config{}, []core.OHLCV{{Close: 1}})
	if !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("expected CONFIG_INVALID, got %v", err)
	}
}

func TestSeries_Validate(t *testing.T) {
	bars := []core.OHLCV{{Close: 1}, {Close: 2}}

	tests := []struct {
		name    string
		series  *Series
		wantErr bool
	}{
		{"nil", nil, true},
		{"no rows", &Series{}, true},
		{"missing signal column", &Series{Bars: bars}, true},
		{"misaligned", &Series{Bars: bars, Signals: []core.Direction{core.Long}}, true},
		{"out of range", &Series{Bars: bars, Signals: []core.Direction{core.Long, 3}}, true},
		{"valid", &Series{Bars: bars, Signals: []core.Direction{core.Long, core.Short}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.series.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, core.ErrSchemaInvalid) {
				t.Errorf("expected SCHEMA_INVALID, got %v", err)
			}
		})
	}
}

func TestConfig_Accessors(t *testing.T) {
	cfg := Config{Params: map[string]any{"a": 3, "b": 2.5, "c": "7", "d": int64(4)}}

	if v, err := cfg.Int("a", 0); err != nil || v != 3 {
		t.Errorf("Int(a) = %d, %v", v, err)
	}
	if v, err := cfg.Int("c", 0); err != nil || v != 7 {
		t.Errorf("Int(c) = %d, %v", v, err)
	}
	if v, err := cfg.Int("d", 0); err != nil || v != 4 {
		t.Errorf("Int(d) = %d, %v", v, err)
	}
	if v, err := cfg.Int("missing", 9); err != nil || v != 9 {
		t.Errorf("Int(missing) = %d, %v", v, err)
	}
	if _, err := cfg.Int("b", 0); err == nil {
		t.Error("expected error for fractional int")
	}
	if v, err := cfg.Float("b", 0); err != nil || v != 2.5 {
		t.Errorf("Float(b) = %f, %v", v, err)
	}
	if v, err := cfg.Float("a", 0); err != nil || v != 3 {
		t.Errorf("Float(a) = %f, %v", v, err)
	}
}

func TestConfig_Allow(t *testing.T) {
	cfg := Config{Params: map[string]any{"window": 3, "std_dev": 2.0}}
	if err := cfg.Allow("window", "std_dev"); err != nil {
		t.Errorf("Allow() unexpected error = %v", err)
	}
	if err := (Config{}).Allow("window"); err != nil {
		t.Errorf("Allow() on empty params = %v", err)
	}

	cfg = Config{Params: map[string]any{"window": 3, "zeta": 1, "alpha": 2}}
	err := cfg.Allow("window")
	if !errors.Is(err, core.ErrConfigInvalid) {
		t.Fatalf("expected CONFIG_INVALID, got %v", err)
	}
	if !strings.Contains(err.Error(), `"alpha"`) {
		t.Errorf("expected the first unknown key in sorted order, got %v", err)
	}
}
