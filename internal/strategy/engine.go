package strategy

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/newthinker/tradelab/internal/core"
	"go.uber.org/zap"
)

// Engine manages strategy constructors and builds configured instances
type Engine struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
	aliases      map[string]string
	logger       *zap.Logger
}

// NewEngine creates a new strategy engine
func NewEngine(logger ...*zap.Logger) *Engine {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Engine{
		constructors: make(map[string]Constructor),
		aliases:      make(map[string]string),
		logger:       l,
	}
}

// Register adds a strategy constructor under its canonical name and aliases
func (e *Engine) Register(ctor Constructor, aliases ...string) {
	name := ctor().Name()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.constructors[name] = ctor
	for _, a := range aliases {
		e.aliases[a] = name
	}
}

// Resolve maps a name or alias to the canonical strategy name
func (e *Engine) Resolve(name string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if _, ok := e.constructors[name]; ok {
		return name, true
	}
	canonical, ok := e.aliases[name]
	return canonical, ok
}

// Names returns the sorted canonical names of all registered strategies
func (e *Engine) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make([]string, 0, len(e.constructors))
	for name := range e.constructors {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// New builds and initialises a strategy by name. Unknown names fail with
// ErrUnknownStrategy.
func (e *Engine) New(name string, cfg Config) (Strategy, error) {
	canonical, ok := e.Resolve(name)
	if !ok {
		return nil, core.WrapError(core.ErrUnknownStrategy, errUnknown(name, e.Names()))
	}

	e.mu.RLock()
	ctor := e.constructors[canonical]
	e.mu.RUnlock()

	s := ctor()
	if err := s.Init(cfg); err != nil {
		e.logger.Warn("strategy init failed",
			zap.String("strategy", canonical),
			zap.String("params", describeParams(cfg.Params)),
			zap.Error(err),
		)
		return nil, err
	}
	return s, nil
}

// Generate builds the named strategy and runs it over bars
func (e *Engine) Generate(name string, cfg Config, bars []core.OHLCV) (*Series, error) {
	s, err := e.New(name, cfg)
	if err != nil {
		return nil, err
	}

	series, err := s.GenerateSignals(bars)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("signals generated",
		zap.String("strategy", s.Name()),
		zap.Int("rows", series.Len()),
		zap.Int("warmup", s.Warmup()),
	)
	return series, nil
}

func errUnknown(name string, known []string) error {
	return fmt.Errorf("%q is not one of [%s]", name, strings.Join(known, ", "))
}

func describeParams(params map[string]any) string {
	return fmt.Sprintf("%v", params)
}
