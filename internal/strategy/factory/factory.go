// internal/strategy/factory/factory.go
package factory

import (
	"github.com/newthinker/tradelab/internal/strategy"
	"github.com/newthinker/tradelab/internal/strategy/ma_crossover"
	"github.com/newthinker/tradelab/internal/strategy/mean_reversion"
	"go.uber.org/zap"
)

// NewEngine creates a strategy engine with the built-in strategies registered.
func NewEngine(logger *zap.Logger) *strategy.Engine {
	e := strategy.NewEngine(logger)
	e.Register(ma_crossover.Default, "momentum", "sma_crossover")
	e.Register(mean_reversion.Default, "zscore", "z_score")
	return e
}

// New builds a configured built-in strategy by name.
func New(name string, params map[string]any) (strategy.Strategy, error) {
	return NewEngine(nil).New(name, strategy.Config{Params: params})
}
