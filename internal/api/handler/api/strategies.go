// internal/api/handler/api/strategies.go
package api

import (
	"net/http"

	"github.com/newthinker/tradelab/internal/api/response"
	"github.com/newthinker/tradelab/internal/app"
	"github.com/newthinker/tradelab/internal/strategy"
)

// StrategyInfo describes one registered strategy with its configured defaults.
type StrategyInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Warmup      int            `json:"warmup"`
	Params      map[string]any `json:"params,omitempty"`
}

// StrategiesHandler lists the available strategies.
type StrategiesHandler struct {
	app *app.App
}

// NewStrategiesHandler creates a new strategies handler.
func NewStrategiesHandler(a *app.App) *StrategiesHandler {
	return &StrategiesHandler{app: a}
}

// List returns every registered strategy built with its configured params.
func (h *StrategiesHandler) List(w http.ResponseWriter, r *http.Request) {
	engine := h.app.Strategies()

	infos := make([]StrategyInfo, 0)
	for _, name := range engine.Names() {
		params := h.app.StrategyParams(name)
		s, err := engine.New(name, strategy.Config{Params: params})
		if err != nil {
			continue
		}
		infos = append(infos, StrategyInfo{
			Name:        name,
			Description: s.Description(),
			Warmup:      s.Warmup(),
			Params:      params,
		})
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"strategies": infos,
		"count":      len(infos),
	})
}
