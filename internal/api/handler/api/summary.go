// internal/api/handler/api/summary.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/newthinker/tradelab/internal/api/response"
	"github.com/newthinker/tradelab/internal/app"
	"github.com/newthinker/tradelab/internal/backtest"
	"github.com/newthinker/tradelab/internal/core"
)

// SummaryRequest carries only what a summary may depend on.
type SummaryRequest struct {
	Symbol   string           `json:"symbol"`
	Strategy string           `json:"strategy"`
	Metrics  backtest.Metrics `json:"metrics"`
}

// SummaryHandler produces natural-language run summaries.
type SummaryHandler struct {
	app *app.App
}

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(a *app.App) *SummaryHandler {
	return &SummaryHandler{app: a}
}

// Create summarizes the posted metrics.
func (h *SummaryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req SummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, core.WrapError(core.ErrConfigInvalid, err))
		return
	}
	if req.Symbol == "" || req.Strategy == "" {
		response.Fail(w, core.WrapError(core.ErrConfigMissing, errors.New("symbol and strategy are required")))
		return
	}

	s := h.app.Summarize(r.Context(), req.Symbol, req.Strategy, req.Metrics)
	response.Raw(w, http.StatusOK, s)
}
