// internal/api/handler/api/backtest.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/newthinker/tradelab/internal/api/job"
	"github.com/newthinker/tradelab/internal/api/response"
	"github.com/newthinker/tradelab/internal/app"
	"github.com/newthinker/tradelab/internal/backtest"
	"github.com/newthinker/tradelab/internal/config"
	"github.com/newthinker/tradelab/internal/core"
	"github.com/newthinker/tradelab/internal/report"
	"go.uber.org/zap"
)

const backtestTimeout = 5 * time.Minute

// BacktestRequest is the request body for running a backtest.
type BacktestRequest struct {
	Symbol         string         `json:"symbol"`
	Strategy       string         `json:"strategy"`
	StartDate      string         `json:"start_date"`
	EndDate        string         `json:"end_date"`
	Params         map[string]any `json:"params,omitempty"`
	InitialCapital *float64       `json:"initial_capital,omitempty"`
	Commission     *float64       `json:"commission,omitempty"`
	TrimWarmup     bool           `json:"trim_warmup,omitempty"`
}

func (r BacktestRequest) toRequest() (app.Request, error) {
	if r.Symbol == "" || r.Strategy == "" {
		return app.Request{}, core.WrapError(core.ErrConfigMissing,
			errors.New("symbol and strategy are required"))
	}
	start, err := config.ParseDate(r.StartDate)
	if err != nil {
		return app.Request{}, err
	}
	end, err := config.ParseDate(r.EndDate)
	if err != nil {
		return app.Request{}, err
	}
	return app.Request{
		Symbol:         r.Symbol,
		Strategy:       r.Strategy,
		Params:         r.Params,
		Start:          start,
		End:            end,
		InitialCapital: r.InitialCapital,
		Commission:     r.Commission,
	}, nil
}

// BacktestResponse is the presentation of a finished run.
type BacktestResponse struct {
	ID             string              `json:"id"`
	Symbol         string              `json:"symbol"`
	Strategy       string              `json:"strategy"`
	Description    string              `json:"description"`
	StartDate      string              `json:"start_date"`
	EndDate        string              `json:"end_date"`
	InitialCapital float64             `json:"initial_capital"`
	FinalEquity    float64             `json:"final_equity"`
	Metrics        backtest.Metrics    `json:"metrics"`
	Formatted      map[string]string   `json:"formatted"`
	ChartData      []report.ChartPoint `json:"chart_data"`
	Trades         []backtest.Trade    `json:"trades"`
}

// NewBacktestResponse renders result for the API.
func NewBacktestResponse(result *backtest.Result, trimWarmup bool) BacktestResponse {
	trades := result.Trades
	if trades == nil {
		trades = []backtest.Trade{}
	}
	return BacktestResponse{
		ID:             result.ID,
		Symbol:         result.Symbol,
		Strategy:       result.Strategy,
		Description:    result.Description,
		StartDate:      result.StartDate.Format(config.DateLayout),
		EndDate:        result.EndDate.Format(config.DateLayout),
		InitialCapital: result.InitialCapital,
		FinalEquity:    result.FinalEquity,
		Metrics:        result.Metrics,
		Formatted:      report.Format(result.Metrics),
		ChartData:      report.ChartPoints(result.Curve, trimWarmup),
		Trades:         trades,
	}
}

// BacktestHandler handles backtest API requests.
type BacktestHandler struct {
	app    *app.App
	jobs   *job.Store
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewBacktestHandler creates a new backtest handler.
func NewBacktestHandler(a *app.App, jobs *job.Store, logger *zap.Logger) *BacktestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BacktestHandler{app: a, jobs: jobs, logger: logger}
}

func decodeBacktest(r *http.Request) (BacktestRequest, app.Request, error) {
	var body BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return body, app.Request{}, core.WrapError(core.ErrConfigInvalid, err)
	}
	req, err := body.toRequest()
	return body, req, err
}

// Run executes a backtest synchronously and returns the rendered result.
func (h *BacktestHandler) Run(w http.ResponseWriter, r *http.Request) {
	body, req, err := decodeBacktest(r)
	if err != nil {
		response.Fail(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), backtestTimeout)
	defer cancel()

	result, err := h.app.Backtest(ctx, req)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.Raw(w, http.StatusOK, NewBacktestResponse(result, body.TrimWarmup))
}

// Create starts a new backtest job.
func (h *BacktestHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, req, err := decodeBacktest(r)
	if err != nil {
		response.Fail(w, err)
		return
	}

	j := h.jobs.Create("backtest")
	h.app.Metrics().JobStarted()

	h.wg.Add(1)
	go h.runJob(j.ID, req, body.TrimWarmup)

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": j.ID,
		"status": j.Status,
	})
}

func (h *BacktestHandler) runJob(jobID string, req app.Request, trimWarmup bool) {
	defer h.wg.Done()
	defer h.app.Metrics().JobFinished()

	h.jobs.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
	})

	ctx, cancel := context.WithTimeout(context.Background(), backtestTimeout)
	defer cancel()

	result, err := h.app.Backtest(ctx, req)
	if err != nil {
		h.logger.Warn("backtest job failed", zap.String("job_id", jobID), zap.Error(err))
		h.jobs.Update(jobID, func(j *job.Job) {
			j.Status = job.StatusFailed
			j.Error = asCoreError(err)
		})
		return
	}

	h.jobs.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusComplete
		j.Progress = 100
		j.Result = NewBacktestResponse(result, trimWarmup)
	})
}

// Wait blocks until all started jobs have finished.
func (h *BacktestHandler) Wait() {
	h.wg.Wait()
}

// GetStatus returns the status of a backtest job.
func (h *BacktestHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobs.Get(r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}

	resp := map[string]any{
		"job_id":   j.ID,
		"status":   j.Status,
		"progress": j.Progress,
	}
	if j.Status == job.StatusComplete {
		resp["result"] = j.Result
	}
	if j.Status == job.StatusFailed && j.Error != nil {
		resp["error"] = response.Detail(j.Error)
	}

	response.JSON(w, http.StatusOK, resp)
}

func asCoreError(err error) *core.Error {
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		return coreErr
	}
	return core.WrapError(core.ErrStrategyFailed, err)
}
