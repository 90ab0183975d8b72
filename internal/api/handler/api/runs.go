// internal/api/handler/api/runs.go
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/newthinker/tradelab/internal/api/response"
	"github.com/newthinker/tradelab/internal/app"
	"github.com/newthinker/tradelab/internal/config"
	"github.com/newthinker/tradelab/internal/core"
	"github.com/newthinker/tradelab/internal/storage/runs"
)

const (
	defaultRunsLimit = 50
	maxRunsLimit     = 500
)

// RunsHandler serves the run history.
type RunsHandler struct {
	app *app.App
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(a *app.App) *RunsHandler {
	return &RunsHandler{app: a}
}

// List returns runs matching the query, newest first.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseRunsFilter(r)
	if err != nil {
		response.Fail(w, err)
		return
	}

	records, err := h.app.History().List(r.Context(), filter)
	if err != nil {
		response.Fail(w, err)
		return
	}
	total, err := h.app.History().Count(r.Context(), runs.Filter{
		Symbol:   filter.Symbol,
		Strategy: filter.Strategy,
		From:     filter.From,
		To:       filter.To,
	})
	if err != nil {
		response.Fail(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"runs":   records,
		"count":  len(records),
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// Get returns one run record.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.app.History().Get(r.Context(), r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, rec)
}

// Result returns the archived full result of a run.
func (h *RunsHandler) Result(w http.ResponseWriter, r *http.Request) {
	result, err := h.app.LoadResult(r.Context(), r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, NewBacktestResponse(result, r.URL.Query().Get("trim_warmup") == "true"))
}

func parseRunsFilter(r *http.Request) (runs.Filter, error) {
	q := r.URL.Query()
	filter := runs.Filter{
		Symbol:   q.Get("symbol"),
		Strategy: q.Get("strategy"),
		Limit:    defaultRunsLimit,
	}

	var err error
	if filter.From, err = parseTime(q.Get("from")); err != nil {
		return filter, err
	}
	if filter.To, err = parseTime(q.Get("to")); err != nil {
		return filter, err
	}

	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			return filter, core.Configf("limit must be a positive integer, got %q", limit)
		}
		filter.Limit = min(n, maxRunsLimit)
	}
	if offset := q.Get("offset"); offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 {
			return filter, core.Configf("offset must be a non-negative integer, got %q", offset)
		}
		filter.Offset = n
	}
	return filter, nil
}

// parseTime accepts RFC 3339 timestamps or YYYY-MM-DD dates.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return config.ParseDate(s)
}
