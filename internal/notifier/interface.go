// Package notifier delivers run-completed events to external sinks.
package notifier

import (
	"context"
	"time"

	"github.com/newthinker/tradelab/internal/backtest"
)

// EventRunCompleted is sent after a backtest finished and was recorded.
const EventRunCompleted = "run.completed"

// Event describes a finished backtest
type Event struct {
	Type        string           `json:"type"`
	RunID       string           `json:"run_id"`
	Symbol      string           `json:"symbol"`
	Strategy    string           `json:"strategy"`
	StartDate   string           `json:"start_date"`
	EndDate     string           `json:"end_date"`
	FinalEquity float64          `json:"final_equity"`
	Metrics     backtest.Metrics `json:"metrics"`
	CreatedAt   time.Time        `json:"created_at"`
}

// RunCompleted builds the event for a finished result.
func RunCompleted(r *backtest.Result) Event {
	return Event{
		Type:        EventRunCompleted,
		RunID:       r.ID,
		Symbol:      r.Symbol,
		Strategy:    r.Strategy,
		StartDate:   r.StartDate.Format("2006-01-02"),
		EndDate:     r.EndDate.Format("2006-01-02"),
		FinalEquity: r.FinalEquity,
		Metrics:     r.Metrics,
		CreatedAt:   r.CreatedAt,
	}
}

// Notifier defines the interface for run notification
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Notify delivers one event
	Notify(ctx context.Context, ev Event) error
}
