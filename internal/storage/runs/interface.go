// Package runs keeps a history of completed backtest runs.
package runs

import (
	"context"
	"strings"
	"time"

	"github.com/newthinker/tradelab/internal/backtest"
	"github.com/newthinker/tradelab/internal/core"
)

// Record is the summary of one run. Raw price series and equity curves are
// archived separately and never stored here.
type Record struct {
	ID             string           `json:"id"`
	Symbol         string           `json:"symbol"`
	Strategy       string           `json:"strategy"`
	Description    string           `json:"description"`
	Start          time.Time        `json:"start_date"`
	End            time.Time        `json:"end_date"`
	InitialCapital float64          `json:"initial_capital"`
	CommissionRate float64          `json:"commission_rate"`
	FinalEquity    float64          `json:"final_equity"`
	Metrics        backtest.Metrics `json:"metrics"`
	CreatedAt      time.Time        `json:"created_at"`
}

// FromResult extracts the history record of a finished run
func FromResult(r *backtest.Result) Record {
	return Record{
		ID:             r.ID,
		Symbol:         r.Symbol,
		Strategy:       r.Strategy,
		Description:    r.Description,
		Start:          r.StartDate,
		End:            r.EndDate,
		InitialCapital: r.InitialCapital,
		CommissionRate: r.CommissionRate,
		FinalEquity:    r.FinalEquity,
		Metrics:        r.Metrics,
		CreatedAt:      r.CreatedAt,
	}
}

// Store defines the interface for run history persistence.
type Store interface {
	// Save persists a record. Saving an existing ID replaces it.
	Save(ctx context.Context, rec Record) error

	// Get retrieves a record by its ID.
	Get(ctx context.Context, id string) (*Record, error)

	// List retrieves records matching the filter, newest first.
	List(ctx context.Context, filter Filter) ([]Record, error)

	// Count returns the number of records matching the filter.
	Count(ctx context.Context, filter Filter) (int, error)

	Close() error
}

// Filter defines criteria for listing runs.
type Filter struct {
	Symbol   string
	Strategy string
	From     time.Time // on CreatedAt
	To       time.Time
	Limit    int
	Offset   int
}

func (f Filter) matches(rec Record) bool {
	if f.Symbol != "" && rec.Symbol != f.Symbol {
		return false
	}
	if f.Strategy != "" && rec.Strategy != f.Strategy {
		return false
	}
	if !f.From.IsZero() && rec.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && rec.CreatedAt.After(f.To) {
		return false
	}
	return true
}

// Open returns the store named by kind: "memory" or "sqlite".
func Open(kind, path string, maxSize int) (Store, error) {
	switch strings.ToLower(kind) {
	case "", "memory":
		return NewMemoryStore(maxSize), nil
	case "sqlite":
		if path == "" {
			return nil, core.Configf("sqlite history requires a path")
		}
		return NewSQLiteStore(path)
	default:
		return nil, core.Configf("unknown history store %q", kind)
	}
}
