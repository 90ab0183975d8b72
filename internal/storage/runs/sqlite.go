package runs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/tradelab/internal/core"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ Store = (*SQLiteStore)(nil)
var _ Store = (*MemoryStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	symbol          TEXT NOT NULL,
	strategy        TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	start_date      TEXT NOT NULL,
	end_date        TEXT NOT NULL,
	initial_capital REAL NOT NULL,
	commission_rate REAL NOT NULL,
	final_equity    REAL NOT NULL,
	metrics         TEXT NOT NULL,
	created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_symbol_strategy ON runs (symbol, strategy);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs (created_at);
`

// SQLiteStore persists run records in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and creates
// the runs table if it does not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dbPath, err)
	}
	// a single writer avoids SQLITE_BUSY under concurrent saves
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save inserts or replaces a run record.
func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return core.Configf("run record has no id")
	}
	metrics, err := json.Marshal(rec.Metrics)
	if err != nil {
		return fmt.Errorf("encoding metrics: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
			(id, symbol, strategy, description, start_date, end_date,
			 initial_capital, commission_rate, final_equity, metrics, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Symbol, rec.Strategy, rec.Description,
		rec.Start.UTC().Format(time.RFC3339), rec.End.UTC().Format(time.RFC3339),
		rec.InitialCapital, rec.CommissionRate, rec.FinalEquity,
		string(metrics), rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", rec.ID, err)
	}
	return nil
}

const selectColumns = `SELECT id, symbol, strategy, description, start_date, end_date,
	initial_capital, commission_rate, final_equity, metrics, created_at FROM runs`

// Get retrieves a single run by its ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns runs matching the filter, newest first.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]Record, error) {
	where, args := filterClause(filter)
	query := selectColumns + where + ` ORDER BY created_at DESC, id`

	limit := filter.Limit
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, max(filter.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	result := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	return result, rows.Err()
}

// Count returns the number of runs matching the filter.
func (s *SQLiteStore) Count(ctx context.Context, filter Filter) (int, error) {
	where, args := filterClause(filter)
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting runs: %w", err)
	}
	return n, nil
}

func filterClause(f Filter) (string, []any) {
	var conds []string
	var args []any
	if f.Symbol != "" {
		conds = append(conds, "symbol = ?")
		args = append(args, f.Symbol)
	}
	if f.Strategy != "" {
		conds = append(conds, "strategy = ?")
		args = append(args, f.Strategy)
	}
	if !f.From.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, f.From.UnixNano())
	}
	if !f.To.IsZero() {
		conds = append(conds, "created_at <= ?")
		args = append(args, f.To.UnixNano())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec              Record
		start, end, mets string
		created          int64
	)
	err := row.Scan(&rec.ID, &rec.Symbol, &rec.Strategy, &rec.Description, &start, &end,
		&rec.InitialCapital, &rec.CommissionRate, &rec.FinalEquity, &mets, &created)
	if err != nil {
		return nil, err
	}

	if rec.Start, err = time.Parse(time.RFC3339, start); err != nil {
		return nil, fmt.Errorf("run %s: start_date: %w", rec.ID, err)
	}
	if rec.End, err = time.Parse(time.RFC3339, end); err != nil {
		return nil, fmt.Errorf("run %s: end_date: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(mets), &rec.Metrics); err != nil {
		return nil, fmt.Errorf("run %s: metrics: %w", rec.ID, err)
	}
	rec.CreatedAt = time.Unix(0, created).UTC()
	return &rec, nil
}
