package runs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/tradelab/internal/backtest"
	"github.com/newthinker/tradelab/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func record(id, symbol, strategy string, offset time.Duration) Record {
	return Record{
		ID:             id,
		Symbol:         symbol,
		Strategy:       strategy,
		Description:    "MA Crossover (50/200)",
		Start:          time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		End:            time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
		InitialCapital: 100000,
		CommissionRate: 0.001,
		FinalEquity:    112345.67,
		Metrics: backtest.Metrics{
			TotalReturn:      0.1234567,
			AnnualizedReturn: 0.03,
			SharpeRatio:      0.85,
			MaxDrawdown:      -0.2,
			WinRate:          0.52,
			TotalTrades:      14,
		},
		CreatedAt: t0.Add(offset),
	}
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(100),
		"sqlite": sqlite,
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := record("run-1", "SPY", "ma_crossover", 0)
			require.NoError(t, store.Save(ctx, want))

			got, err := store.Get(ctx, "run-1")
			require.NoError(t, err)
			assert.Equal(t, want.Metrics, got.Metrics)
			assert.Equal(t, want.Symbol, got.Symbol)
			assert.Equal(t, want.Description, got.Description)
			assert.True(t, want.Start.Equal(got.Start))
			assert.True(t, want.End.Equal(got.End))
			assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
			assert.Equal(t, want.FinalEquity, got.FinalEquity)

			_, err = store.Get(ctx, "missing")
			assert.True(t, errors.Is(err, core.ErrRunNotFound))
		})
	}
}

func TestStore_SaveReplaces(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rec := record("run-1", "SPY", "ma_crossover", 0)
			require.NoError(t, store.Save(ctx, rec))
			rec.FinalEquity = 1
			require.NoError(t, store.Save(ctx, rec))

			n, err := store.Count(ctx, Filter{})
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			got, err := store.Get(ctx, "run-1")
			require.NoError(t, err)
			assert.Equal(t, 1.0, got.FinalEquity)
		})
	}
}

func TestStore_RejectsEmptyID(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := store.Save(context.Background(), record("", "SPY", "ma_crossover", 0))
			assert.True(t, errors.Is(err, core.ErrConfigInvalid))
		})
	}
}

func TestStore_List(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Save(ctx, record("a", "SPY", "ma_crossover", 0)))
			require.NoError(t, store.Save(ctx, record("b", "QQQ", "mean_reversion", time.Hour)))
			require.NoError(t, store.Save(ctx, record("c", "SPY", "mean_reversion", 2*time.Hour)))

			all, err := store.List(ctx, Filter{})
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, []string{"c", "b", "a"}, ids(all), "newest first")

			spy, err := store.List(ctx, Filter{Symbol: "SPY"})
			require.NoError(t, err)
			assert.Equal(t, []string{"c", "a"}, ids(spy))

			mr, err := store.List(ctx, Filter{Strategy: "mean_reversion"})
			require.NoError(t, err)
			assert.Equal(t, []string{"c", "b"}, ids(mr))

			recent, err := store.List(ctx, Filter{From: t0.Add(30 * time.Minute)})
			require.NoError(t, err)
			assert.Equal(t, []string{"c", "b"}, ids(recent))

			old, err := store.List(ctx, Filter{To: t0.Add(30 * time.Minute)})
			require.NoError(t, err)
			assert.Equal(t, []string{"a"}, ids(old))

			page, err := store.List(ctx, Filter{Limit: 1, Offset: 1})
			require.NoError(t, err)
			assert.Equal(t, []string{"b"}, ids(page))

			none, err := store.List(ctx, Filter{Offset: 10})
			require.NoError(t, err)
			assert.Empty(t, none)

			n, err := store.Count(ctx, Filter{Symbol: "SPY"})
			require.NoError(t, err)
			assert.Equal(t, 2, n)
		})
	}
}

func TestMemoryStore_EvictsOldest(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Save(ctx, record(fmt.Sprintf("run-%d", i), "SPY", "ma_crossover", time.Duration(i)*time.Minute)))
	}

	all, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"run-4", "run-3", "run-2"}, ids(all))

	_, err = store.Get(ctx, "run-0")
	assert.ErrorIs(t, err, core.ErrRunNotFound)
}

func TestSQLiteStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()

	first, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, record("keep", "SPY", "ma_crossover", 0)))
	require.NoError(t, first.Close())

	second, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.Get(ctx, "keep")
	require.NoError(t, err)
	assert.Equal(t, 14, got.Metrics.TotalTrades)
}

func TestFromResult(t *testing.T) {
	result := &backtest.Result{
		ID:          "abc",
		Symbol:      "SPY",
		Strategy:    "ma_crossover",
		StartDate:   t0,
		EndDate:     t0.AddDate(1, 0, 0),
		FinalEquity: 101,
		Metrics:     backtest.Metrics{TotalTrades: 3},
		Curve:       &backtest.EquityCurve{},
		CreatedAt:   t0,
	}

	rec := FromResult(result)
	assert.Equal(t, "abc", rec.ID)
	assert.Equal(t, t0, rec.Start)
	assert.Equal(t, 3, rec.Metrics.TotalTrades)
	assert.Equal(t, 101.0, rec.FinalEquity)
}

func TestOpen(t *testing.T) {
	s, err := Open("memory", "", 10)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open("sqlite", filepath.Join(t.TempDir(), "h.db"), 0)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	s.Close()

	_, err = Open("sqlite", "", 0)
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
	_, err = Open("postgres", "x", 0)
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}

func ids(recs []Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}
