package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/tradelab/internal/backtest"
	"github.com/newthinker/tradelab/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrades() []backtest.Trade {
	entry := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	return []backtest.Trade{
		{
			Direction:  core.Long,
			EntryTime:  entry,
			ExitTime:   entry.AddDate(0, 0, 3),
			EntryPrice: 100,
			ExitPrice:  110,
			Bars:       3,
			Return:     0.1,
		},
		{
			Direction:  core.Short,
			EntryTime:  entry.AddDate(0, 0, 5),
			ExitTime:   entry.AddDate(0, 0, 6),
			EntryPrice: 110,
			ExitPrice:  99,
			Bars:       1,
			Return:     0.1,
			Open:       true,
		},
	}
}

func TestWriteTradesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTradesCSV(&buf, "SPY", sampleTrades()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, tradeHeader, records[0])
	assert.Equal(t, []string{
		"SPY", "long", "2024-01-02T00:00:00Z", "2024-01-05T00:00:00Z",
		"100", "110", "3", "10", "false",
	}, records[1])
	assert.Equal(t, "short", records[2][1])
	assert.Equal(t, "true", records[2][8])
}

func TestWriteTradesCSV_NoTrades(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTradesCSV(&buf, "SPY", nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestWriteTradesCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	require.NoError(t, WriteTradesCSVFile(path, "QQQ", sampleTrades()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "QQQ,long")
}
