package report

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/newthinker/tradelab/internal/backtest"
)

var tradeHeader = []string{
	"symbol", "direction", "entry_time", "exit_time", "entry_price",
	"exit_price", "bars", "return_pct", "open",
}

// WriteTradesCSV writes one row per trade to w.
func WriteTradesCSV(w io.Writer, symbol string, trades []backtest.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradeHeader); err != nil {
		return err
	}
	for _, t := range trades {
		record := []string{
			symbol,
			t.Direction.String(),
			t.EntryTime.UTC().Format(time.RFC3339),
			t.ExitTime.UTC().Format(time.RFC3339),
			formatFloat(t.EntryPrice),
			formatFloat(t.ExitPrice),
			strconv.Itoa(t.Bars),
			formatFloat(t.Return * 100),
			strconv.FormatBool(t.Open),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTradesCSVFile creates path and writes the trades to it.
func WriteTradesCSVFile(path, symbol string, trades []backtest.Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteTradesCSV(f, symbol, trades); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
