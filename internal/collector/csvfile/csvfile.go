// Package csvfile serves daily history from local CSV files, one file per
// symbol named <SYMBOL>.csv.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/tradelab/internal/collector"
	"github.com/newthinker/tradelab/internal/core"
)

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "01/02/2006"}

// Provider reads OHLCV rows from CSV files in a directory
type Provider struct {
	dir string
}

var _ collector.HistoryProvider = (*Provider)(nil)

// New creates a CSV provider rooted at cfg.Dir
func New(cfg collector.Config) (*Provider, error) {
	if cfg.Dir == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("csv provider requires a directory"))
	}
	return &Provider{dir: cfg.Dir}, nil
}

func (p *Provider) Name() string {
	return "csv"
}

// FetchHistory loads <dir>/<SYMBOL>.csv and returns rows inside the range.
// Rows are returned in file order; cleaning is left to the caller.
func (p *Provider) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if symbol == "" || strings.ContainsAny(symbol, `/\`) || strings.Contains(symbol, "..") {
		return nil, core.Configf("invalid symbol %q", symbol)
	}

	path := filepath.Join(p.dir, strings.ToUpper(symbol)+".csv")
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("no csv file for %s in %s", symbol, p.dir))
	}
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, err)
	}
	defer f.Close()

	bars, err := Parse(f, symbol, interval)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	filtered := bars[:0]
	for _, b := range bars {
		if collector.InRange(b.Time, start, end) {
			filtered = append(filtered, b)
		}
	}
	return filtered, nil
}

// Parse reads CSV rows with a header naming at least date and close columns.
// Header names are case-insensitive; open, high and low default to the close
// and volume to 0 when absent. Empty price cells are read as NaN.
func Parse(r io.Reader, symbol, interval string) ([]core.OHLCV, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, core.Schemaf("csv is empty")
	}
	if err != nil {
		return nil, core.Schemaf("reading header: %v", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	dateCol, ok := firstColumn(cols, "date", "timestamp", "time")
	if !ok {
		return nil, core.Schemaf("csv has no date column")
	}
	closeCol, ok := firstColumn(cols, "close", "adj close", "adj_close")
	if !ok {
		return nil, core.Schemaf("csv has no close column")
	}

	var bars []core.OHLCV
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, core.Schemaf("line %d: %v", line, err)
		}

		ts, err := parseDate(field(rec, dateCol))
		if err != nil {
			return nil, core.Schemaf("line %d: %v", line, err)
		}
		closePrice, err := parseFloat(field(rec, closeCol))
		if err != nil {
			return nil, core.Schemaf("line %d: close: %v", line, err)
		}

		bar := core.OHLCV{
			Symbol:   symbol,
			Interval: interval,
			Open:     closePrice,
			High:     closePrice,
			Low:      closePrice,
			Close:    closePrice,
			Time:     ts,
		}
		for name, dst := range map[string]*float64{"open": &bar.Open, "high": &bar.High, "low": &bar.Low, "volume": &bar.Volume} {
			col, ok := cols[name]
			if !ok {
				continue
			}
			if *dst, err = parseFloat(field(rec, col)); err != nil {
				return nil, core.Schemaf("line %d: %s: %v", line, name, err)
			}
		}
		bars = append(bars, bar)
	}

	return bars, nil
}

func firstColumn(cols map[string]int, names ...string) (int, bool) {
	for _, n := range names {
		if i, ok := cols[n]; ok {
			return i, true
		}
	}
	return 0, false
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return strings.TrimSpace(rec[i])
	}
	return ""
}

func parseFloat(s string) (float64, error) {
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "null") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
