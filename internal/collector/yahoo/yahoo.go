package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/newthinker/tradelab/internal/collector"
	"github.com/newthinker/tradelab/internal/core"
)

const (
	baseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
)

// validSymbol matches symbols like AAPL, BRK-B, ^GSPC, 600519.SH, 0700.HK
var validSymbol = regexp.MustCompile(`^\^?[A-Za-z0-9-]{1,10}(\.[A-Za-z]{1,4})?$`)

// validateSymbol checks if a symbol has valid format
func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if len(symbol) > 20 {
		return fmt.Errorf("symbol too long: %s", symbol)
	}
	if !validSymbol.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

// Yahoo fetches split and dividend adjusted daily history from the Yahoo
// Finance chart API
type Yahoo struct {
	client  *http.Client
	baseURL string
}

var _ collector.HistoryProvider = (*Yahoo)(nil)

// New creates a new Yahoo provider
func New(cfg collector.Config) *Yahoo {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	y := &Yahoo{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
	if cfg.BaseURL != "" {
		y.baseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	return y
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// toYahooSymbol converts internal symbol format to Yahoo format
func (y *Yahoo) toYahooSymbol(symbol string) string {
	// Shanghai stocks: 600519.SH -> 600519.SS
	if strings.HasSuffix(symbol, ".SH") {
		return strings.TrimSuffix(symbol, ".SH") + ".SS"
	}
	return symbol
}

// FetchHistory fetches daily OHLCV data. Prices are scaled by the adjusted
// close so splits and dividends do not show up as returns.
func (y *Yahoo) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, err)
	}

	period2 := time.Now()
	if !end.IsZero() {
		// period2 is exclusive
		period2 = end.AddDate(0, 0, 1)
	}
	query := url.Values{}
	query.Set("interval", y.toYahooInterval(interval))
	query.Set("period1", fmt.Sprint(start.Unix()))
	query.Set("period2", fmt.Sprint(period2.Unix()))
	query.Set("events", "div,splits")
	if start.IsZero() {
		query.Set("period1", "0")
	}

	reqURL := fmt.Sprintf("%s/%s?%s", y.baseURL, url.PathEscape(y.toYahooSymbol(symbol)), query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "tradelab/1.0")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("fetching history: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("yahoo: %s", symbol))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	var result chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("decoding response: %w", err))
	}

	if result.Chart.Error != nil {
		if result.Chart.Error.Code == "Not Found" {
			return nil, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("yahoo: %s", result.Chart.Error.Description))
		}
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("yahoo error: %s", result.Chart.Error.Description))
	}

	if len(result.Chart.Result) == 0 {
		return nil, core.ErrNoData
	}

	return parseChart(symbol, interval, result.Chart.Result[0], start, end), nil
}

// parseChart converts a chart result into bars dated at UTC midnight of the
// exchange-local trading day. Rows with a missing close are skipped.
func parseChart(symbol, interval string, r chartResult, start, end time.Time) []core.OHLCV {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	quotes := r.Indicators.Quote[0]

	var adjusted []*float64
	if len(r.Indicators.AdjClose) > 0 {
		adjusted = r.Indicators.AdjClose[0].AdjClose
	}

	data := make([]core.OHLCV, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		closePrice := at(quotes.Close, i)
		if closePrice == nil || *closePrice == 0 {
			continue
		}

		factor := 1.0
		if adj := at(adjusted, i); adj != nil {
			factor = *adj / *closePrice
		}

		local := time.Unix(ts+r.Meta.GMTOffset, 0).UTC()
		day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
		if !collector.InRange(day, start, end) {
			continue
		}

		data = append(data, core.OHLCV{
			Symbol:   symbol,
			Interval: interval,
			Open:     value(at(quotes.Open, i), *closePrice) * factor,
			High:     value(at(quotes.High, i), *closePrice) * factor,
			Low:      value(at(quotes.Low, i), *closePrice) * factor,
			Close:    *closePrice * factor,
			Volume:   value(at(quotes.Volume, i), 0),
			Time:     day,
		})
	}

	return data
}

func at(values []*float64, i int) *float64 {
	if i < len(values) {
		return values[i]
	}
	return nil
}

func value(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func (y *Yahoo) toYahooInterval(interval string) string {
	switch interval {
	case "1wk", "1mo":
		return interval
	default:
		return "1d"
	}
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol    string `json:"symbol"`
	Currency  string `json:"currency"`
	GMTOffset int64  `json:"gmtoffset"`
}

type indicators struct {
	Quote    []quoteIndicator `json:"quote"`
	AdjClose []struct {
		AdjClose []*float64 `json:"adjclose"`
	} `json:"adjclose"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}
