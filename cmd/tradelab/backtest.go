package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/newthinker/tradelab/internal/app"
	"github.com/newthinker/tradelab/internal/backtest"
	"github.com/newthinker/tradelab/internal/config"
	"github.com/newthinker/tradelab/internal/report"
	"github.com/spf13/cobra"
)

var (
	backtestSymbol     string
	backtestStrategy   string
	backtestStart      string
	backtestEnd        string
	backtestCapital    float64
	backtestCommission float64
	backtestParams     []string
	backtestSummary    bool
	backtestTradesCSV  string
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a strategy backtest",
	Long: `Run a strategy against daily history and show performance metrics.
Dates, capital, commission and strategy params default to the config file.`,
	Example: `  tradelab backtest --symbol SPY --strategy ma_crossover
  tradelab backtest --symbol AAPL --strategy mean_reversion --param window=30 --summary`,
	Args: cobra.NoArgs,
	RunE: runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&backtestSymbol, "symbol", "", "Symbol to backtest (required)")
	backtestCmd.Flags().StringVar(&backtestStrategy, "strategy", "ma_crossover", "Strategy name")
	backtestCmd.Flags().StringVar(&backtestStart, "start", "", "Start date YYYY-MM-DD")
	backtestCmd.Flags().StringVar(&backtestEnd, "end", "", "End date YYYY-MM-DD")
	backtestCmd.Flags().Float64Var(&backtestCapital, "capital", 0, "Initial capital (must be positive; config default when unset)")
	backtestCmd.Flags().Float64Var(&backtestCommission, "commission", 0, "Commission rate per position change")
	backtestCmd.Flags().StringArrayVar(&backtestParams, "param", nil, "Strategy parameter key=value (repeatable)")
	backtestCmd.Flags().BoolVar(&backtestSummary, "summary", false, "Print a natural-language summary")
	backtestCmd.Flags().StringVar(&backtestTradesCSV, "trades-csv", "", "Write trades to this CSV file")

	backtestCmd.MarkFlagRequired("symbol")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	req, err := backtestRequest(cmd)
	if err != nil {
		return err
	}

	_, log, a, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()
	defer a.Close()

	ctx := cmd.Context()
	result, err := a.Backtest(ctx, req)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	out := cmd.OutOrStdout()
	printResult(out, result)

	if backtestTradesCSV != "" {
		if err := report.WriteTradesCSVFile(backtestTradesCSV, result.Symbol, result.Trades); err != nil {
			return fmt.Errorf("writing trades: %w", err)
		}
		fmt.Fprintf(out, "\nTrades written to %s\n", backtestTradesCSV)
	}

	if backtestSummary {
		s := a.Summarize(ctx, result.Symbol, result.Strategy, result.Metrics)
		fmt.Fprintf(out, "\n%s\n", s.Text)
	}
	return nil
}

func backtestRequest(cmd *cobra.Command) (app.Request, error) {
	start, err := config.ParseDate(backtestStart)
	if err != nil {
		return app.Request{}, err
	}
	end, err := config.ParseDate(backtestEnd)
	if err != nil {
		return app.Request{}, err
	}
	params, err := parseParams(backtestParams)
	if err != nil {
		return app.Request{}, err
	}

	req := app.Request{
		Symbol:   strings.ToUpper(strings.TrimSpace(backtestSymbol)),
		Strategy: backtestStrategy,
		Params:   params,
		Start:    start,
		End:      end,
	}
	if cmd.Flags().Changed("capital") {
		capital := backtestCapital
		req.InitialCapital = &capital
	}
	if cmd.Flags().Changed("commission") {
		commission := backtestCommission
		req.Commission = &commission
	}
	return req, nil
}

// parseParams turns key=value pairs into strategy params. Values stay
// strings; strategies convert them to the type they need.
func parseParams(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q, expected key=value", pair)
		}
		params[key] = strings.TrimSpace(value)
	}
	return params, nil
}

func printResult(w io.Writer, r *backtest.Result) {
	fmt.Fprintln(w, "=== TradeLab Backtest ===")
	fmt.Fprintf(w, "Strategy: %s\n", r.Description)
	fmt.Fprintf(w, "Symbol:   %s\n", r.Symbol)
	fmt.Fprintf(w, "Period:   %s to %s (%d bars)\n",
		r.StartDate.Format(config.DateLayout), r.EndDate.Format(config.DateLayout), r.Curve.Len())
	fmt.Fprintf(w, "Capital:  %.2f -> %.2f\n", r.InitialCapital, r.FinalEquity)
	fmt.Fprintln(w)

	for _, l := range report.Lines(r.Metrics) {
		fmt.Fprintf(w, "%-18s %s\n", l.Label+":", l.Value)
	}

	closed := 0
	for _, t := range r.Trades {
		if t.IsClosed() {
			closed++
		}
	}
	fmt.Fprintf(w, "%-18s %d (%d closed)\n", "Holdings:", len(r.Trades), closed)
	fmt.Fprintf(w, "\nRun ID: %s\n", r.ID)
}
