package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/newthinker/tradelab/internal/config"
	"github.com/newthinker/tradelab/internal/report"
	"github.com/newthinker/tradelab/internal/storage/runs"
	"github.com/spf13/cobra"
)

var (
	historySymbol   string
	historyStrategy string
	historyLimit    int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past backtest runs",
	Long:  "List runs from the history store, newest first. Only persistent (sqlite) history survives between invocations.",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historySymbol, "symbol", "", "Filter by symbol")
	historyCmd.Flags().StringVar(&historyStrategy, "strategy", "", "Filter by strategy")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	_, log, a, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()
	defer a.Close()

	records, err := a.History().List(cmd.Context(), runs.Filter{
		Symbol:   historySymbol,
		Strategy: historyStrategy,
		Limit:    historyLimit,
	})
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tSYMBOL\tSTRATEGY\tPERIOD\tRETURN\tSHARPE\tMAX DD\tID")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s..%s\t%s\t%s\t%s\t%s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.Symbol,
			r.Strategy,
			r.Start.Format(config.DateLayout),
			r.End.Format(config.DateLayout),
			report.Percent(r.Metrics.TotalReturn),
			report.Ratio(r.Metrics.SharpeRatio),
			report.Percent(r.Metrics.MaxDrawdown),
			r.ID,
		)
	}
	return w.Flush()
}
