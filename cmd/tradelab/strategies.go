package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/newthinker/tradelab/internal/strategy"
	"github.com/spf13/cobra"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List available strategies",
	RunE:  runStrategies,
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}

func runStrategies(cmd *cobra.Command, args []string) error {
	_, log, a, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()
	defer a.Close()

	engine := a.Strategies()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION\tWARMUP\tPARAMS")
	for _, name := range engine.Names() {
		params := a.StrategyParams(name)
		s, err := engine.New(name, strategy.Config{Params: params})
		if err != nil {
			fmt.Fprintf(w, "%s\t(invalid params: %v)\t\t%v\n", name, err, params)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%v\n", name, s.Description(), s.Warmup(), params)
	}
	return w.Flush()
}
