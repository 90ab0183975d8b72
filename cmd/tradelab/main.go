package main

import (
	"fmt"
	"os"

	"github.com/newthinker/tradelab/internal/app"
	"github.com/newthinker/tradelab/internal/config"
	"github.com/newthinker/tradelab/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "tradelab",
	Short: "TradeLab - daily-bar strategy backtesting",
	Long: `TradeLab backtests trading strategies on daily price history.
It fetches bars, generates long/short/flat signals, simulates the
strategy with commission and reports performance metrics.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

// loadConfig reads the config file, or the defaults with environment
// overrides when no file is given, and validates it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level := cfg.Log.Level
	if debug {
		level = "debug"
	}
	return logger.NewWithLevel(debug || cfg.Log.Development, level)
}

// setup loads config and builds the logger and App shared by subcommands.
func setup() (*config.Config, *zap.Logger, *app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	a, err := app.New(cfg, log)
	if err != nil {
		log.Sync()
		return nil, nil, nil, fmt.Errorf("initializing: %w", err)
	}
	return cfg, log, a, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
