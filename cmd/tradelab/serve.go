package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/tradelab/internal/api"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the TradeLab HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, a, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()
	defer a.Close()

	if cfgFile == "" {
		log.Warn("no config file specified, using defaults")
	}

	server, err := api.NewServer(api.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		APIKey:         cfg.Server.APIKey,
		JobTTL:         time.Duration(cfg.Server.JobTTLHours) * time.Hour,
		MaxJobs:        cfg.Server.MaxJobs,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsPath:    cfg.Metrics.Path,
		Version:        Version,
	}, api.Dependencies{App: a}, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	log.Info("starting TradeLab server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("auth", cfg.Server.APIKey != ""),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info("shutting down TradeLab server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(ctx)
}
