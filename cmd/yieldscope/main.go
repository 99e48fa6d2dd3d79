package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"yieldScope/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "yieldscope",
		Short:        "Simulate and compose PT/YT market actions",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file path")
	pf.String("rpc", "", "ledger RPC URL")
	pf.String("sender", "", "sender address used for simulation")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("pg-dsn", "", "Postgres DSN for metrics, probe state and diagnostics")
	pf.String("diagnostics", "", "JSONL file for failed simulations and metric snapshots")
	pf.String("probe-state", "./data/probe_state.json", "probe memo state file")
	pf.Int("max-retries", 5, "maximum retry attempts for network errors")
	pf.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	pf.Float64("rate-limit", 5, "simulations per second, 0 disables limiting")
	pf.Bool("cross-check", false, "also price through the PT path and log divergence")

	root.AddCommand(newPreviewCmd(), newMetricsCmd(), newWatchCmd(), newServeCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and a logger for cmd and returns a context
// cancelled on SIGINT or SIGTERM.
func setup(cmd *cobra.Command) (context.Context, context.CancelFunc, config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, config.Config{}, nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, config.Config{}, nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx, stop, cfg, logger, nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
