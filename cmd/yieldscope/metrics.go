package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yieldScope/internal/config"
	"yieldScope/internal/model"
)

func newMetricsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Compute pool prices, APYs and TVL",
		RunE:  runMetrics,
	}
	cmd.Flags().String("pool", "", "pool id, empty computes every configured pool")
	cmd.Flags().Duration("interval", 0, "recompute on this interval until interrupted, 0 runs once")
	cmd.Flags().Duration("metrics-ttl", 60*time.Second, "metrics cache lifetime")
	return cmd
}

func runMetrics(cmd *cobra.Command, _ []string) error {
	ctx, stop, cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer stop()
	defer logger.Sync()

	pools := cfg.Pools
	if id, _ := cmd.Flags().GetString("pool"); id != "" {
		pool, ok := cfg.Pool(id)
		if !ok {
			return fmt.Errorf("unknown pool %q", id)
		}
		pools = []config.PoolConfig{pool}
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(ctx); err != nil {
			logger.Warn("close", zap.Error(err))
		}
	}()

	interval, _ := cmd.Flags().GetDuration("interval")
	for {
		snapshot := make([]model.PoolMetrics, 0, len(pools))
		for _, pool := range pools {
			m, err := a.engine.Metrics(ctx, pool.ID, pool.Quote)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Warn("metrics failed", zap.String("pool", pool.ID), zap.Error(err))
				continue
			}
			snapshot = append(snapshot, m)
		}
		if err := printJSON(cmd.OutOrStdout(), snapshot); err != nil {
			return err
		}
		if sink := a.metricsSink(); sink != nil && len(snapshot) > 0 {
			if err := sink.PutMetrics(ctx, snapshot); err != nil {
				logger.Warn("store metrics failed", zap.Error(err))
			}
		}

		if interval <= 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			logger.Info("metrics loop stopped")
			return nil
		case <-time.After(interval):
		}
	}
}
