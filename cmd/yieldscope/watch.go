package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yieldScope/internal/actions"
	"yieldScope/internal/amount"
	"yieldScope/internal/debounce"
	"yieldScope/internal/simerr"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-simulate an add-liquidity or swap preview as amounts are typed on stdin",
		RunE:  runWatch,
	}
	cmd.Flags().String("pool", "", "pool id")
	cmd.Flags().String("side", "", "swap side; empty previews add liquidity")
	cmd.Flags().Duration("debounce", debounce.DefaultDelay, "quiet period before simulating")
	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop, cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer stop()
	defer logger.Sync()

	poolID, _ := cmd.Flags().GetString("pool")
	pool, ok := cfg.Pool(poolID)
	if !ok {
		return fmt.Errorf("unknown pool %q", poolID)
	}
	var side actions.Side
	if s, _ := cmd.Flags().GetString("side"); s != "" {
		if side, err = actions.ParseSide(s); err != nil {
			return err
		}
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

	preview := func(ctx context.Context, q amount.Quantity) (any, error) {
		if side != "" {
			return a.engine.PreviewSwap(ctx, actions.SwapRequest{
				PoolID: pool.ID, Side: side, Amount: q, SlippagePct: cfg.Slippage,
			})
		}
		return a.engine.PreviewAddLiquidity(ctx, actions.AddRequest{
			PoolID: pool.ID, Amount: q, SlippagePct: cfg.Slippage,
		})
	}
	out := cmd.OutOrStdout()
	runner := debounce.New(cfg.Debounce, preview, func(q amount.Quantity, res any, err error) {
		if err != nil {
			fmt.Fprintf(out, "%s: %s\n", q, simerr.UserMessage(err))
			return
		}
		if err := printJSON(out, res); err != nil {
			logger.Warn("print preview", zap.Error(err))
		}
	}, logger)
	defer runner.Wait()
	defer runner.Cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	logger.Info("watch start",
		zap.String("pool", pool.ID),
		zap.String("side", string(side)),
		zap.Duration("debounce", cfg.Debounce),
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				// Wait blocks until the pending input has run.
				runner.Wait()
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				runner.Cancel()
				continue
			}
			q, err := amount.Parse(line, pool.Decimals)
			if err != nil {
				fmt.Fprintf(out, "%s: %v\n", line, err)
				continue
			}
			runner.Submit(ctx, q)
		}
	}
}
