package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"yieldScope/internal/actions"
	"yieldScope/internal/amount"
	"yieldScope/internal/chain"
	"yieldScope/internal/config"
	"yieldScope/internal/simerr"
)

func newPreviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Simulate an action and print the bounded intent",
	}
	cmd.PersistentFlags().String("pool", "", "pool id")
	cmd.PersistentFlags().String("slippage", "", "slippage tolerance in percent (default from config)")
	cmd.PersistentFlags().Bool("steps", false, "print the call graph of a failed simulation")

	add := &cobra.Command{Use: "add", Short: "Add liquidity from the underlying asset", RunE: previewAdd}
	add.Flags().String("amount", "", "underlying amount")
	add.Flags().StringSlice("coin", nil, "underlying coin ids (comma-separated), empty uses the gas coin")
	add.Flags().Bool("prefer-mint", false, "mint PT and add both sides when the pool allows it")

	mint := &cobra.Command{Use: "mint", Short: "Mint PT and YT from the underlying asset", RunE: previewMint}
	mint.Flags().String("amount", "", "underlying amount")
	mint.Flags().StringSlice("coin", nil, "underlying coin ids (comma-separated), empty uses the gas coin")

	remove := &cobra.Command{Use: "remove", Short: "Remove liquidity", RunE: previewRemove}
	remove.Flags().String("lp", "", "LP amount, empty removes everything")
	remove.Flags().Bool("to-underlying", false, "unwrap SY into the underlying asset")

	redeem := &cobra.Command{Use: "redeem", Short: "Redeem PT and YT", RunE: previewRedeem}
	redeem.Flags().String("pt", "", "PT amount")
	redeem.Flags().String("yt", "", "YT amount")
	redeem.Flags().Bool("to-underlying", false, "unwrap SY into the underlying asset")

	swap := &cobra.Command{Use: "swap", Short: "Buy or sell PT or YT", RunE: previewSwap}
	swap.Flags().String("side", "", "buy-pt, buy-yt, sell-pt or sell-yt")
	swap.Flags().String("amount", "", "underlying amount when buying, PT or YT amount when selling")
	swap.Flags().StringSlice("coin", nil, "input coin ids (comma-separated)")
	swap.Flags().Bool("to-underlying", false, "unwrap sale proceeds into the underlying asset")

	cmd.AddCommand(add, mint, remove, redeem, swap)
	return cmd
}

// previewRun is the shared body of the preview subcommands.
type previewRun func(ctx context.Context, a *app, pool config.PoolConfig, flags *pflag.FlagSet) (any, error)

func runPreview(cmd *cobra.Command, name string, run previewRun) error {
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

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(ctx); err != nil {
			logger.Warn("close", zap.Error(err))
		}
	}()

	out, err := run(ctx, a, pool, cmd.Flags())
	if err != nil {
		logger.Info("preview failed", zap.String("action", name), zap.String("pool", pool.ID), zap.Error(err))
		if steps, _ := cmd.Flags().GetBool("steps"); steps {
			for _, s := range simerr.Steps(err) {
				fmt.Fprintln(cmd.ErrOrStderr(), s)
			}
		}
		return fmt.Errorf("%s: %s", name, simerr.UserMessage(err))
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func previewAdd(cmd *cobra.Command, _ []string) error {
	return runPreview(cmd, "add liquidity", func(ctx context.Context, a *app, pool config.PoolConfig, flags *pflag.FlagSet) (any, error) {
		req := actions.AddRequest{PoolID: pool.ID}
		var err error
		if req.Amount, err = amountFlag(flags, "amount", pool.Decimals); err != nil {
			return nil, err
		}
		if req.Coins, err = coinsFlag(flags); err != nil {
			return nil, err
		}
		if req.SlippagePct, err = slippageFlag(flags, a.cfg.Slippage); err != nil {
			return nil, err
		}
		req.PreferMint, _ = flags.GetBool("prefer-mint")
		return a.engine.PreviewAddLiquidity(ctx, req)
	})
}

func previewMint(cmd *cobra.Command, _ []string) error {
	return runPreview(cmd, "mint", func(ctx context.Context, a *app, pool config.PoolConfig, flags *pflag.FlagSet) (any, error) {
		req := actions.MintRequest{PoolID: pool.ID}
		var err error
		if req.Amount, err = amountFlag(flags, "amount", pool.Decimals); err != nil {
			return nil, err
		}
		if req.Coins, err = coinsFlag(flags); err != nil {
			return nil, err
		}
		return a.engine.PreviewMint(ctx, req)
	})
}

func previewRemove(cmd *cobra.Command, _ []string) error {
	return runPreview(cmd, "remove liquidity", func(ctx context.Context, a *app, pool config.PoolConfig, flags *pflag.FlagSet) (any, error) {
		req := actions.RemoveRequest{PoolID: pool.ID, LpAmount: amount.Zero(pool.Decimals)}
		var err error
		if lp, _ := flags.GetString("lp"); lp != "" {
			if req.LpAmount, err = amountFlag(flags, "lp", pool.Decimals); err != nil {
				return nil, err
			}
		}
		if req.SlippagePct, err = slippageFlag(flags, a.cfg.Slippage); err != nil {
			return nil, err
		}
		req.ToUnderlying, _ = flags.GetBool("to-underlying")
		return a.engine.PreviewRemoveLiquidity(ctx, req)
	})
}

func previewRedeem(cmd *cobra.Command, _ []string) error {
	return runPreview(cmd, "redeem", func(ctx context.Context, a *app, pool config.PoolConfig, flags *pflag.FlagSet) (any, error) {
		req := actions.RedeemRequest{
			PoolID:   pool.ID,
			PtAmount: amount.Zero(pool.Decimals),
			YtAmount: amount.Zero(pool.Decimals),
		}
		var err error
		if pt, _ := flags.GetString("pt"); pt != "" {
			if req.PtAmount, err = amountFlag(flags, "pt", pool.Decimals); err != nil {
				return nil, err
			}
		}
		if yt, _ := flags.GetString("yt"); yt != "" {
			if req.YtAmount, err = amountFlag(flags, "yt", pool.Decimals); err != nil {
				return nil, err
			}
		}
		if req.SlippagePct, err = slippageFlag(flags, a.cfg.Slippage); err != nil {
			return nil, err
		}
		req.ToUnderlying, _ = flags.GetBool("to-underlying")
		return a.engine.PreviewRedeem(ctx, req)
	})
}

func previewSwap(cmd *cobra.Command, _ []string) error {
	return runPreview(cmd, "swap", func(ctx context.Context, a *app, pool config.PoolConfig, flags *pflag.FlagSet) (any, error) {
		side, _ := flags.GetString("side")
		req := actions.SwapRequest{PoolID: pool.ID}
		var err error
		if req.Side, err = actions.ParseSide(side); err != nil {
			return nil, err
		}
		if req.Amount, err = amountFlag(flags, "amount", pool.Decimals); err != nil {
			return nil, err
		}
		if req.Coins, err = coinsFlag(flags); err != nil {
			return nil, err
		}
		if req.SlippagePct, err = slippageFlag(flags, a.cfg.Slippage); err != nil {
			return nil, err
		}
		req.ToUnderlying, _ = flags.GetBool("to-underlying")
		return a.engine.PreviewSwap(ctx, req)
	})
}

func amountFlag(flags *pflag.FlagSet, name string, decimals uint8) (amount.Quantity, error) {
	s, _ := flags.GetString(name)
	q, err := amount.Parse(s, decimals)
	if err != nil {
		return amount.Quantity{}, &simerr.InputError{Field: name, Err: err}
	}
	return q, nil
}

func coinsFlag(flags *pflag.FlagSet) ([]string, error) {
	coins, _ := flags.GetStringSlice("coin")
	ids, err := chain.ParseObjectIDs(coins)
	if err != nil {
		return nil, &simerr.InputError{Field: "coin", Err: err}
	}
	return ids, nil
}

func slippageFlag(flags *pflag.FlagSet, fallback decimal.Decimal) (decimal.Decimal, error) {
	s, _ := flags.GetString("slippage")
	if s == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &simerr.InputError{Field: "slippage", Err: err}
	}
	return d, nil
}
