package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yieldScope/internal/model"
	"yieldScope/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve metrics and previews over HTTP",
		RunE:  runServe,
	}
	cmd.Flags().String("listen", ":8080", "listen address")
	cmd.Flags().String("api-key", "", "require this X-API-Key on every request")
	cmd.Flags().Bool("dev", false, "include call graphs in error responses")
	cmd.Flags().Float64("preview-rate", 2, "preview requests per second per client, 0 disables limiting")
	cmd.Flags().Duration("request-timeout", 60*time.Second, "per-request timeout")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop, cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer stop()
	defer logger.Sync()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(ctx); err != nil {
			logger.Warn("close", zap.Error(err))
		}
	}()

	quotes := make(map[string]model.MarketQuote, len(cfg.Pools))
	for _, p := range cfg.Pools {
		quotes[p.ID] = p.Quote
	}
	dev, _ := cmd.Flags().GetBool("dev")
	previewRate, _ := cmd.Flags().GetFloat64("preview-rate")
	timeout, _ := cmd.Flags().GetDuration("request-timeout")

	srvCfg := server.ServerConfig{
		Addr:         cfg.Listen,
		DevMode:      dev,
		APIKey:       cfg.APIKey,
		PreviewRate:  previewRate,
		PreviewBurst: int(previewRate) + 1,
	}
	srv, err := server.NewServer(server.ServerDeps{
		Handlers: &server.Handlers{
			Engine:   a.engine,
			Quotes:   quotes,
			Slippage: cfg.Slippage,
			Timeout:  timeout,
			DevMode:  dev,
			Logger:   logger,
		},
		Config: srvCfg,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server start", zap.String("addr", cfg.Listen), zap.Int("pools", len(cfg.Pools)))
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("http server stopping")
	if err := srv.Shutdown(context.WithoutCancel(ctx)); err != nil {
		logger.Warn("http server shutdown", zap.Error(err))
	}
	return nil
}
