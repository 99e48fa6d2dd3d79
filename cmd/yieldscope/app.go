package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"yieldScope/internal/actions"
	"yieldScope/internal/chain"
	"yieldScope/internal/config"
	"yieldScope/internal/metrics"
	"yieldScope/internal/metrics/cache"
	"yieldScope/internal/probe"
	"yieldScope/internal/simulate"
	"yieldScope/internal/storage"
	"yieldScope/internal/storage/postgres"
	"yieldScope/internal/voucher"
)

const probeStateName = "default"

// app holds the wired components shared by every command.
type app struct {
	cfg    config.Config
	logger *zap.Logger

	client *chain.Client
	pg     *postgres.Store
	jsonl  *storage.JsonlStorage
	memos  *probe.Memos
	store  probe.Store
	engine *actions.Engine
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if len(cfg.Pools) == 0 {
		return nil, fmt.Errorf("at least one pool is required")
	}

	a := &app{cfg: cfg, logger: logger, memos: probe.NewMemos()}

	client, err := chain.NewClient(ctx, cfg.RPCURL, chain.Options{
		Methods: chain.Methods{
			Simulate:     cfg.SimulateMethod,
			Submit:       cfg.SubmitMethod,
			GetObject:    cfg.GetObjectMethod,
			OwnedObjects: cfg.OwnedObjectsMethod,
		},
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	a.client = client

	if cfg.PGDSN != "" {
		pg, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.pg = pg
		if err := pg.EnsureSchema(ctx); err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.store = &probe.DBStore{Table: pg, Name: probeStateName}
	} else if cfg.ProbeState != "" {
		a.store = &probe.FileStore{Path: cfg.ProbeState}
	}
	if cfg.Diagnostics != "" {
		a.jsonl = storage.NewJsonlStorage(cfg.Diagnostics)
	}
	probe.LoadInto(ctx, a.store, a.memos, logger)

	exec := simulate.NewExecutor(client, simulate.Options{
		RateLimit: cfg.RateLimit,
		Burst:     cfg.RateBurst,
		Sink:      a.diagnosticSink(),
		Logger:    logger,
	})
	vouchers := voucher.OracleProvider{}
	pricer := metrics.NewPricer(exec, vouchers, a.memos, metrics.PricerOptions{
		Sender:     cfg.Sender,
		Magnitudes: cfg.ProbeMagnitudes,
		Logger:     logger,
	})
	calc := metrics.NewCalculator(pricer, metrics.Options{
		CrossCheck: cfg.CrossCheck,
		Divergence: cfg.Divergence,
		Logger:     logger,
	})
	metricsCache := cache.New(cache.Config{
		Size:   cfg.MetricsCacheSize,
		TTL:    cfg.MetricsTTL,
		Logger: logger,
	})

	a.engine = actions.NewEngine(client, exec, vouchers, pricer, calc, metricsCache, actions.Config{
		Sender: cfg.Sender,
		Pools:  cfg.Descriptors(),
		Logger: logger,
	})
	return a, nil
}

// diagnosticSink prefers Postgres and falls back to the JSONL file.
func (a *app) diagnosticSink() simulate.DiagnosticSink {
	switch {
	case a.pg != nil:
		return a.pg
	case a.jsonl != nil:
		return a.jsonl
	default:
		return nil
	}
}

func (a *app) metricsSink() storage.MetricsSink {
	switch {
	case a.pg != nil:
		return a.pg
	case a.jsonl != nil:
		return a.jsonl
	default:
		return nil
	}
}

// Close persists probe memos and releases connections.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.engine != nil {
		if err := probe.SaveFrom(context.WithoutCancel(ctx), a.store, a.memos); err != nil {
			errs = append(errs, err)
		}
	}
	if a.pg != nil {
		a.pg.Close()
	}
	if a.client != nil {
		a.client.Close()
	}
	return errors.Join(errs...)
}
