// Package actions composes user actions into intents, previews them by
// simulation and submits the bounded result.
package actions

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"yieldScope/internal/metrics"
	"yieldScope/internal/metrics/cache"
	"yieldScope/internal/model"
	"yieldScope/internal/simerr"
	"yieldScope/internal/simulate"
	"yieldScope/internal/voucher"
)

// Ledger is the read and submit surface of the ledger node.
type Ledger interface {
	PoolState(ctx context.Context, pool model.PoolDescriptor) (model.PoolState, error)
	PyPositions(ctx context.Context, owner string, pool model.PoolDescriptor) ([]model.PyPosition, error)
	LPPositions(ctx context.Context, owner string, pool model.PoolDescriptor) ([]model.LPPosition, error)
	Submit(ctx context.Context, intentBytes []byte, signature string) (string, error)
}

// Signer produces a signature for intent bytes. Wallet integration lives
// outside this module.
type Signer interface {
	Sign(ctx context.Context, intentBytes []byte) (string, error)
}

type Config struct {
	Sender string
	Pools  []model.PoolDescriptor
	Logger *zap.Logger
	Now    func() time.Time
}

// Engine runs the composite actions for one sender.
type Engine struct {
	ledger   Ledger
	exec     *simulate.Executor
	vouchers voucher.Provider
	pricer   *metrics.Pricer
	calc     *metrics.Calculator
	cache    *cache.Cache
	pools    map[string]model.PoolDescriptor
	sender   string
	logger   *zap.Logger
	now      func() time.Time
}

func NewEngine(ledger Ledger, exec *simulate.Executor, vouchers voucher.Provider, pricer *metrics.Pricer, calc *metrics.Calculator, metricsCache *cache.Cache, cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	if metricsCache == nil {
		metricsCache = cache.New(cache.Config{Logger: logger})
	}
	pools := make(map[string]model.PoolDescriptor, len(cfg.Pools))
	for _, p := range cfg.Pools {
		pools[p.ID] = p
	}
	return &Engine{
		ledger:   ledger,
		exec:     exec,
		vouchers: vouchers,
		pricer:   pricer,
		calc:     calc,
		cache:    metricsCache,
		pools:    pools,
		sender:   cfg.Sender,
		logger:   logger,
		now:      now,
	}
}

func (e *Engine) Sender() string { return e.sender }

// Pools returns the configured pools in no particular order.
func (e *Engine) Pools() []model.PoolDescriptor {
	out := make([]model.PoolDescriptor, 0, len(e.pools))
	for _, p := range e.pools {
		out = append(out, p)
	}
	return out
}

func (e *Engine) pool(id string) (model.PoolDescriptor, error) {
	p, ok := e.pools[id]
	if !ok {
		return model.PoolDescriptor{}, &simerr.InputError{Field: "pool", Err: fmt.Errorf("unknown pool %q", id)}
	}
	return p, nil
}

// Metrics returns cached or freshly computed metrics for pool.
func (e *Engine) Metrics(ctx context.Context, poolID string, quote model.MarketQuote) (model.PoolMetrics, error) {
	pool, err := e.pool(poolID)
	if err != nil {
		return model.PoolMetrics{}, err
	}
	m, hit, err := e.cache.GetOrCompute(ctx, pool.ID, func(ctx context.Context) (model.PoolMetrics, error) {
		state, err := e.ledger.PoolState(ctx, pool)
		if err != nil {
			return model.PoolMetrics{}, err
		}
		res, err := e.calc.Compute(ctx, pool, state, quote)
		if err != nil {
			return model.PoolMetrics{}, err
		}
		return res.Value, nil
	})
	if err != nil {
		return model.PoolMetrics{}, fmt.Errorf("metrics %s: %w", pool.ID, err)
	}
	e.logger.Debug("metrics served", zap.String("pool", pool.ID), zap.Bool("cached", hit))
	return m, nil
}

// poolContext is the fresh ledger view an action is built against.
type poolContext struct {
	pool  model.PoolDescriptor
	state model.PoolState
	py    []model.PyPosition
}

func (e *Engine) load(ctx context.Context, pool model.PoolDescriptor) (poolContext, error) {
	state, err := e.ledger.PoolState(ctx, pool)
	if err != nil {
		return poolContext{}, err
	}
	py, err := e.ledger.PyPositions(ctx, e.sender, pool)
	if err != nil {
		return poolContext{}, err
	}
	return poolContext{pool: pool, state: state, py: sameMaturityPy(py, pool.MaturityMs)}, nil
}

func sameMaturityPy(positions []model.PyPosition, maturityMs int64) []model.PyPosition {
	out := make([]model.PyPosition, 0, len(positions))
	for _, p := range positions {
		if p.MaturityMs == maturityMs {
			out = append(out, p)
		}
	}
	return out
}
