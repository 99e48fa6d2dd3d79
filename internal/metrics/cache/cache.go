// Package cache memoizes pool metrics for a fixed interval.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"yieldScope/internal/model"
)

const (
	DefaultTTL  = 60 * time.Second
	DefaultSize = 256
)

type Config struct {
	Size   int
	TTL    time.Duration
	Logger *zap.Logger
	Now    func() time.Time
}

// Cache holds PoolMetrics keyed by pool id. Concurrent misses for the same
// pool share one computation.
type Cache struct {
	entries *expirable.LRU[string, model.PoolMetrics]
	group   singleflight.Group
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger

	// gens counts invalidations per pool; a computation started under an
	// older generation is not stored.
	mu   sync.Mutex
	gens map[string]uint64

	hits   atomic.Uint64
	misses atomic.Uint64
}

func New(cfg Config) *Cache {
	if cfg.Size <= 0 {
		cfg.Size = DefaultSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Cache{
		entries: expirable.NewLRU[string, model.PoolMetrics](cfg.Size, nil, cfg.TTL),
		ttl:     cfg.TTL,
		now:     cfg.Now,
		logger:  cfg.Logger,
		gens:    make(map[string]uint64),
	}
}

// Get returns fresh metrics for poolID.
func (c *Cache) Get(poolID string) (model.PoolMetrics, bool) {
	m, ok := c.entries.Get(poolID)
	if ok && c.now().Sub(m.ComputedAt) < c.ttl {
		c.hits.Add(1)
		return m, true
	}
	if ok {
		c.entries.Remove(poolID)
	}
	c.misses.Add(1)
	return model.PoolMetrics{}, false
}

// Put stores metrics computed for poolID.
func (c *Cache) Put(poolID string, m model.PoolMetrics) {
	if m.ComputedAt.IsZero() {
		m.ComputedAt = c.now().UTC()
	}
	c.entries.Add(poolID, m)
}

// GetOrCompute returns cached metrics or computes, stores and returns them.
// Errors are not cached. The boolean reports a cache hit.
func (c *Cache) GetOrCompute(ctx context.Context, poolID string, compute func(context.Context) (model.PoolMetrics, error)) (model.PoolMetrics, bool, error) {
	if m, ok := c.Get(poolID); ok {
		return m, true, nil
	}
	v, err, shared := c.group.Do(poolID, func() (any, error) {
		gen := c.generation(poolID)
		m, err := compute(ctx)
		if err != nil {
			return model.PoolMetrics{}, err
		}
		if m.ComputedAt.IsZero() {
			m.ComputedAt = c.now().UTC()
		}
		c.mu.Lock()
		if c.gens[poolID] == gen {
			c.entries.Add(poolID, m)
		} else {
			c.logger.Debug("discarding metrics computed before invalidation", zap.String("pool", poolID))
		}
		c.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return model.PoolMetrics{}, false, err
	}
	if shared {
		c.logger.Debug("metrics computation shared", zap.String("pool", poolID))
	}
	return v.(model.PoolMetrics), false, nil
}

// Invalidate drops the entry for poolID, e.g. after a state-changing action.
func (c *Cache) Invalidate(poolID string) {
	c.mu.Lock()
	c.gens[poolID]++
	c.entries.Remove(poolID)
	c.mu.Unlock()
	c.group.Forget(poolID)
	c.logger.Debug("metrics invalidated", zap.String("pool", poolID))
}

func (c *Cache) Purge() { c.entries.Purge() }

func (c *Cache) generation(poolID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[poolID]
}

// Stats returns hit and miss counts.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
