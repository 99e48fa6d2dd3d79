package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yieldScope/internal/model"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache() (*Cache, *clock) {
	clk := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New(Config{TTL: time.Hour, Now: clk.Now}), clk
}

func TestGetOrComputeReadThrough(t *testing.T) {
	c, clk := newTestCache()
	// logical TTL is shorter than the LRU's so the injected clock decides
	c.ttl = 60 * time.Second
	calls := 0
	compute := func(ctx context.Context) (model.PoolMetrics, error) {
		calls++
		return model.PoolMetrics{PoolID: "pool-1", Tvl: decimal.NewFromInt(int64(calls)), ComputedAt: clk.Now()}, nil
	}

	m, hit, err := c.GetOrCompute(context.Background(), "pool-1", compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "1", m.Tvl.String())

	clk.Advance(59 * time.Second)
	m, hit, err = c.GetOrCompute(context.Background(), "pool-1", compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "1", m.Tvl.String())

	clk.Advance(time.Second)
	m, hit, err = c.GetOrCompute(context.Background(), "pool-1", compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "2", m.Tvl.String())
	assert.Equal(t, 2, calls)
}

func TestInvalidate(t *testing.T) {
	c, clk := newTestCache()
	c.Put("pool-1", model.PoolMetrics{PoolID: "pool-1", ComputedAt: clk.Now()})
	c.Put("pool-2", model.PoolMetrics{PoolID: "pool-2", ComputedAt: clk.Now()})

	c.Invalidate("pool-1")
	_, ok := c.Get("pool-1")
	assert.False(t, ok)
	_, ok = c.Get("pool-2")
	assert.True(t, ok)

	hits, misses := c.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestErrorsAreNotCached(t *testing.T) {
	c, clk := newTestCache()
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), "pool-1", func(ctx context.Context) (model.PoolMetrics, error) {
		return model.PoolMetrics{}, boom
	})
	assert.ErrorIs(t, err, boom)

	m, hit, err := c.GetOrCompute(context.Background(), "pool-1", func(ctx context.Context) (model.PoolMetrics, error) {
		return model.PoolMetrics{PoolID: "pool-1", ComputedAt: clk.Now()}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "pool-1", m.PoolID)
}

func TestConcurrentMissesShareComputation(t *testing.T) {
	c, clk := newTestCache()
	var calls atomic.Int32
	release := make(chan struct{})
	compute := func(ctx context.Context) (model.PoolMetrics, error) {
		calls.Add(1)
		<-release
		return model.PoolMetrics{PoolID: "pool-1", ComputedAt: clk.Now()}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrCompute(context.Background(), "pool-1", compute)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(8))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))

	_, hit, err := c.GetOrCompute(context.Background(), "pool-1", compute)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestInvalidateDuringComputationDropsResult(t *testing.T) {
	c, clk := newTestCache()
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan model.PoolMetrics)
	go func() {
		m, _, err := c.GetOrCompute(context.Background(), "pool-1", func(ctx context.Context) (model.PoolMetrics, error) {
			close(started)
			<-release
			return model.PoolMetrics{PoolID: "pool-1", PriceSource: "before-submit", ComputedAt: clk.Now()}, nil
		})
		assert.NoError(t, err)
		done <- m
	}()

	<-started
	c.Invalidate("pool-1")
	close(release)
	m := <-done
	assert.Equal(t, "before-submit", m.PriceSource)

	_, ok := c.Get("pool-1")
	assert.False(t, ok)

	fresh, hit, err := c.GetOrCompute(context.Background(), "pool-1", func(ctx context.Context) (model.PoolMetrics, error) {
		return model.PoolMetrics{PoolID: "pool-1", PriceSource: "after-submit", ComputedAt: clk.Now()}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "after-submit", fresh.PriceSource)

	cached, ok := c.Get("pool-1")
	require.True(t, ok)
	assert.Equal(t, "after-submit", cached.PriceSource)
}
