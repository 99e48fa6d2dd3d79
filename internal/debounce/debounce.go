// Package debounce coalesces rapid input changes into one simulation and
// drops results that a newer input has superseded.
package debounce

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultDelay is the quiet period before a simulation starts.
const DefaultDelay = 500 * time.Millisecond

// Runner debounces inputs of type I into runs producing O. Only the result
// of the latest input is delivered.
type Runner[I, O any] struct {
	delay   time.Duration
	run     func(ctx context.Context, input I) (O, error)
	deliver func(input I, out O, err error)
	logger  *zap.Logger

	mu     sync.Mutex
	timer  *time.Timer
	latest atomic.Uint64
	wg     sync.WaitGroup
}

// New returns a Runner. deliver is called once per run that was not
// superseded; it must not block for long.
func New[I, O any](delay time.Duration, run func(ctx context.Context, input I) (O, error), deliver func(input I, out O, err error), logger *zap.Logger) *Runner[I, O] {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner[I, O]{delay: delay, run: run, deliver: deliver, logger: logger}
}

// Submit records input. A pending timer is stopped; any in-flight run is left
// to finish and its result is discarded.
func (r *Runner[I, O]) Submit(ctx context.Context, input I) uint64 {
	token := r.latest.Add(1)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil && r.timer.Stop() {
		r.wg.Done()
	}
	r.wg.Add(1)
	r.timer = time.AfterFunc(r.delay, func() {
		defer r.wg.Done()
		if r.latest.Load() != token {
			return
		}
		out, err := r.run(ctx, input)
		if r.latest.Load() != token {
			r.logger.Debug("discarding superseded result", zap.Uint64("token", token))
			return
		}
		r.deliver(input, out, err)
	})
	return token
}

// Latest returns the token of the newest input.
func (r *Runner[I, O]) Latest() uint64 { return r.latest.Load() }

// Cancel supersedes any pending or in-flight run without a new input.
func (r *Runner[I, O]) Cancel() {
	r.latest.Add(1)
	r.mu.Lock()
	if r.timer != nil && r.timer.Stop() {
		r.wg.Done()
	}
	r.timer = nil
	r.mu.Unlock()
}

// Wait blocks until every started run has returned.
func (r *Runner[I, O]) Wait() {
	r.wg.Wait()
}
