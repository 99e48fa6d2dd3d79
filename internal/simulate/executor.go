// Package simulate runs built intents in non-committing mode and exposes
// their results through the intent's named bindings.
package simulate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"yieldScope/internal/chain"
	"yieldScope/internal/model"
	"yieldScope/internal/simerr"
	"yieldScope/internal/txb"
)

// Simulator is the ledger's non-committing execution endpoint.
type Simulator interface {
	Simulate(ctx context.Context, intent *txb.Intent) (*chain.SimulateResponse, error)
}

// DiagnosticSink records failed simulations.
type DiagnosticSink interface {
	Write(ctx context.Context, d model.SimulationDiagnostic) error
}

type Options struct {
	// RateLimit caps simulations per second; zero disables limiting.
	RateLimit float64
	Burst     int
	Sink      DiagnosticSink
	Logger    *zap.Logger
}

// Executor simulates intents, classifies failures and checks bindings.
type Executor struct {
	sim     Simulator
	limiter *rate.Limiter
	sink    DiagnosticSink
	logger  *zap.Logger
	calls   atomic.Int64
}

func NewExecutor(sim Simulator, opts Options) *Executor {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return &Executor{sim: sim, limiter: limiter, sink: opts.Sink, logger: logger}
}

// Calls returns the number of simulations issued.
func (e *Executor) Calls() int64 { return e.calls.Load() }

// Simulate runs intent. A ledger rejection is a *simerr.SimulationError; a
// response missing a bound value is a *simerr.DecodeInvariantError.
func (e *Executor) Simulate(ctx context.Context, label string, intent *txb.Intent) (*Outcome, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("simulate %s: %w", label, err)
		}
	}
	e.calls.Add(1)
	start := time.Now()
	resp, err := e.sim.Simulate(ctx, intent)
	if err != nil {
		e.record(ctx, label, intent, err, nil)
		return nil, fmt.Errorf("simulate %s: %w", label, err)
	}
	if resp.Error != "" {
		simErr := &simerr.SimulationError{Message: resp.Error, Steps: intent.Describe(), Raw: resp.Raw}
		e.record(ctx, label, intent, simErr, resp.Raw)
		return nil, fmt.Errorf("simulate %s: %w", label, simErr)
	}

	out := &Outcome{intent: intent, resp: resp}
	if err := out.check(); err != nil {
		e.record(ctx, label, intent, err, resp.Raw)
		return nil, fmt.Errorf("simulate %s: %w", label, err)
	}
	e.logger.Debug("simulation ok",
		zap.String("label", label),
		zap.Int("steps", len(intent.Commands)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

func (e *Executor) record(ctx context.Context, label string, intent *txb.Intent, err error, raw json.RawMessage) {
	kind := model.DiagnosticSimulation
	var decodeErr *simerr.DecodeInvariantError
	var netErr *simerr.NetworkError
	switch {
	case errors.As(err, &decodeErr):
		kind = model.DiagnosticDecode
		e.logger.Error("decode invariant violated",
			zap.String("label", label),
			zap.Strings("steps", intent.Describe()),
			zap.Error(err),
		)
	case errors.As(err, &netErr):
		kind = model.DiagnosticNetwork
		e.logger.Warn("simulation transport failed", zap.String("label", label), zap.Error(err))
	default:
		e.logger.Debug("simulation rejected", zap.String("label", label), zap.Error(err))
	}
	if e.sink == nil {
		return
	}
	d := model.SimulationDiagnostic{
		Kind:     kind,
		Label:    label,
		Sender:   intent.Sender,
		Steps:    intent.Describe(),
		Error:    err.Error(),
		Raw:      raw,
		Occurred: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if werr := e.sink.Write(ctx, d); werr != nil {
		e.logger.Warn("write diagnostic failed", zap.Error(werr))
	}
}
