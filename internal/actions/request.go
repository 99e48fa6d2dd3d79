package actions

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"yieldScope/internal/amount"
	"yieldScope/internal/model"
	"yieldScope/internal/simerr"
	"yieldScope/internal/simulate"
	"yieldScope/internal/slippage"
	"yieldScope/internal/txb"
)

var (
	ErrMatured    = errors.New("market has matured")
	ErrNotMatured = errors.New("market has not matured")
	ErrNoPosition = errors.New("no position for this market")
)

// buildFunc assembles an action's intent with the given minimum output.
type buildFunc func(minOut *big.Int) (*txb.Intent, error)

func validateAmount(field string, q amount.Quantity) error {
	if q.Convention() != amount.DecimalScaled {
		return &simerr.InputError{Field: field, Err: amount.ErrConventionMismatch}
	}
	if q.Sign() <= 0 {
		return &simerr.InputError{Field: field, Err: fmt.Errorf("%w: must be positive", amount.ErrInvalidAmount)}
	}
	return nil
}

func validateTolerance(pct decimal.Decimal) error {
	if err := slippage.ValidateTolerance(pct); err != nil {
		return &simerr.InputError{Field: "slippage", Err: err}
	}
	return nil
}

// bounded simulates the unbounded intent, reads the output named by read and
// rebuilds the intent with that output less the tolerance as its minimum.
func (e *Engine) bounded(ctx context.Context, label string, build buildFunc, tolerancePct decimal.Decimal, diag *simulate.Diagnostics, read func(*simulate.Outcome) (amount.Quantity, error)) (out, minOut amount.Quantity, final *txb.Intent, err error) {
	intent, err := build(zeroBound())
	if err != nil {
		return out, minOut, nil, err
	}
	outcome, err := e.exec.Simulate(ctx, label, intent)
	if err != nil {
		return out, minOut, nil, err
	}
	diag.Observe(outcome)
	out, err = read(outcome)
	if err != nil {
		return out, minOut, nil, err
	}
	minOut, err = slippage.MinOut(out, tolerancePct)
	if err != nil {
		return out, minOut, nil, err
	}
	final, err = build(minOut.BaseUnits())
	if err != nil {
		return out, minOut, nil, err
	}
	e.logger.Debug("preview bounded",
		zap.String("label", label),
		zap.String("out", out.String()),
		zap.String("min_out", minOut.String()),
	)
	return out, minOut, final, nil
}

func eventAmount(name string, decimals uint8) func(*simulate.Outcome) (amount.Quantity, error) {
	return func(o *simulate.Outcome) (amount.Quantity, error) { return o.EventAmount(name, decimals) }
}

func returnAmount(name string, decimals uint8) func(*simulate.Outcome) (amount.Quantity, error) {
	return func(o *simulate.Outcome) (amount.Quantity, error) { return o.Amount(name, decimals) }
}

func (e *Engine) checkOpen(pool model.PoolDescriptor) error {
	if pool.Expired(e.now()) {
		return fmt.Errorf("pool %s: %w", pool.ID, ErrMatured)
	}
	return nil
}
