// Package slippage derives minimum-acceptable outputs from simulated ones.
package slippage

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"yieldScope/internal/amount"
)

var (
	ErrTolerance = errors.New("slippage tolerance must be within [0, 100]")
	ErrNegative  = errors.New("simulated output is negative")
)

var hundred = decimal.NewFromInt(100)

// ValidateTolerance checks a percentage tolerance.
func ValidateTolerance(tolerancePct decimal.Decimal) error {
	if tolerancePct.IsNegative() || tolerancePct.GreaterThan(hundred) {
		return fmt.Errorf("%w: %s", ErrTolerance, tolerancePct)
	}
	return nil
}

// MinOut returns out * (1 - tolerance/100) floored to the token's base
// unit. Flooring only loosens the bound.
func MinOut(out amount.Quantity, tolerancePct decimal.Decimal) (amount.Quantity, error) {
	if err := ValidateTolerance(tolerancePct); err != nil {
		return amount.Quantity{}, err
	}
	if out.Convention() != amount.DecimalScaled {
		return amount.Quantity{}, fmt.Errorf("%w: min out of %s value", amount.ErrConventionMismatch, out.Convention())
	}
	if out.Sign() < 0 {
		return amount.Quantity{}, ErrNegative
	}
	factor := decimal.NewFromInt(1).Sub(tolerancePct.Div(hundred))
	return out.MulDecimal(factor).Floor(), nil
}

// MinOutBaseUnits is MinOut as a base-unit integer for call arguments.
func MinOutBaseUnits(out amount.Quantity, tolerancePct decimal.Decimal) (*big.Int, error) {
	q, err := MinOut(out, tolerancePct)
	if err != nil {
		return nil, err
	}
	return q.BaseUnits(), nil
}
