package metrics

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

const precision = 18

// maxExponent bounds e^t; larger results are not meaningful rates.
var maxExponent = decimal.NewFromInt(80)

var (
	ErrPowDomain   = errors.New("power base must be positive")
	ErrPowOverflow = errors.New("power result out of range")
)

var (
	one          = decimal.NewFromInt(1)
	daysPerYear  = decimal.NewFromInt(365)
	secondsInDay = decimal.NewFromInt(86400)
	ytFeeFactor  = decimal.RequireFromString("0.95")
)

// pow returns x^y for x > 0 as exp(y * ln x).
func pow(x, y decimal.Decimal) (decimal.Decimal, error) {
	if !x.IsPositive() {
		return decimal.Zero, ErrPowDomain
	}
	if y.IsZero() || x.Equal(one) {
		return one, nil
	}
	ln, err := x.Ln(precision)
	if err != nil {
		return decimal.Zero, err
	}
	t := ln.Mul(y)
	if t.Abs().GreaterThan(maxExponent) {
		return decimal.Zero, ErrPowOverflow
	}
	return t.ExpTaylor(precision)
}

// compound annualizes a period return: (1+r)^(periods) - 1.
func compound(r, periods decimal.Decimal) (decimal.Decimal, error) {
	v, err := pow(one.Add(r), periods)
	if err != nil {
		return decimal.Zero, err
	}
	return v.Sub(one), nil
}

// PriceImpact returns max(0, 1 - exec/spot), zero when spot is not positive.
func PriceImpact(execRate, spotRate decimal.Decimal) decimal.Decimal {
	if !spotRate.IsPositive() {
		return decimal.Zero
	}
	impact := one.Sub(execRate.Div(spotRate))
	if impact.IsNegative() {
		return decimal.Zero
	}
	return impact
}

func safeDiv(num, den decimal.Decimal) (decimal.Decimal, bool) {
	if den.IsZero() {
		return decimal.Zero, false
	}
	return num.Div(den), true
}

func fromU64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}
