package amount

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Convention identifies how a raw ledger integer maps to a decimal value.
type Convention uint8

const (
	// DecimalScaled values are integers scaled by 10^decimals (token amounts).
	DecimalScaled Convention = iota
	// BinaryFixed64 values are Q64.64 integers scaled by 2^64 (rates, indexes).
	BinaryFixed64
)

// MaxDecimals bounds the decimal precision accepted for token amounts.
const MaxDecimals = 36

var (
	ErrConventionMismatch = errors.New("quantity convention mismatch")
	ErrInvalidDecimals    = errors.New("decimals out of range")
	ErrDivisionByZero     = errors.New("division by zero quantity")
	ErrInvalidAmount      = errors.New("invalid amount")
)

var (
	two64    = new(big.Int).Lsh(big.NewInt(1), 64)
	five64   = new(big.Int).Exp(big.NewInt(5), big.NewInt(64), nil)
	two64Dec = decimal.NewFromBigInt(two64, 0)
)

func (c Convention) String() string {
	switch c {
	case DecimalScaled:
		return "decimal"
	case BinaryFixed64:
		return "fixed64"
	default:
		return fmt.Sprintf("convention(%d)", uint8(c))
	}
}

// Quantity is an exact decimal value tagged with the convention and scale it
// was decoded from. Arithmetic between quantities refuses to mix conventions.
type Quantity struct {
	value      decimal.Decimal
	convention Convention
	decimals   uint8
}

// FromBaseUnits converts an integer amount in base units into a token quantity.
func FromBaseUnits(raw *big.Int, decimals uint8) Quantity {
	if raw == nil {
		raw = big.NewInt(0)
	}
	return Quantity{
		value:      decimal.NewFromBigInt(raw, -int32(decimals)),
		convention: DecimalScaled,
		decimals:   decimals,
	}
}

// FromUint64 is FromBaseUnits for a u64 ledger value.
func FromUint64(raw uint64, decimals uint8) Quantity {
	return FromBaseUnits(new(big.Int).SetUint64(raw), decimals)
}

// FromFixed64 converts a Q64.64 integer into its exact decimal value.
// raw / 2^64 == raw * 5^64 / 10^64, so no precision is lost.
func FromFixed64(raw *big.Int) Quantity {
	if raw == nil {
		raw = big.NewInt(0)
	}
	scaled := new(big.Int).Mul(raw, five64)
	return Quantity{
		value:      decimal.NewFromBigInt(scaled, -64),
		convention: BinaryFixed64,
	}
}

// FromDecimal wraps a human-scale decimal as a token quantity.
func FromDecimal(value decimal.Decimal, decimals uint8) Quantity {
	return Quantity{value: value, convention: DecimalScaled, decimals: decimals}
}

// Zero returns a zero token quantity with the given scale.
func Zero(decimals uint8) Quantity {
	return Quantity{value: decimal.Zero, convention: DecimalScaled, decimals: decimals}
}

// Parse reads a human-entered amount such as "100000.25". More fractional
// digits than the token supports is an error rather than a silent truncation.
func Parse(input string, decimals uint8) (Quantity, error) {
	if decimals > MaxDecimals {
		return Quantity{}, fmt.Errorf("%w: %d", ErrInvalidDecimals, decimals)
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return Quantity{}, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	value, err := decimal.NewFromString(input)
	if err != nil {
		return Quantity{}, fmt.Errorf("%w: %s", ErrInvalidAmount, input)
	}
	if value.IsNegative() {
		return Quantity{}, fmt.Errorf("%w: negative %s", ErrInvalidAmount, input)
	}
	if -value.Exponent() > int32(decimals) && !value.Equal(value.Truncate(int32(decimals))) {
		return Quantity{}, fmt.Errorf("%w: %s has more than %d decimals", ErrInvalidAmount, input, decimals)
	}
	return FromDecimal(value, decimals), nil
}

// Value returns the exact, unrounded value.
func (q Quantity) Value() decimal.Decimal { return q.value }

func (q Quantity) Convention() Convention { return q.convention }

func (q Quantity) Decimals() uint8 { return q.decimals }

func (q Quantity) IsZero() bool { return q.value.IsZero() }

func (q Quantity) Sign() int { return q.value.Sign() }

// BaseUnits floors the value back into the raw ledger integer.
func (q Quantity) BaseUnits() *big.Int {
	if q.convention == BinaryFixed64 {
		return q.value.Mul(two64Dec).Floor().BigInt()
	}
	return q.value.Shift(int32(q.decimals)).Floor().BigInt()
}

// Floor drops precision below one base unit.
func (q Quantity) Floor() Quantity {
	if q.convention == BinaryFixed64 {
		return FromFixed64(q.BaseUnits())
	}
	q.value = q.value.RoundFloor(int32(q.decimals))
	return q
}

// Display rounds half-up to places for presentation only.
func (q Quantity) Display(places int32) string {
	return q.value.Round(places).StringFixed(places)
}

func (q Quantity) String() string {
	if q.convention == DecimalScaled {
		return q.value.StringFixed(int32(q.decimals))
	}
	return q.value.String()
}

// MulDecimal scales the quantity by a dimensionless factor.
func (q Quantity) MulDecimal(factor decimal.Decimal) Quantity {
	q.value = q.value.Mul(factor)
	return q
}

func (q Quantity) compatible(o Quantity) error {
	if q.convention != o.convention {
		return fmt.Errorf("%w: %s vs %s", ErrConventionMismatch, q.convention, o.convention)
	}
	if q.convention == DecimalScaled && q.decimals != o.decimals {
		return fmt.Errorf("%w: decimals %d vs %d", ErrConventionMismatch, q.decimals, o.decimals)
	}
	return nil
}

func (q Quantity) Add(o Quantity) (Quantity, error) {
	if err := q.compatible(o); err != nil {
		return Quantity{}, err
	}
	q.value = q.value.Add(o.value)
	return q, nil
}

func (q Quantity) Sub(o Quantity) (Quantity, error) {
	if err := q.compatible(o); err != nil {
		return Quantity{}, err
	}
	q.value = q.value.Sub(o.value)
	return q, nil
}

func (q Quantity) Cmp(o Quantity) (int, error) {
	if err := q.compatible(o); err != nil {
		return 0, err
	}
	return q.value.Cmp(o.value), nil
}

// Ratio returns q/o as a dimensionless decimal.
func (q Quantity) Ratio(o Quantity) (decimal.Decimal, error) {
	if err := q.compatible(o); err != nil {
		return decimal.Zero, err
	}
	if o.value.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}
	return q.value.Div(o.value), nil
}

// Rescale reinterprets a token quantity under another token's decimals,
// keeping the human value. Used when two tokens share a 1:1 unit (PT and SY).
func (q Quantity) Rescale(decimals uint8) (Quantity, error) {
	if q.convention != DecimalScaled {
		return Quantity{}, fmt.Errorf("%w: cannot rescale %s", ErrConventionMismatch, q.convention)
	}
	q.decimals = decimals
	return q, nil
}

// MarshalJSON encodes the exact value as a string so no precision is lost.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + q.value.String() + `"`), nil
}
