package txb

import (
	"fmt"
	"math/big"

	"yieldScope/internal/amount"
	"yieldScope/internal/codec"
)

// ArgKind identifies what an argument refers to.
type ArgKind uint8

const (
	ArgPure ArgKind = iota
	ArgObject
	ArgResult
	ArgGas
)

func (k ArgKind) String() string {
	switch k {
	case ArgPure:
		return "pure"
	case ArgObject:
		return "object"
	case ArgResult:
		return "result"
	case ArgGas:
		return "gas"
	default:
		return fmt.Sprintf("arg(%d)", uint8(k))
	}
}

// Arg is one call argument: a literal, an object reference, the gas coin or
// an output of an earlier step in the same builder.
type Arg struct {
	Kind     ArgKind
	Pure     []byte
	PureType string
	Object   string
	Step     int
	// Index is the output position within Step, or -1 for the whole result.
	Index int

	builder *Builder
	err     error
}

// Err reports a construction error carried by the argument.
func (a Arg) Err() error { return a.err }

func (a Arg) String() string {
	switch a.Kind {
	case ArgPure:
		return fmt.Sprintf("pure %s", a.PureType)
	case ArgObject:
		return "object " + a.Object
	case ArgResult:
		if a.Index < 0 {
			return fmt.Sprintf("result #%d", a.Step)
		}
		return fmt.Sprintf("result #%d.%d", a.Step, a.Index)
	case ArgGas:
		return "gas"
	default:
		return a.Kind.String()
	}
}

func U64(v uint64) Arg {
	return Arg{Kind: ArgPure, Pure: codec.EncodeU64(v), PureType: "u64"}
}

// BigU64 encodes a base-unit integer that must fit in a u64.
func BigU64(v *big.Int) Arg {
	b, err := codec.EncodeBigU64(v)
	if err != nil {
		return Arg{Kind: ArgPure, PureType: "u64", err: err}
	}
	return Arg{Kind: ArgPure, Pure: b, PureType: "u64"}
}

// Amount encodes a token quantity as its floored base units.
func Amount(q amount.Quantity) Arg {
	if q.Convention() != amount.DecimalScaled {
		return Arg{Kind: ArgPure, PureType: "u64", err: fmt.Errorf("%w: amount argument is %s", amount.ErrConventionMismatch, q.Convention())}
	}
	return BigU64(q.BaseUnits())
}

func Bool(v bool) Arg {
	return Arg{Kind: ArgPure, Pure: codec.EncodeBool(v), PureType: "bool"}
}

func Address(addr string) Arg {
	b, err := codec.EncodeAddress(addr)
	if err != nil {
		return Arg{Kind: ArgPure, PureType: "address", err: err}
	}
	return Arg{Kind: ArgPure, Pure: b, PureType: "address"}
}

// Object references a ledger object by id.
func Object(id string) Arg {
	if id == "" {
		return Arg{Kind: ArgObject, err: fmt.Errorf("empty object id")}
	}
	return Arg{Kind: ArgObject, Object: codec.NormalizeHex(id)}
}

// Gas references the sender's gas coin.
func Gas() Arg {
	return Arg{Kind: ArgGas}
}
