// Package codec decodes the fixed-width little-endian values returned by
// simulated calls and encodes pure call arguments in the same layout.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"yieldScope/internal/amount"
)

const (
	u64Size     = 8
	u128Size    = 16
	addressSize = 32
)

var (
	ErrLength   = errors.New("unexpected value length")
	ErrOverflow = errors.New("value overflows target width")
)

var maxU128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// DecodeU64 reads an 8-byte little-endian unsigned integer.
func DecodeU64(b []byte) (uint64, error) {
	if len(b) != u64Size {
		return 0, fmt.Errorf("%w: u64 wants %d bytes, got %d", ErrLength, u64Size, len(b))
	}
	return binary.LittleEndian.Uint64(b), nil
}

// DecodeU128 reads a 16-byte little-endian unsigned integer.
func DecodeU128(b []byte) (*big.Int, error) {
	if len(b) != u128Size {
		return nil, fmt.Errorf("%w: u128 wants %d bytes, got %d", ErrLength, u128Size, len(b))
	}
	be := make([]byte, u128Size)
	for i := range b {
		be[u128Size-1-i] = b[i]
	}
	return new(uint256.Int).SetBytes(be).ToBig(), nil
}

// DecodeU128Fixed64 reads a Q64.64 value and divides it by 2^64.
func DecodeU128Fixed64(b []byte) (amount.Quantity, error) {
	raw, err := DecodeU128(b)
	if err != nil {
		return amount.Quantity{}, err
	}
	return amount.FromFixed64(raw), nil
}

// DecodeAmount reads a u64 base-unit amount and scales it by 10^decimals.
func DecodeAmount(b []byte, decimals uint8) (amount.Quantity, error) {
	raw, err := DecodeU64(b)
	if err != nil {
		return amount.Quantity{}, err
	}
	return ScaleBy(raw, decimals), nil
}

// ScaleBy turns a raw u64 into a human-scaled token quantity.
func ScaleBy(raw uint64, decimals uint8) amount.Quantity {
	return amount.FromUint64(raw, decimals)
}

// DecodeBool reads a single-byte boolean.
func DecodeBool(b []byte) (bool, error) {
	if len(b) != 1 {
		return false, fmt.Errorf("%w: bool wants 1 byte, got %d", ErrLength, len(b))
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("invalid bool byte %d", b[0])
	}
}

func EncodeU64(v uint64) []byte {
	out := make([]byte, u64Size)
	binary.LittleEndian.PutUint64(out, v)
	return out
}

// EncodeBigU64 encodes a base-unit amount, rejecting negatives and overflow.
func EncodeBigU64(v *big.Int) ([]byte, error) {
	if v == nil || v.Sign() < 0 || !v.IsUint64() {
		return nil, fmt.Errorf("%w: u64 %v", ErrOverflow, v)
	}
	return EncodeU64(v.Uint64()), nil
}

func EncodeU128(v *big.Int) ([]byte, error) {
	if v == nil || v.Sign() < 0 || v.Cmp(maxU128) > 0 {
		return nil, fmt.Errorf("%w: u128 %v", ErrOverflow, v)
	}
	u, _ := uint256.FromBig(v)
	be := u.Bytes32()
	out := make([]byte, u128Size)
	for i := 0; i < u128Size; i++ {
		out[i] = be[len(be)-1-i]
	}
	return out, nil
}

// EncodeFixed64 encodes a Q64.64 quantity.
func EncodeFixed64(q amount.Quantity) ([]byte, error) {
	if q.Convention() != amount.BinaryFixed64 {
		return nil, fmt.Errorf("%w: want fixed64, got %s", amount.ErrConventionMismatch, q.Convention())
	}
	return EncodeU128(q.BaseUnits())
}

func EncodeBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

// EncodeAddress encodes a 32-byte hex address or object id.
func EncodeAddress(addr string) ([]byte, error) {
	data, err := hexutil.Decode(NormalizeHex(addr))
	if err != nil {
		return nil, fmt.Errorf("invalid address %s: %w", addr, err)
	}
	if len(data) > addressSize {
		return nil, fmt.Errorf("%w: address %s", ErrLength, addr)
	}
	out := make([]byte, addressSize)
	copy(out[addressSize-len(data):], data)
	return out, nil
}

// NormalizeHex lower-cases a hex id, ensures the 0x prefix and pads odd
// lengths so short ids such as 0x6 decode.
func NormalizeHex(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = strings.TrimPrefix(s, "0x")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	return "0x" + s
}
