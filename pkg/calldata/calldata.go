package calldata

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
)

var (
	// FieldPrime is the Starknet field modulus P = 2^251 + 17*2^192 + 1
	FieldPrime = func() *big.Int {
		p := new(big.Int).Lsh(big.NewInt(1), 251)
		p.Add(p, new(big.Int).Lsh(big.NewInt(17), 192))
		return p.Add(p, big.NewInt(1))
	}()

	u128Mask = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
)

// EncodingError is returned when a value cannot be turned into calldata
type EncodingError struct {
	Field  string
	Value  string
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// ParseUint256 parses a decimal or 0x-prefixed hex string into an unsigned 256-bit integer
func ParseUint256(field, value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, &EncodingError{Field: field, Value: value, Reason: "value is empty"}
	}
	if strings.HasPrefix(trimmed, "-") {
		return nil, &EncodingError{Field: field, Value: value, Reason: "value must not be negative"}
	}

	n, ok := math.ParseBig256(trimmed)
	if !ok {
		return nil, &EncodingError{Field: field, Value: value, Reason: "not an unsigned 256-bit integer"}
	}
	return n, nil
}

// CheckUint256 verifies that n fits in an unsigned 256-bit integer
func CheckUint256(field string, n *big.Int) error {
	if n == nil {
		return &EncodingError{Field: field, Value: "<nil>", Reason: "value is required"}
	}
	if n.Sign() < 0 {
		return &EncodingError{Field: field, Value: n.String(), Reason: "value must not be negative"}
	}
	if n.Cmp(math.MaxBig256) > 0 {
		return &EncodingError{Field: field, Value: n.String(), Reason: "value overflows uint256"}
	}
	return nil
}

// Uint256 splits n into the (low, high) felt pair used by Cairo's u256
func Uint256(field string, n *big.Int) ([]*big.Int, error) {
	if err := CheckUint256(field, n); err != nil {
		return nil, err
	}
	low := new(big.Int).And(n, u128Mask)
	high := new(big.Int).Rsh(n, 128)
	return []*big.Int{low, high}, nil
}

// Felt parses a 0x-prefixed hex string into a field element
func Felt(field, value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	digits := strings.TrimPrefix(strings.TrimPrefix(trimmed, "0x"), "0X")
	if digits == "" || digits == trimmed {
		return nil, &EncodingError{Field: field, Value: value, Reason: "expected 0x-prefixed hex"}
	}
	if len(digits) > 64 {
		return nil, &EncodingError{Field: field, Value: value, Reason: "too many hex digits"}
	}

	n, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return nil, &EncodingError{Field: field, Value: value, Reason: "not a hex number"}
	}
	if n.Cmp(FieldPrime) >= 0 {
		return nil, &EncodingError{Field: field, Value: value, Reason: "exceeds the field prime"}
	}
	return n, nil
}

// Builder accumulates calldata in the order arguments are declared
type Builder struct {
	data []*big.Int
	err  error
}

// NewBuilder starts an empty calldata list
func NewBuilder() *Builder {
	return &Builder{}
}

// Address appends a contract address as a single felt
func (b *Builder) Address(field, value string) *Builder {
	if b.err != nil {
		return b
	}
	n, err := Felt(field, value)
	if err != nil {
		b.err = err
		return b
	}
	b.data = append(b.data, n)
	return b
}

// Uint256 appends n as a (low, high) pair
func (b *Builder) Uint256(field string, n *big.Int) *Builder {
	if b.err != nil {
		return b
	}
	pair, err := Uint256(field, n)
	if err != nil {
		b.err = err
		return b
	}
	b.data = append(b.data, pair...)
	return b
}

// Uint64 appends a small integer as a single felt
func (b *Builder) Uint64(v uint64) *Builder {
	if b.err != nil {
		return b
	}
	b.data = append(b.data, new(big.Int).SetUint64(v))
	return b
}

// Build returns the encoded calldata or the first encoding error
func (b *Builder) Build() ([]*big.Int, error) {
	if b.err != nil {
		return nil, b.err
	}
	out := make([]*big.Int, len(b.data))
	copy(out, b.data)
	return out, nil
}
