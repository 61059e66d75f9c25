// Package types provides common types used across Treasury.
package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"
)

// Amount represents a token quantity in base units.
// All arithmetic is unsigned 256-bit integer-only — no floating point and
// no negative values, so a balance can never underflow silently.
//
// Examples:
//   - NewAmount(1_000_000) = 1e6 base units
//   - MustParseAmount("25000000000000000000") = 25 tokens at 18 decimals
type Amount struct {
	u uint256.Int
}

// ZeroAmount is the zero token quantity.
var ZeroAmount Amount

// NewAmount creates an Amount from a uint64 base-unit count.
func NewAmount(v uint64) Amount {
	var a Amount
	a.u.SetUint64(v)
	return a
}

// ParseAmount parses a non-negative decimal string into an Amount.
func ParseAmount(s string) (Amount, error) {
	var a Amount
	if err := a.u.SetFromDecimal(s); err != nil {
		return ZeroAmount, fmt.Errorf("types: parse amount %q: %w", s, err)
	}
	return a, nil
}

// MustParseAmount is like ParseAmount but panics on error.
// Use for hardcoded literals.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Arithmetic operations

// Add returns a+other. Panics on 256-bit overflow (practically unreachable
// for token supplies).
func (a Amount) Add(other Amount) Amount {
	var r Amount
	if _, overflow := r.u.AddOverflow(&a.u, &other.u); overflow {
		panic("types: amount overflow")
	}
	return r
}

// Sub returns a-other. Panics if other > a: an Amount can never go
// negative, so an underflow is always a bookkeeping bug in the caller.
func (a Amount) Sub(other Amount) Amount {
	if a.u.Lt(&other.u) {
		panic(fmt.Sprintf("types: amount underflow: %s - %s", a.Dec(), other.Dec()))
	}
	var r Amount
	r.u.Sub(&a.u, &other.u)
	return r
}

// SubFloor returns a-other, floored at zero.
func (a Amount) SubFloor(other Amount) Amount {
	if a.u.Lt(&other.u) {
		return ZeroAmount
	}
	return a.Sub(other)
}

// MulUint64 returns a multiplied by a scalar.
func (a Amount) MulUint64(v uint64) Amount {
	var r, m uint256.Int
	m.SetUint64(v)
	if _, overflow := r.MulOverflow(&a.u, &m); overflow {
		panic("types: amount overflow")
	}
	return Amount{u: r}
}

// DivUint64 returns a divided by a scalar, truncating toward zero.
func (a Amount) DivUint64(v uint64) Amount {
	if v == 0 {
		panic("types: amount division by zero")
	}
	var r, d uint256.Int
	d.SetUint64(v)
	r.Div(&a.u, &d)
	return Amount{u: r}
}

// Comparison methods

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool { return a.u.IsZero() }

// Equal returns true if both amounts are equal.
func (a Amount) Equal(other Amount) bool { return a.u.Eq(&other.u) }

// Cmp returns -1, 0, or 1 comparing a to other.
func (a Amount) Cmp(other Amount) int { return a.u.Cmp(&other.u) }

// LessThan returns true if a < other.
func (a Amount) LessThan(other Amount) bool { return a.u.Lt(&other.u) }

// GreaterThan returns true if a > other.
func (a Amount) GreaterThan(other Amount) bool { return a.u.Gt(&other.u) }

// Min returns the smaller of two amounts.
func (a Amount) Min(other Amount) Amount {
	if a.u.Lt(&other.u) {
		return a
	}
	return other
}

// Uint64 returns the amount as a uint64. Panics if it does not fit;
// intended for tests and small fixtures only.
func (a Amount) Uint64() uint64 {
	if !a.u.IsUint64() {
		panic("types: amount exceeds uint64")
	}
	return a.u.Uint64()
}

// Formatting and encoding

// Dec returns the decimal string representation.
func (a Amount) Dec() string { return a.u.Dec() }

// String implements fmt.Stringer.
func (a Amount) String() string { return a.u.Dec() }

// MarshalJSON implements json.Marshaler. Amounts serialize as decimal
// strings so that 256-bit values survive JSON number precision limits.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.u.Dec())
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("types: unmarshal amount: %w", err)
	}
	if s == "" {
		*a = ZeroAmount
		return nil
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.u.Dec()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*a = ZeroAmount
		return nil
	}
	parsed, err := ParseAmount(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer for database storage (decimal string).
func (a Amount) Value() (driver.Value, error) {
	return a.u.Dec(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = ZeroAmount
		return nil
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("types: cannot scan negative value %d into Amount", v)
		}
		*a = NewAmount(uint64(v))
		return nil
	default:
		return fmt.Errorf("types: cannot scan %T into Amount", src)
	}
}

// SumAmounts calculates the sum of multiple amounts.
func SumAmounts(values ...Amount) Amount {
	var result Amount
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}
