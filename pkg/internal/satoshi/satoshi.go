// Package satoshi provides overflow-checked satoshi arithmetic bounded by the
// maximum number of satoshis that can ever exist.
package satoshi

import (
	"fmt"

	"github.com/go-softwarelab/common/pkg/to"
	"github.com/go-softwarelab/common/pkg/types"
)

// MaxValue is the maximum number of satoshis that can ever exist.
const MaxValue = 21e6 * 1e8

// Value is an amount of satoshis known to be within [-MaxValue, MaxValue].
type Value int64

// Int64 returns the amount as int64.
func (v Value) Int64() int64 {
	return int64(v)
}

// UInt64 returns the amount as uint64, failing on negative values.
func (v Value) UInt64() (uint64, error) {
	if v < 0 {
		return 0, fmt.Errorf("cannot convert negative satoshi to uint64")
	}
	return uint64(v), nil
}

// Zero returns the zero amount.
func Zero() Value {
	return Value(0)
}

// From converts any integer into a Value, range checking it.
func From[T types.Integer](value T) (Value, error) {
	v, err := to.Int64(value)
	if err != nil {
		return 0, fmt.Errorf("invalid satoshi value: %w", err)
	}
	if v > MaxValue || v < -MaxValue {
		return 0, fmt.Errorf("satoshi value %d out of range", v)
	}
	return Value(v), nil
}

// MustFrom converts any integer into a Value, panicking when out of range.
func MustFrom[T types.Integer](value T) Value {
	v, err := From(value)
	if err != nil {
		panic(err)
	}
	return v
}

// Add returns a+b with range checking.
func Add[A types.Integer, B types.Integer](a A, b B) (Value, error) {
	satsA, err := From(a)
	if err != nil {
		return 0, err
	}
	satsB, err := From(b)
	if err != nil {
		return 0, err
	}
	c := satsA + satsB
	if c > MaxValue || c < -MaxValue {
		return 0, fmt.Errorf("satoshi sum %d out of range", c)
	}
	return c, nil
}

// Subtract returns a-b with range checking.
func Subtract[A types.Integer, B types.Integer](a A, b B) (Value, error) {
	satsA, err := From(a)
	if err != nil {
		return 0, err
	}
	satsB, err := From(b)
	if err != nil {
		return 0, err
	}
	c := satsA - satsB
	if c > MaxValue || c < -MaxValue {
		return 0, fmt.Errorf("satoshi difference %d out of range", c)
	}
	return c, nil
}
