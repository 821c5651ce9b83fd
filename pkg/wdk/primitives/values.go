package primitives

import (
	"fmt"
)

// SatoshiValue is an amount of satoshis within the valid money range.
type SatoshiValue uint64

// MaxSatoshis is the total number of satoshis that will ever exist.
const MaxSatoshis = 2100000000000000

// Validate checks the satoshi value range.
func (s SatoshiValue) Validate() error {
	if s > MaxSatoshis {
		return fmt.Errorf("no more than %d satoshis", uint64(MaxSatoshis))
	}
	return nil
}

// BooleanDefaultTrue is an optional boolean that defaults to true when absent.
type BooleanDefaultTrue bool

// Value returns the boolean, treating a nil pointer as true.
func (b *BooleanDefaultTrue) Value() bool {
	if b == nil {
		return true
	}
	return bool(*b)
}

// BooleanDefaultFalse is an optional boolean that defaults to false when absent.
type BooleanDefaultFalse bool

// Value returns the boolean, treating a nil pointer as false.
func (b *BooleanDefaultFalse) Value() bool {
	if b == nil {
		return false
	}
	return bool(*b)
}

// BEEF is a serialized Background Evaluation Extended Format bundle.
type BEEF = ExplicitByteArray
