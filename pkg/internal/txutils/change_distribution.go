package txutils

import (
	"github.com/icellan/wallet-toolbox/pkg/internal/satoshi"
)

// ChangeDistribution splits a change amount into several output values so the
// wallet's UTXO pool does not collapse into a single ever-shrinking coin.
type ChangeDistribution struct {
	minimum satoshi.Value
	random  func(max uint64) uint64
}

// NewChangeDistribution creates a distribution with the basket's minimum
// desired UTXO value and a random source.
func NewChangeDistribution(minimum satoshi.Value, random func(max uint64) uint64) *ChangeDistribution {
	return &ChangeDistribution{
		minimum: minimum,
		random:  random,
	}
}

// Distribute splits amount into count values. Every value receives the
// minimum as a base; the remainder is spread randomly. When the amount
// cannot give each output the minimum, the split degrades to fewer outputs.
func (d *ChangeDistribution) Distribute(count uint64, amount satoshi.Value) []satoshi.Value {
	if count == 0 || amount <= 0 {
		return nil
	}

	min := d.minimum.Int64()
	if min <= 0 {
		min = 1
	}
	if int64(count)*min > amount.Int64() {
		count = uint64(amount.Int64() / min)
		if count == 0 {
			count = 1
			min = amount.Int64()
		}
	}

	values := make([]satoshi.Value, count)
	left := amount.Int64() - int64(count)*min
	for i := range values {
		values[i] = satoshi.Value(min)
	}

	for i := uint64(0); i < count-1 && left > 0; i++ {
		r := d.random(uint64(left) + 1)
		values[i] += satoshi.Value(r)
		left -= int64(r)
	}
	values[count-1] += satoshi.Value(left)

	return values
}
