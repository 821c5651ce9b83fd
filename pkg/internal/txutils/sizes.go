// Package txutils provides transaction size arithmetic and proof conversion
// helpers shared by the storage funder and the chain services.
package txutils

import (
	"github.com/icellan/wallet-toolbox/pkg/wdk"
)

// P2PKHUnlockingScriptLength is the canonical size of a P2PKH unlocking script.
const P2PKHUnlockingScriptLength = 107

// P2PKHLockingScriptLength is the canonical size of a P2PKH locking script.
const P2PKHLockingScriptLength = 25

// P2PKHOutputSize is the serialized size of a P2PKH output.
var P2PKHOutputSize = TransactionOutputSize(P2PKHLockingScriptLength)

// P2PKHEstimatedInputSize is the serialized size of a P2PKH input.
var P2PKHEstimatedInputSize = TransactionInputSize(P2PKHUnlockingScriptLength)

// VarUintSize returns the serialized length of a bitcoin varint holding value.
func VarUintSize(value uint64) uint64 {
	switch {
	case value <= 0xfc:
		return 1
	case value <= 0xffff:
		return 3
	case value <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

// TransactionInputSize returns the serialized size of an input given its
// unlocking script length: outpoint, script varint, script, sequence.
func TransactionInputSize(scriptSize uint64) uint64 {
	return 32 + 4 + VarUintSize(scriptSize) + scriptSize + 4
}

// TransactionOutputSize returns the serialized size of an output given its
// locking script length: satoshis, script varint, script.
func TransactionOutputSize(scriptSize uint64) uint64 {
	return 8 + VarUintSize(scriptSize) + scriptSize
}

// TransactionSize returns the serialized size of a transaction given the
// unlocking script lengths of its inputs and locking script lengths of its
// outputs.
func TransactionSize(inputScriptSizes, outputScriptSizes []uint64) uint64 {
	size := uint64(4) // version
	size += VarUintSize(uint64(len(inputScriptSizes)))
	for _, s := range inputScriptSizes {
		size += TransactionInputSize(s)
	}
	size += VarUintSize(uint64(len(outputScriptSizes)))
	for _, s := range outputScriptSizes {
		size += TransactionOutputSize(s)
	}
	size += 4 // locktime
	return size
}

// EstimatedInputSizeByType returns the estimated serialized size of an input
// spending an output of the given type.
func EstimatedInputSizeByType(txType wdk.OutputType) uint64 {
	switch txType {
	case wdk.OutputTypeP2PKH:
		return P2PKHEstimatedInputSize

	case wdk.OutputTypeCustom:
		fallthrough
	default:
		panic("unsupported tx type: " + string(txType))
	}
}
