package txutils

import (
	"fmt"

	"github.com/bsv-blockchain/go-sdk/transaction"
)

// LockingScriptFromRawTx materializes a locking script stored lazily as an
// (offset, length) window into its transaction's serialized bytes.
func LockingScriptFromRawTx(rawTx []byte, offset, length uint64) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	end := offset + length
	if end < offset || end > uint64(len(rawTx)) {
		return nil, fmt.Errorf("script window [%d:%d] exceeds rawTx of %d bytes", offset, end, len(rawTx))
	}
	script := make([]byte, length)
	copy(script, rawTx[offset:end])
	return script, nil
}

// LockingScriptOffsets returns, for each output of the transaction, the byte
// offset of its locking script within the serialized transaction. Offsets are
// derived from the parsed structure so they stay consistent with tx.Bytes().
func LockingScriptOffsets(tx *transaction.Transaction) []uint64 {
	offset := uint64(4) // version
	offset += VarUintSize(uint64(len(tx.Inputs)))
	for _, input := range tx.Inputs {
		scriptLen := uint64(0)
		if input.UnlockingScript != nil {
			scriptLen = uint64(len(*input.UnlockingScript))
		}
		offset += 32 + 4 + VarUintSize(scriptLen) + scriptLen + 4
	}
	offset += VarUintSize(uint64(len(tx.Outputs)))

	offsets := make([]uint64, len(tx.Outputs))
	for i, output := range tx.Outputs {
		scriptLen := uint64(0)
		if output.LockingScript != nil {
			scriptLen = uint64(len(*output.LockingScript))
		}
		offset += 8 + VarUintSize(scriptLen)
		offsets[i] = offset
		offset += scriptLen
	}
	return offsets
}
