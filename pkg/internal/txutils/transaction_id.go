package txutils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"

	crypto "github.com/bsv-blockchain/go-sdk/primitives/hash"
	"github.com/bsv-blockchain/go-sdk/transaction"
)

// TransactionIDFromRawTx computes the txid of a serialized transaction.
func TransactionIDFromRawTx(rawTx []byte) string {
	hash := crypto.Sha256d(rawTx)
	slices.Reverse(hash)
	return hex.EncodeToString(hash)
}

// HashOutputScript returns the little-endian SHA256 hash of a hex-encoded
// locking script, the format used by script-indexing explorers.
func HashOutputScript(scriptHex string) (string, error) {
	script, err := hex.DecodeString(scriptHex)
	if err != nil {
		return "", fmt.Errorf("invalid script hex: %w", err)
	}

	hash := sha256.Sum256(script)
	slices.Reverse(hash[:])

	return hex.EncodeToString(hash[:]), nil
}

// ExtractRawTransactions pulls the serialized form of each requested txid out
// of the BEEF.
func ExtractRawTransactions(beef *transaction.Beef, txIDs []string) ([][]byte, error) {
	rawTxs := make([][]byte, len(txIDs))
	for i, txID := range txIDs {
		tx := beef.FindTransaction(txID)
		if tx == nil {
			return nil, fmt.Errorf("cannot find transaction %s in BEEF", txID)
		}
		raw := tx.Bytes()
		if len(raw) == 0 {
			return nil, fmt.Errorf("empty raw transaction for %s", txID)
		}
		rawTxs[i] = raw
	}
	return rawTxs, nil
}
