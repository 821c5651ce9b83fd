package assemble

import (
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/transaction"
)

// Transaction is an assembled transaction together with the BEEF proving its
// inputs. It embeds the go-sdk transaction so callers can sign it directly.
type Transaction struct {
	*transaction.Transaction

	// InputBEEF carries the ancestry of every input the transaction spends.
	InputBEEF *transaction.Beef
}

// AtomicBytes serializes the transaction with its ancestry as atomic BEEF.
// With allowPartials the inputs may lack source transactions, which yields a
// BEEF a counterparty cannot fully verify on its own.
func (t *Transaction) AtomicBytes(allowPartials bool) ([]byte, error) {
	beef, err := t.ToBEEF(allowPartials)
	if err != nil {
		return nil, err
	}

	data, err := beef.AtomicBytes(t.TxID())
	if err != nil {
		return nil, fmt.Errorf("cannot serialize assembled transaction to atomic beef: %w", err)
	}
	return data, nil
}

// ToBEEF merges the input ancestry with the transaction itself into one BEEF.
func (t *Transaction) ToBEEF(allowPartials bool) (*transaction.Beef, error) {
	beef := transaction.NewBeef()

	if t.InputBEEF != nil {
		if err := beef.MergeBeef(t.InputBEEF); err != nil {
			return nil, fmt.Errorf("cannot merge input beef of assembled transaction: %w", err)
		}
	}

	for vin, input := range t.Inputs {
		if input.SourceTransaction == nil {
			if allowPartials {
				continue
			}
			return nil, fmt.Errorf("input %d of assembled transaction has no source transaction", vin)
		}
		if _, err := beef.MergeRawTx(input.SourceTransaction.Bytes(), nil); err != nil {
			return nil, fmt.Errorf("cannot merge source transaction of input %d into beef: %w", vin, err)
		}
	}

	if _, err := beef.MergeRawTx(t.Bytes(), nil); err != nil {
		return nil, fmt.Errorf("cannot merge assembled transaction into beef: %w", err)
	}

	return beef, nil
}

func parsePublicKey(pubKeyHex string) (*ec.PublicKey, error) {
	pubKey, err := ec.PublicKeyFromString(pubKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid public key %q: %w", pubKeyHex, err)
	}
	return pubKey, nil
}
