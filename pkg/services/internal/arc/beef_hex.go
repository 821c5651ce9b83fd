package arc

import (
	"fmt"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/transaction"
)

// subjectBEEFHex serializes the BEEF to the V1 hex form ARC accepts. V1 BEEF
// carries exactly one subject transaction, so the single transaction no other
// transaction spends from is located and serialized with its full ancestry.
func subjectBEEFHex(beef *transaction.Beef) (string, error) {
	subject, err := findSubjectTx(beef)
	if err != nil {
		return "", err
	}

	tx := subject.Transaction
	for _, input := range tx.Inputs {
		if err := hydrateInput(input, beef, 0); err != nil {
			return "", fmt.Errorf("failed to hydrate input %s of tx %s: %w", input.SourceTXID, tx.TxID(), err)
		}
	}

	beefHex, err := tx.BEEFHex()
	if err != nil {
		return "", fmt.Errorf("failed to convert subject tx into BEEF hex: %w", err)
	}
	return beefHex, nil
}

// findSubjectTx picks the unmined transaction that no other transaction in
// the BEEF uses as an input source.
func findSubjectTx(beef *transaction.Beef) (*transaction.BeefTx, error) {
	inDegree := make(map[chainhash.Hash]int, len(beef.Transactions))
	for txid := range beef.Transactions {
		inDegree[txid] = 0
	}

	for _, tx := range beef.Transactions {
		if tx.Transaction == nil || tx.Transaction.MerklePath != nil {
			// inputs of mined transactions do not matter
			continue
		}
		for _, input := range tx.Transaction.Inputs {
			if _, ok := inDegree[*input.SourceTXID]; ok {
				inDegree[*input.SourceTXID]++
			}
		}
	}

	var subjects []chainhash.Hash
	for txid, degree := range inDegree {
		if degree == 0 {
			subjects = append(subjects, txid)
		}
	}
	if len(subjects) != 1 {
		return nil, fmt.Errorf("expected exactly one subject tx, but got %d", len(subjects))
	}

	subject, ok := beef.Transactions[subjects[0]]
	if !ok || subject.Transaction == nil {
		return nil, fmt.Errorf("subject tx %s not found in beef", subjects[0])
	}
	return subject, nil
}

func hydrateInput(input *transaction.TransactionInput, beef *transaction.Beef, depth int) error {
	if depth > 100 {
		return fmt.Errorf("could not hydrate input %s: too many recursions", input.SourceTXID)
	}
	if input.SourceTransaction != nil {
		return nil
	}

	source, ok := beef.Transactions[*input.SourceTXID]
	if !ok || source.Transaction == nil {
		return fmt.Errorf("source tx %s not found in beef", input.SourceTXID)
	}
	input.SourceTransaction = source.Transaction

	if source.Transaction.MerklePath != nil {
		return nil
	}
	for _, sourceInput := range source.Transaction.Inputs {
		if err := hydrateInput(sourceInput, beef, depth+1); err != nil {
			return err
		}
	}
	return nil
}
