package actions

import (
	"context"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/werr"
)

// beefAssembly carries the options of one BEEF build across the recursion.
type beefAssembly struct {
	userID         int
	known          map[string]struct{}
	ignoreStorage  bool
	ignoreServices bool
	minProofLevel  int
}

// BuildBeefForTransaction assembles a valid BEEF for the txid from stored
// transactions, stored proofs and, when allowed, the chain services.
func (a *Actions) BuildBeefForTransaction(ctx context.Context, userID int, txID string, opts wdk.GetBeefOptions) ([]byte, error) {
	asm := beefAssembly{
		userID:         userID,
		known:          make(map[string]struct{}, len(opts.KnownTxids)),
		ignoreStorage:  opts.IgnoreStorage,
		ignoreServices: opts.IgnoreServices,
		minProofLevel:  opts.MinProofLevel,
	}
	for _, txid := range opts.KnownTxids {
		asm.known[txid] = struct{}{}
	}

	beef := transaction.NewBeefV2()
	if err := a.mergeAncestry(ctx, asm, beef, txID, 0); err != nil {
		return nil, err
	}
	if len(opts.KnownTxids) > 0 {
		beef.TrimknownTxIDs(opts.KnownTxids)
	}

	bytes, err := beef.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize BEEF for %s: %w", txID, err)
	}
	return bytes, nil
}

// mergeAncestry merges the txid's transaction and enough of its ancestry into
// beef that every chain ends at a merkle proof or a known txid. Recursion is
// capped so corrupted ancestry links cannot loop.
func (a *Actions) mergeAncestry(ctx context.Context, asm beefAssembly, beef *transaction.Beef, txID string, depth int) error {
	if depth > wdk.MaxBEEFDepth {
		return fmt.Errorf("beef ancestry for %s exceeds depth %d: %w", txID, wdk.MaxBEEFDepth, werr.ErrInvalidParameter)
	}

	if _, ok := asm.known[txID]; ok {
		hash, err := chainhash.NewHashFromHex(txID)
		if err != nil {
			return fmt.Errorf("failed to parse known txid %s: %w", txID, err)
		}
		beef.MergeTxidOnly(hash)
		return nil
	}

	rawTx, merklePathBytes, inputBeef, err := a.lookupTransactionData(ctx, asm, txID)
	if err != nil {
		return err
	}

	tx, err := transaction.NewTransactionFromBytes(rawTx)
	if err != nil {
		return fmt.Errorf("failed to parse raw tx %s: %w", txID, err)
	}

	skipProof := asm.minProofLevel > 0 && depth < asm.minProofLevel
	if len(merklePathBytes) > 0 && !skipProof {
		merklePath, err := transaction.NewMerklePathFromBinary(merklePathBytes)
		if err != nil {
			return fmt.Errorf("failed to parse merkle path of %s: %w", txID, err)
		}
		if err := tx.AddMerkleProof(merklePath); err != nil {
			return fmt.Errorf("failed to attach merkle proof to %s: %w", txID, err)
		}
		if _, err := beef.MergeTransaction(tx); err != nil {
			return fmt.Errorf("failed to merge proven tx %s: %w", txID, err)
		}
		return nil
	}

	if _, err := beef.MergeRawTx(rawTx, nil); err != nil {
		return fmt.Errorf("failed to merge raw tx %s: %w", txID, err)
	}
	if len(inputBeef) > 0 {
		if err := beef.MergeBeefBytes(inputBeef); err != nil {
			return fmt.Errorf("failed to merge input beef of %s: %w", txID, err)
		}
	}

	merged := beef.FindTransaction(txID)
	if merged == nil {
		return fmt.Errorf("tx %s was not merged into the BEEF: %w", txID, werr.ErrRuntime)
	}
	if merged.MerklePath != nil {
		return nil
	}

	for _, input := range tx.Inputs {
		if input.SourceTXID == nil {
			return fmt.Errorf("input of %s has no source txid: %w", txID, werr.ErrInvalidParameter)
		}
		beefTx := beef.Transactions[*input.SourceTXID]
		if beefTx == nil || beefTx.DataFormat == transaction.TxIDOnly {
			if err := a.mergeAncestry(ctx, asm, beef, input.SourceTXID.String(), depth+1); err != nil {
				return err
			}
		}
	}

	return nil
}

// lookupTransactionData resolves the raw tx, its proof and its input BEEF
// from the proven table first, the user's transactions second and the chain
// services last.
func (a *Actions) lookupTransactionData(ctx context.Context, asm beefAssembly, txID string) (rawTx, merklePath, inputBeef []byte, err error) {
	if !asm.ignoreStorage {
		proven, err := a.repos.Proven.FindProvenByTxID(ctx, txID)
		if err != nil {
			return nil, nil, nil, err
		}
		if proven != nil && len(proven.RawTx) > 0 {
			return proven.RawTx, proven.MerklePath, nil, nil
		}

		tx, err := a.repos.Transactions.FindByTxID(ctx, asm.userID, txID)
		if err != nil {
			return nil, nil, nil, err
		}
		if tx != nil && len(tx.RawTx) > 0 &&
			tx.Status != wdk.TxStatusFailed.String() && tx.Status != wdk.TxStatusAborted.String() {
			return tx.RawTx, nil, tx.InputBeef, nil
		}
	}

	if a.services != nil && !asm.ignoreServices {
		rawResult, err := a.services.GetRawTx(ctx, txID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to fetch raw tx %s from services: %w", txID, err)
		}
		if rawResult != nil && len(rawResult.RawTx) > 0 {
			var proofBytes []byte
			proof, err := a.services.GetMerklePath(ctx, txID)
			if err == nil && proof != nil && proof.MerklePath != nil {
				proofBytes = proof.MerklePath.Bytes()
			}
			return rawResult.RawTx, proofBytes, nil, nil
		}
	}

	return nil, nil, nil, fmt.Errorf("transaction %s is not known to storage: %w", txID, werr.ErrNotFound)
}
