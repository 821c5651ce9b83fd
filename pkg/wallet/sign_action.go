package wallet

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/go-softwarelab/common/pkg/to"

	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
	"github.com/icellan/wallet-toolbox/pkg/wallet/internal/assemble"
	"github.com/icellan/wallet-toolbox/pkg/wallet/pending"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/wdk/primitives"
	"github.com/icellan/wallet-toolbox/pkg/werr"
)

// SignAction completes a previously created action with the raw transaction
// the caller signed, persists it, and broadcasts it unless the action was
// created as noSend or delayed.
func (w *Wallet) SignAction(ctx context.Context, args wdk.SignActionArgs, originator string) (*wdk.SignActionResult, error) {
	w.logger.DebugContext(ctx, "SignAction call",
		slog.String("originator", originator), logging.Reference(string(args.Reference)))
	if err := w.checkOriginator(originator); err != nil {
		return nil, err
	}
	if args.Reference == "" {
		return nil, werr.InvalidParameter("reference", "non-empty")
	}
	if len(args.RawTx) == 0 {
		return nil, werr.InvalidParameter("rawTx", "non-empty")
	}

	entry, err := w.pending.Get(string(args.Reference))
	if err != nil {
		return nil, werr.InvalidParameterf("reference",
			"a pending action reference, %q is unknown or expired", string(args.Reference))
	}

	tx, err := transaction.NewTransactionFromBytes(args.RawTx)
	if err != nil {
		return nil, werr.InvalidParameterf("rawTx", "a parseable transaction: %v", err)
	}

	if err := validateSignedTx(tx, entry); err != nil {
		return nil, err
	}

	// The signed transaction arrives without source transactions; reattach
	// them from the pending entry so the result BEEF can prove every input.
	for i, input := range tx.Inputs {
		input.SourceTransaction = entry.Tx.Inputs[i].SourceTransaction
	}

	auth, err := w.authID(ctx)
	if err != nil {
		return nil, err
	}

	isDelayed, isNoSend, returnTXIDOnly, sendWith := mergeSignActionOptions(entry, args.Options)

	txID := tx.TxID()
	processResult, err := w.storage.ProcessAction(ctx, auth, wdk.ProcessActionArgs{
		IsNewTx:    true,
		IsSendWith: len(sendWith) > 0,
		IsNoSend:   isNoSend,
		IsDelayed:  isDelayed,
		Reference:  to.Ptr(string(args.Reference)),
		TxID:       to.Ptr(primitives.TXIDHexString(txID.String())),
		RawTx:      args.RawTx,
		SendWith:   sendWith,
	})
	if err != nil {
		return nil, fmt.Errorf("storage failed to process signed action: %w", err)
	}

	assembled := &assemble.Transaction{Transaction: tx, InputBEEF: entry.InputBEEF}
	atomicTx, err := w.resultBeefBytes(assembled, txID, entry.CreateActionArgs.Options.KnownTxids)
	if err != nil {
		return nil, err
	}

	if err := w.reviewProcessResult(isDelayed, processResult, atomicTx, nil); err != nil {
		return nil, err
	}

	if err := w.pending.Delete(string(args.Reference)); err != nil {
		w.logger.WarnContext(ctx, "failed to drop pending sign action",
			logging.Reference(string(args.Reference)), logging.Error(err))
	}

	result := &wdk.SignActionResult{
		TxID:            to.Ptr(primitives.TXIDHexString(txID.String())),
		SendWithResults: processResult.SendWithResults,
	}
	if !returnTXIDOnly {
		result.Tx = atomicTx
	}
	return result, nil
}

// validateSignedTx checks the signed transaction against the pending one:
// same inputs in the same order, same output count.
func validateSignedTx(tx *transaction.Transaction, entry *pending.SignAction) error {
	if len(tx.Inputs) != len(entry.Tx.Inputs) {
		return werr.InvalidParameterf("rawTx", "a transaction with %d inputs matching the created action", len(entry.Tx.Inputs))
	}
	if len(tx.Outputs) != len(entry.Tx.Outputs) {
		return werr.InvalidParameterf("rawTx", "a transaction with %d outputs matching the created action", len(entry.Tx.Outputs))
	}
	for i, input := range tx.Inputs {
		expected := entry.Tx.Inputs[i]
		if !input.SourceTXID.IsEqual(expected.SourceTXID) || input.SourceTxOutIndex != expected.SourceTxOutIndex {
			return werr.InvalidParameterf("rawTx", "spending outpoint %s.%d at input %d",
				expected.SourceTXID.String(), expected.SourceTxOutIndex, i)
		}
		if input.UnlockingScript == nil || len(*input.UnlockingScript) == 0 {
			return werr.InvalidParameterf("rawTx", "fully signed, input %d has no unlocking script", i)
		}
	}
	return nil
}

// mergeSignActionOptions layers the signing-time options over the options
// the action was created with.
func mergeSignActionOptions(entry *pending.SignAction, opts *wdk.SignActionOptions) (isDelayed, isNoSend, returnTXIDOnly bool, sendWith []primitives.TXIDHexString) {
	created := entry.CreateActionArgs
	isDelayed = created.IsDelayed
	isNoSend = created.IsNoSend
	returnTXIDOnly = created.Options.ReturnTXIDOnly.Value()
	sendWith = created.Options.SendWith

	if opts == nil {
		return
	}
	if opts.AcceptDelayedBroadcast != nil {
		isDelayed = opts.AcceptDelayedBroadcast.Value()
	}
	if opts.NoSend != nil {
		isNoSend = opts.NoSend.Value()
	}
	if opts.ReturnTXIDOnly != nil {
		returnTXIDOnly = opts.ReturnTXIDOnly.Value()
	}
	if len(opts.SendWith) > 0 {
		sendWith = opts.SendWith
	}
	return
}
