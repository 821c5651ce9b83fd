package wallet

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/go-softwarelab/common/pkg/to"

	"github.com/icellan/wallet-toolbox/pkg/internal/validate"
	"github.com/icellan/wallet-toolbox/pkg/wallet/internal/assemble"
	"github.com/icellan/wallet-toolbox/pkg/wallet/pending"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/wdk/primitives"
	"github.com/icellan/wallet-toolbox/pkg/werr"
)

// CreateAction creates a new transaction from the described inputs and
// outputs, funds it with wallet change, and either finalizes it immediately
// or hands back a signable transaction when caller inputs still need
// signatures.
func (w *Wallet) CreateAction(ctx context.Context, args wdk.ValidCreateActionArgs, originator string) (*wdk.CreateActionResult, error) {
	w.logger.DebugContext(ctx, "CreateAction call", slog.String("originator", originator))
	if err := w.checkOriginator(originator); err != nil {
		return nil, err
	}

	normalizeCreateActionArgs(&args)

	auth, err := w.authID(ctx)
	if err != nil {
		return nil, err
	}

	if !args.IsNewTx {
		// The only args shape that is not a new transaction is a pure
		// sendWith batch: release previously created noSend transactions.
		return w.createActionSendWithOnly(ctx, auth, &args)
	}

	if err := validate.CreateActionArgs(&args); err != nil {
		return nil, fmt.Errorf("invalid create action args: %w", err)
	}

	if w.autoKnownTxids {
		args.Options.KnownTxids = appendKnownTxids(args.Options.KnownTxids, w.party.KnownTxids())
	}

	storageResult, err := w.storage.CreateAction(ctx, auth, args)
	if err != nil {
		return nil, fmt.Errorf("storage failed to create action: %w", err)
	}

	result, err := w.finishCreatedAction(ctx, auth, &args, storageResult)
	if err != nil {
		return nil, fmt.Errorf("create action %s failed: %w", storageResult.Reference, err)
	}
	return result, nil
}

// createActionSendWithOnly releases a batch of noSend transactions without
// creating a new one.
func (w *Wallet) createActionSendWithOnly(ctx context.Context, auth wdk.AuthID, args *wdk.ValidCreateActionArgs) (*wdk.CreateActionResult, error) {
	if !args.IsSendWith {
		return nil, werr.InvalidParameter("args", "a new transaction or a sendWith batch")
	}

	processResult, err := w.storage.ProcessAction(ctx, auth, wdk.ProcessActionArgs{
		IsSendWith: true,
		IsDelayed:  args.IsDelayed,
		SendWith:   args.Options.SendWith,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to process sendWith batch: %w", err)
	}

	if err := w.reviewProcessResult(args.IsDelayed, processResult, nil, nil); err != nil {
		return nil, err
	}

	return &wdk.CreateActionResult{
		SendWithResults: processResult.SendWithResults,
	}, nil
}

// finishCreatedAction assembles the transaction described by the storage
// result, then either caches it for a later signAction call or signs and
// processes it right away.
func (w *Wallet) finishCreatedAction(ctx context.Context, auth wdk.AuthID, args *wdk.ValidCreateActionArgs, storageResult *wdk.StorageCreateActionResult) (*wdk.CreateActionResult, error) {
	tx, err := assemble.New(w.keyDeriver, args.Inputs, storageResult).Assemble()
	if err != nil {
		return nil, fmt.Errorf("failed to assemble transaction from storage result: %w", err)
	}

	if args.IsSignAction {
		return w.cachePendingSignAction(tx, args, storageResult)
	}

	if err := tx.Sign(); err != nil {
		return nil, fmt.Errorf("failed to sign assembled transaction: %w", err)
	}

	txID := tx.TxID()
	processResult, err := w.storage.ProcessAction(ctx, auth, wdk.ProcessActionArgs{
		IsNewTx:    true,
		IsSendWith: args.IsSendWith,
		IsNoSend:   args.IsNoSend,
		IsDelayed:  args.IsDelayed,
		Reference:  to.Ptr(storageResult.Reference),
		TxID:       to.Ptr(primitives.TXIDHexString(txID.String())),
		RawTx:      tx.Bytes(),
		SendWith:   args.Options.SendWith,
	})
	if err != nil {
		return nil, fmt.Errorf("storage failed to process action: %w", err)
	}

	atomicTx, err := w.resultBeefBytes(tx, txID, args.Options.KnownTxids)
	if err != nil {
		return nil, err
	}

	noSendChange := noSendChangeOutpoints(txID.String(), storageResult.NoSendChangeOutputVouts)

	if err := w.reviewProcessResult(args.IsDelayed, processResult, atomicTx, noSendChange); err != nil {
		return nil, err
	}

	result := &wdk.CreateActionResult{
		TxID:            to.Ptr(primitives.TXIDHexString(txID.String())),
		SendWithResults: processResult.SendWithResults,
		NoSendChange:    noSendChange,
	}
	if !args.Options.ReturnTXIDOnly.Value() {
		result.Tx = atomicTx
	}
	return result, nil
}

// cachePendingSignAction stores the assembled transaction for the follow-up
// signAction call and returns it as a signable transaction.
func (w *Wallet) cachePendingSignAction(tx *assemble.Transaction, args *wdk.ValidCreateActionArgs, storageResult *wdk.StorageCreateActionResult) (*wdk.CreateActionResult, error) {
	atomicTx, err := tx.AtomicBytes(!w.includeAllSourceTransactions)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize signable transaction: %w", err)
	}

	err = w.pending.Save(storageResult.Reference, &pending.SignAction{
		Tx:               tx.Transaction,
		InputBEEF:        tx.InputBEEF,
		CreateActionArgs: *args,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to cache pending sign action: %w", err)
	}

	return &wdk.CreateActionResult{
		SignableTransaction: &wdk.SignableTransaction{
			Tx:        atomicTx,
			Reference: primitives.Base64String(storageResult.Reference),
		},
	}, nil
}

// resultBeefBytes builds the atomic BEEF returned to the caller: the
// transaction with its ancestry, txid-only placeholders resolved from the
// party accumulator, and the accumulator updated with the new transaction.
func (w *Wallet) resultBeefBytes(tx *assemble.Transaction, txID *chainhash.Hash, knownTxids []primitives.TXIDHexString) (primitives.ExplicitByteArray, error) {
	beef, err := tx.ToBEEF(true)
	if err != nil {
		return nil, fmt.Errorf("failed to build result beef: %w", err)
	}

	known := make([]string, len(knownTxids))
	for i, txid := range knownTxids {
		known[i] = string(txid)
	}
	if err := w.party.Complete(beef, known); err != nil {
		return nil, err
	}

	if err := w.party.Merge(beef); err != nil {
		return nil, err
	}
	if err := w.party.MergeTransaction(tx.Transaction); err != nil {
		return nil, err
	}

	data, err := beef.AtomicBytes(txID)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize result beef: %w", err)
	}
	return data, nil
}

// reviewProcessResult raises a ReviewActionsError when an undelayed
// broadcast reported any failed transaction.
func (w *Wallet) reviewProcessResult(isDelayed bool, res *wdk.ProcessActionResult, tx []byte, noSendChange []wdk.OutPoint) error {
	if isDelayed || res == nil {
		return nil
	}

	failed := false
	for _, r := range res.NotDelayedResults {
		if r.Status != werr.ReviewStatusSuccess {
			failed = true
			break
		}
	}
	if !failed {
		return nil
	}

	reviewErr := &werr.ReviewActionsError{
		ReviewActionResults: res.NotDelayedResults,
		SendWithResults:     res.SendWithResults,
		Tx:                  tx,
	}
	for _, op := range noSendChange {
		reviewErr.NoSendChange = append(reviewErr.NoSendChange, fmt.Sprintf("%s.%d", op.TxID, op.Vout))
	}
	for _, r := range res.NotDelayedResults {
		if r.Status != werr.ReviewStatusSuccess {
			reviewErr.TxID = r.TxID
			break
		}
	}
	return reviewErr
}

func noSendChangeOutpoints(txID string, vouts []uint32) []wdk.OutPoint {
	if len(vouts) == 0 {
		return nil
	}
	outpoints := make([]wdk.OutPoint, len(vouts))
	for i, vout := range vouts {
		outpoints[i] = wdk.OutPoint{TxID: txID, Vout: vout}
	}
	return outpoints
}

// normalizeCreateActionArgs computes the derived routing flags from the
// caller-supplied arguments, overriding whatever the caller set.
func normalizeCreateActionArgs(args *wdk.ValidCreateActionArgs) {
	args.IsSendWith = len(args.Options.SendWith) > 0
	args.IsRemixChange = !args.IsSendWith && len(args.Inputs) == 0 && len(args.Outputs) == 0
	args.IsNewTx = args.IsRemixChange || len(args.Inputs) > 0 || len(args.Outputs) > 0
	args.IsNoSend = args.Options.NoSend.Value()
	args.IsDelayed = args.Options.AcceptDelayedBroadcast.Value()

	signingRequired := false
	for i := range args.Inputs {
		if args.Inputs[i].UnlockingScript == nil {
			signingRequired = true
			break
		}
	}
	args.IsSignAction = args.IsNewTx && (signingRequired || !args.Options.SignAndProcess.Value())
}

func appendKnownTxids(existing []primitives.TXIDHexString, txids []string) []primitives.TXIDHexString {
	seen := make(map[primitives.TXIDHexString]struct{}, len(existing))
	for _, txid := range existing {
		seen[txid] = struct{}{}
	}
	for _, txid := range txids {
		key := primitives.TXIDHexString(txid)
		if _, ok := seen[key]; ok {
			continue
		}
		existing = append(existing, key)
		seen[key] = struct{}{}
	}
	return existing
}
