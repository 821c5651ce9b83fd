package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsv-blockchain/go-sdk/transaction"
	"gorm.io/gorm"

	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
	"github.com/icellan/wallet-toolbox/pkg/internal/txutils"
	"github.com/icellan/wallet-toolbox/pkg/storage/internal/models"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/werr"
)

const batchMarkerLength = 16

// Process finalizes a signed action: it verifies the raw transaction against
// the rows written by Create, stores the signed bytes and, unless the action
// is noSend or delayed, broadcasts it together with any sendWith batch.
func (a *Actions) Process(ctx context.Context, userID int, args *wdk.ProcessActionArgs) (*wdk.ProcessActionResult, error) {
	logger := a.logger.With(logging.UserID(userID))
	logger.InfoContext(ctx, "Processing action",
		slog.Bool("isNewTx", args.IsNewTx),
		slog.Bool("isNoSend", args.IsNoSend),
		slog.Bool("isDelayed", args.IsDelayed),
		slog.Int("sendWithCount", len(args.SendWith)),
	)

	if args.IsNewTx {
		if err := a.processNewTx(ctx, userID, args); err != nil {
			return nil, err
		}
	}

	// SendWith overrides noSend: a non-empty batch is broadcast anyway.
	if args.IsNoSend && len(args.SendWith) == 0 {
		return &wdk.ProcessActionResult{}, nil
	}
	if args.IsDelayed && len(args.SendWith) == 0 {
		// The monitor's send-waiting task picks the transaction up.
		return &wdk.ProcessActionResult{}, nil
	}

	txIDs := make([]string, 0, len(args.SendWith)+1)
	for _, txID := range args.SendWith {
		txIDs = append(txIDs, string(txID))
	}
	if args.TxID != nil && !args.IsNoSend {
		txIDs = append(txIDs, string(*args.TxID))
	}
	if len(txIDs) == 0 {
		return &wdk.ProcessActionResult{}, nil
	}

	if len(txIDs) > 1 {
		batch, err := a.random.Base64(batchMarkerLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate batch marker: %w", err)
		}
		if err := a.repos.Proven.SetReqBatch(ctx, txIDs, batch); err != nil {
			return nil, err
		}
	}

	return a.Broadcast(ctx, userID, txIDs)
}

// processNewTx validates the signed transaction against its Create rows and
// stores the raw bytes with the statuses the send mode dictates.
func (a *Actions) processNewTx(ctx context.Context, userID int, args *wdk.ProcessActionArgs) error {
	tx, err := transaction.NewTransactionFromBytes(args.RawTx)
	if err != nil {
		return fmt.Errorf("failed to parse raw tx: %w", err)
	}
	txID := tx.TxID().String()
	if txID != string(*args.TxID) {
		return werr.InvalidParameterf("txid",
			"the hash of rawTx; provided %s, computed %s", *args.TxID, txID)
	}

	txRow, err := a.repos.Transactions.FindByReference(ctx, userID, *args.Reference)
	if err != nil {
		return err
	}
	if err := validatePendingState(txRow); err != nil {
		return err
	}

	outputs, err := a.repos.Outputs.FindByTransactionID(ctx, txRow.ID)
	if err != nil {
		return err
	}
	if err := validateSignedOutputs(tx, outputs); err != nil {
		return err
	}
	if a.commissionCfg.Enabled() {
		if err := a.validateCommissionOutput(ctx, userID, txRow.ID, tx); err != nil {
			return err
		}
	}

	txStatus, reqStatus := statusesForSendMode(args)
	scriptOffsets := txutils.LockingScriptOffsets(tx)

	err = a.db.Transaction(func(dbtx *gorm.DB) error {
		if err := a.repos.Transactions.UpdateProcessed(ctx, txRow.ID, txID, args.RawTx, txStatus); err != nil {
			return err
		}

		for _, output := range outputs {
			var offset, length *uint32
			if output.LockingScript == nil && int(output.Vout) < len(tx.Outputs) {
				off := uint32(scriptOffsets[output.Vout])
				ln := uint32(len(*tx.Outputs[output.Vout].LockingScript))
				offset, length = &off, &ln
			}
			spendable := output.Change || output.BasketID != nil
			if err := a.repos.Outputs.UpdateProcessed(ctx, dbtx, output.ID, txID, offset, length, spendable); err != nil {
				return err
			}
		}

		if err := a.repos.Outputs.MarkSpentByReserver(ctx, dbtx, txRow.ID, &txRow.Description); err != nil {
			return err
		}

		return a.repos.Proven.UpsertReq(ctx, &models.ProvenTxReq{
			Status:    string(reqStatus),
			TxID:      txID,
			RawTx:     args.RawTx,
			InputBeef: txRow.InputBeef,
			Notify:    notifyJSON(txRow.ID),
			History:   historyNote("process-action", userID),
		})
	})
	if err != nil {
		return fmt.Errorf("failed to store processed action: %w", err)
	}

	return nil
}

// Broadcast assembles a BEEF for the txids and posts it to the chain
// services, recording per-txid outcomes. It is shared by the undelayed
// process path and the monitor's send-waiting task.
func (a *Actions) Broadcast(ctx context.Context, userID int, txIDs []string) (*wdk.ProcessActionResult, error) {
	if a.services == nil {
		return nil, fmt.Errorf("no chain services configured: %w", werr.ErrRuntime)
	}

	sendWithResults := make([]werr.SendWithResult, 0, len(txIDs))
	notDelayedResults := make([]werr.ReviewActionResult, 0, len(txIDs))

	readyToSend := make([]string, 0, len(txIDs))
	for _, txID := range txIDs {
		req, err := a.repos.Proven.FindReqByTxID(ctx, txID)
		if err != nil {
			return nil, err
		}
		if req == nil {
			return nil, fmt.Errorf("no proof request for txid %s: %w", txID, werr.ErrNotFound)
		}
		status := wdk.ProvenTxReqStatus(req.Status)
		if status == wdk.ProvenTxStatusUnmined || status == wdk.ProvenTxStatusCompleted {
			// Already accepted by the network in an earlier attempt.
			sendWithResults = append(sendWithResults, werr.SendWithResult{
				TxID:   txID,
				Status: string(wdk.TxStatusUnproven),
			})
			if err := a.repos.Outputs.SetSpendableByTxID(ctx, txID, true); err != nil {
				return nil, err
			}
			continue
		}
		readyToSend = append(readyToSend, txID)
	}

	if len(readyToSend) == 0 {
		return &wdk.ProcessActionResult{SendWithResults: sendWithResults}, nil
	}

	beef := transaction.NewBeefV2()
	asm := beefAssembly{userID: userID, ignoreServices: true}
	for _, txID := range readyToSend {
		if err := a.mergeAncestry(ctx, asm, beef, txID, 0); err != nil {
			return nil, err
		}
	}

	if err := a.repos.Proven.IncrementAttemptsByTxIDs(ctx, readyToSend); err != nil {
		return nil, err
	}

	results := a.services.PostBEEF(ctx, beef, readyToSend)
	serviceErrors := results.ServiceErrors()

	for _, txID := range readyToSend {
		outcome := aggregateBroadcastOutcome(results, txID)
		sendWith, review, err := a.applyBroadcastOutcome(ctx, txID, outcome, serviceErrors)
		if err != nil {
			return nil, err
		}
		sendWithResults = append(sendWithResults, sendWith)
		notDelayedResults = append(notDelayedResults, review)
	}

	return &wdk.ProcessActionResult{
		SendWithResults:   sendWithResults,
		NotDelayedResults: notDelayedResults,
	}, nil
}

// broadcastOutcome condenses the per-service broadcast results for one txid.
type broadcastOutcome struct {
	status       werr.ReviewActionResultStatus
	competingTxs []string
}

func aggregateBroadcastOutcome(results wdk.PostBeefResult, txID string) broadcastOutcome {
	outcome := broadcastOutcome{status: werr.ReviewStatusServiceError}
	sawInvalid := false

	for _, serviceResult := range results {
		if serviceResult.PostedBEEFResult == nil {
			continue
		}
		for _, posted := range serviceResult.PostedBEEFResult.TxIDResults {
			if posted.TxID != txID {
				continue
			}
			switch posted.Result {
			case wdk.PostedTxIDResultSuccess, wdk.PostedTxIDResultAlreadyKnown:
				// One acceptance wins over transient failures elsewhere.
				outcome.status = werr.ReviewStatusSuccess
				return outcome
			case wdk.PostedTxIDResultDoubleSpend:
				outcome.status = werr.ReviewStatusDoubleSpend
				outcome.competingTxs = append(outcome.competingTxs, posted.CompetingTxs...)
			case wdk.PostedTxIDResultMissingInputs, wdk.PostedTxIDResultError:
				sawInvalid = true
			}
		}
	}

	if outcome.status == werr.ReviewStatusServiceError && sawInvalid {
		outcome.status = werr.ReviewStatusInvalidTx
	}
	return outcome
}

// applyBroadcastOutcome moves the transaction and its proof request to the
// statuses the broadcast outcome dictates and flips output spendability.
func (a *Actions) applyBroadcastOutcome(ctx context.Context, txID string, outcome broadcastOutcome, serviceErrors map[string]error) (werr.SendWithResult, werr.ReviewActionResult, error) {
	var (
		reqStatus wdk.ProvenTxReqStatus
		txStatus  wdk.TxStatus
		spendable bool
	)

	switch outcome.status {
	case werr.ReviewStatusSuccess:
		reqStatus = wdk.ProvenTxStatusUnmined
		txStatus = wdk.TxStatusUnproven
		spendable = true
	case werr.ReviewStatusDoubleSpend:
		reqStatus = wdk.ProvenTxStatusInvalid
		txStatus = wdk.TxStatusFailed
	case werr.ReviewStatusInvalidTx:
		reqStatus = wdk.ProvenTxStatusInvalid
		txStatus = wdk.TxStatusFailed
	default:
		// Service errors keep the transaction in flight; the monitor retries.
		reqStatus = wdk.ProvenTxStatusSending
		txStatus = wdk.TxStatusSending
		spendable = true
	}

	if err := a.repos.Transactions.UpdateStatusByTxID(ctx, txID, txStatus); err != nil {
		return werr.SendWithResult{}, werr.ReviewActionResult{}, err
	}
	if err := a.repos.Proven.UpdateReqStatusByTxID(ctx, txID, reqStatus); err != nil {
		return werr.SendWithResult{}, werr.ReviewActionResult{}, err
	}
	if err := a.repos.Outputs.SetSpendableByTxID(ctx, txID, spendable); err != nil {
		return werr.SendWithResult{}, werr.ReviewActionResult{}, err
	}

	a.logger.InfoContext(ctx, "Broadcast outcome applied",
		slog.String("txID", txID),
		slog.String("outcome", string(outcome.status)),
		slog.String("txStatus", txStatus.String()),
		slog.Int("serviceErrors", len(serviceErrors)),
	)

	return werr.SendWithResult{
			TxID:   txID,
			Status: txStatus.String(),
		}, werr.ReviewActionResult{
			TxID:         txID,
			Status:       outcome.status,
			CompetingTxs: outcome.competingTxs,
		}, nil
}

func validatePendingState(txRow *models.Transaction) error {
	if !txRow.IsOutgoing {
		return werr.InvalidParameterf("reference", "an outgoing transaction, got %q", txRow.Reference)
	}
	if len(txRow.InputBeef) == 0 {
		return werr.InvalidParameterf("reference",
			"an unprocessed transaction; %q has no inputBEEF which suggests it was already processed", txRow.Reference)
	}
	if txRow.Status != wdk.TxStatusUnsigned.String() && txRow.Status != wdk.TxStatusUnprocessed.String() {
		return werr.InvalidParameterf("reference",
			"a transaction awaiting signature, got status %q", txRow.Status)
	}
	return nil
}

// validateSignedOutputs checks that every non-change output row written by
// Create appears unchanged in the signed transaction.
func validateSignedOutputs(tx *transaction.Transaction, outputs []*models.Output) error {
	for _, output := range outputs {
		if output.Change {
			continue
		}
		if int(output.Vout) >= len(tx.Outputs) {
			return werr.InvalidParameterf("rawTx",
				"a transaction with at least %d outputs", output.Vout+1)
		}
		signed := tx.Outputs[output.Vout]
		if signed.Satoshis != uint64(output.Satoshis) {
			return werr.InvalidParameterf("rawTx",
				"satoshis at vout %d must match the created action", output.Vout)
		}
		if output.LockingScript != nil && !bytes.Equal(signed.LockingScript.Bytes(), output.LockingScript) {
			return werr.InvalidParameterf("rawTx",
				"locking script at vout %d must match the created action", output.Vout)
		}
	}
	return nil
}

// validateCommissionOutput checks that the signed transaction pays the
// service charge recorded at creation.
func (a *Actions) validateCommissionOutput(ctx context.Context, userID int, transactionID uint, tx *transaction.Transaction) error {
	commissionRow, err := a.repos.Commissions.FindCommission(ctx, userID, transactionID)
	if err != nil {
		return err
	}
	if commissionRow == nil {
		return fmt.Errorf("commission row missing for transaction %d: %w", transactionID, werr.ErrRuntime)
	}
	for _, output := range tx.Outputs {
		if output.Satoshis == commissionRow.Satoshis &&
			bytes.Equal(output.LockingScript.Bytes(), commissionRow.LockingScript) {
			return nil
		}
	}
	return werr.InvalidParameter("rawTx", "a transaction including the service charge output")
}

func statusesForSendMode(args *wdk.ProcessActionArgs) (wdk.TxStatus, wdk.ProvenTxReqStatus) {
	switch {
	case args.IsNoSend:
		return wdk.TxStatusNoSend, wdk.ProvenTxStatusNoSend
	case args.IsDelayed:
		return wdk.TxStatusSigned, wdk.ProvenTxStatusUnknown
	default:
		return wdk.TxStatusSigned, wdk.ProvenTxStatusSending
	}
}

func notifyJSON(transactionID uint) string {
	payload, _ := json.Marshal([]uint{transactionID})
	return string(payload)
}

func historyNote(what string, userID int) string {
	payload, _ := json.Marshal(map[string]any{
		"what":   what,
		"userID": userID,
		"when":   time.Now().UTC().Format(time.RFC3339),
	})
	return string(payload)
}
