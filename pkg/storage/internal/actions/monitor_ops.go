package actions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
	"github.com/icellan/wallet-toolbox/pkg/storage/internal/models"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/werr"
)

// monitorBatchLimit caps how many rows a single monitor task run processes.
const monitorBatchLimit = 64

// proofSafetyDepth is how many blocks must bury a proof's block before the
// proof is accepted. Shallower proofs are left for a later poll so a reorg
// cannot complete a request against a header that is about to vanish.
const proofSafetyDepth = 6

// ProofCheckStats summarizes one CheckForProofs run.
type ProofCheckStats struct {
	Checked     int
	Proven      int
	Invalidated int
}

// SendWaiting broadcasts proof requests that are still waiting for a send:
// delayed actions and earlier attempts that failed with service errors.
// Requests younger than minAge are left alone so the direct process path and
// the monitor do not race on fresh transactions.
func (a *Actions) SendWaiting(ctx context.Context, minAge time.Duration) (*wdk.ProcessActionResult, error) {
	if a.services == nil {
		return nil, fmt.Errorf("no chain services configured: %w", werr.ErrRuntime)
	}

	reqs, err := a.repos.Proven.FindReqsByStatus(ctx, []wdk.ProvenTxReqStatus{
		wdk.ProvenTxStatusUnknown,
		wdk.ProvenTxStatusSending,
	}, monitorBatchLimit)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-minAge)
	beef := transaction.NewBeefV2()
	txIDs := make([]string, 0, len(reqs))
	for _, req := range reqs {
		if req.UpdatedAt.After(cutoff) {
			continue
		}
		if _, err := beef.MergeRawTx(req.RawTx, nil); err != nil {
			return nil, fmt.Errorf("failed to merge raw tx %s: %w", req.TxID, err)
		}
		if len(req.InputBeef) > 0 {
			if err := beef.MergeBeefBytes(req.InputBeef); err != nil {
				return nil, fmt.Errorf("failed to merge input beef of %s: %w", req.TxID, err)
			}
		}
		txIDs = append(txIDs, req.TxID)
	}
	if len(txIDs) == 0 {
		return &wdk.ProcessActionResult{}, nil
	}

	if err := a.repos.Proven.IncrementAttemptsByTxIDs(ctx, txIDs); err != nil {
		return nil, err
	}

	results := a.services.PostBEEF(ctx, beef, txIDs)
	serviceErrors := results.ServiceErrors()

	sendWithResults := make([]werr.SendWithResult, 0, len(txIDs))
	notDelayedResults := make([]werr.ReviewActionResult, 0, len(txIDs))
	for _, txID := range txIDs {
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

// CheckForProofs polls the chain services for merkle proofs of broadcast
// transactions. A verified proof completes the request and the transactions
// carrying the txid; a txid the network stopped knowing after maxAttempts
// polls is written off as invalid.
func (a *Actions) CheckForProofs(ctx context.Context, maxAttempts int) (*ProofCheckStats, error) {
	if a.services == nil {
		return nil, fmt.Errorf("no chain services configured: %w", werr.ErrRuntime)
	}

	reqs, err := a.repos.Proven.FindReqsByStatus(ctx, wdk.ProvenTxReqNeedsProofStatuses, monitorBatchLimit)
	if err != nil {
		return nil, err
	}

	stats := &ProofCheckStats{}
	for _, req := range reqs {
		stats.Checked++
		if err := a.checkProofForReq(ctx, req, maxAttempts, stats); err != nil {
			a.logger.WarnContext(ctx, "Proof check failed",
				logging.TxID(req.TxID),
				logging.Error(err),
			)
		}
	}
	return stats, nil
}

func (a *Actions) checkProofForReq(ctx context.Context, req *models.ProvenTxReq, maxAttempts int, stats *ProofCheckStats) error {
	proof, err := a.services.GetMerklePath(ctx, req.TxID)
	if err != nil {
		return fmt.Errorf("failed to get merkle path: %w", err)
	}

	if proof == nil || proof.MerklePath == nil || proof.BlockHeader == nil {
		if err := a.repos.Proven.IncrementAttempts(ctx, req.ID); err != nil {
			return err
		}
		if maxAttempts > 0 && req.Attempts+1 >= maxAttempts {
			return a.writeOffUnknownReq(ctx, req, stats)
		}
		return nil
	}

	tip, err := a.services.GetHeight(ctx)
	if err != nil {
		return fmt.Errorf("failed to get chain height: %w", err)
	}
	if proof.BlockHeader.Height+proofSafetyDepth > tip {
		// Not an attempt: the proof exists, the block is just too young.
		return nil
	}

	root, err := proof.MerklePath.ComputeRootHex(&req.TxID)
	if err != nil {
		return fmt.Errorf("failed to compute merkle root: %w", err)
	}
	valid, err := a.services.IsValidRootForHeight(ctx, root, proof.BlockHeader.Height)
	if err != nil {
		return fmt.Errorf("failed to verify merkle root: %w", err)
	}
	if !valid {
		// A bad proof from one provider must not poison the request.
		return a.repos.Proven.IncrementAttempts(ctx, req.ID)
	}

	offset, err := leafOffset(proof.MerklePath, req.TxID)
	if err != nil {
		return err
	}

	proven, err := a.repos.Proven.InsertProven(ctx, &models.ProvenTx{
		TxID:       req.TxID,
		Height:     proof.BlockHeader.Height,
		TxIndex:    offset,
		MerklePath: proof.MerklePath.Bytes(),
		RawTx:      req.RawTx,
		BlockHash:  proof.BlockHeader.Hash,
		MerkleRoot: root,
	})
	if err != nil {
		return err
	}

	if err := a.repos.Proven.CompleteReq(ctx, req.ID, proven.ID, historyNote("monitor-proof", 0)); err != nil {
		return err
	}
	if err := a.repos.Transactions.LinkProven(ctx, req.TxID, proven.ID); err != nil {
		return err
	}

	stats.Proven++
	a.logger.InfoContext(ctx, "Transaction proven",
		logging.TxID(req.TxID),
		slog.Uint64("height", uint64(proof.BlockHeader.Height)),
	)
	return nil
}

// writeOffUnknownReq double-checks with the network before declaring a
// repeatedly unproven transaction invalid.
func (a *Actions) writeOffUnknownReq(ctx context.Context, req *models.ProvenTxReq, stats *ProofCheckStats) error {
	details, err := a.services.GetStatusForTxIDs(ctx, []string{req.TxID})
	if err != nil {
		return fmt.Errorf("failed to confirm tx status: %w", err)
	}
	for _, detail := range details {
		if detail.TxID == req.TxID && detail.Status != wdk.ResultStatusForTxIDNotFound.String() {
			// The network still knows it; keep polling.
			return nil
		}
	}

	if err := a.repos.Proven.UpdateReqStatus(ctx, req.ID, wdk.ProvenTxStatusInvalid,
		historyNote("monitor-write-off", 0)); err != nil {
		return err
	}
	if err := a.repos.Transactions.UpdateStatusByTxID(ctx, req.TxID, wdk.TxStatusFailed); err != nil {
		return err
	}
	if err := a.repos.Outputs.SetSpendableByTxID(ctx, req.TxID, false); err != nil {
		return err
	}

	stats.Invalidated++
	return nil
}

// FailAbandoned fails transactions that were created but never signed within
// the age window, releasing the change reserved for them.
func (a *Actions) FailAbandoned(ctx context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().Add(-age)
	rows, err := a.repos.Transactions.FindAbandoned(ctx, []wdk.TxStatus{
		wdk.TxStatusUnsigned,
		wdk.TxStatusUnprocessed,
	}, cutoff)
	if err != nil {
		return 0, err
	}

	for _, row := range rows {
		if err := a.repos.Transactions.UpdateStatus(ctx, []uint{row.ID}, wdk.TxStatusFailed); err != nil {
			return 0, err
		}
		if err := a.repos.Outputs.ReleaseReserved(ctx, nil, row.ID); err != nil {
			return 0, err
		}
		if err := a.repos.Outputs.DisableByTransactionID(ctx, nil, row.ID); err != nil {
			return 0, err
		}
		a.logger.InfoContext(ctx, "Abandoned action failed",
			logging.Reference(row.Reference),
			logging.UserID(row.UserID),
		)
	}
	return len(rows), nil
}

// UnFail reconsiders failed transactions whose txids the network turns out to
// know after all, putting them back into the proof loop.
func (a *Actions) UnFail(ctx context.Context) (int, error) {
	if a.services == nil {
		return 0, fmt.Errorf("no chain services configured: %w", werr.ErrRuntime)
	}

	rows, err := a.repos.Transactions.FindByStatus(ctx, []wdk.TxStatus{wdk.TxStatusFailed}, monitorBatchLimit)
	if err != nil {
		return 0, err
	}

	txIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.TxID != nil && *row.TxID != "" {
			txIDs = append(txIDs, *row.TxID)
		}
	}
	if len(txIDs) == 0 {
		return 0, nil
	}

	details, err := a.services.GetStatusForTxIDs(ctx, txIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to get status for failed txids: %w", err)
	}

	unfailed := 0
	for _, detail := range details {
		if detail.Status == wdk.ResultStatusForTxIDNotFound.String() {
			continue
		}
		if err := a.repos.Transactions.UnFail(ctx, detail.TxID); err != nil {
			return unfailed, err
		}
		if err := a.repos.Proven.ReopenReq(ctx, detail.TxID, historyNote("monitor-unfail", 0)); err != nil {
			return unfailed, err
		}
		if err := a.repos.Outputs.SetSpendableByTxID(ctx, detail.TxID, true); err != nil {
			return unfailed, err
		}
		unfailed++
		a.logger.InfoContext(ctx, "Failed transaction resurrected", logging.TxID(detail.TxID))
	}
	return unfailed, nil
}

// ReviewStatus re-checks transactions the network accepted a while ago but
// never mined; txids the network no longer knows are queued for rebroadcast.
func (a *Actions) ReviewStatus(ctx context.Context, age time.Duration) (int, error) {
	if a.services == nil {
		return 0, fmt.Errorf("no chain services configured: %w", werr.ErrRuntime)
	}

	reqs, err := a.repos.Proven.FindReqsByStatus(ctx, []wdk.ProvenTxReqStatus{
		wdk.ProvenTxStatusUnmined,
	}, monitorBatchLimit)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-age)
	txIDs := make([]string, 0, len(reqs))
	for _, req := range reqs {
		if req.UpdatedAt.Before(cutoff) {
			txIDs = append(txIDs, req.TxID)
		}
	}
	if len(txIDs) == 0 {
		return 0, nil
	}

	details, err := a.services.GetStatusForTxIDs(ctx, txIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to get status for unmined txids: %w", err)
	}

	requeued := 0
	for _, detail := range details {
		if detail.Status != wdk.ResultStatusForTxIDNotFound.String() {
			continue
		}
		if err := a.repos.Proven.UpdateReqStatusByTxID(ctx, detail.TxID, wdk.ProvenTxStatusSending); err != nil {
			return requeued, err
		}
		if err := a.repos.Transactions.UpdateStatusByTxID(ctx, detail.TxID, wdk.TxStatusSending); err != nil {
			return requeued, err
		}
		requeued++
		a.logger.WarnContext(ctx, "Broadcast transaction dropped by network, requeueing",
			logging.TxID(detail.TxID))
	}
	return requeued, nil
}

// CheckReorg verifies recent proofs against the current chain and reopens
// everything a reorg orphaned.
func (a *Actions) CheckReorg(ctx context.Context, window uint32) (int, error) {
	if a.services == nil {
		return 0, fmt.Errorf("no chain services configured: %w", werr.ErrRuntime)
	}

	tip, err := a.services.GetHeight(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get chain height: %w", err)
	}
	var minHeight uint32
	if tip > window {
		minHeight = tip - window
	}

	rows, err := a.repos.Proven.FindProvenAboveHeight(ctx, minHeight)
	if err != nil {
		return 0, err
	}

	orphaned := 0
	for _, row := range rows {
		valid, err := a.services.IsValidRootForHeight(ctx, row.MerkleRoot, row.Height)
		if err != nil {
			a.logger.WarnContext(ctx, "Reorg check skipped",
				logging.TxID(row.TxID), logging.Error(err))
			continue
		}
		if valid {
			continue
		}

		if err := a.repos.Proven.ReopenReq(ctx, row.TxID, historyNote("monitor-reorg", 0)); err != nil {
			return orphaned, err
		}
		if err := a.repos.Transactions.UnlinkProven(ctx, row.TxID); err != nil {
			return orphaned, err
		}
		if err := a.repos.Proven.DeleteProven(ctx, row.ID); err != nil {
			return orphaned, err
		}
		orphaned++
		a.logger.WarnContext(ctx, "Proof orphaned by reorg",
			logging.TxID(row.TxID),
			slog.Uint64("height", uint64(row.Height)),
		)
	}
	return orphaned, nil
}

// leafOffset finds the position of the txid in the proof's leaf level.
func leafOffset(path *transaction.MerklePath, txID string) (uint64, error) {
	if len(path.Path) == 0 {
		return 0, fmt.Errorf("merkle path for %s has no leaf level", txID)
	}
	for _, leaf := range path.Path[0] {
		if leaf.Hash != nil && leaf.Hash.String() == txID {
			return leaf.Offset, nil
		}
	}
	return 0, fmt.Errorf("txid %s not present in its merkle path", txID)
}
