package actions

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/werr"
)

// Abort cancels a not-yet-broadcast action by reference: inputs reserved for
// it return to the spendable pool, its own outputs stop being spendable and
// both the transaction and its proof request move to aborted.
func (a *Actions) Abort(ctx context.Context, userID int, args *wdk.AbortActionArgs) (*wdk.AbortActionResult, error) {
	reference := string(args.Reference)
	txRow, err := a.repos.Transactions.FindByReference(ctx, userID, reference)
	if err != nil {
		return nil, err
	}

	if !abortableStatus(wdk.TxStatus(txRow.Status)) {
		return nil, werr.InvalidParameterf("reference",
			"an abortable transaction; %q has status %q", reference, txRow.Status)
	}

	err = a.db.Transaction(func(dbtx *gorm.DB) error {
		if err := a.repos.Transactions.UpdateStatus(ctx, []uint{txRow.ID}, wdk.TxStatusAborted); err != nil {
			return err
		}
		if err := a.repos.Outputs.ReleaseReserved(ctx, dbtx, txRow.ID); err != nil {
			return err
		}
		if err := a.repos.Outputs.DisableByTransactionID(ctx, dbtx, txRow.ID); err != nil {
			return err
		}
		if txRow.TxID != nil {
			req, err := a.repos.Proven.FindReqByTxID(ctx, *txRow.TxID)
			if err != nil {
				return err
			}
			if req != nil && !wdk.ProvenTxReqStatus(req.Status).Terminal() {
				if err := a.repos.Proven.UpdateReqStatus(ctx, req.ID, wdk.ProvenTxStatusAborted,
					historyNote("abort-action", userID)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to abort action: %w", err)
	}

	a.logger.InfoContext(ctx, "Action aborted",
		logging.UserID(userID),
		logging.Reference(reference),
		slog.Uint64("transactionID", uint64(txRow.ID)),
	)

	return &wdk.AbortActionResult{Aborted: true}, nil
}

// abortableStatus reports whether the transaction can still be withdrawn.
// Anything the network may already have accepted cannot be aborted.
func abortableStatus(status wdk.TxStatus) bool {
	switch status {
	case wdk.TxStatusUnsigned, wdk.TxStatusUnprocessed, wdk.TxStatusSigned, wdk.TxStatusNoSend:
		return true
	default:
		return false
	}
}
