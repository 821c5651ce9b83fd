package actions

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bsv-blockchain/go-sdk/transaction"
	"gorm.io/gorm"

	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
	"github.com/icellan/wallet-toolbox/pkg/internal/satoshi"
	"github.com/icellan/wallet-toolbox/pkg/storage/internal/models"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/werr"
)

// internalizedOutput pairs a prepared output row with its tags and, when the
// transaction merges into an existing row, the output it replaces.
type internalizedOutput struct {
	row        *models.Output
	tags       []string
	existingID uint
	// satoshiDelta is this output's contribution to the user's balance.
	satoshiDelta satoshi.Value
}

// Internalize merges an externally produced transaction into the wallet. Each
// selected output becomes either wallet change (wallet payment protocol) or a
// tracked basket output (basket insertion protocol). When the transaction is
// already known to the wallet, the new treatment merges into the existing rows.
func (a *Actions) Internalize(ctx context.Context, userID int, args *wdk.InternalizeActionArgs) (*wdk.InternalizeActionResult, error) {
	beef, txIDHash, err := transaction.NewBeefFromAtomicBytes(args.Tx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse atomic BEEF: %w", err)
	}
	tx := beef.FindAtomicTransaction(txIDHash.String())
	if tx == nil {
		return nil, werr.InvalidParameterf("tx", "an atomic BEEF containing subject transaction %s", txIDHash)
	}
	txID := txIDHash.String()

	storedTx, err := a.repos.Transactions.FindByTxID(ctx, userID, txID)
	if err != nil {
		return nil, err
	}
	isMerge := storedTx != nil
	if isMerge && !allowedMergeStatus(wdk.TxStatus(storedTx.Status)) {
		return nil, werr.InvalidParameterf("tx",
			"mergeable; transaction %s has status %q", txID, storedTx.Status)
	}

	outputs, totalDelta, err := a.prepareInternalizedOutputs(ctx, userID, tx, txID, args.Outputs, isMerge)
	if err != nil {
		return nil, err
	}

	if isMerge {
		err = a.mergeIntoExistingTx(ctx, userID, storedTx, outputs, totalDelta, args)
	} else {
		err = a.storeInternalizedTx(ctx, userID, args, txID, tx, totalDelta, outputs)
	}
	if err != nil {
		return nil, err
	}

	if tx.MerklePath != nil {
		if err := a.recordProofFromInternalize(ctx, txID, tx); err != nil {
			a.logger.WarnContext(ctx, "Failed to record proof carried by internalized transaction",
				logging.UserID(userID),
				slog.String("txID", txID),
				slog.String("error", err.Error()),
			)
		}
	}

	a.logger.InfoContext(ctx, "Action internalized",
		logging.UserID(userID),
		slog.String("txID", txID),
		slog.Bool("isMerge", isMerge),
		slog.Int64("satoshis", totalDelta.Int64()),
	)

	return &wdk.InternalizeActionResult{
		Accepted: true,
		IsMerge:  isMerge,
		TxID:     txID,
		Satoshis: totalDelta.Int64(),
	}, nil
}

// prepareInternalizedOutputs converts the per-output treatment requests into
// output rows and computes the net effect on the user's balance. A wallet
// payment adds its satoshis unless the output is already wallet change; a
// basket insertion that demotes existing change subtracts them.
func (a *Actions) prepareInternalizedOutputs(
	ctx context.Context,
	userID int,
	tx *transaction.Transaction,
	txID string,
	specs []*wdk.InternalizeOutput,
	isMerge bool,
) ([]*internalizedOutput, satoshi.Value, error) {
	var outputs []*internalizedOutput
	total := satoshi.Zero()

	var changeBasket *models.OutputBasket

	for _, spec := range specs {
		if int(spec.OutputIndex) >= len(tx.Outputs) {
			return nil, 0, werr.InvalidParameterf("outputs",
				"outputIndex %d within the transaction's %d outputs", spec.OutputIndex, len(tx.Outputs))
		}
		txOutput := tx.Outputs[spec.OutputIndex]

		var existing *models.Output
		if isMerge {
			var err error
			existing, err = a.repos.Outputs.FindByOutpoint(ctx, userID, txID, spec.OutputIndex)
			if err != nil {
				return nil, 0, err
			}
		}
		wasChange := existing != nil && existing.Change

		switch spec.Protocol {
		case wdk.WalletPaymentProtocol:
			if wasChange {
				// Already counted toward the user's balance.
				continue
			}
			if changeBasket == nil {
				var err error
				changeBasket, err = a.repos.Baskets.FindBasket(ctx, userID, wdk.BasketNameForChange)
				if err != nil {
					return nil, 0, err
				}
				if changeBasket == nil {
					return nil, 0, fmt.Errorf("user %d has no %q basket: %w", userID, wdk.BasketNameForChange, werr.ErrRuntime)
				}
			}

			value, err := satoshi.From(txOutput.Satoshis)
			if err != nil {
				return nil, 0, err
			}
			total, err = satoshi.Add(total, value)
			if err != nil {
				return nil, 0, err
			}

			remittance := spec.PaymentRemittance
			prefix := string(remittance.DerivationPrefix)
			suffix := string(remittance.DerivationSuffix)
			sender := string(remittance.SenderIdentityKey)
			internalized := &internalizedOutput{
				row: &models.Output{
					UserID:            userID,
					Vout:              spec.OutputIndex,
					BasketID:          &changeBasket.BasketID,
					Spendable:         true,
					Change:            true,
					Satoshis:          value.Int64(),
					Type:              string(wdk.OutputTypeP2PKH),
					ProvidedBy:        wdk.ProvidedByStorage,
					Purpose:           wdk.ChangePurpose,
					TxID:              &txID,
					SenderIdentityKey: &sender,
					DerivationPrefix:  &prefix,
					DerivationSuffix:  &suffix,
					LockingScript:     txOutput.LockingScript.Bytes(),
				},
				satoshiDelta: value,
			}
			if existing != nil {
				internalized.existingID = existing.ID
			}
			outputs = append(outputs, internalized)

		case wdk.BasketInsertionProtocol:
			remittance := spec.InsertionRemittance
			basket, err := a.repos.Baskets.FindOrInsertBasket(ctx, userID, string(remittance.Basket))
			if err != nil {
				return nil, 0, err
			}

			value, err := satoshi.From(txOutput.Satoshis)
			if err != nil {
				return nil, 0, err
			}

			internalized := &internalizedOutput{
				row: &models.Output{
					UserID:             userID,
					Vout:               spec.OutputIndex,
					BasketID:           &basket.BasketID,
					Spendable:          true,
					Change:             false,
					Satoshis:           value.Int64(),
					Type:               string(wdk.OutputTypeCustom),
					ProvidedBy:         wdk.ProvidedByYou,
					TxID:               &txID,
					CustomInstructions: remittance.CustomInstructions,
					LockingScript:      txOutput.LockingScript.Bytes(),
				},
				tags: stringsOf(remittance.Tags),
			}
			if existing != nil {
				internalized.existingID = existing.ID
			}
			if wasChange {
				// Demoting change to a user basket reduces the balance.
				total, err = satoshi.Subtract(total, value)
				if err != nil {
					return nil, 0, err
				}
				internalized.satoshiDelta = satoshi.MustFrom(-value.Int64())
			}
			outputs = append(outputs, internalized)

		default:
			return nil, 0, werr.InvalidParameterf("outputs.protocol", "a known protocol, got %q", spec.Protocol)
		}
	}

	return outputs, total, nil
}

// mergeIntoExistingTx applies the internalized treatment to a transaction the
// wallet already tracks: new labels are attached, rows are updated in place
// and the transaction's net satoshis shift by the delta.
func (a *Actions) mergeIntoExistingTx(ctx context.Context, userID int, storedTx *models.Transaction, outputs []*internalizedOutput, totalDelta satoshi.Value, args *wdk.InternalizeActionArgs) error {
	err := a.db.Transaction(func(dbtx *gorm.DB) error {
		if err := a.repos.Transactions.AddLabels(ctx, dbtx, userID, storedTx.ID, stringsOf(args.Labels)); err != nil {
			return err
		}

		for _, out := range outputs {
			out.row.TransactionID = storedTx.ID
			if out.existingID != 0 {
				out.row.ID = out.existingID
				if err := a.repos.Outputs.Save(ctx, dbtx, out.row); err != nil {
					return err
				}
				continue
			}
			if err := a.repos.Outputs.CreateWithTags(ctx, dbtx, out.row, out.tags); err != nil {
				return err
			}
		}

		return a.repos.Transactions.AddSatoshis(ctx, dbtx, storedTx.ID, totalDelta.Int64())
	})
	if err != nil {
		return fmt.Errorf("failed to merge internalized action: %w", err)
	}
	return nil
}

// storeInternalizedTx records a transaction the wallet has never seen,
// together with its treated outputs and a proof request the monitor polls.
func (a *Actions) storeInternalizedTx(
	ctx context.Context,
	userID int,
	args *wdk.InternalizeActionArgs,
	txID string,
	tx *transaction.Transaction,
	totalDelta satoshi.Value,
	outputs []*internalizedOutput,
) error {
	reference, err := a.randomReference()
	if err != nil {
		return fmt.Errorf("failed to generate reference: %w", err)
	}

	version := tx.Version
	lockTime := tx.LockTime
	txRow := &models.Transaction{
		UserID:      userID,
		Status:      wdk.TxStatusUnproven.String(),
		Reference:   reference,
		IsOutgoing:  false,
		Satoshis:    totalDelta.Int64(),
		Version:     &version,
		LockTime:    &lockTime,
		Description: string(args.Description),
		TxID:        &txID,
		RawTx:       tx.Bytes(),
	}

	err = a.db.Transaction(func(dbtx *gorm.DB) error {
		if err := a.repos.Transactions.CreateWithLabels(ctx, dbtx, txRow, stringsOf(args.Labels)); err != nil {
			return err
		}
		for _, out := range outputs {
			out.row.TransactionID = txRow.ID
			if err := a.repos.Outputs.CreateWithTags(ctx, dbtx, out.row, out.tags); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store internalized action: %w", err)
	}

	// The proof request lets the monitor confirm the transaction; never
	// regress a request that already completed.
	existingReq, err := a.repos.Proven.FindReqByTxID(ctx, txID)
	if err != nil {
		return err
	}
	if existingReq == nil || !wdk.ProvenTxReqStatus(existingReq.Status).Terminal() {
		err = a.repos.Proven.UpsertReq(ctx, &models.ProvenTxReq{
			Status:  string(wdk.ProvenTxStatusUnmined),
			TxID:    txID,
			RawTx:   tx.Bytes(),
			Notify:  notifyJSON(txRow.ID),
			History: historyNote("internalize-action", userID),
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// recordProofFromInternalize verifies and stores the merkle path carried by
// the internalized transaction so the monitor does not have to fetch it.
func (a *Actions) recordProofFromInternalize(ctx context.Context, txID string, tx *transaction.Transaction) error {
	root, err := tx.MerklePath.ComputeRootHex(&txID)
	if err != nil {
		return fmt.Errorf("failed to compute merkle root: %w", err)
	}

	height := tx.MerklePath.BlockHeight
	blockHash := ""
	if a.services != nil {
		valid, err := a.services.IsValidRootForHeight(ctx, root, height)
		if err != nil {
			return fmt.Errorf("failed to verify merkle root: %w", err)
		}
		if !valid {
			return fmt.Errorf("merkle root %s is not valid for height %d: %w", root, height, werr.ErrInvalidParameter)
		}
		if header, err := a.services.FindHeaderForHeight(ctx, height); err == nil && header != nil {
			blockHash = header.Hash
		}
	}

	proven, err := a.repos.Proven.InsertProven(ctx, &models.ProvenTx{
		TxID:       txID,
		Height:     height,
		MerklePath: tx.MerklePath.Bytes(),
		RawTx:      tx.Bytes(),
		BlockHash:  blockHash,
		MerkleRoot: root,
	})
	if err != nil {
		return err
	}

	if req, err := a.repos.Proven.FindReqByTxID(ctx, txID); err == nil && req != nil {
		if err := a.repos.Proven.CompleteReq(ctx, req.ID, proven.ID, historyNote("internalize-proof", 0)); err != nil {
			return err
		}
	}

	return a.repos.Transactions.LinkProven(ctx, txID, proven.ID)
}

func allowedMergeStatus(status wdk.TxStatus) bool {
	switch status {
	case wdk.TxStatusCompleted, wdk.TxStatusUnproven, wdk.TxStatusNoSend:
		return true
	default:
		return false
	}
}
