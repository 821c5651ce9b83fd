package actions

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/icellan/wallet-toolbox/pkg/internal/txutils"
	"github.com/icellan/wallet-toolbox/pkg/storage/internal/models"
	"github.com/icellan/wallet-toolbox/pkg/storage/internal/repo"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/wdk/primitives"
)

// ListActions returns a page of the user's transactions filtered by labels.
func (a *Actions) ListActions(ctx context.Context, userID int, args *wdk.ListActionsArgs) (*wdk.ListActionsResult, error) {
	queryMode := wdk.QueryModeAny
	if args.LabelQueryMode != nil {
		queryMode = *args.LabelQueryMode
	}

	limit := int(args.Limit)
	if limit == 0 {
		limit = wdk.DefaultListLimit
	}

	rows, total, err := a.repos.Transactions.ListActions(ctx, repo.ListActionsQuery{
		UserID:    userID,
		Labels:    stringsOf(args.Labels),
		QueryMode: queryMode,
		Reference: args.Reference,
		Limit:     limit,
		Offset:    int(args.Offset),
	})
	if err != nil {
		return nil, err
	}

	result := &wdk.ListActionsResult{
		TotalActions: primitives.PositiveInteger(total),
		Actions:      make([]wdk.WalletAction, 0, len(rows)),
	}
	for _, row := range rows {
		action, err := a.toWalletAction(ctx, userID, row, args)
		if err != nil {
			return nil, err
		}
		result.Actions = append(result.Actions, *action)
	}
	return result, nil
}

func (a *Actions) toWalletAction(ctx context.Context, userID int, row *models.Transaction, args *wdk.ListActionsArgs) (*wdk.WalletAction, error) {
	action := &wdk.WalletAction{
		Satoshis:    row.Satoshis,
		Status:      row.Status,
		IsOutgoing:  row.IsOutgoing,
		Description: row.Description,
	}
	if row.TxID != nil {
		action.TxID = *row.TxID
	}
	if row.Version != nil {
		action.Version = *row.Version
	}
	if row.LockTime != nil {
		action.LockTime = *row.LockTime
	}

	if args.IncludeLabels != nil && bool(*args.IncludeLabels) {
		action.Labels = make([]string, 0, len(row.Labels))
		for _, label := range row.Labels {
			action.Labels = append(action.Labels, label.Name)
		}
	}

	if args.IncludeOutputs != nil && bool(*args.IncludeOutputs) {
		action.Outputs = make([]wdk.WalletActionOutput, 0, len(row.Outputs))
		for _, output := range row.Outputs {
			mapped := wdk.WalletActionOutput{
				Satoshis:          output.Satoshis,
				Spendable:         output.Spendable,
				OutputIndex:       output.Vout,
				OutputDescription: output.OutputDescription,
			}
			if output.Basket != nil {
				mapped.Basket = output.Basket.Name
			}
			for _, tag := range output.Tags {
				mapped.Tags = append(mapped.Tags, tag.Name)
			}
			script, err := a.materializeScript(output, row.RawTx)
			if err != nil {
				return nil, err
			}
			mapped.LockingScript = hex.EncodeToString(script)
			if output.CustomInstructions != nil {
				mapped.CustomInstructions = *output.CustomInstructions
			}
			action.Outputs = append(action.Outputs, mapped)
		}
	}

	if args.IncludeInputs != nil && bool(*args.IncludeInputs) && len(row.RawTx) > 0 {
		tx, err := transaction.NewTransactionFromBytes(row.RawTx)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored raw tx: %w", err)
		}
		for _, input := range tx.Inputs {
			mapped := wdk.WalletActionInput{
				SourceOutpoint: fmt.Sprintf("%s.%d", input.SourceTXID, input.SourceTxOutIndex),
				SequenceNumber: input.SequenceNumber,
			}
			if input.UnlockingScript != nil {
				mapped.UnlockingScript = input.UnlockingScript.String()
			}
			source, err := a.repos.Outputs.FindByOutpoint(ctx, userID, input.SourceTXID.String(), input.SourceTxOutIndex)
			if err != nil {
				return nil, err
			}
			if source != nil {
				mapped.SourceSatoshis = source.Satoshis
				mapped.SourceLockingScript = hex.EncodeToString(source.LockingScript)
				if source.SpendingDescription != nil {
					mapped.InputDescription = *source.SpendingDescription
				}
			}
			action.Inputs = append(action.Inputs, mapped)
		}
	}

	return action, nil
}

// materializeScript returns the output's locking script, slicing it out of
// the raw transaction when it was stored as a window.
func (a *Actions) materializeScript(output *models.Output, rawTx []byte) ([]byte, error) {
	if output.LockingScript != nil {
		return output.LockingScript, nil
	}
	if output.ScriptOffset == nil || output.ScriptLength == nil || len(rawTx) == 0 {
		return nil, nil
	}
	script, err := txutils.LockingScriptFromRawTx(rawTx, uint64(*output.ScriptOffset), uint64(*output.ScriptLength))
	if err != nil {
		return nil, fmt.Errorf("failed to materialize locking script: %w", err)
	}
	return script, nil
}
