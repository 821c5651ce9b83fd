package actions

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
	"github.com/icellan/wallet-toolbox/pkg/storage/internal/models"
	"github.com/icellan/wallet-toolbox/pkg/storage/internal/repo"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/wdk/primitives"
	"github.com/icellan/wallet-toolbox/pkg/werr"
)

// ListOutputs returns a page of the user's outputs. Magic basket names
// reroute the call to one of the SpecOps: balance aggregation, change
// liveness audit or change management configuration.
func (a *Actions) ListOutputs(ctx context.Context, userID int, args *wdk.ListOutputsArgs) (*wdk.ListOutputsResult, error) {
	basket := string(args.Basket)

	switch basket {
	case wdk.SpecOpWalletBalance:
		return a.specOpWalletBalance(ctx, userID)
	case wdk.SpecOpInvalidChange:
		return a.specOpInvalidChange(ctx, userID, args)
	case wdk.SpecOpSetWalletChangeParams:
		return a.specOpSetWalletChangeParams(ctx, userID, args)
	}

	query := repo.ListOutputsQuery{
		UserID:       userID,
		QueryMode:    wdk.QueryModeAny,
		IncludeSpent: args.IncludeSpent,
		Limit:        int(args.Limit),
		Offset:       int(args.Offset),
	}
	if args.TagQueryMode != nil {
		query.QueryMode = *args.TagQueryMode
	}
	if query.Limit == 0 {
		query.Limit = wdk.DefaultListLimit
	}

	// Meta-selector tags adjust the query instead of matching tag rows.
	for _, tag := range args.Tags {
		switch string(tag) {
		case wdk.TagSelectorChange:
			change := true
			query.Change = &change
		case wdk.TagSelectorSpent:
			spent := true
			query.Spent = &spent
		case wdk.TagSelectorUnspent:
			spent := false
			query.Spent = &spent
		case wdk.TagSelectorAll:
			// No basket restriction, and spent rows come back too.
			query.IncludeSpent = true
		default:
			query.Tags = append(query.Tags, string(tag))
		}
	}

	if basket != "" && !containsSelector(args.Tags, wdk.TagSelectorAll) {
		basketRow, err := a.repos.Baskets.FindBasket(ctx, userID, basket)
		if err != nil {
			return nil, err
		}
		if basketRow == nil {
			return &wdk.ListOutputsResult{Outputs: []*wdk.WalletOutput{}}, nil
		}
		query.BasketID = &basketRow.BasketID
	}

	rows, total, err := a.repos.Outputs.ListOutputs(ctx, query)
	if err != nil {
		return nil, err
	}

	result := &wdk.ListOutputsResult{
		TotalOutputs: primitives.PositiveInteger(total),
		Outputs:      make([]*wdk.WalletOutput, 0, len(rows)),
	}

	var labelMap map[uint][]string
	if args.IncludeLabels {
		transactionIDs := make([]uint, 0, len(rows))
		for _, row := range rows {
			transactionIDs = append(transactionIDs, row.TransactionID)
		}
		labelMap, err = a.repos.Transactions.LabelsForTransactionIDs(ctx, transactionIDs)
		if err != nil {
			return nil, err
		}
	}

	for _, row := range rows {
		output, err := a.toWalletOutput(ctx, userID, row, args)
		if err != nil {
			return nil, err
		}
		if labelMap != nil {
			for _, label := range labelMap[row.TransactionID] {
				output.Labels = append(output.Labels, primitives.StringUnder300(label))
			}
		}
		result.Outputs = append(result.Outputs, output)
	}

	if args.IncludeTransactions {
		beefBytes, err := a.beefForListedOutputs(ctx, userID, rows, args.KnownTxids)
		if err != nil {
			return nil, err
		}
		result.BEEF = beefBytes
	}

	return result, nil
}

func (a *Actions) toWalletOutput(ctx context.Context, userID int, row *models.Output, args *wdk.ListOutputsArgs) (*wdk.WalletOutput, error) {
	txID := ""
	if row.TxID != nil {
		txID = *row.TxID
	}
	output := &wdk.WalletOutput{
		Satoshis:  row.Satoshis,
		Spendable: row.Spendable,
		Outpoint:  primitives.NewOutpointString(txID, row.Vout),
	}
	if args.IncludeCustomInstructions {
		output.CustomInstructions = row.CustomInstructions
	}
	if args.IncludeTags {
		for _, tag := range row.Tags {
			output.Tags = append(output.Tags, primitives.StringUnder300(tag.Name))
		}
	}
	if args.IncludeLockingScripts {
		script, err := a.outputScript(ctx, userID, row)
		if err != nil {
			return nil, err
		}
		if script != nil {
			hexScript := primitives.HexString(hex.EncodeToString(script))
			output.LockingScript = &hexScript
		}
	}
	return output, nil
}

// outputScript materializes the output's locking script, loading the owning
// transaction's raw bytes when the script was stored as a window.
func (a *Actions) outputScript(ctx context.Context, userID int, row *models.Output) ([]byte, error) {
	if row.LockingScript != nil {
		return row.LockingScript, nil
	}
	if row.ScriptOffset == nil || row.ScriptLength == nil || row.TxID == nil {
		return nil, nil
	}
	txRow, err := a.repos.Transactions.FindByTxID(ctx, userID, *row.TxID)
	if err != nil {
		return nil, err
	}
	if txRow == nil || len(txRow.RawTx) == 0 {
		return nil, nil
	}
	return a.materializeScript(row, txRow.RawTx)
}

func (a *Actions) beefForListedOutputs(ctx context.Context, userID int, rows []*models.Output, knownTxids []string) (primitives.ExplicitByteArray, error) {
	beef := transaction.NewBeefV2()
	asm := beefAssembly{
		userID:         userID,
		known:          make(map[string]struct{}, len(knownTxids)),
		ignoreServices: true,
	}
	for _, txid := range knownTxids {
		asm.known[txid] = struct{}{}
	}

	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if row.TxID == nil || *row.TxID == "" {
			continue
		}
		if _, ok := seen[*row.TxID]; ok {
			continue
		}
		seen[*row.TxID] = struct{}{}
		if err := a.mergeAncestry(ctx, asm, beef, *row.TxID, 0); err != nil {
			return nil, err
		}
	}
	if len(knownTxids) > 0 {
		beef.TrimknownTxIDs(knownTxids)
	}

	bytes, err := beef.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize outputs BEEF: %w", err)
	}
	return bytes, nil
}

// specOpWalletBalance sums the user's spendable change without listing rows.
func (a *Actions) specOpWalletBalance(ctx context.Context, userID int) (*wdk.ListOutputsResult, error) {
	basket, err := a.repos.Baskets.FindBasket(ctx, userID, wdk.BasketNameForChange)
	if err != nil {
		return nil, err
	}
	if basket == nil {
		return nil, fmt.Errorf("user %d has no %q basket: %w", userID, wdk.BasketNameForChange, werr.ErrRuntime)
	}
	total, err := a.repos.Outputs.SumSpendableChange(ctx, userID, basket.BasketID)
	if err != nil {
		return nil, err
	}
	return &wdk.ListOutputsResult{
		TotalOutputs: primitives.PositiveInteger(total),
		Outputs:      []*wdk.WalletOutput{},
	}, nil
}

// specOpInvalidChange audits the user's spendable change against the chain
// services and returns the outputs that are no longer live UTXOs. With the
// release selector, dead outputs also stop being spendable.
func (a *Actions) specOpInvalidChange(ctx context.Context, userID int, args *wdk.ListOutputsArgs) (*wdk.ListOutputsResult, error) {
	if a.services == nil {
		return nil, fmt.Errorf("change audit requires chain services: %w", werr.ErrRuntime)
	}
	basket, err := a.repos.Baskets.FindBasket(ctx, userID, wdk.BasketNameForChange)
	if err != nil {
		return nil, err
	}
	if basket == nil {
		return nil, fmt.Errorf("user %d has no %q basket: %w", userID, wdk.BasketNameForChange, werr.ErrRuntime)
	}

	release := containsSelector(args.Tags, wdk.TagSelectorRelease)

	candidates, err := a.repos.Outputs.FindSpendableChange(ctx, userID, basket.BasketID)
	if err != nil {
		return nil, err
	}

	var invalid []*wdk.WalletOutput
	for _, candidate := range candidates {
		if candidate.TxID == nil {
			continue
		}
		script, err := a.outputScript(ctx, userID, candidate)
		if err != nil {
			return nil, err
		}
		if script == nil {
			continue
		}
		outpoint := string(primitives.NewOutpointString(*candidate.TxID, candidate.Vout))
		status, err := a.services.GetUTXOStatus(ctx, hex.EncodeToString(script), wdk.UTXOFormatScript, outpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to audit output %s: %w", outpoint, err)
		}
		if status.IsUTXO {
			continue
		}

		invalid = append(invalid, &wdk.WalletOutput{
			Satoshis:  candidate.Satoshis,
			Spendable: candidate.Spendable,
			Outpoint:  primitives.NewOutpointString(*candidate.TxID, candidate.Vout),
		})
		if release {
			if err := a.repos.Outputs.SetSpendable(ctx, candidate.ID, false); err != nil {
				return nil, err
			}
			a.logger.InfoContext(ctx, "Released invalid change output",
				logging.UserID(userID),
				slog.String("outpoint", outpoint),
				slog.Int64("satoshis", candidate.Satoshis),
			)
		}
	}

	return &wdk.ListOutputsResult{
		TotalOutputs: primitives.PositiveInteger(len(invalid)),
		Outputs:      invalid,
	}, nil
}

// specOpSetWalletChangeParams reconfigures the default basket from the first
// two tags: desired UTXO count and minimum UTXO value.
func (a *Actions) specOpSetWalletChangeParams(ctx context.Context, userID int, args *wdk.ListOutputsArgs) (*wdk.ListOutputsResult, error) {
	if len(args.Tags) < 2 {
		return nil, werr.InvalidParameter("tags",
			"two numeric values: desired UTXO count and minimum UTXO value")
	}
	desired, err := strconv.ParseInt(string(args.Tags[0]), 10, 64)
	if err != nil || desired < 1 {
		return nil, werr.InvalidParameter("tags[0]", "a positive desired UTXO count")
	}
	minimum, err := strconv.ParseUint(string(args.Tags[1]), 10, 64)
	if err != nil || minimum < 1 {
		return nil, werr.InvalidParameter("tags[1]", "a positive minimum UTXO value")
	}

	err = a.repos.Baskets.UpdateBasketPolicy(ctx, userID, wdk.BasketNameForChange, desired, minimum)
	if err != nil {
		return nil, err
	}

	a.logger.InfoContext(ctx, "Updated change management parameters",
		logging.UserID(userID),
		slog.Int64("desiredUTXOs", desired),
		slog.Uint64("minimumUTXOValue", minimum),
	)

	return &wdk.ListOutputsResult{Outputs: []*wdk.WalletOutput{}}, nil
}

func containsSelector(tags []primitives.StringUnder300, selector string) bool {
	for _, tag := range tags {
		if string(tag) == selector {
			return true
		}
	}
	return false
}
