package actions

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/bsv-blockchain/go-sdk/transaction"
	"gorm.io/gorm"

	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
	"github.com/icellan/wallet-toolbox/pkg/internal/satoshi"
	"github.com/icellan/wallet-toolbox/pkg/internal/txutils"
	"github.com/icellan/wallet-toolbox/pkg/storage/internal/models"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/wdk/primitives"
	"github.com/icellan/wallet-toolbox/pkg/werr"
)

// resolvedInput is a declared input after its source output has been located
// in storage or in the supplied input BEEF.
type resolvedInput struct {
	arg           *wdk.ValidCreateActionInput
	stored        *models.Output
	satoshis      int64
	lockingScript string
	scriptLength  uint64
}

// Create persists a new unsigned transaction: it resolves the declared
// inputs, funds the shortfall from the default change basket, reserves the
// allocated outputs and records every output row, all in one database
// transaction. The caller signs against the returned reference.
func (a *Actions) Create(ctx context.Context, userID int, vargs *wdk.ValidCreateActionArgs) (*wdk.StorageCreateActionResult, error) {
	reference, err := a.randomReference()
	if err != nil {
		return nil, fmt.Errorf("failed to generate reference: %w", err)
	}

	basket, err := a.repos.Baskets.FindBasket(ctx, userID, wdk.BasketNameForChange)
	if err != nil {
		return nil, err
	}
	if basket == nil {
		return nil, fmt.Errorf("user %d has no %q basket: %w", userID, wdk.BasketNameForChange, werr.ErrRuntime)
	}

	var inputBeef *transaction.Beef
	if len(vargs.InputBEEF) > 0 {
		inputBeef, err = transaction.NewBeefFromBytes(vargs.InputBEEF)
		if err != nil {
			return nil, fmt.Errorf("failed to parse input BEEF: %w", err)
		}
	}

	resolved, err := a.resolveInputs(ctx, userID, vargs, inputBeef)
	if err != nil {
		return nil, err
	}

	noSendChange, err := a.resolveNoSendChange(ctx, userID, vargs)
	if err != nil {
		return nil, err
	}

	var commissionScript []byte
	var commissionKeyOffset string
	if a.commission != nil {
		lockingScript, keyOffset, err := a.commission.Generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate commission script: %w", err)
		}
		commissionScript = lockingScript.Bytes()
		commissionKeyOffset = keyOffset
	}

	targetSat, initialSize := a.fundingTarget(vargs, resolved, noSendChange, uint64(len(commissionScript)))

	funding, err := a.funder.Fund(ctx, targetSat, initialSize, basket, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fund action: %w", err)
	}
	allocated := append(noSendChange, funding.AllocatedOutputs...)

	changeValues := txutils.NewChangeDistribution(
		satoshi.MustFrom(basket.MinimumDesiredUTXOValue),
		a.random.Uint64,
	).Distribute(funding.ChangeOutputsCount, satoshi.MustFrom(funding.ChangeAmount))

	derivationPrefix, err := a.randomDerivation()
	if err != nil {
		return nil, fmt.Errorf("failed to generate derivation prefix: %w", err)
	}

	txRow := &models.Transaction{
		UserID:      userID,
		Status:      wdk.TxStatusUnsigned.String(),
		Reference:   reference,
		IsOutgoing:  true,
		Satoshis:    funding.ChangeAmount - funding.TotalAllocated,
		Version:     &vargs.Version,
		LockTime:    &vargs.LockTime,
		Description: string(vargs.Description),
		InputBeef:   vargs.InputBEEF,
	}

	outputRows, outputTags, resultOutputs, err := a.buildOutputRows(
		userID, vargs, basket, changeValues, derivationPrefix,
		commissionScript,
	)
	if err != nil {
		return nil, err
	}

	reservedIDs := make([]uint, 0, len(allocated))
	for _, out := range allocated {
		reservedIDs = append(reservedIDs, out.ID)
	}
	for _, in := range resolved {
		if in.stored != nil {
			reservedIDs = append(reservedIDs, in.stored.ID)
		}
	}

	err = a.db.Transaction(func(tx *gorm.DB) error {
		if err := a.repos.Transactions.CreateWithLabels(ctx, tx, txRow, stringsOf(vargs.Labels)); err != nil {
			return err
		}
		for i, row := range outputRows {
			row.TransactionID = txRow.ID
			if err := a.repos.Outputs.CreateWithTags(ctx, tx, row, outputTags[i]); err != nil {
				return err
			}
		}
		if err := a.repos.Outputs.ReserveOutputs(ctx, tx, reservedIDs, txRow.ID); err != nil {
			return err
		}
		if commissionScript != nil {
			return a.repos.Commissions.InsertCommission(ctx, tx, &models.Commission{
				UserID:        userID,
				TransactionID: txRow.ID,
				Satoshis:      a.commissionCfg.Satoshis,
				KeyOffset:     commissionKeyOffset,
				LockingScript: commissionScript,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist created action: %w", err)
	}

	resultInputs := a.buildResultInputs(resolved, allocated)

	beefBytes, err := a.assembleInputBeef(ctx, userID, vargs, inputBeef, allocated)
	if err != nil {
		return nil, err
	}

	result := &wdk.StorageCreateActionResult{
		Reference:        reference,
		Version:          vargs.Version,
		LockTime:         vargs.LockTime,
		Inputs:           resultInputs,
		Outputs:          resultOutputs,
		DerivationPrefix: derivationPrefix,
		InputBeef:        beefBytes,
	}
	if vargs.IsNoSend {
		for _, out := range resultOutputs {
			if out.Purpose == wdk.ChangePurpose {
				result.NoSendChangeOutputVouts = append(result.NoSendChangeOutputVouts, out.Vout)
			}
		}
	}

	a.logger.InfoContext(ctx, "Action created",
		logging.UserID(userID),
		logging.Reference(reference),
		slog.Int("inputs", len(resultInputs)),
		slog.Int("outputs", len(resultOutputs)),
		slog.Int64("fee", funding.Fee),
	)

	return result, nil
}

// resolveInputs locates each declared input in storage first and in the
// supplied BEEF second. Storage-known inputs must still be spendable.
func (a *Actions) resolveInputs(ctx context.Context, userID int, vargs *wdk.ValidCreateActionArgs, inputBeef *transaction.Beef) ([]*resolvedInput, error) {
	resolved := make([]*resolvedInput, 0, len(vargs.Inputs))
	for i := range vargs.Inputs {
		input := &vargs.Inputs[i]

		scriptLength, err := input.ScriptLength()
		if err != nil {
			return nil, werr.InvalidParameterf("inputs", "input %d: %v", i, err)
		}

		stored, err := a.repos.Outputs.FindByOutpoint(ctx, userID, input.Outpoint.TxID, input.Outpoint.Vout)
		if err != nil {
			return nil, err
		}
		if stored != nil {
			if !stored.Spendable || stored.Spent {
				return nil, werr.InvalidParameterf("inputs",
					"already spent or reserved: %s.%d", input.Outpoint.TxID, input.Outpoint.Vout)
			}
			resolved = append(resolved, &resolvedInput{
				arg:           input,
				stored:        stored,
				satoshis:      stored.Satoshis,
				lockingScript: hex.EncodeToString(stored.LockingScript),
				scriptLength:  scriptLength,
			})
			continue
		}

		if inputBeef == nil {
			return nil, werr.InvalidParameterf("inputs",
				"unknown outpoint %s.%d and no inputBEEF to resolve it", input.Outpoint.TxID, input.Outpoint.Vout)
		}
		sourceTx := inputBeef.FindTransaction(input.Outpoint.TxID)
		if sourceTx == nil || int(input.Outpoint.Vout) >= len(sourceTx.Outputs) {
			return nil, werr.InvalidParameterf("inputs",
				"outpoint %s.%d not present in inputBEEF", input.Outpoint.TxID, input.Outpoint.Vout)
		}
		sourceOutput := sourceTx.Outputs[input.Outpoint.Vout]
		resolved = append(resolved, &resolvedInput{
			arg:           input,
			satoshis:      int64(sourceOutput.Satoshis),
			lockingScript: sourceOutput.LockingScript.String(),
			scriptLength:  scriptLength,
		})
	}
	return resolved, nil
}

// resolveNoSendChange loads the noSend change outpoints the caller wants this
// action to consume, verifying each is an unspent change output.
func (a *Actions) resolveNoSendChange(ctx context.Context, userID int, vargs *wdk.ValidCreateActionArgs) ([]*models.Output, error) {
	if len(vargs.Options.NoSendChange) == 0 {
		return nil, nil
	}
	outputs := make([]*models.Output, 0, len(vargs.Options.NoSendChange))
	for _, op := range vargs.Options.NoSendChange {
		output, err := a.repos.Outputs.FindByOutpoint(ctx, userID, op.TxID, op.Vout)
		if err != nil {
			return nil, err
		}
		if output == nil || !output.Change || !output.Spendable || output.Spent {
			return nil, werr.InvalidParameterf("options.noSendChange",
				"a spendable change output, got %s.%d", op.TxID, op.Vout)
		}
		outputs = append(outputs, output)
	}
	return outputs, nil
}

// fundingTarget computes the satoshis the funder must cover and the size of
// the transaction before change allocation. noSendChange outputs count as
// already-provided funds.
func (a *Actions) fundingTarget(vargs *wdk.ValidCreateActionArgs, resolved []*resolvedInput, noSendChange []*models.Output, commissionScriptLen uint64) (int64, uint64) {
	var target int64
	inputSizes := make([]uint64, 0, len(resolved)+len(noSendChange))

	for _, in := range resolved {
		target -= in.satoshis
		inputSizes = append(inputSizes, in.scriptLength)
	}
	for _, out := range noSendChange {
		target -= out.Satoshis
		inputSizes = append(inputSizes, txutils.P2PKHUnlockingScriptLength)
	}

	outputSizes := make([]uint64, 0, len(vargs.Outputs)+1)
	for i := range vargs.Outputs {
		target += int64(vargs.Outputs[i].Satoshis)
		outputSizes = append(outputSizes, vargs.Outputs[i].ScriptLength())
	}
	if commissionScriptLen > 0 {
		target += int64(a.commissionCfg.Satoshis)
		outputSizes = append(outputSizes, commissionScriptLen)
	}

	return target, txutils.TransactionSize(inputSizes, outputSizes)
}

// buildOutputRows assembles the output rows of the new transaction: the
// caller's outputs (optionally shuffled), the commission and the change.
// Locking scripts of change outputs stay empty until signing derives them.
func (a *Actions) buildOutputRows(
	userID int,
	vargs *wdk.ValidCreateActionArgs,
	basket *models.OutputBasket,
	changeValues []satoshi.Value,
	derivationPrefix string,
	commissionScript []byte,
) ([]*models.Output, [][]string, []wdk.StorageCreateTransactionOutput, error) {
	userOutputs := make([]*wdk.ValidCreateActionOutput, len(vargs.Outputs))
	for i := range vargs.Outputs {
		userOutputs[i] = &vargs.Outputs[i]
	}
	if vargs.Options.RandomizeOutputs {
		a.random.Shuffle(len(userOutputs), func(i, j int) {
			userOutputs[i], userOutputs[j] = userOutputs[j], userOutputs[i]
		})
	}

	var rows []*models.Output
	var tags [][]string
	var results []wdk.StorageCreateTransactionOutput
	vout := uint32(0)

	for _, out := range userOutputs {
		script, err := hex.DecodeString(string(out.LockingScript))
		if err != nil {
			return nil, nil, nil, werr.InvalidParameter("outputs.lockingScript", "a hex string")
		}

		row := &models.Output{
			UserID:            userID,
			Vout:              vout,
			Satoshis:          int64(out.Satoshis),
			Type:              string(wdk.OutputTypeCustom),
			ProvidedBy:        wdk.ProvidedByYou,
			OutputDescription: string(out.OutputDescription),
		}
		if len(script) <= a.maxScriptLen {
			row.LockingScript = script
		}
		if out.CustomInstructions != nil {
			row.CustomInstructions = out.CustomInstructions
		}

		result := wdk.StorageCreateTransactionOutput{
			Vout:              vout,
			Satoshis:          int64(out.Satoshis),
			LockingScript:     out.LockingScript,
			ProvidedBy:        wdk.ProvidedByYou,
			OutputDescription: string(out.OutputDescription),
			Tags:              stringsOf(out.Tags),
		}
		if out.Basket != nil {
			name := string(*out.Basket)
			result.Basket = &name
		}
		result.CustomInstructions = out.CustomInstructions

		rows = append(rows, row)
		tags = append(tags, stringsOf(out.Tags))
		results = append(results, result)
		vout++
	}

	if len(commissionScript) > 0 {
		rows = append(rows, &models.Output{
			UserID:        userID,
			Vout:          vout,
			Satoshis:      int64(a.commissionCfg.Satoshis),
			Type:          string(wdk.OutputTypeCustom),
			ProvidedBy:    wdk.ProvidedByStorage,
			Purpose:       wdk.ServiceChargePurpose,
			LockingScript: commissionScript,
		})
		tags = append(tags, nil)
		results = append(results, wdk.StorageCreateTransactionOutput{
			Vout:          vout,
			Satoshis:      int64(a.commissionCfg.Satoshis),
			LockingScript: primitives.HexString(hex.EncodeToString(commissionScript)),
			ProvidedBy:    wdk.ProvidedByStorage,
			Purpose:       wdk.ServiceChargePurpose,
		})
		vout++
	}

	basketName := basket.Name
	for _, value := range changeValues {
		suffix, err := a.randomDerivation()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to generate derivation suffix: %w", err)
		}
		prefix := derivationPrefix

		rows = append(rows, &models.Output{
			UserID:           userID,
			Vout:             vout,
			BasketID:         &basket.BasketID,
			Satoshis:         value.Int64(),
			Change:           true,
			Type:             string(wdk.OutputTypeP2PKH),
			ProvidedBy:       wdk.ProvidedByStorage,
			Purpose:          wdk.ChangePurpose,
			DerivationPrefix: &prefix,
			DerivationSuffix: &suffix,
		})
		tags = append(tags, nil)
		suffixCopy := suffix
		results = append(results, wdk.StorageCreateTransactionOutput{
			Vout:             vout,
			Satoshis:         value.Int64(),
			ProvidedBy:       wdk.ProvidedByStorage,
			Purpose:          wdk.ChangePurpose,
			Basket:           &basketName,
			DerivationSuffix: &suffixCopy,
		})
		vout++
	}

	return rows, tags, results, nil
}

// buildResultInputs lists the declared inputs followed by the allocated
// change, vins assigned in order.
func (a *Actions) buildResultInputs(resolved []*resolvedInput, allocated []*models.Output) []wdk.StorageCreateTransactionInput {
	inputs := make([]wdk.StorageCreateTransactionInput, 0, len(resolved)+len(allocated))
	vin := uint32(0)

	for _, in := range resolved {
		providedBy := wdk.ProvidedByYou
		inputType := string(wdk.OutputTypeCustom)
		result := wdk.StorageCreateTransactionInput{
			Vin:                   vin,
			SourceTxID:            in.arg.Outpoint.TxID,
			SourceVout:            in.arg.Outpoint.Vout,
			SourceSatoshis:        in.satoshis,
			SourceLockingScript:   primitives.HexString(in.lockingScript),
			UnlockingScriptLength: uint32(in.scriptLength),
		}
		if in.stored != nil {
			providedBy = wdk.ProvidedByYouAndStorage
			inputType = in.stored.Type
			result.DerivationPrefix = in.stored.DerivationPrefix
			result.DerivationSuffix = in.stored.DerivationSuffix
			result.SenderIdentityKey = in.stored.SenderIdentityKey
		}
		result.ProvidedBy = providedBy
		result.Type = inputType
		inputs = append(inputs, result)
		vin++
	}

	for _, out := range allocated {
		txID := ""
		if out.TxID != nil {
			txID = *out.TxID
		}
		inputs = append(inputs, wdk.StorageCreateTransactionInput{
			Vin:                   vin,
			SourceTxID:            txID,
			SourceVout:            out.Vout,
			SourceSatoshis:        out.Satoshis,
			SourceLockingScript:   primitives.HexString(hex.EncodeToString(out.LockingScript)),
			UnlockingScriptLength: txutils.P2PKHUnlockingScriptLength,
			ProvidedBy:            wdk.ProvidedByStorage,
			Type:                  out.Type,
			DerivationPrefix:      out.DerivationPrefix,
			DerivationSuffix:      out.DerivationSuffix,
		})
		vin++
	}

	return inputs
}

// assembleInputBeef merges the caller's BEEF with the ancestry of every
// allocated change output so the signer can verify what it spends.
func (a *Actions) assembleInputBeef(ctx context.Context, userID int, vargs *wdk.ValidCreateActionArgs, inputBeef *transaction.Beef, allocated []*models.Output) ([]byte, error) {
	if inputBeef == nil && len(allocated) == 0 {
		return nil, nil
	}
	beef := inputBeef
	if beef == nil {
		beef = transaction.NewBeefV2()
	}

	asm := beefAssembly{
		userID:         userID,
		known:          make(map[string]struct{}, len(vargs.Options.KnownTxids)),
		ignoreServices: true,
	}
	knownList := make([]string, 0, len(vargs.Options.KnownTxids))
	for _, txid := range vargs.Options.KnownTxids {
		asm.known[string(txid)] = struct{}{}
		knownList = append(knownList, string(txid))
	}

	for _, out := range allocated {
		if out.TxID == nil {
			return nil, fmt.Errorf("allocated output %d has no txid: %w", out.ID, werr.ErrRuntime)
		}
		if err := a.mergeAncestry(ctx, asm, beef, *out.TxID, 0); err != nil {
			return nil, err
		}
	}

	if len(knownList) > 0 {
		beef.TrimknownTxIDs(knownList)
	}

	bytes, err := beef.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize input BEEF: %w", err)
	}
	return bytes, nil
}

func stringsOf[S ~string](in []S) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
