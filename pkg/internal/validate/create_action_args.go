// Package validate holds boundary validation for storage and wallet arguments.
package validate

import (
	"fmt"

	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/wdk/primitives"
	"github.com/icellan/wallet-toolbox/pkg/werr"
)

// MaxReferenceLength bounds the caller-supplied reference of a create action.
const MaxReferenceLength = 500

// CreateActionArgs checks a ValidCreateActionArgs for internal consistency,
// including the derived Is* flags against the options they are deduced from.
func CreateActionArgs(args *wdk.ValidCreateActionArgs) error {
	if err := walletCreateActionArgs(args); err != nil {
		return err
	}

	if args.IsSendWith != (len(args.Options.SendWith) > 0) {
		return werr.InvalidParameter("isSendWith", "consistent with options.sendWith")
	}

	deducedIsRemixChange := !args.IsSendWith && len(args.Inputs) == 0 && len(args.Outputs) == 0
	if args.IsRemixChange != deducedIsRemixChange {
		return werr.InvalidParameter("isRemixChange", "consistent with isSendWith, inputs and outputs")
	}

	deducedIsNewTx := args.IsRemixChange || len(args.Inputs) > 0 || len(args.Outputs) > 0
	if args.IsNewTx != deducedIsNewTx {
		return werr.InvalidParameter("isNewTx", "consistent with isRemixChange, inputs and outputs")
	}

	if !args.IsNewTx {
		return werr.InvalidParameter("args", "a new transaction description")
	}

	// Unlocking scripts are stripped before the call reaches storage, so only
	// the IsNewTx && !SignAndProcess combination can be cross-checked here.
	if args.IsNewTx && !args.Options.SignAndProcess.Value() && !args.IsSignAction {
		return werr.InvalidParameter("isSignAction", "consistent with isNewTx and options.signAndProcess")
	}

	if args.IsDelayed != args.Options.AcceptDelayedBroadcast.Value() {
		return werr.InvalidParameter("isDelayed", "consistent with options.acceptDelayedBroadcast")
	}

	if args.IsNoSend != args.Options.NoSend.Value() {
		return werr.InvalidParameter("isNoSend", "consistent with options.noSend")
	}

	return nil
}

func walletCreateActionArgs(args *wdk.ValidCreateActionArgs) error {
	if args == nil {
		return werr.InvalidParameter("args", "not nil")
	}

	if err := args.Description.Validate(); err != nil {
		return fmt.Errorf("description must be %w", err)
	}

	for i, label := range args.Labels {
		if err := label.Validate(); err != nil {
			return fmt.Errorf("label at %d must be %w", i, err)
		}
	}

	seenInputs := make(map[wdk.OutPoint]struct{})
	for i, input := range args.Inputs {
		if err := primitives.TXIDHexString(input.Outpoint.TxID).Validate(); err != nil {
			return fmt.Errorf("txid of input %d outpoint is invalid: %w", i, err)
		}
		if _, exists := seenInputs[input.Outpoint]; exists {
			return werr.InvalidParameterf("inputs", "free of duplicate outpoints, got %s.%d twice", input.Outpoint.TxID, input.Outpoint.Vout)
		}
		seenInputs[input.Outpoint] = struct{}{}

		if err := createActionInput(&args.Inputs[i]); err != nil {
			return fmt.Errorf("invalid input at %d: %w", i, err)
		}
	}

	for i := range args.Outputs {
		if err := createActionOutput(&args.Outputs[i]); err != nil {
			return fmt.Errorf("invalid output at %d: %w", i, err)
		}
	}

	if len(args.Inputs) > 0 && len(args.InputBEEF) == 0 {
		return werr.InvalidParameter("inputBEEF", "provided when inputs are present")
	}

	if !args.IsNoSend && len(args.Options.NoSendChange) > 0 {
		return werr.InvalidParameter("options.noSendChange", "used only with options.noSend")
	}

	if args.IsNoSend && hasDuplicateOutpoints(args.Options.NoSendChange) {
		return werr.InvalidParameter("options.noSendChange", "free of duplicate outpoints")
	}

	for i, txid := range args.Options.KnownTxids {
		if err := txid.Validate(); err != nil {
			return fmt.Errorf("knownTxid at %d is invalid: %w", i, err)
		}
	}

	return nil
}

func createActionInput(input *wdk.ValidCreateActionInput) error {
	if input.UnlockingScript == nil && input.UnlockingScriptLength == nil {
		return werr.InvalidParameter("input", "carrying at least one of unlockingScript, unlockingScriptLength")
	}

	if input.UnlockingScript != nil {
		if err := input.UnlockingScript.Validate(); err != nil {
			return fmt.Errorf("unlockingScript must be %w", err)
		}
		if input.UnlockingScriptLength != nil && uint(len(*input.UnlockingScript)/2) != uint(*input.UnlockingScriptLength) {
			return werr.InvalidParameter("unlockingScriptLength", "equal to the provided unlockingScript length")
		}
	}

	if err := input.InputDescription.Validate(); err != nil {
		return fmt.Errorf("inputDescription must be %w", err)
	}

	return nil
}

func createActionOutput(output *wdk.ValidCreateActionOutput) error {
	if err := output.LockingScript.Validate(); err != nil {
		return fmt.Errorf("lockingScript must be %w", err)
	}

	if err := output.Satoshis.Validate(); err != nil {
		return fmt.Errorf("satoshis must be %w", err)
	}

	if err := output.OutputDescription.Validate(); err != nil {
		return fmt.Errorf("outputDescription must be %w", err)
	}

	if output.Basket != nil {
		if err := output.Basket.Validate(); err != nil {
			return fmt.Errorf("basket must be %w", err)
		}
	}

	for _, tag := range output.Tags {
		if err := tag.Validate(); err != nil {
			return fmt.Errorf("tag must be %w", err)
		}
	}

	return nil
}

func hasDuplicateOutpoints(outpoints []wdk.OutPoint) bool {
	seen := make(map[wdk.OutPoint]struct{}, len(outpoints))
	for _, op := range outpoints {
		if _, ok := seen[op]; ok {
			return true
		}
		seen[op] = struct{}{}
	}
	return false
}
