// Package assemble turns the storage response of a created action into a
// go-sdk transaction ready to sign: caller inputs keep their supplied
// unlocking scripts, storage-funded change inputs get derived unlocking
// templates and change outputs get derived locking scripts.
package assemble

import (
	"fmt"
	"sort"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	sdk "github.com/bsv-blockchain/go-sdk/wallet"
	"github.com/go-softwarelab/common/pkg/to"

	"github.com/icellan/wallet-toolbox/pkg/brc29"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
)

// Assembler builds the transaction described by a storage CreateAction result.
type Assembler struct {
	keyDeriver     *sdk.KeyDeriver
	result         *wdk.StorageCreateActionResult
	providedInputs []wdk.ValidCreateActionInput

	inputBEEF *transaction.Beef
}

// New creates an assembler over the storage result. providedInputs are the
// caller's original inputs, positionally matching the lowest vins.
func New(keyDeriver *sdk.KeyDeriver, providedInputs []wdk.ValidCreateActionInput, result *wdk.StorageCreateActionResult) *Assembler {
	return &Assembler{
		keyDeriver:     keyDeriver,
		result:         result,
		providedInputs: providedInputs,
	}
}

// Assemble builds the unsigned transaction.
func (a *Assembler) Assemble() (*Transaction, error) {
	if err := a.parseInputBEEF(); err != nil {
		return nil, err
	}

	tx := &transaction.Transaction{
		Version:  a.result.Version,
		LockTime: a.result.LockTime,
	}

	inputs := make([]wdk.StorageCreateTransactionInput, len(a.result.Inputs))
	copy(inputs, a.result.Inputs)
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].Vin < inputs[j].Vin })

	for i := range inputs {
		input, err := a.toTxInput(&inputs[i])
		if err != nil {
			return nil, err
		}
		tx.AddInput(input)
	}

	outputs := make([]wdk.StorageCreateTransactionOutput, len(a.result.Outputs))
	copy(outputs, a.result.Outputs)
	sort.Slice(outputs, func(i, j int) bool { return outputs[i].Vout < outputs[j].Vout })

	for i := range outputs {
		output, err := a.toTxOutput(&outputs[i])
		if err != nil {
			return nil, err
		}
		tx.AddOutput(output)
	}

	return &Transaction{Transaction: tx, InputBEEF: a.inputBEEF}, nil
}

func (a *Assembler) parseInputBEEF() error {
	if len(a.result.InputBeef) == 0 {
		a.inputBEEF = transaction.NewBeefV2()
		return nil
	}
	inputBEEF, err := transaction.NewBeefFromBytes(a.result.InputBeef)
	if err != nil {
		return fmt.Errorf("cannot parse input beef of created action: %w", err)
	}
	a.inputBEEF = inputBEEF
	return nil
}

func (a *Assembler) toTxInput(it *wdk.StorageCreateTransactionInput) (*transaction.TransactionInput, error) {
	sourceTxID, err := chainhash.NewHashFromHex(it.SourceTxID)
	if err != nil {
		return nil, fmt.Errorf("cannot parse source txid of input %d: %w", it.Vin, err)
	}

	var declared *wdk.ValidCreateActionInput
	if int(it.Vin) < len(a.providedInputs) {
		declared = &a.providedInputs[it.Vin]
		if declared.Outpoint.TxID != it.SourceTxID || declared.Outpoint.Vout != it.SourceVout {
			return nil, fmt.Errorf("input %d outpoint %s.%d does not match the declared input",
				it.Vin, it.SourceTxID, it.SourceVout)
		}
	}

	// A declared input with an unlocking script is signed by the caller.
	// Everything else is wallet-managed and unlocks with a derived key,
	// including declared inputs that spend the wallet's own outputs.
	if declared != nil && declared.UnlockingScript != nil {
		return a.callerInput(it, declared, sourceTxID)
	}
	return a.fundingInput(it, declared, sourceTxID)
}

// callerInput rebuilds an input the caller declared, reattaching its
// unlocking script and resolving the source transaction from the input BEEF.
func (a *Assembler) callerInput(it *wdk.StorageCreateTransactionInput, declared *wdk.ValidCreateActionInput, sourceTxID *chainhash.Hash) (*transaction.TransactionInput, error) {
	unlockingScript, err := script.NewFromHex(declared.UnlockingScript.String())
	if err != nil {
		return nil, fmt.Errorf("cannot parse unlocking script of input %d: %w", it.Vin, err)
	}

	return &transaction.TransactionInput{
		SourceTXID:        sourceTxID,
		SourceTxOutIndex:  it.SourceVout,
		SequenceNumber:    declaredSequence(declared),
		SourceTransaction: a.inputBEEF.FindTransaction(it.SourceTxID),
		UnlockingScript:   unlockingScript,
	}, nil
}

// declaredSequence maps an absent sequence number to the final sequence, so
// only callers that opt in get locktime-enforcing inputs.
func declaredSequence(declared *wdk.ValidCreateActionInput) uint32 {
	if declared == nil || declared.SequenceNumber == 0 {
		return transaction.DefaultSequenceNumber
	}
	return uint32(declared.SequenceNumber)
}

// fundingInput rebuilds a change input selected by storage and attaches the
// unlocking template derived from its derivation invoice.
func (a *Assembler) fundingInput(it *wdk.StorageCreateTransactionInput, declared *wdk.ValidCreateActionInput, sourceTxID *chainhash.Hash) (*transaction.TransactionInput, error) {
	if it.Type != string(wdk.OutputTypeP2PKH) {
		return nil, fmt.Errorf("unexpected locking type %q on wallet-managed input %d", it.Type, it.Vin)
	}

	input := &transaction.TransactionInput{
		SourceTXID:       sourceTxID,
		SourceTxOutIndex: it.SourceVout,
		SequenceNumber:   declaredSequence(declared),
	}

	if len(it.SourceTransaction) > 0 {
		sourceTx, err := transaction.NewTransactionFromBytes(it.SourceTransaction)
		if err != nil {
			return nil, fmt.Errorf("cannot parse source transaction of input %d: %w", it.Vin, err)
		}
		input.SourceTransaction = sourceTx
	} else {
		lockingScript, err := script.NewFromHex(it.SourceLockingScript.String())
		if err != nil {
			return nil, fmt.Errorf("cannot parse source locking script of input %d: %w", it.Vin, err)
		}
		satoshis, err := to.UInt64(it.SourceSatoshis)
		if err != nil {
			return nil, fmt.Errorf("cannot convert source satoshis of input %d: %w", it.Vin, err)
		}
		input.SetSourceTxOutput(&transaction.TransactionOutput{
			Satoshis:      satoshis,
			LockingScript: lockingScript,
		})
	}

	sender := a.keyDeriver.IdentityKey()
	if it.SenderIdentityKey != nil {
		parsed, err := parsePublicKey(*it.SenderIdentityKey)
		if err != nil {
			return nil, fmt.Errorf("cannot parse sender identity key of input %d: %w", it.Vin, err)
		}
		sender = parsed
	}

	template, err := brc29.Unlock(sender, brc29.KeyID{
		DerivationPrefix: to.Value(it.DerivationPrefix),
		DerivationSuffix: to.Value(it.DerivationSuffix),
	}, a.keyDeriver)
	if err != nil {
		return nil, fmt.Errorf("cannot build unlocking template for input %d: %w", it.Vin, err)
	}
	input.UnlockingScriptTemplate = template

	return input, nil
}

func (a *Assembler) toTxOutput(it *wdk.StorageCreateTransactionOutput) (*transaction.TransactionOutput, error) {
	isChange := it.ProvidedBy == wdk.ProvidedByStorage && it.Purpose == wdk.ChangePurpose

	var lockingScript *script.Script
	var err error
	if isChange {
		lockingScript, err = a.changeLockingScript(it)
	} else {
		lockingScript, err = script.NewFromHex(it.LockingScript.String())
	}
	if err != nil {
		return nil, fmt.Errorf("cannot build locking script of output %d: %w", it.Vout, err)
	}

	satoshis, err := to.UInt64(it.Satoshis)
	if err != nil {
		return nil, fmt.Errorf("cannot convert satoshis of output %d: %w", it.Vout, err)
	}

	return &transaction.TransactionOutput{
		Satoshis:      satoshis,
		LockingScript: lockingScript,
		Change:        isChange,
	}, nil
}

func (a *Assembler) changeLockingScript(it *wdk.StorageCreateTransactionOutput) (*script.Script, error) {
	keyID := brc29.KeyID{
		DerivationPrefix: a.result.DerivationPrefix,
		DerivationSuffix: to.Value(it.DerivationSuffix),
	}
	return brc29.Lock(a.keyDeriver, keyID, a.keyDeriver.IdentityKey())
}
