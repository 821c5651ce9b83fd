package wdk

import (
	"fmt"

	"github.com/icellan/wallet-toolbox/pkg/wdk/primitives"
)

// ValidCreateActionInput represents one input of a created action.
type ValidCreateActionInput struct {
	Outpoint              OutPoint                      `json:"outpoint,omitempty"`
	InputDescription      primitives.String5to2000Bytes `json:"inputDescription,omitempty"`
	SequenceNumber        primitives.PositiveInteger    `json:"sequenceNumber,omitempty"`
	UnlockingScript       *primitives.HexString         `json:"unlockingScript,omitempty"`
	UnlockingScriptLength *primitives.PositiveInteger   `json:"unlockingScriptLength,omitempty"`
}

// ScriptLength returns the length of the unlocking script in bytes.
func (i *ValidCreateActionInput) ScriptLength() (uint64, error) {
	if i.UnlockingScript != nil {
		return uint64(len(*i.UnlockingScript) / 2), nil
	}
	if i.UnlockingScriptLength != nil {
		return uint64(*i.UnlockingScriptLength), nil
	}
	return 0, fmt.Errorf("unlockingScript and unlockingScriptLength are both nil")
}

// ValidCreateActionOutput represents one output of a created action.
type ValidCreateActionOutput struct {
	LockingScript      primitives.HexString          `json:"lockingScript,omitempty"`
	Satoshis           primitives.SatoshiValue       `json:"satoshis,omitempty"`
	OutputDescription  primitives.String5to2000Bytes `json:"outputDescription,omitempty"`
	Basket             *primitives.StringUnder300    `json:"basket,omitempty"`
	CustomInstructions *string                       `json:"customInstructions,omitempty"`
	Tags               []primitives.StringUnder300   `json:"tags,omitempty"`
}

// ScriptLength returns the length of the locking script in bytes.
func (o *ValidCreateActionOutput) ScriptLength() uint64 {
	return uint64(len(o.LockingScript) / 2)
}

// ValidCreateActionOptions carries the options of createAction after validation.
type ValidCreateActionOptions struct {
	AcceptDelayedBroadcast *primitives.BooleanDefaultTrue  `json:"acceptDelayedBroadcast,omitempty"`
	ReturnTXIDOnly         *primitives.BooleanDefaultFalse `json:"returnTXIDOnly,omitempty"`
	NoSend                 *primitives.BooleanDefaultFalse `json:"noSend,omitempty"`
	SendWith               []primitives.TXIDHexString      `json:"sendWith"`
	SignAndProcess         *primitives.BooleanDefaultTrue  `json:"signAndProcess,omitempty"`
	KnownTxids             []primitives.TXIDHexString      `json:"knownTxids"`
	NoSendChange           []OutPoint                      `json:"noSendChange"`
	RandomizeOutputs       bool                            `json:"randomizeOutputs"`
}

// ValidCreateActionArgs represents the arguments for creating an action,
// after boundary validation.
type ValidCreateActionArgs struct {
	Description primitives.String5to2000Bytes `json:"description,omitempty"`
	InputBEEF   primitives.BEEF               `json:"inputBEEF,omitempty"`
	Inputs      []ValidCreateActionInput      `json:"inputs"`
	Outputs     []ValidCreateActionOutput     `json:"outputs"`
	LockTime    uint32                        `json:"lockTime,omitempty"`
	Version     uint32                        `json:"version,omitempty"`
	Labels      []primitives.StringUnder300   `json:"labels"`

	// IsSignAction is true when at least one input lacks an unlocking script
	// and the caller must complete signing via signAction.
	IsSignAction bool `json:"isSignAction,omitempty"`

	Options ValidCreateActionOptions `json:"options"`

	// IsSendWith is true if a batch of transactions is included for processing.
	IsSendWith bool `json:"isSendWith,omitempty"`
	// IsNewTx is true if the args describe a new transaction.
	IsNewTx bool `json:"isNewTx,omitempty"`
	// IsRemixChange is true when there are no inputs, outputs nor sendWith.
	IsRemixChange bool `json:"isRemixChange,omitempty"`
	// IsNoSend is true if the new transaction must NOT be broadcast.
	IsNoSend bool `json:"isNoSend,omitempty"`
	// IsDelayed is true if options.AcceptDelayedBroadcast is true.
	IsDelayed bool `json:"isDelayed,omitempty"`
}

// StorageCreateTransactionInput describes an input resolved by storage.
type StorageCreateTransactionInput struct {
	Vin                   uint32                       `json:"vin"`
	SourceTxID            string                       `json:"sourceTxid"`
	SourceVout            uint32                       `json:"sourceVout"`
	SourceSatoshis        int64                        `json:"sourceSatoshis"`
	SourceLockingScript   primitives.HexString         `json:"sourceLockingScript"`
	SourceTransaction     primitives.ExplicitByteArray `json:"sourceTransaction,omitempty"`
	UnlockingScriptLength uint32                       `json:"unlockingScriptLength"`
	ProvidedBy            string                       `json:"providedBy"`
	Type                  string                       `json:"type"`
	SpendingDescription   *string                      `json:"spendingDescription,omitempty"`
	DerivationPrefix      *string                      `json:"derivationPrefix,omitempty"`
	DerivationSuffix      *string                      `json:"derivationSuffix,omitempty"`
	SenderIdentityKey     *string                      `json:"senderIdentityKey,omitempty"`
}

// StorageCreateTransactionOutput describes an output row created by storage.
type StorageCreateTransactionOutput struct {
	Vout               uint32               `json:"vout"`
	Satoshis           int64                `json:"satoshis"`
	LockingScript      primitives.HexString `json:"lockingScript"`
	ProvidedBy         string               `json:"providedBy"`
	Purpose            string               `json:"purpose"`
	Basket             *string              `json:"basket,omitempty"`
	Tags               []string             `json:"tags,omitempty"`
	OutputDescription  string               `json:"outputDescription"`
	DerivationSuffix   *string              `json:"derivationSuffix,omitempty"`
	CustomInstructions *string              `json:"customInstructions,omitempty"`
}

// StorageCreateActionResult is what storage returns from CreateAction.
type StorageCreateActionResult struct {
	Reference        string                           `json:"reference"`
	Version          uint32                           `json:"version"`
	LockTime         uint32                           `json:"lockTime"`
	Inputs           []StorageCreateTransactionInput  `json:"inputs"`
	Outputs          []StorageCreateTransactionOutput `json:"outputs"`
	DerivationPrefix string                           `json:"derivationPrefix"`
	InputBeef        primitives.ExplicitByteArray     `json:"inputBeef,omitempty"`
	NoSendChangeOutputVouts []uint32                  `json:"noSendChangeOutputVouts,omitempty"`
}
