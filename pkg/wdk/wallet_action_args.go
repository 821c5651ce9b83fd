package wdk

import (
	"github.com/icellan/wallet-toolbox/pkg/wdk/primitives"
	"github.com/icellan/wallet-toolbox/pkg/werr"
)

// SignActionOptions overrides, per signing call, the broadcast options the
// action was created with.
type SignActionOptions struct {
	AcceptDelayedBroadcast *primitives.BooleanDefaultTrue  `json:"acceptDelayedBroadcast,omitempty"`
	ReturnTXIDOnly         *primitives.BooleanDefaultFalse `json:"returnTXIDOnly,omitempty"`
	NoSend                 *primitives.BooleanDefaultFalse `json:"noSend,omitempty"`
	SendWith               []primitives.TXIDHexString      `json:"sendWith"`
}

// SignActionArgs completes a previously created action with the signed
// raw transaction.
type SignActionArgs struct {
	Reference primitives.Base64String      `json:"reference"`
	RawTx     primitives.ExplicitByteArray `json:"rawTx"`
	Options   *SignActionOptions           `json:"options,omitempty"`
}

// SignableTransaction is handed back from createAction when the caller still
// has inputs to sign. Tx is the atomic BEEF of the unsigned transaction.
type SignableTransaction struct {
	Tx        primitives.ExplicitByteArray `json:"tx"`
	Reference primitives.Base64String      `json:"reference"`
}

// CreateActionResult is what createAction returns to the caller. Exactly one
// of Tx/TxID or SignableTransaction is populated for new transactions.
type CreateActionResult struct {
	TxID                *primitives.TXIDHexString    `json:"txid,omitempty"`
	Tx                  primitives.ExplicitByteArray `json:"tx,omitempty"`
	NoSendChange        []OutPoint                   `json:"noSendChange,omitempty"`
	SendWithResults     []werr.SendWithResult        `json:"sendWithResults,omitempty"`
	SignableTransaction *SignableTransaction         `json:"signableTransaction,omitempty"`
}

// SignActionResult is what signAction returns to the caller.
type SignActionResult struct {
	TxID            *primitives.TXIDHexString    `json:"txid,omitempty"`
	Tx              primitives.ExplicitByteArray `json:"tx,omitempty"`
	SendWithResults []werr.SendWithResult        `json:"sendWithResults,omitempty"`
}
