package wdk

import (
	"github.com/icellan/wallet-toolbox/pkg/wdk/primitives"
	"github.com/icellan/wallet-toolbox/pkg/werr"
)

// ProcessActionArgs defines the arguments required to process a signed action.
type ProcessActionArgs struct {
	IsNewTx    bool                         `json:"isNewTx"`
	IsSendWith bool                         `json:"isSendWith"`
	IsNoSend   bool                         `json:"isNoSend"`
	IsDelayed  bool                         `json:"isDelayed"`
	Reference  *string                      `json:"reference,omitempty"`
	TxID       *primitives.TXIDHexString    `json:"txid,omitempty"`
	RawTx      primitives.ExplicitByteArray `json:"rawTx,omitempty"`
	SendWith   []primitives.TXIDHexString   `json:"sendWith"`
}

// ProcessActionResult reports the per-txid outcome of processing.
type ProcessActionResult struct {
	SendWithResults   []werr.SendWithResult     `json:"sendWithResults,omitempty"`
	NotDelayedResults []werr.ReviewActionResult `json:"notDelayedResults,omitempty"`
}

// AbortActionArgs identifies a pending action by its reference.
type AbortActionArgs struct {
	Reference primitives.Base64String `json:"reference"`
}

// AbortActionResult reports whether the action was aborted.
type AbortActionResult struct {
	Aborted bool `json:"aborted"`
}

// RelinquishOutputArgs identifies an output to release from a basket.
type RelinquishOutputArgs struct {
	Basket string                     `json:"basket"`
	Output primitives.OutpointString  `json:"output"`
}

// RelinquishCertificateArgs identifies a certificate to remove.
type RelinquishCertificateArgs struct {
	Type         primitives.Base64String `json:"type"`
	SerialNumber primitives.Base64String `json:"serialNumber"`
	Certifier    primitives.PubKeyHex    `json:"certifier"`
}
