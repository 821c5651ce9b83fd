package wdk

import (
	"github.com/icellan/wallet-toolbox/pkg/wdk/primitives"
)

// QueryMode selects how multiple tag/label filters combine.
type QueryMode string

// Query modes.
const (
	QueryModeAny QueryMode = "any"
	QueryModeAll QueryMode = "all"
)

// DefaultListLimit is applied when a list operation omits its limit.
const DefaultListLimit = 10

// MaxListLimit bounds a single page of list results.
const MaxListLimit = 10000

// ListOutputsArgs defines the query parameters for listing outputs.
type ListOutputsArgs struct {
	Basket                    primitives.StringUnder300   `json:"basket,omitempty"`
	Tags                      []primitives.StringUnder300 `json:"tags"`
	TagQueryMode              *QueryMode                  `json:"tagQueryMode,omitempty"`
	IncludeLockingScripts     bool                        `json:"includeLockingScripts,omitempty"`
	IncludeTransactions       bool                        `json:"includeTransactions,omitempty"`
	IncludeCustomInstructions bool                        `json:"includeCustomInstructions,omitempty"`
	IncludeTags               bool                        `json:"includeTags,omitempty"`
	IncludeLabels             bool                        `json:"includeLabels,omitempty"`
	IncludeSpent              bool                        `json:"includeSpent,omitempty"`
	Limit                     primitives.PositiveInteger  `json:"limit"`
	Offset                    primitives.PositiveInteger  `json:"offset"`
	SeekPermission            bool                        `json:"seekPermission,omitempty"`
	KnownTxids                []string                    `json:"knownTxids,omitempty"`
}

// WalletOutput represents an output returned from listOutputs.
type WalletOutput struct {
	Satoshis           int64                       `json:"satoshis"`
	Spendable          bool                        `json:"spendable"`
	Outpoint           primitives.OutpointString   `json:"outpoint"`
	CustomInstructions *string                     `json:"customInstructions,omitempty"`
	LockingScript      *primitives.HexString       `json:"lockingScript,omitempty"`
	Tags               []primitives.StringUnder300 `json:"tags,omitempty"`
	Labels             []primitives.StringUnder300 `json:"labels,omitempty"`
}

// ListOutputsResult contains the result of listing wallet outputs.
type ListOutputsResult struct {
	TotalOutputs primitives.PositiveInteger   `json:"totalOutputs"`
	BEEF         primitives.ExplicitByteArray `json:"BEEF,omitempty"`
	Outputs      []*WalletOutput              `json:"outputs"`
}

// ListActionsArgs defines arguments for listing actions (transactions).
type ListActionsArgs struct {
	Labels         []primitives.StringUnder300     `json:"labels"`
	Limit          primitives.PositiveInteger      `json:"limit,omitempty"`
	Offset         primitives.PositiveInteger      `json:"offset,omitempty"`
	LabelQueryMode *QueryMode                      `json:"labelQueryMode"`
	SeekPermission *primitives.BooleanDefaultTrue  `json:"seekPermission,omitempty"`
	IncludeInputs  *primitives.BooleanDefaultFalse `json:"includeInputs,omitempty"`
	IncludeOutputs *primitives.BooleanDefaultFalse `json:"includeOutputs,omitempty"`
	IncludeLabels  *primitives.BooleanDefaultFalse `json:"includeLabels,omitempty"`
	Reference      *string                         `json:"reference,omitempty"`
}

// ListActionsResult defines the result of listing actions.
type ListActionsResult struct {
	TotalActions primitives.PositiveInteger `json:"totalActions"`
	Actions      []WalletAction             `json:"actions"`
}

// WalletAction represents a transaction in the wallet.
type WalletAction struct {
	TxID        string               `json:"txid"`
	Satoshis    int64                `json:"satoshis"`
	Status      string               `json:"status"`
	IsOutgoing  bool                 `json:"isOutgoing"`
	Description string               `json:"description"`
	Version     uint32               `json:"version"`
	LockTime    uint32               `json:"lockTime"`
	Labels      []string             `json:"labels"`
	Inputs      []WalletActionInput  `json:"inputs"`
	Outputs     []WalletActionOutput `json:"outputs"`
}

// WalletActionInput represents an input in a wallet action.
type WalletActionInput struct {
	SourceOutpoint      string `json:"sourceOutpoint"`
	SourceSatoshis      int64  `json:"sourceSatoshis"`
	InputDescription    string `json:"inputDescription"`
	SequenceNumber      uint32 `json:"sequenceNumber"`
	SourceLockingScript string `json:"sourceLockingScript,omitempty"`
	UnlockingScript     string `json:"unlockingScript,omitempty"`
}

// WalletActionOutput represents an output in a wallet action.
type WalletActionOutput struct {
	Satoshis           int64    `json:"satoshis"`
	Spendable          bool     `json:"spendable"`
	OutputIndex        uint32   `json:"outputIndex"`
	OutputDescription  string   `json:"outputDescription"`
	Basket             string   `json:"basket"`
	Tags               []string `json:"tags,omitempty"`
	LockingScript      string   `json:"lockingScript,omitempty"`
	CustomInstructions string   `json:"customInstructions,omitempty"`
}

// ListCertificatesArgs filters a certificate listing.
type ListCertificatesArgs struct {
	Types        []primitives.Base64String  `json:"types,omitempty"`
	Certifiers   []primitives.PubKeyHex     `json:"certifiers,omitempty"`
	SerialNumber *primitives.Base64String   `json:"serialNumber,omitempty"`
	Subject      *primitives.PubKeyHex      `json:"subject,omitempty"`
	Limit        primitives.PositiveInteger `json:"limit"`
	Offset       primitives.PositiveInteger `json:"offset"`
}

// CertificateResult is one certificate with its decrypted field map.
type CertificateResult struct {
	TableCertificate
	FieldValues map[string]string `json:"fields,omitempty"`
}

// ListCertificatesResult contains the result of listing certificates.
type ListCertificatesResult struct {
	TotalCertificates primitives.PositiveInteger `json:"totalCertificates"`
	Certificates      []*CertificateResult       `json:"certificates"`
}
