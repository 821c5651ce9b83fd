package wdk

import (
	"github.com/bsv-blockchain/go-sdk/transaction"
)

// RawTxResult is the result of a raw transaction lookup.
type RawTxResult struct {
	// TxID is the transaction hash of RawTx.
	TxID string
	// Name is the name of the service that returned the rawTx.
	Name string
	// RawTx is the serialized transaction, nil when not found.
	RawTx []byte
}

// MerklePathBlockHeader locates a merkle path in the chain.
type MerklePathBlockHeader struct {
	// Height of the header, starting from zero.
	Height uint32
	// MerkleRoot of all transactions in the block, hex encoded.
	MerkleRoot string
	// Hash of the block, hex encoded.
	Hash string
}

// MerklePathResult is the result of a merkle path query.
type MerklePathResult struct {
	// Name is the name of the service that produced the proof.
	Name string
	// MerklePath of the transaction; nil when not yet mined.
	MerklePath *transaction.MerklePath
	// BlockHeader of the block containing the transaction.
	BlockHeader *MerklePathBlockHeader
}

// PostedTxIDResultStatus is the per-txid status of a broadcast.
type PostedTxIDResultStatus string

// Broadcast result statuses.
const (
	PostedTxIDResultSuccess       PostedTxIDResultStatus = "success"
	PostedTxIDResultError         PostedTxIDResultStatus = "error"
	PostedTxIDResultAlreadyKnown  PostedTxIDResultStatus = "already_known"
	PostedTxIDResultDoubleSpend   PostedTxIDResultStatus = "double_spend"
	PostedTxIDResultMissingInputs PostedTxIDResultStatus = "missing_inputs"
)

// PostedTxID is the broadcast result for one txid.
type PostedTxID struct {
	Result       PostedTxIDResultStatus
	TxID         string
	AlreadyKnown bool
	// DoubleSpend is set when the service indicated this broadcast double
	// spends at least one input.
	DoubleSpend bool
	BlockHash   string
	BlockHeight uint32
	MerklePath  *transaction.MerklePath
	// CompetingTxs are txids that were first seen spends of at least one input.
	CompetingTxs []string
	Data         string
	Error        error
}

// PostedBEEF is the success result of a single service's PostBEEF.
type PostedBEEF struct {
	TxIDResults []PostedTxID
}

// PostBEEFServiceResult pairs a service name with its PostBEEF outcome.
type PostBEEFServiceResult struct {
	Name             string
	PostedBEEFResult *PostedBEEF
	Error            error
}

// Success checks if the result is a success.
func (r *PostBEEFServiceResult) Success() bool {
	return r.PostedBEEFResult != nil && r.Error == nil
}

// PostBeefResult is the list of results from all broadcast-capable services.
type PostBeefResult []*PostBEEFServiceResult

// Success checks if at least one service accepted the BEEF.
func (rr PostBeefResult) Success() bool {
	for _, r := range rr {
		if r.Success() {
			return true
		}
	}
	return false
}

// ServiceErrors returns service names mapped to their errors for failed results.
func (rr PostBeefResult) ServiceErrors() map[string]error {
	errs := make(map[string]error)
	for _, r := range rr {
		if r.Error != nil {
			errs[r.Name] = r.Error
		}
	}
	return errs
}

// TxStatusDetail holds the network status of a single txid.
type TxStatusDetail struct {
	TxID   string
	Depth  *int
	Status string
}

// ResultStatusForTxID classifies a transaction's network visibility.
type ResultStatusForTxID string

// Transaction network statuses.
const (
	ResultStatusForTxIDMined    ResultStatusForTxID = "mined"
	ResultStatusForTxIDKnown    ResultStatusForTxID = "known"
	ResultStatusForTxIDNotFound ResultStatusForTxID = "unknown"
)

// String returns the string representation of the status.
func (s ResultStatusForTxID) String() string {
	return string(s)
}

// UTXOStatusFormat selects how the output argument of a UTXO status query is encoded.
type UTXOStatusFormat string

// UTXO status query formats.
const (
	UTXOFormatScript     UTXOStatusFormat = "script"
	UTXOFormatScriptHash UTXOStatusFormat = "hashLE"
)

// UTXOStatusDetail describes one unspent instance of a queried script.
type UTXOStatusDetail struct {
	TxID     string `json:"txid"`
	Vout     uint32 `json:"vout"`
	Satoshis int64  `json:"satoshis"`
	Height   uint32 `json:"height"`
}

// UTXOStatusResult is the result of a UTXO liveness query.
type UTXOStatusResult struct {
	Name    string
	IsUTXO  bool
	Details []UTXOStatusDetail
}

// ScriptHistoryItem is one transaction touching a script.
type ScriptHistoryItem struct {
	TxID   string  `json:"tx_hash"`
	Height *uint32 `json:"height,omitempty"`
	Fee    *int64  `json:"fee,omitempty"`
}

// ScriptHistoryResult is the confirmed/unconfirmed history of a script hash.
type ScriptHistoryResult struct {
	Name        string
	Confirmed   []ScriptHistoryItem
	Unconfirmed []ScriptHistoryItem
}

// FiatExchangeRates holds cached fiat rates relative to a base currency.
type FiatExchangeRates struct {
	Timestamp int64              `json:"timestamp"`
	Base      string             `json:"base"`
	Rates     map[string]float64 `json:"rates"`
}

// BlockHeader is an 80-byte bitcoin header with its resolved metadata.
type BlockHeader struct {
	Height     uint32 `json:"height"`
	Hash       string `json:"hash"`
	Version    uint32 `json:"version"`
	PrevHash   string `json:"previousblockhash"`
	MerkleRoot string `json:"merkleroot"`
	Time       uint32 `json:"time"`
	Bits       string `json:"bits"`
	Nonce      uint32 `json:"nonce"`
}
