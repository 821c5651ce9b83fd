package wdk

import (
	"time"

	"github.com/icellan/wallet-toolbox/pkg/wdk/primitives"
)

// TableProvenTx represents a transaction with a stored, verified merkle path.
// Immutable once written; shared across users, keyed by txid.
type TableProvenTx struct {
	CreatedAt  time.Time                    `json:"created_at"`
	UpdatedAt  time.Time                    `json:"updated_at"`
	ProvenTxID uint                         `json:"provenTxId"`
	TxID       string                       `json:"txid"`
	Height     uint32                       `json:"height"`
	Index      uint64                       `json:"index"`
	MerklePath primitives.ExplicitByteArray `json:"merklePath"`
	RawTx      primitives.ExplicitByteArray `json:"rawTx"`
	BlockHash  string                       `json:"blockHash"`
	MerkleRoot string                       `json:"merkleRoot"`
}

// TableProvenTxReq is a pending request to obtain a merkle proof for a txid.
type TableProvenTxReq struct {
	CreatedAt    time.Time                    `json:"created_at"`
	UpdatedAt    time.Time                    `json:"updated_at"`
	ProvenTxReqID uint                        `json:"provenTxReqId"`
	ProvenTxID   *uint                        `json:"provenTxId,omitempty"`
	Status       ProvenTxReqStatus            `json:"status"`
	Attempts     int                          `json:"attempts"`
	Notified     bool                         `json:"notified"`
	TxID         string                       `json:"txid"`
	Batch        *string                      `json:"batch,omitempty"`
	History      string                       `json:"history"`
	Notify       string                       `json:"notify"`
	RawTx        primitives.ExplicitByteArray `json:"rawTx"`
	InputBeef    primitives.ExplicitByteArray `json:"inputBEEF,omitempty"`
}
