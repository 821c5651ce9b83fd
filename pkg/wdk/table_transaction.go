package wdk

import (
	"time"

	"github.com/icellan/wallet-toolbox/pkg/wdk/primitives"
)

// TableTransaction represents a wallet transaction row.
type TableTransaction struct {
	CreatedAt     time.Time                    `json:"created_at"`
	UpdatedAt     time.Time                    `json:"updated_at"`
	TransactionID uint                         `json:"transactionId"`
	UserID        int                          `json:"userId"`
	ProvenTxID    *uint                        `json:"provenTxId,omitempty"`
	Status        TxStatus                     `json:"status"`
	Reference     string                       `json:"reference"`
	IsOutgoing    bool                         `json:"isOutgoing"`
	Satoshis      int64                        `json:"satoshis"`
	Version       *uint32                      `json:"version,omitempty"`
	LockTime      *uint32                      `json:"lockTime,omitempty"`
	Description   string                       `json:"description"`
	TxID          *string                      `json:"txid,omitempty"`
	InputBeef     primitives.ExplicitByteArray `json:"inputBEEF,omitempty"`
	RawTx         primitives.ExplicitByteArray `json:"rawTx,omitempty"`
	Labels        []string                     `json:"labels,omitempty"`
}

// TableTxLabel is a per-user transaction label.
type TableTxLabel struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	TxLabelID uint      `json:"txLabelId"`
	UserID    int       `json:"userId"`
	Label     string    `json:"label"`
	IsDeleted bool      `json:"isDeleted"`
}
