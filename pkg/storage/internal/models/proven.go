package models

import (
	"gorm.io/gorm"
)

// ProvenTx is the database model of a transaction with a verified merkle path.
// Rows are immutable once written and shared across users.
type ProvenTx struct {
	gorm.Model

	TxID       string `gorm:"type:varchar(64);not null;uniqueIndex"`
	Height     uint32 `gorm:"not null"`
	TxIndex    uint64 `gorm:"not null"`
	MerklePath []byte `gorm:"not null"`
	RawTx      []byte `gorm:"not null"`
	BlockHash  string `gorm:"type:varchar(64);not null"`
	MerkleRoot string `gorm:"type:varchar(64);not null"`
}

// ProvenTxReq is the database model of a pending proof request.
type ProvenTxReq struct {
	gorm.Model

	ProvenTxID *uint
	Status     string `gorm:"type:varchar(32);not null;index"`
	Attempts   int    `gorm:"not null;default:0"`
	Notified   bool   `gorm:"not null;default:false"`
	TxID       string `gorm:"type:varchar(64);not null;uniqueIndex"`
	Batch      *string `gorm:"type:varchar(64);index"`

	// History is an append-only JSON log of processing notes.
	History string
	// Notify is a JSON list of transaction ids to update on completion.
	Notify    string
	RawTx     []byte `gorm:"not null"`
	InputBeef []byte
}
