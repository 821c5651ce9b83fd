package models

import (
	"time"

	"gorm.io/gorm"
)

// Transaction is the database model of a wallet transaction.
type Transaction struct {
	gorm.Model

	UserID     int     `gorm:"not null;index"`
	ProvenTxID *uint   `gorm:"index"`
	Status     string  `gorm:"type:varchar(32);not null;index"`
	Reference  string  `gorm:"type:varchar(500);not null;uniqueIndex:idx_tx_user_reference"`
	IsOutgoing bool    `gorm:"not null;default:false"`
	Satoshis   int64   `gorm:"not null;default:0"`
	Version    *uint32
	LockTime   *uint32
	Description string `gorm:"type:varchar(2000)"`
	TxID       *string `gorm:"type:varchar(64);index"`
	InputBeef  []byte
	RawTx      []byte

	Labels  []*Label  `gorm:"many2many:transaction_labels;"`
	Outputs []*Output `gorm:"foreignKey:TransactionID"`
}

// Label is the database model of a per-user transaction label.
type Label struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	Name   string `gorm:"primaryKey;type:varchar(300)"`
	UserID int    `gorm:"primaryKey"`

	Transactions []*Transaction `gorm:"many2many:transaction_labels;"`
}
