package models

import (
	"time"

	"gorm.io/gorm"
)

// Output is the database model of a wallet output.
type Output struct {
	gorm.Model

	UserID        int  `gorm:"not null;uniqueIndex:idx_output_user_tx_vout"`
	TransactionID uint `gorm:"not null;uniqueIndex:idx_output_user_tx_vout"`
	Vout          uint32 `gorm:"not null;uniqueIndex:idx_output_user_tx_vout"`

	BasketID  *uint `gorm:"index"`
	SpentBy   *uint
	Spendable bool `gorm:"not null;default:false;index"`
	Spent     bool `gorm:"not null;default:false"`
	Change    bool `gorm:"column:is_change;not null;default:false"`

	OutputDescription   string `gorm:"type:varchar(2000)"`
	Satoshis            int64  `gorm:"not null;default:0"`
	ProvidedBy          string `gorm:"type:varchar(32);not null"`
	Purpose             string `gorm:"type:varchar(32)"`
	Type                string `gorm:"type:varchar(32);not null"`
	TxID                *string `gorm:"type:varchar(64);index"`
	SenderIdentityKey   *string `gorm:"type:varchar(130)"`
	DerivationPrefix    *string `gorm:"type:varchar(200)"`
	DerivationSuffix    *string `gorm:"type:varchar(200)"`
	CustomInstructions  *string `gorm:"type:varchar(2000)"`
	SequenceNumber      *uint32
	SpendingDescription *string `gorm:"type:varchar(2000)"`

	// Scripts longer than the storage limit are kept as a window into the
	// transaction's rawTx instead of inline bytes.
	ScriptLength  *uint32
	ScriptOffset  *uint32
	LockingScript []byte

	Basket *OutputBasket `gorm:"foreignKey:BasketID"`
	Tags   []*Tag        `gorm:"many2many:output_tags;"`
}

// Tag is the database model of a per-user output tag.
type Tag struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	Name   string `gorm:"primaryKey;type:varchar(300)"`
	UserID int    `gorm:"primaryKey"`

	Outputs []*Output `gorm:"many2many:output_tags;"`
}
