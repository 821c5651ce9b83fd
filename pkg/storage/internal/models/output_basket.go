package models

import (
	"time"

	"gorm.io/gorm"
)

// OutputBasket is the database model of an output basket.
type OutputBasket struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	BasketID uint   `gorm:"primaryKey"`
	UserID   int    `gorm:"not null;uniqueIndex:idx_basket_user_name"`
	Name     string `gorm:"type:varchar(300);not null;uniqueIndex:idx_basket_user_name"`

	NumberOfDesiredUTXOs    int64  `gorm:"not null;column:number_of_desired_utxos;default:32"`
	MinimumDesiredUTXOValue uint64 `gorm:"not null;default:1000"`
}
