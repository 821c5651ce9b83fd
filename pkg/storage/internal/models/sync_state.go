package models

import (
	"time"

	"gorm.io/gorm"
)

// SyncState tracks per-user synchronization with a remote storage identity.
type SyncState struct {
	gorm.Model

	UserID             int    `gorm:"not null;uniqueIndex:idx_sync_user_storage"`
	StorageIdentityKey string `gorm:"type:varchar(130);not null;uniqueIndex:idx_sync_user_storage"`
	StorageName        string `gorm:"type:varchar(128);not null"`
	Status             string `gorm:"type:varchar(32);not null"`
	Init               bool   `gorm:"not null;default:false"`
	RefNum             string `gorm:"type:varchar(100);not null"`
	SyncMap            string
	When               *time.Time
	Satoshis           *int64
	ErrorLocal         *string
	ErrorOther         *string
}
