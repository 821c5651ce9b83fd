package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/icellan/wallet-toolbox/pkg/storage/internal/models"
	"gorm.io/gorm"
)

// SyncStates is the repository of per-user storage synchronization state.
type SyncStates struct {
	db *gorm.DB
}

// NewSyncStates creates a sync states repository.
func NewSyncStates(db *gorm.DB) *SyncStates {
	return &SyncStates{db: db}
}

// FindOrInsertSyncState resolves the sync state for the user and remote
// storage identity, creating an initial row when absent.
func (s *SyncStates) FindOrInsertSyncState(ctx context.Context, userID int, storageIdentityKey, storageName, refNum string) (*models.SyncState, error) {
	var state models.SyncState
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND storage_identity_key = ?", userID, storageIdentityKey).
		First(&state).Error
	if err == nil {
		return &state, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to find sync state: %w", err)
	}

	state = models.SyncState{
		UserID:             userID,
		StorageIdentityKey: storageIdentityKey,
		StorageName:        storageName,
		Status:             "unknown",
		Init:               false,
		RefNum:             refNum,
	}
	if err := s.db.WithContext(ctx).Create(&state).Error; err != nil {
		return nil, fmt.Errorf("failed to create sync state: %w", err)
	}
	return &state, nil
}

// UpdateSyncState persists the mutable fields of the sync state.
func (s *SyncStates) UpdateSyncState(ctx context.Context, state *models.SyncState) error {
	if err := s.db.WithContext(ctx).Save(state).Error; err != nil {
		return fmt.Errorf("failed to update sync state: %w", err)
	}
	return nil
}
