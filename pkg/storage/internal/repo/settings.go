package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/icellan/wallet-toolbox/pkg/storage/internal/models"
	"github.com/icellan/wallet-toolbox/pkg/werr"
	"gorm.io/gorm"
)

// Settings reads the storage settings row.
type Settings struct {
	db *gorm.DB
}

// NewSettings creates a settings repository.
func NewSettings(db *gorm.DB) *Settings {
	return &Settings{db: db}
}

// ReadSettings returns the single settings row, or ErrNotFound before Migrate.
func (s *Settings) ReadSettings(ctx context.Context) (*models.Setting, error) {
	var setting models.Setting
	err := s.db.WithContext(ctx).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("storage is not migrated: %w", werr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read storage settings: %w", err)
	}
	return &setting, nil
}
