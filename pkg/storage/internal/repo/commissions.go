package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/icellan/wallet-toolbox/pkg/storage/internal/models"
	"gorm.io/gorm"
)

// Commissions is the repository of service-charge records.
type Commissions struct {
	db *gorm.DB
}

// NewCommissions creates a commissions repository.
func NewCommissions(db *gorm.DB) *Commissions {
	return &Commissions{db: db}
}

// InsertCommission records a service-charge output. Runs inside the given
// gorm transaction when tx is not nil.
func (c *Commissions) InsertCommission(ctx context.Context, tx *gorm.DB, commission *models.Commission) error {
	if tx == nil {
		tx = c.db
	}
	if err := tx.WithContext(ctx).Create(commission).Error; err != nil {
		return fmt.Errorf("failed to insert commission: %w", err)
	}
	return nil
}

// FindCommission returns the service charge recorded for the transaction,
// nil when none exists.
func (c *Commissions) FindCommission(ctx context.Context, userID int, transactionID uint) (*models.Commission, error) {
	var commission models.Commission
	err := c.db.WithContext(ctx).
		Where("user_id = ? AND transaction_id = ?", userID, transactionID).
		First(&commission).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find commission: %w", err)
	}
	return &commission, nil
}
