package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/icellan/wallet-toolbox/pkg/storage/internal/models"
	"github.com/icellan/wallet-toolbox/pkg/werr"
	"gorm.io/gorm"
)

// Baskets is the repository of output baskets.
type Baskets struct {
	db *gorm.DB
}

// NewBaskets creates a baskets repository.
func NewBaskets(db *gorm.DB) *Baskets {
	return &Baskets{db: db}
}

// FindBasket returns the named basket of the user, nil when absent.
func (b *Baskets) FindBasket(ctx context.Context, userID int, name string) (*models.OutputBasket, error) {
	var basket models.OutputBasket
	err := b.db.WithContext(ctx).
		Where("user_id = ? AND name = ?", userID, name).
		First(&basket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find basket: %w", err)
	}
	return &basket, nil
}

// FindOrInsertBasket resolves the named basket, creating it when absent.
func (b *Baskets) FindOrInsertBasket(ctx context.Context, userID int, name string) (*models.OutputBasket, error) {
	basket, err := b.FindBasket(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	if basket != nil {
		return basket, nil
	}

	basket = &models.OutputBasket{
		UserID: userID,
		Name:   name,
	}
	err = b.db.WithContext(ctx).Create(basket).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return b.FindBasket(ctx, userID, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create basket %q: %w", name, err)
	}
	return basket, nil
}

// UpdateBasketPolicy sets the change management parameters of the basket.
func (b *Baskets) UpdateBasketPolicy(ctx context.Context, userID int, name string, desiredUTXOs int64, minimumValue uint64) error {
	result := b.db.WithContext(ctx).
		Model(&models.OutputBasket{}).
		Where("user_id = ? AND name = ?", userID, name).
		Updates(map[string]any{
			"number_of_desired_utxos":    desiredUTXOs,
			"minimum_desired_utxo_value": minimumValue,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update basket policy: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("basket %q: %w", name, werr.ErrNotFound)
	}
	return nil
}

// ListBaskets returns all baskets of the user, optionally filtered by name.
func (b *Baskets) ListBaskets(ctx context.Context, userID int, name *string) ([]*models.OutputBasket, error) {
	query := b.db.WithContext(ctx).Where("user_id = ?", userID)
	if name != nil {
		query = query.Where("name = ?", *name)
	}
	var baskets []*models.OutputBasket
	if err := query.Find(&baskets).Error; err != nil {
		return nil, fmt.Errorf("failed to list baskets: %w", err)
	}
	return baskets, nil
}
