package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/icellan/wallet-toolbox/pkg/storage/internal/models"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/werr"
	"gorm.io/gorm"
)

// Users is the repository of wallet users.
type Users struct {
	db      *gorm.DB
	baskets *Baskets
}

// NewUsers creates a users repository.
func NewUsers(db *gorm.DB, baskets *Baskets) *Users {
	return &Users{db: db, baskets: baskets}
}

// FindUser returns the user with the given identity key, nil when unknown.
func (u *Users) FindUser(ctx context.Context, identityKey string) (*models.User, error) {
	var user models.User
	err := u.db.WithContext(ctx).Where("identity_key = ?", identityKey).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// FindUserByID returns the user with the given id.
func (u *Users) FindUserByID(ctx context.Context, userID int) (*models.User, error) {
	var user models.User
	err := u.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %d: %w", userID, werr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by id: %w", err)
	}
	return &user, nil
}

// FindOrInsertUser resolves the user by identity key. On first encounter it
// creates the user row together with its default change basket atomically.
func (u *Users) FindOrInsertUser(ctx context.Context, identityKey, activeStorage string) (*models.User, bool, error) {
	existing, err := u.FindUser(ctx, identityKey)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	user := &models.User{
		IdentityKey:   identityKey,
		ActiveStorage: activeStorage,
	}

	defaults := wdk.DefaultBasketConfiguration()
	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		basket := &models.OutputBasket{
			UserID:                  user.UserID,
			Name:                    defaults.Name,
			NumberOfDesiredUTXOs:    int64(defaults.NumberOfDesiredUTXOs),
			MinimumDesiredUTXOValue: defaults.MinimumDesiredUTXOValue,
		}
		if err := tx.Create(basket).Error; err != nil {
			return fmt.Errorf("failed to create default basket: %w", err)
		}

		return nil
	})
	if err != nil {
		// A concurrent insert may have won the race on the unique index.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, ferr := u.FindUser(ctx, identityKey)
			if ferr == nil && existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}

	return user, true, nil
}

// SetActiveStorage updates the active storage identity key of the user.
func (u *Users) SetActiveStorage(ctx context.Context, userID int, storageIdentityKey string) error {
	result := u.db.WithContext(ctx).
		Model(&models.User{}).
		Where("user_id = ?", userID).
		Update("active_storage", storageIdentityKey)
	if result.Error != nil {
		return fmt.Errorf("failed to set active storage: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user %d: %w", userID, werr.ErrNotFound)
	}
	return nil
}
