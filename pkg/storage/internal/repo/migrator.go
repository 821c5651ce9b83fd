package repo

import (
	"context"
	"fmt"

	"github.com/icellan/wallet-toolbox/pkg/storage/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Migrator creates or upgrades the database schema.
type Migrator struct {
	db *gorm.DB
}

// NewMigrator creates a new migrator instance.
func NewMigrator(db *gorm.DB) *Migrator {
	return &Migrator{db: db}
}

// Migrate auto-migrates all models and upserts the settings row.
func (m *Migrator) Migrate(ctx context.Context, setting *models.Setting) error {
	db := m.db.WithContext(ctx)

	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "storage_identity_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"storage_name", "chain", "db_type", "max_output_script"}),
	}).Create(setting).Error
	if err != nil {
		return fmt.Errorf("failed to save storage settings: %w", err)
	}

	return nil
}

// Destroy drops every table owned by the storage provider.
func (m *Migrator) Destroy(ctx context.Context) error {
	if err := m.db.WithContext(ctx).Migrator().DropTable(models.All()...); err != nil {
		return fmt.Errorf("failed to drop database schema: %w", err)
	}
	return nil
}
