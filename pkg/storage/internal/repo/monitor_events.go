package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/icellan/wallet-toolbox/pkg/storage/internal/models"
	"gorm.io/gorm"
)

// MonitorEvents is the repository of monitor audit entries.
type MonitorEvents struct {
	db *gorm.DB
}

// NewMonitorEvents creates a monitor events repository.
func NewMonitorEvents(db *gorm.DB) *MonitorEvents {
	return &MonitorEvents{db: db}
}

// InsertEvent writes an audit entry for a monitor task run.
func (m *MonitorEvents) InsertEvent(ctx context.Context, event, details string) error {
	row := &models.MonitorEvent{Event: event, Details: details}
	if err := m.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to insert monitor event: %w", err)
	}
	return nil
}

// PurgeEvents hard-deletes audit entries older than the cutoff.
func (m *MonitorEvents) PurgeEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	result := m.db.WithContext(ctx).
		Unscoped().
		Where("created_at < ?", cutoff).
		Delete(&models.MonitorEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge monitor events: %w", result.Error)
	}
	return result.RowsAffected, nil
}
