package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/icellan/wallet-toolbox/pkg/defs"
)

// StoragePurger reclaims space held by settled rows.
type StoragePurger interface {
	PurgeOld(ctx context.Context, failedCutoff, completedCutoff time.Time) (int64, error)
}

// PurgeTask deletes rows nobody will read again.
type PurgeTask struct {
	storage StoragePurger
	logger  *slog.Logger
	params  defs.PurgeParams
}

// NewPurgeTask creates the purge task with the configured age thresholds.
func NewPurgeTask(storage StoragePurger, logger *slog.Logger, params defs.PurgeParams) TaskInterface {
	return &PurgeTask{storage: storage, logger: logger, params: params}
}

// Run purges aged-out rows.
func (t *PurgeTask) Run(ctx context.Context) error {
	now := time.Now()
	failedCutoff := now.Add(-t.params.FailedThreshold)
	completedCutoff := now.Add(-t.params.CompletedThreshold)

	purged, err := t.storage.PurgeOld(ctx, failedCutoff, completedCutoff)
	if err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}
	if purged > 0 {
		t.logger.InfoContext(ctx, "Purged aged-out rows", slog.Int64("rows", purged))
	}
	return nil
}
