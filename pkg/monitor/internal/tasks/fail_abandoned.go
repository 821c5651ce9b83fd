package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// abandonedAge is how long an action may stay unsigned before it is failed.
const abandonedAge = 5 * time.Minute

// AbandonedTransactionsFailer fails unsigned actions older than an age window.
type AbandonedTransactionsFailer interface {
	FailAbandoned(ctx context.Context, age time.Duration) (int, error)
}

// FailAbandonedTask reaps actions whose signing step never arrived.
type FailAbandonedTask struct {
	storage AbandonedTransactionsFailer
	logger  *slog.Logger
}

// NewFailAbandonedTask creates the abandonment reaper.
func NewFailAbandonedTask(storage AbandonedTransactionsFailer, logger *slog.Logger) TaskInterface {
	return &FailAbandonedTask{storage: storage, logger: logger}
}

// Run fails every abandoned action and releases its reserved change.
func (t *FailAbandonedTask) Run(ctx context.Context) error {
	failed, err := t.storage.FailAbandoned(ctx, abandonedAge)
	if err != nil {
		return fmt.Errorf("fail abandoned transactions failed: %w", err)
	}
	if failed > 0 {
		t.logger.InfoContext(ctx, "Abandoned actions failed", slog.Int("count", failed))
	}
	return nil
}
