package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// unminedReviewAge is how long a broadcast transaction may stay unmined
// before its network status is re-checked.
const unminedReviewAge = 30 * time.Minute

// BroadcastStatusReviewer requeues broadcast transactions the network dropped.
type BroadcastStatusReviewer interface {
	ReviewStatus(ctx context.Context, age time.Duration) (int, error)
}

// ReviewStatusTask watches for transactions that vanished from mempools.
type ReviewStatusTask struct {
	storage BroadcastStatusReviewer
	logger  *slog.Logger
}

// NewReviewStatusTask creates the status review task.
func NewReviewStatusTask(storage BroadcastStatusReviewer, logger *slog.Logger) TaskInterface {
	return &ReviewStatusTask{storage: storage, logger: logger}
}

// Run re-checks long-unmined transactions.
func (t *ReviewStatusTask) Run(ctx context.Context) error {
	requeued, err := t.storage.ReviewStatus(ctx, unminedReviewAge)
	if err != nil {
		return fmt.Errorf("review status failed: %w", err)
	}
	if requeued > 0 {
		t.logger.WarnContext(ctx, "Dropped transactions requeued for broadcast", slog.Int("count", requeued))
	}
	return nil
}
