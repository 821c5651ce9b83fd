package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

// FailedTransactionsChecker re-checks failed transactions against the chain.
type FailedTransactionsChecker interface {
	UnFail(ctx context.Context) (int, error)
}

// UnFailTask resurrects failed transactions the network knows after all.
type UnFailTask struct {
	storage FailedTransactionsChecker
	logger  *slog.Logger
}

// NewUnFailTask creates the un-fail task.
func NewUnFailTask(storage FailedTransactionsChecker, logger *slog.Logger) TaskInterface {
	return &UnFailTask{storage: storage, logger: logger}
}

// Run rechecks failed transactions.
func (t *UnFailTask) Run(ctx context.Context) error {
	unfailed, err := t.storage.UnFail(ctx)
	if err != nil {
		return fmt.Errorf("unfail check failed: %w", err)
	}
	if unfailed > 0 {
		t.logger.InfoContext(ctx, "Failed transactions resurrected", slog.Int("count", unfailed))
	}
	return nil
}
