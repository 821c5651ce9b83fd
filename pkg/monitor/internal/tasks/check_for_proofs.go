package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

// ProofChecker polls the chain services for merkle proofs.
type ProofChecker interface {
	CheckForProofs(ctx context.Context, maxAttempts int) (checked, proven, invalidated int, err error)
}

// CheckForProofsTask drives the proof loop for broadcast transactions.
type CheckForProofsTask struct {
	storage     ProofChecker
	logger      *slog.Logger
	maxAttempts int
}

// NewCheckForProofsTask creates the proof-polling task.
func NewCheckForProofsTask(storage ProofChecker, logger *slog.Logger, maxAttempts int) TaskInterface {
	return &CheckForProofsTask{
		storage:     storage,
		logger:      logger,
		maxAttempts: maxAttempts,
	}
}

// Run polls proofs for every request that still needs one.
func (t *CheckForProofsTask) Run(ctx context.Context) error {
	checked, proven, invalidated, err := t.storage.CheckForProofs(ctx, t.maxAttempts)
	if err != nil {
		return fmt.Errorf("check for proofs failed: %w", err)
	}

	if checked > 0 {
		t.logger.InfoContext(ctx, "Proof check pass done",
			slog.Int("checked", checked),
			slog.Int("proven", proven),
			slog.Int("invalidated", invalidated),
		)
	}
	return nil
}
