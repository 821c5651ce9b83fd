package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

// defaultReorgWindow is how many recent blocks worth of proofs are re-checked.
const defaultReorgWindow = 12

// ReorgChecker verifies recent proofs against the active chain.
type ReorgChecker interface {
	CheckReorg(ctx context.Context, window uint32) (int, error)
}

// ReorgTask reopens transactions whose proofs a reorg orphaned.
type ReorgTask struct {
	storage ReorgChecker
	logger  *slog.Logger
	window  uint32
}

// NewReorgTask creates the reorg check task. window zero selects the default.
func NewReorgTask(storage ReorgChecker, logger *slog.Logger, window uint32) TaskInterface {
	if window == 0 {
		window = defaultReorgWindow
	}
	return &ReorgTask{storage: storage, logger: logger, window: window}
}

// Run re-verifies proofs near the tip.
func (t *ReorgTask) Run(ctx context.Context) error {
	orphaned, err := t.storage.CheckReorg(ctx, t.window)
	if err != nil {
		return fmt.Errorf("reorg check failed: %w", err)
	}
	if orphaned > 0 {
		t.logger.WarnContext(ctx, "Proofs orphaned by reorg", slog.Int("count", orphaned))
	}
	return nil
}
