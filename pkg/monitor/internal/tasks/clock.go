package tasks

import (
	"context"
	"log/slog"
	"time"
)

// ClockTask is a heartbeat: its audit trail proves the scheduler is alive.
type ClockTask struct {
	logger *slog.Logger
}

// NewClockTask creates the heartbeat task.
func NewClockTask(logger *slog.Logger) TaskInterface {
	return &ClockTask{logger: logger}
}

// Run logs the current time.
func (t *ClockTask) Run(ctx context.Context) error {
	t.logger.InfoContext(ctx, "Monitor heartbeat", slog.Time("now", time.Now().UTC()))
	return nil
}
