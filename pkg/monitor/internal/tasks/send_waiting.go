package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/icellan/wallet-toolbox/pkg/wdk"
)

// WaitingTransactionsSender broadcasts proof requests still waiting for a send.
type WaitingTransactionsSender interface {
	SendWaitingTransactions(ctx context.Context, minTransactionAge time.Duration) (*wdk.ProcessActionResult, error)
}

// SendWaitingTask picks up delayed and retry-pending transactions and
// broadcasts them.
type SendWaitingTask struct {
	storage  WaitingTransactionsSender
	logger   *slog.Logger
	firstRun bool
}

// NewSendWaitingTask creates the send-waiting task.
func NewSendWaitingTask(storage WaitingTransactionsSender, logger *slog.Logger) TaskInterface {
	return &SendWaitingTask{
		storage:  storage,
		logger:   logger,
		firstRun: true,
	}
}

// Run broadcasts waiting transactions. The first run after startup ignores
// transaction age so sends queued before a shutdown go out immediately.
func (t *SendWaitingTask) Run(ctx context.Context) error {
	result, err := t.storage.SendWaitingTransactions(ctx, t.minTransactionAge())
	if err != nil {
		return fmt.Errorf("send waiting transactions failed: %w", err)
	}

	for _, sent := range result.SendWithResults {
		t.logger.InfoContext(ctx, "Waiting transaction sent",
			slog.String("txid", sent.TxID),
			slog.String("status", sent.Status),
		)
	}
	return nil
}

func (t *SendWaitingTask) minTransactionAge() time.Duration {
	if t.firstRun {
		t.firstRun = false
		return 0
	}
	return 5 * time.Minute
}
