package monitor

import (
	"context"
	"time"

	"github.com/icellan/wallet-toolbox/pkg/wdk"
)

// MonitoredStorage is the storage functionality the monitor daemon drives.
// *storage.Provider implements it.
type MonitoredStorage interface {
	SendWaitingTransactions(ctx context.Context, minTransactionAge time.Duration) (*wdk.ProcessActionResult, error)
	CheckForProofs(ctx context.Context, maxAttempts int) (checked, proven, invalidated int, err error)
	FailAbandoned(ctx context.Context, age time.Duration) (int, error)
	UnFail(ctx context.Context) (int, error)
	ReviewStatus(ctx context.Context, age time.Duration) (int, error)
	CheckReorg(ctx context.Context, window uint32) (int, error)
	PurgeOld(ctx context.Context, failedCutoff, completedCutoff time.Time) (int64, error)

	RecordMonitorEvent(ctx context.Context, event, details string) error
}
