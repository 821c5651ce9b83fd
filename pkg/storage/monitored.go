package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/icellan/wallet-toolbox/pkg/wdk"
)

// SendWaitingTransactions broadcasts proof requests still waiting for a send.
func (p *Provider) SendWaitingTransactions(ctx context.Context, minTransactionAge time.Duration) (*wdk.ProcessActionResult, error) {
	return p.actions.SendWaiting(ctx, minTransactionAge)
}

// CheckForProofs polls the chain services for merkle proofs and completes
// proven transactions. maxAttempts bounds per-request polling; zero means
// unbounded.
func (p *Provider) CheckForProofs(ctx context.Context, maxAttempts int) (checked, proven, invalidated int, err error) {
	stats, err := p.actions.CheckForProofs(ctx, maxAttempts)
	if err != nil {
		return 0, 0, 0, err
	}
	return stats.Checked, stats.Proven, stats.Invalidated, nil
}

// FailAbandoned fails unsigned actions older than the age window.
func (p *Provider) FailAbandoned(ctx context.Context, age time.Duration) (int, error) {
	return p.actions.FailAbandoned(ctx, age)
}

// UnFail puts failed transactions the network knows back into the proof loop.
func (p *Provider) UnFail(ctx context.Context) (int, error) {
	return p.actions.UnFail(ctx)
}

// ReviewStatus requeues broadcast transactions the network dropped.
func (p *Provider) ReviewStatus(ctx context.Context, age time.Duration) (int, error) {
	return p.actions.ReviewStatus(ctx, age)
}

// CheckReorg verifies recent proofs against the chain and reopens orphans.
func (p *Provider) CheckReorg(ctx context.Context, window uint32) (int, error) {
	return p.actions.CheckReorg(ctx, window)
}

// PurgeOld reclaims space: failed transactions, settled proof requests, stale
// monitor events and the raw bytes of old completed transactions.
func (p *Provider) PurgeOld(ctx context.Context, failedCutoff, completedCutoff time.Time) (int64, error) {
	var total int64

	purged, err := p.repos.Transactions.PurgeFailed(ctx, failedCutoff)
	if err != nil {
		return total, err
	}
	total += purged

	purged, err = p.repos.Proven.PurgeCompletedReqs(ctx, completedCutoff)
	if err != nil {
		return total, err
	}
	total += purged

	purged, err = p.repos.MonitorEvents.PurgeEvents(ctx, completedCutoff)
	if err != nil {
		return total, err
	}
	total += purged

	purged, err = p.repos.Transactions.ClearRawTxForOldCompleted(ctx, completedCutoff)
	if err != nil {
		return total, err
	}
	total += purged

	return total, nil
}

// RecordMonitorEvent writes an audit entry for a monitor task run.
func (p *Provider) RecordMonitorEvent(ctx context.Context, event, details string) error {
	if err := p.repos.MonitorEvents.InsertEvent(ctx, event, details); err != nil {
		return fmt.Errorf("failed to record monitor event: %w", err)
	}
	return nil
}
