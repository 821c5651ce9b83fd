package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icellan/wallet-toolbox/pkg/defs"
	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
)

type fakeMonitoredStorage struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeMonitoredStorage) SendWaitingTransactions(context.Context, time.Duration) (*wdk.ProcessActionResult, error) {
	return &wdk.ProcessActionResult{}, nil
}

func (f *fakeMonitoredStorage) CheckForProofs(context.Context, int) (int, int, int, error) {
	return 0, 0, 0, nil
}

func (f *fakeMonitoredStorage) FailAbandoned(context.Context, time.Duration) (int, error) {
	return 0, nil
}

func (f *fakeMonitoredStorage) UnFail(context.Context) (int, error) {
	return 0, nil
}

func (f *fakeMonitoredStorage) ReviewStatus(context.Context, time.Duration) (int, error) {
	return 0, nil
}

func (f *fakeMonitoredStorage) CheckReorg(context.Context, uint32) (int, error) {
	return 0, nil
}

func (f *fakeMonitoredStorage) PurgeOld(context.Context, time.Time, time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeMonitoredStorage) RecordMonitorEvent(_ context.Context, event, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeMonitoredStorage) recordedEvents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func newTestDaemon(t *testing.T) (*Daemon, *fakeMonitoredStorage) {
	t.Helper()
	storage := &fakeMonitoredStorage{}
	daemon, err := NewDaemon(logging.New().Nop().Logger(), storage)
	require.NoError(t, err)
	return daemon, storage
}

func TestDaemonStartSchedulesKnownTasks(t *testing.T) {
	daemon, _ := newTestDaemon(t)
	defer func() { _ = daemon.Stop() }()

	err := daemon.Start(map[defs.MonitorTask]defs.TaskConfig{
		defs.ClockMonitorTask:       {IntervalSeconds: 3600},
		defs.SendWaitingMonitorTask: {IntervalSeconds: 3600},
	})
	require.NoError(t, err)

	_, ok := daemon.Get(defs.ClockMonitorTask)
	assert.True(t, ok)
	_, ok = daemon.Get(defs.SendWaitingMonitorTask)
	assert.True(t, ok)
	_, ok = daemon.Get(defs.PurgeMonitorTask)
	assert.False(t, ok)
}

func TestDaemonStartSkipsUnknownTask(t *testing.T) {
	daemon, _ := newTestDaemon(t)
	defer func() { _ = daemon.Stop() }()

	err := daemon.Start(map[defs.MonitorTask]defs.TaskConfig{
		defs.MonitorTask("no_such_task"): {IntervalSeconds: 3600},
		defs.ClockMonitorTask:            {IntervalSeconds: 3600},
	})
	require.NoError(t, err)

	_, ok := daemon.Get(defs.ClockMonitorTask)
	assert.True(t, ok)
	_, ok = daemon.Get(defs.MonitorTask("no_such_task"))
	assert.False(t, ok)
}

func TestDaemonStartTwiceIsNoop(t *testing.T) {
	daemon, _ := newTestDaemon(t)
	defer func() { _ = daemon.Stop() }()

	require.NoError(t, daemon.Start(map[defs.MonitorTask]defs.TaskConfig{
		defs.ClockMonitorTask: {IntervalSeconds: 3600},
	}))
	require.NoError(t, daemon.Start(map[defs.MonitorTask]defs.TaskConfig{
		defs.PurgeMonitorTask: {IntervalSeconds: 3600},
	}))

	_, ok := daemon.Get(defs.PurgeMonitorTask)
	assert.False(t, ok)
}

func TestDaemonStopWithoutStart(t *testing.T) {
	daemon, _ := newTestDaemon(t)
	require.NoError(t, daemon.Stop())
}

func TestDaemonRecordsTaskRuns(t *testing.T) {
	daemon, storage := newTestDaemon(t)
	defer func() { _ = daemon.Stop() }()

	require.NoError(t, daemon.Start(map[defs.MonitorTask]defs.TaskConfig{
		defs.ClockMonitorTask: {IntervalSeconds: 3600, StartImmediately: true},
	}))

	require.Eventually(t, func() bool {
		return len(storage.recordedEvents()) > 0
	}, 5*time.Second, 10*time.Millisecond)

	assert.Contains(t, storage.recordedEvents(), string(defs.ClockMonitorTask))
}

func TestDefaultMonitorTasksCoverTheLifecycle(t *testing.T) {
	configs := defs.DefaultMonitorTasks()

	for _, task := range []defs.MonitorTask{
		defs.SendWaitingMonitorTask,
		defs.CheckForProofsMonitorTask,
		defs.FailAbandonedMonitorTask,
		defs.UnFailMonitorTask,
		defs.ReviewStatusMonitorTask,
		defs.PurgeMonitorTask,
		defs.ReorgMonitorTask,
	} {
		config, ok := configs[task]
		require.True(t, ok, "missing default config for %s", task)
		assert.Positive(t, config.IntervalSeconds)
	}
}
