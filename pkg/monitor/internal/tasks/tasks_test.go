package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icellan/wallet-toolbox/pkg/defs"
	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/werr"
)

type fakeSender struct {
	ages   []time.Duration
	result *wdk.ProcessActionResult
	err    error
}

func (f *fakeSender) SendWaitingTransactions(_ context.Context, minTransactionAge time.Duration) (*wdk.ProcessActionResult, error) {
	f.ages = append(f.ages, minTransactionAge)
	if f.result == nil {
		return &wdk.ProcessActionResult{}, f.err
	}
	return f.result, f.err
}

func TestSendWaitingTaskIgnoresAgeOnFirstRun(t *testing.T) {
	sender := &fakeSender{}
	task := NewSendWaitingTask(sender, logging.New().Nop().Logger())

	require.NoError(t, task.Run(context.Background()))
	require.NoError(t, task.Run(context.Background()))
	require.NoError(t, task.Run(context.Background()))

	require.Len(t, sender.ages, 3)
	assert.Equal(t, time.Duration(0), sender.ages[0])
	assert.Equal(t, 5*time.Minute, sender.ages[1])
	assert.Equal(t, 5*time.Minute, sender.ages[2])
}

func TestSendWaitingTaskWrapsError(t *testing.T) {
	sender := &fakeSender{err: assert.AnError}
	task := NewSendWaitingTask(sender, logging.New().Nop().Logger())

	err := task.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestSendWaitingTaskLogsResults(t *testing.T) {
	sender := &fakeSender{result: &wdk.ProcessActionResult{
		SendWithResults: []werr.SendWithResult{
			{TxID: "aa11", Status: "unproven"},
		},
	}}
	task := NewSendWaitingTask(sender, logging.New().Nop().Logger())

	require.NoError(t, task.Run(context.Background()))
}

type fakeProofChecker struct {
	maxAttempts int
	err         error
}

func (f *fakeProofChecker) CheckForProofs(_ context.Context, maxAttempts int) (int, int, int, error) {
	f.maxAttempts = maxAttempts
	return 3, 2, 1, f.err
}

func TestCheckForProofsTaskPassesMaxAttempts(t *testing.T) {
	checker := &fakeProofChecker{}
	task := NewCheckForProofsTask(checker, logging.New().Nop().Logger(), 8)

	require.NoError(t, task.Run(context.Background()))
	assert.Equal(t, 8, checker.maxAttempts)
}

func TestCheckForProofsTaskWrapsError(t *testing.T) {
	checker := &fakeProofChecker{err: assert.AnError}
	task := NewCheckForProofsTask(checker, logging.New().Nop().Logger(), 0)

	assert.ErrorIs(t, task.Run(context.Background()), assert.AnError)
}

type fakeFailer struct {
	age time.Duration
}

func (f *fakeFailer) FailAbandoned(_ context.Context, age time.Duration) (int, error) {
	f.age = age
	return 1, nil
}

func TestFailAbandonedTaskUsesFiveMinuteWindow(t *testing.T) {
	failer := &fakeFailer{}
	task := NewFailAbandonedTask(failer, logging.New().Nop().Logger())

	require.NoError(t, task.Run(context.Background()))
	assert.Equal(t, 5*time.Minute, failer.age)
}

type fakePurger struct {
	failedCutoff    time.Time
	completedCutoff time.Time
}

func (f *fakePurger) PurgeOld(_ context.Context, failedCutoff, completedCutoff time.Time) (int64, error) {
	f.failedCutoff = failedCutoff
	f.completedCutoff = completedCutoff
	return 5, nil
}

func TestPurgeTaskAppliesThresholds(t *testing.T) {
	purger := &fakePurger{}
	task := NewPurgeTask(purger, logging.New().Nop().Logger(), defs.PurgeParams{
		FailedThreshold:    24 * time.Hour,
		CompletedThreshold: 48 * time.Hour,
	})

	before := time.Now()
	require.NoError(t, task.Run(context.Background()))

	assert.WithinDuration(t, before.Add(-24*time.Hour), purger.failedCutoff, time.Minute)
	assert.WithinDuration(t, before.Add(-48*time.Hour), purger.completedCutoff, time.Minute)
}

type fakeReorgChecker struct {
	window uint32
}

func (f *fakeReorgChecker) CheckReorg(_ context.Context, window uint32) (int, error) {
	f.window = window
	return 0, nil
}

func TestReorgTaskDefaultsWindow(t *testing.T) {
	checker := &fakeReorgChecker{}
	task := NewReorgTask(checker, logging.New().Nop().Logger(), 0)

	require.NoError(t, task.Run(context.Background()))
	assert.Equal(t, uint32(defaultReorgWindow), checker.window)
}

func TestReorgTaskHonorsConfiguredWindow(t *testing.T) {
	checker := &fakeReorgChecker{}
	task := NewReorgTask(checker, logging.New().Nop().Logger(), 100)

	require.NoError(t, task.Run(context.Background()))
	assert.Equal(t, uint32(100), checker.window)
}
