package defs

import (
	"time"
)

// MonitorTask names a task runnable by the monitor daemon.
type MonitorTask string

// All tasks known to the monitor daemon.
const (
	ClockMonitorTask          MonitorTask = "Clock"
	SendWaitingMonitorTask    MonitorTask = "SendWaiting"
	CheckForProofsMonitorTask MonitorTask = "CheckForProofs"
	FailAbandonedMonitorTask  MonitorTask = "FailAbandoned"
	UnFailMonitorTask         MonitorTask = "UnFail"
	ReviewStatusMonitorTask   MonitorTask = "ReviewStatus"
	PurgeMonitorTask          MonitorTask = "Purge"
	ReorgMonitorTask          MonitorTask = "Reorg"
)

// TaskConfig controls how often a monitor task runs and how it retries.
type TaskConfig struct {
	IntervalSeconds  int  `yaml:"interval_seconds"`
	StartImmediately bool `yaml:"start_immediately"`

	// MaxAttempts bounds per-item retries for tasks that poll external
	// services (CheckForProofs). Zero means unbounded.
	MaxAttempts int `yaml:"max_attempts"`
}

// Interval returns the configured run interval as a duration.
func (c TaskConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// DefaultMonitorTasks returns the default task set with the intervals
// the reference wallet uses.
func DefaultMonitorTasks() map[MonitorTask]TaskConfig {
	return map[MonitorTask]TaskConfig{
		ClockMonitorTask:          {IntervalSeconds: 60},
		SendWaitingMonitorTask:    {IntervalSeconds: 8, StartImmediately: true},
		CheckForProofsMonitorTask: {IntervalSeconds: 120, MaxAttempts: 8},
		FailAbandonedMonitorTask:  {IntervalSeconds: 300},
		UnFailMonitorTask:         {IntervalSeconds: 600},
		ReviewStatusMonitorTask:   {IntervalSeconds: 300},
		PurgeMonitorTask:          {IntervalSeconds: 3600},
		ReorgMonitorTask:          {IntervalSeconds: 60},
	}
}

// PurgeParams parametrizes the Purge task age thresholds.
type PurgeParams struct {
	PurgeSpent         bool          `yaml:"purge_spent"`
	PurgeCompleted     bool          `yaml:"purge_completed"`
	PurgeFailed        bool          `yaml:"purge_failed"`
	SpentAgeThreshold  time.Duration `yaml:"spent_age_threshold"`
	CompletedThreshold time.Duration `yaml:"completed_age_threshold"`
	FailedThreshold    time.Duration `yaml:"failed_age_threshold"`
}

// DefaultPurgeParams returns conservative purge thresholds (two weeks).
func DefaultPurgeParams() PurgeParams {
	const twoWeeks = 14 * 24 * time.Hour
	return PurgeParams{
		PurgeSpent:         true,
		PurgeFailed:        true,
		SpentAgeThreshold:  twoWeeks,
		CompletedThreshold: twoWeeks,
		FailedThreshold:    twoWeeks,
	}
}
