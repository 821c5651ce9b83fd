// Package monitor runs the background tasks that move transactions through
// their post-broadcast lifecycle: sending, proof retrieval, reorg recovery,
// abandonment detection and purging.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/go-softwarelab/common/pkg/to"

	"github.com/icellan/wallet-toolbox/pkg/defs"
	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
	"github.com/icellan/wallet-toolbox/pkg/monitor/internal/tasks"
)

// safetyMargin keeps a task run from overlapping the next scheduled one.
const safetyMargin = 0.95

// Daemon schedules and runs the monitor tasks at their configured intervals.
type Daemon struct {
	scheduler   gocron.Scheduler
	logger      *slog.Logger
	storage     MonitoredStorage
	options     Options
	activeTasks map[defs.MonitorTask]*ActiveTask

	started   bool
	startLock sync.Mutex
}

// ActiveTask pairs a running task with its scheduler job.
type ActiveTask struct {
	Instance tasks.TaskInterface
	Cronjob  gocron.Job
	TaskName defs.MonitorTask
}

// NewDaemon creates a monitor daemon over the storage provider.
func NewDaemon(logger *slog.Logger, storage MonitoredStorage, opts ...Option) (*Daemon, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Daemon{
		scheduler:   scheduler,
		logger:      logging.Child(logger, "monitor"),
		storage:     storage,
		options:     to.OptionsWithDefault(defaultOptions(), opts...),
		activeTasks: make(map[defs.MonitorTask]*ActiveTask),
	}, nil
}

type taskFactoryFunc func() tasks.TaskInterface

func (d *Daemon) allTasksFactories(taskConfigs map[defs.MonitorTask]defs.TaskConfig) map[defs.MonitorTask]taskFactoryFunc {
	return map[defs.MonitorTask]taskFactoryFunc{
		defs.ClockMonitorTask: func() tasks.TaskInterface {
			return tasks.NewClockTask(d.logger)
		},
		defs.SendWaitingMonitorTask: func() tasks.TaskInterface {
			return tasks.NewSendWaitingTask(d.storage, d.logger)
		},
		defs.CheckForProofsMonitorTask: func() tasks.TaskInterface {
			return tasks.NewCheckForProofsTask(d.storage, d.logger,
				taskConfigs[defs.CheckForProofsMonitorTask].MaxAttempts)
		},
		defs.FailAbandonedMonitorTask: func() tasks.TaskInterface {
			return tasks.NewFailAbandonedTask(d.storage, d.logger)
		},
		defs.UnFailMonitorTask: func() tasks.TaskInterface {
			return tasks.NewUnFailTask(d.storage, d.logger)
		},
		defs.ReviewStatusMonitorTask: func() tasks.TaskInterface {
			return tasks.NewReviewStatusTask(d.storage, d.logger)
		},
		defs.PurgeMonitorTask: func() tasks.TaskInterface {
			return tasks.NewPurgeTask(d.storage, d.logger, d.options.PurgeParams)
		},
		defs.ReorgMonitorTask: func() tasks.TaskInterface {
			return tasks.NewReorgTask(d.storage, d.logger, d.options.ReorgWindow)
		},
	}
}

// Start schedules the given tasks and begins running them.
func (d *Daemon) Start(tasksToStart map[defs.MonitorTask]defs.TaskConfig) error {
	d.startLock.Lock()
	defer d.startLock.Unlock()

	if d.started {
		d.logger.Warn("Daemon is already started. Skipping.")
		return nil
	}

	factories := d.allTasksFactories(tasksToStart)
	for taskName, taskConfig := range tasksToStart {
		taskFactory, ok := factories[taskName]
		if !ok {
			d.logger.Warn("Task does not exist. Skipping.", slog.Any("task", taskName))
			continue
		}
		if err := d.initializeTask(taskFactory(), taskName, taskConfig); err != nil {
			return err
		}
	}

	d.scheduler.Start()
	d.started = true
	return nil
}

// Pause stops all scheduled jobs without releasing the scheduler.
func (d *Daemon) Pause() error {
	d.startLock.Lock()
	defer d.startLock.Unlock()

	if !d.started {
		d.logger.Warn("Daemon is not started. Skipping.")
		return nil
	}
	if err := d.scheduler.StopJobs(); err != nil {
		return fmt.Errorf("failed to stop jobs: %w", err)
	}
	return nil
}

// Stop shuts the daemon down. A stopped daemon cannot be restarted.
func (d *Daemon) Stop() error {
	d.startLock.Lock()
	defer d.startLock.Unlock()

	if !d.started {
		d.logger.Warn("Daemon is not started. Skipping.")
		return nil
	}
	if err := d.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to shut down scheduler: %w", err)
	}
	return nil
}

// Get retrieves the active task with the given name.
func (d *Daemon) Get(name defs.MonitorTask) (*ActiveTask, bool) {
	task, ok := d.activeTasks[name]
	return task, ok
}

func (d *Daemon) initializeTask(taskInstance tasks.TaskInterface, taskName defs.MonitorTask, taskConfig defs.TaskConfig) error {
	task := &ActiveTask{
		Instance: taskInstance,
		TaskName: taskName,
	}

	opts := []gocron.JobOption{
		gocron.WithName(fmt.Sprintf("monitor_%s", taskName)),
	}
	if taskConfig.StartImmediately {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	interval := taskConfig.Interval()
	job, err := d.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(d.singleTaskRunner(task)),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", taskName, err)
	}

	task.Cronjob = job
	d.activeTasks[taskName] = task

	d.logger.Info("Starting a task",
		slog.Any("task", taskName),
		slog.Duration("interval", interval),
		slog.Bool("start_immediately", taskConfig.StartImmediately),
	)
	return nil
}

func (d *Daemon) singleTaskRunner(activeTask *ActiveTask) func(ctx context.Context) {
	return func(ctx context.Context) {
		d.logger.Debug("Run task", slog.Any("task", activeTask.TaskName))

		ctx, cancel := d.contextWithTimeout(ctx, activeTask)
		defer cancel()

		err := activeTask.Instance.Run(ctx)
		d.recordRun(ctx, activeTask.TaskName, err)

		if err != nil {
			d.logger.Error("Task failed",
				slog.Any("task", activeTask.TaskName),
				logging.Error(err),
			)
			return
		}
		d.logger.Debug("Finish task", slog.Any("task", activeTask.TaskName))
	}
}

// recordRun writes the audit row for a task run. Failing to write the audit
// row is itself only logged; it must not break the task loop.
func (d *Daemon) recordRun(ctx context.Context, taskName defs.MonitorTask, runErr error) {
	details := "ok"
	if runErr != nil {
		details = runErr.Error()
	}
	// The audit row must be written even when the task ran out of time.
	ctx = context.WithoutCancel(ctx)
	if err := d.storage.RecordMonitorEvent(ctx, string(taskName), details); err != nil {
		d.logger.Warn("Failed to record monitor event",
			slog.Any("task", taskName),
			logging.Error(err),
		)
	}
}

func (d *Daemon) contextWithTimeout(ctx context.Context, activeTask *ActiveTask) (context.Context, context.CancelFunc) {
	if activeTask.Cronjob == nil {
		return ctx, func() {}
	}
	nextRun, err := activeTask.Cronjob.NextRun()
	if err != nil || nextRun.IsZero() {
		return ctx, func() {}
	}

	untilNext := time.Until(nextRun)
	if untilNext <= 0 {
		return ctx, func() {}
	}

	timeout := time.Duration(float64(untilNext) * safetyMargin)
	return context.WithTimeout(ctx, timeout)
}
