// Package tasks holds the units of work the monitor daemon schedules. Each
// task declares the narrow storage interface it needs.
package tasks

import "context"

// TaskInterface is one schedulable monitor task.
type TaskInterface interface {
	Run(ctx context.Context) error
}
