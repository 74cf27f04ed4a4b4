package interfaces

import (
	"context"
	"time"
)

// ScheduleStatus describes the periodic theme submission
type ScheduleStatus struct {
	Schedule  string
	Themes    []string
	LastRun   *time.Time
	NextRun   *time.Time
	IsRunning bool
	LastError string
}

// SchedulerService manages cron-based scheduling
type SchedulerService interface {
	// Start the scheduler with a cron expression
	Start(cronExpr string) error

	// Stop the scheduler and wait for a running tick to finish
	Stop() error

	// TriggerNow submits every configured theme immediately
	TriggerNow(ctx context.Context) error

	// IsRunning returns true if scheduler is active
	IsRunning() bool

	// Status returns a snapshot of the schedule
	Status() ScheduleStatus
}
