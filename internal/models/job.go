// -----------------------------------------------------------------------
// Discovery Job - Lifecycle record for one submitted theme
// -----------------------------------------------------------------------

package models

import "time"

// JobStatus represents the lifecycle state of a discovery job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsValid reports whether s is one of the known statuses
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// IsTerminal returns true for completed and failed
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo reports whether a job in status s may move to next.
// processing may be re-entered with a new message; nothing leaves a terminal status.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if !next.IsValid() || s.IsTerminal() {
		return false
	}
	switch s {
	case JobStatusPending:
		return next != JobStatusPending
	case JobStatusProcessing:
		return next != JobStatusPending
	}
	return false
}

// Job is the status record for one submitted theme.
// Values handed out by a JobStore are snapshots; mutating them has no effect on the store.
type Job struct {
	ID          string     `json:"id"`
	Status      JobStatus  `json:"status"`
	Topic       string     `json:"theme"`
	Message     string     `json:"message,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// NewJob creates a pending job with CreatedAt set to now (UTC)
func NewJob(id, topic string) Job {
	return Job{
		ID:        id,
		Status:    JobStatusPending,
		Topic:     topic,
		CreatedAt: time.Now().UTC(),
	}
}

// WithStatus returns a copy of the job moved to status with message.
// CompletedAt is stamped when the new status is terminal.
func (j Job) WithStatus(status JobStatus, message string, now time.Time) Job {
	next := j
	next.Status = status
	next.Message = message
	if status.IsTerminal() && next.CompletedAt == nil {
		completedAt := now.UTC()
		next.CompletedAt = &completedAt
	}
	return next
}
