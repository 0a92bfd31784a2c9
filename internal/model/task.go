package model

import (
	"time"
)

// TaskStatus represents the lifecycle state of a download task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has been created and is waiting to start.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusLoggingIn indicates the task is authenticating against the vendor portal.
	TaskStatusLoggingIn TaskStatus = "logging_in"
	// TaskStatusListing indicates the task is listing the remote files.
	TaskStatusListing TaskStatus = "listing"
	// TaskStatusDownloading indicates the task is transferring files.
	TaskStatusDownloading TaskStatus = "downloading"
	// TaskStatusValidating indicates the task is verifying downloaded files.
	TaskStatusValidating TaskStatus = "validating"
	// TaskStatusCompleted indicates the task finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task failed.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusCancelled indicates the task was cancelled by the user.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// IsTerminal returns true when the status is final and the task will not
// change state anymore.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

// badgeColors maps every task status to its UI badge color token.
var badgeColors = map[TaskStatus]string{
	TaskStatusPending:     "secondary",
	TaskStatusLoggingIn:   "info",
	TaskStatusListing:     "info",
	TaskStatusDownloading: "primary",
	TaskStatusValidating:  "warning",
	TaskStatusCompleted:   "success",
	TaskStatusFailed:      "danger",
	TaskStatusCancelled:   "dark",
}

// BadgeColor returns the badge color token for the status. Unknown statuses
// fall back to the neutral "secondary" token.
func (s TaskStatus) BadgeColor() string {
	if c, ok := badgeColors[s]; ok {
		return c
	}
	return "secondary"
}

// Task represents a single delivery download tracked by the manager.
type Task struct {
	ID           string
	Delivery     Delivery
	DownloadDir  string
	Status       TaskStatus
	Progress     float64 // Percentage in [0, 100].
	CurrentStep  string
	ErrorMessage string
	CreatedAt    time.Time
	StartedAt    *time.Time
	EndedAt      *time.Time
}
