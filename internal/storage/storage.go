package storage

import (
	"context"

	"github.com/novodl/novodl/internal/model"
)

// TaskRepository is the interface for download task persistence.
type TaskRepository interface {
	CreateTask(ctx context.Context, t model.Task) error
	GetTask(ctx context.Context, id string) (*model.Task, error)
	ListTasks(ctx context.Context) ([]model.Task, error)
	UpdateTask(ctx context.Context, t model.Task) error
	DeleteTask(ctx context.Context, id string) error

	// AppendTaskLog appends a log line to a task's log. Implementations cap
	// the stored log at a bounded number of lines, dropping the oldest.
	AppendTaskLog(ctx context.Context, taskID, line string) error
	// GetTaskLogs returns a slice of the task's log lines starting at start
	// (0-based) with at most limit lines, plus the total number of stored lines.
	GetTaskLogs(ctx context.Context, taskID string, start, limit int) (logs []string, total int, err error)
}
