package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/novodl/novodl/internal/log"
	"github.com/novodl/novodl/internal/model"
)

const (
	maxLogLines  = 1000
	trimLogLines = 800
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.TaskRepository.
type Repository struct {
	tasks  map[string]model.Task
	logs   map[string][]string
	mu     sync.RWMutex
	logger log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		tasks:  make(map[string]model.Task),
		logs:   make(map[string][]string),
		logger: cfg.Logger,
	}, nil
}

// CreateTask creates a new task in the repository.
func (r *Repository) CreateTask(ctx context.Context, t model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[t.ID]; ok {
		return fmt.Errorf("task with id %s: %w", t.ID, model.ErrAlreadyExists)
	}

	r.tasks[t.ID] = t
	r.logger.Debugf("Created task: %s", t.ID)
	return nil
}

// GetTask returns a task by ID.
func (r *Repository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	return &t, nil
}

// ListTasks returns all tasks sorted by creation time, newest first.
func (r *Repository) ListTasks(ctx context.Context) ([]model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]model.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, t)
	}

	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID > tasks[j].ID
		}
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})

	return tasks, nil
}

// UpdateTask updates an existing task.
func (r *Repository) UpdateTask(ctx context.Context, t model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[t.ID]; !ok {
		return fmt.Errorf("task %s: %w", t.ID, model.ErrNotFound)
	}

	r.tasks[t.ID] = t
	return nil
}

// DeleteTask removes a task and its logs.
func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	delete(r.tasks, id)
	delete(r.logs, id)
	r.logger.Debugf("Deleted task: %s", id)
	return nil
}

// AppendTaskLog appends a log line to a task's log.
func (r *Repository) AppendTaskLog(ctx context.Context, taskID, line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lines := append(r.logs[taskID], line)
	if len(lines) > maxLogLines {
		lines = append([]string{}, lines[len(lines)-trimLogLines:]...)
	}
	r.logs[taskID] = lines

	return nil
}

// GetTaskLogs returns a page of the task's log lines plus the total stored count.
func (r *Repository) GetTaskLogs(ctx context.Context, taskID string, start, limit int) ([]string, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lines := r.logs[taskID]
	total := len(lines)

	if start < 0 {
		start = 0
	}
	if limit <= 0 {
		limit = 100
	}
	if start >= total {
		return nil, total, nil
	}

	end := start + limit
	if end > total {
		end = total
	}

	page := make([]string, end-start)
	copy(page, lines[start:end])

	return page, total, nil
}
