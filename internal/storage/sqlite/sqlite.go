package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/novodl/novodl/internal/log"
	"github.com/novodl/novodl/internal/model"
	"github.com/novodl/novodl/internal/storage/sqlite/migrations"
)

const (
	// maxLogLines is the hard cap of stored log lines per task. When it is
	// exceeded the oldest lines are trimmed down to trimLogLines.
	maxLogLines  = 1000
	trimLogLines = 800
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.TaskRepository.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRepository creates a new SQLite repository.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(db, cfg.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// CreateTask creates a new task in the repository.
func (r *Repository) CreateTask(ctx context.Context, t model.Task) error {
	var startedAt, endedAt *int64
	if t.StartedAt != nil {
		u := t.StartedAt.Unix()
		startedAt = &u
	}
	if t.EndedAt != nil {
		u := t.EndedAt.Unix()
		endedAt = &u
	}

	query := `
		INSERT INTO tasks (
			id, data_path, username, password,
			release_date, expire_date, total_size, sample_count, sample_names,
			batch_info, notes,
			download_dir, status, progress, current_step, error_message,
			created_at, started_at, ended_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.Delivery.DataPath, t.Delivery.Username, t.Delivery.Password,
		t.Delivery.ReleaseDate, t.Delivery.ExpireDate, t.Delivery.TotalSize,
		t.Delivery.SampleCount, t.Delivery.SampleNames,
		t.Delivery.BatchInfo, t.Delivery.Notes,
		t.DownloadDir, t.Status, t.Progress, t.CurrentStep, t.ErrorMessage,
		t.CreatedAt.Unix(), startedAt, endedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("task with id %s: %w", t.ID, model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert task: %w", err)
	}

	r.logger.Debugf("Created task: %s", t.ID)
	return nil
}

const taskColumns = `
	id, data_path, username, password,
	release_date, expire_date, total_size, sample_count, sample_names,
	batch_info, notes,
	download_dir, status, progress, current_step, error_message,
	created_at, started_at, ended_at
`

// GetTask returns a task by ID.
func (r *Repository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query task: %w", err)
	}

	return t, nil
}

// ListTasks returns all tasks sorted by creation time, newest first.
func (r *Repository) ListTasks(ctx context.Context) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("could not query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate tasks: %w", err)
	}

	return tasks, nil
}

// UpdateTask updates an existing task.
func (r *Repository) UpdateTask(ctx context.Context, t model.Task) error {
	var startedAt, endedAt *int64
	if t.StartedAt != nil {
		u := t.StartedAt.Unix()
		startedAt = &u
	}
	if t.EndedAt != nil {
		u := t.EndedAt.Unix()
		endedAt = &u
	}

	query := `
		UPDATE tasks SET
			status = ?, progress = ?, current_step = ?, error_message = ?,
			started_at = ?, ended_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		t.Status, t.Progress, t.CurrentStep, t.ErrorMessage,
		startedAt, endedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("could not update task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task %s: %w", t.ID, model.ErrNotFound)
	}

	return nil
}

// DeleteTask removes a task and its logs.
func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("could not delete task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	r.logger.Debugf("Deleted task: %s", id)
	return nil
}

// AppendTaskLog appends a log line to a task's log, trimming the oldest lines
// when the stored log grows past the cap.
func (r *Repository) AppendTaskLog(ctx context.Context, taskID, line string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // Rollback is safe to call after Commit

	insert := `INSERT INTO task_logs (task_id, line, created_at) VALUES (?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insert, taskID, line, time.Now().UTC().Unix()); err != nil {
		return fmt.Errorf("could not insert log line: %w", err)
	}

	var total int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM task_logs WHERE task_id = ?`, taskID).Scan(&total); err != nil {
		return fmt.Errorf("could not count log lines: %w", err)
	}

	if total > maxLogLines {
		trim := `
			DELETE FROM task_logs WHERE task_id = ? AND id NOT IN (
				SELECT id FROM task_logs WHERE task_id = ? ORDER BY id DESC LIMIT ?
			)
		`
		if _, err := tx.ExecContext(ctx, trim, taskID, taskID, trimLogLines); err != nil {
			return fmt.Errorf("could not trim log lines: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// GetTaskLogs returns a page of the task's log lines plus the total stored count.
func (r *Repository) GetTaskLogs(ctx context.Context, taskID string, start, limit int) ([]string, int, error) {
	if start < 0 {
		start = 0
	}
	if limit <= 0 {
		limit = 100
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM task_logs WHERE task_id = ?`, taskID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("could not count log lines: %w", err)
	}

	query := `SELECT line FROM task_logs WHERE task_id = ? ORDER BY id ASC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, taskID, limit, start)
	if err != nil {
		return nil, 0, fmt.Errorf("could not query log lines: %w", err)
	}
	defer rows.Close()

	var logs []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, 0, fmt.Errorf("could not scan log line: %w", err)
		}
		logs = append(logs, line)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("could not iterate log lines: %w", err)
	}

	return logs, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*model.Task, error) {
	var t model.Task
	var createdAt int64
	var startedAt, endedAt *int64

	err := row.Scan(
		&t.ID, &t.Delivery.DataPath, &t.Delivery.Username, &t.Delivery.Password,
		&t.Delivery.ReleaseDate, &t.Delivery.ExpireDate, &t.Delivery.TotalSize,
		&t.Delivery.SampleCount, &t.Delivery.SampleNames,
		&t.Delivery.BatchInfo, &t.Delivery.Notes,
		&t.DownloadDir, &t.Status, &t.Progress, &t.CurrentStep, &t.ErrorMessage,
		&createdAt, &startedAt, &endedAt,
	)
	if err != nil {
		return nil, err
	}

	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	if startedAt != nil {
		ts := time.Unix(*startedAt, 0).UTC()
		t.StartedAt = &ts
	}
	if endedAt != nil {
		ts := time.Unix(*endedAt, 0).UTC()
		t.EndedAt = &ts
	}

	return &t, nil
}

func isUniqueConstraintError(err error) bool {
	// modernc.org/sqlite returns errors with the SQLite error text embedded.
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}
