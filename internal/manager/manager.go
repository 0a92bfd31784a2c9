// Package manager orchestrates download tasks: it owns the task lifecycle
// and runs the login/list/download/validate pipeline for each task.
package manager

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/novodl/novodl/internal/lnd"
	"github.com/novodl/novodl/internal/log"
	"github.com/novodl/novodl/internal/model"
	"github.com/novodl/novodl/internal/settings"
	"github.com/novodl/novodl/internal/storage"
	"github.com/novodl/novodl/internal/validate"
)

// Progress milestones of the pipeline. Download output scales into the
// space between downloadStart and downloadEnd.
const (
	progressLogin         = 20.0
	progressList          = 30.0
	progressDownloadStart = 30.0
	progressDownloadEnd   = 90.0
	progressDone          = 100.0
)

const reportFileName = "validation_report.txt"

// ManagerConfig is the configuration for the task manager.
type ManagerConfig struct {
	Repo      storage.TaskRepository
	Runner    lnd.Runner
	Validator *validate.Validator

	// Settings returns the current application settings. The concurrency
	// limit is read once at construction, the rest on every task start.
	Settings func(ctx context.Context) (model.Settings, error)

	Logger log.Logger
}

func (c *ManagerConfig) defaults() error {
	if c.Repo == nil {
		return fmt.Errorf("task repository is required")
	}
	if c.Runner == nil {
		return fmt.Errorf("lnd runner is required")
	}
	if c.Validator == nil {
		v, err := validate.NewValidator(validate.ValidatorConfig{Logger: c.Logger})
		if err != nil {
			return err
		}
		c.Validator = v
	}
	if c.Settings == nil {
		c.Settings = func(ctx context.Context) (model.Settings, error) {
			return settings.Defaults(), nil
		}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "manager.Manager"})
	return nil
}

// Manager runs download tasks.
type Manager struct {
	repo      storage.TaskRepository
	runner    lnd.Runner
	validator *validate.Validator
	settings  func(ctx context.Context) (model.Settings, error)
	logger    log.Logger

	sem chan struct{}

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager creates a new task manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s, err := cfg.Settings(context.Background())
	if err != nil {
		return nil, fmt.Errorf("could not load settings: %w", err)
	}
	maxTasks := s.MaxConcurrentTasks
	if maxTasks <= 0 {
		maxTasks = 1
	}

	return &Manager{
		repo:      cfg.Repo,
		runner:    cfg.Runner,
		validator: cfg.Validator,
		settings:  cfg.Settings,
		logger:    cfg.Logger,
		sem:       make(chan struct{}, maxTasks),
		cancels:   map[string]context.CancelFunc{},
	}, nil
}

// Create registers a new pending task for a delivery. When downloadDir is
// empty the default download directory from the settings is used.
func (m *Manager) Create(ctx context.Context, delivery model.Delivery, downloadDir string) (*model.Task, error) {
	if err := delivery.Validate(); err != nil {
		return nil, err
	}

	if downloadDir == "" {
		s, err := m.settings(ctx)
		if err != nil {
			return nil, fmt.Errorf("could not load settings: %w", err)
		}
		downloadDir = s.DefaultDownloadDir
	}

	// Each task gets its own subdirectory so concurrent downloads of the
	// same delivery never collide.
	taskDirName := fmt.Sprintf("%s_%s", delivery.Username, time.Now().Format("20060102_150405"))
	downloadDir = filepath.Join(downloadDir, taskDirName)

	if err := os.MkdirAll(downloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create download dir: %w", err)
	}

	task := model.Task{
		ID:          ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String(),
		Delivery:    delivery,
		DownloadDir: downloadDir,
		Status:      model.TaskStatusPending,
		CurrentStep: "waiting to start",
		CreatedAt:   time.Now().UTC(),
	}

	if err := m.repo.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("could not store task: %w", err)
	}

	m.appendLog(ctx, task.ID, fmt.Sprintf("task created for %s", delivery.Username))
	m.logger.Infof("Created task %s (delivery %s)", task.ID, delivery.Username)

	return &task, nil
}

// Start launches the download pipeline for a pending task. The pipeline
// runs in a background goroutine bounded by the concurrency limit and the
// configured task timeout.
func (m *Manager) Start(ctx context.Context, id string) error {
	task, err := m.repo.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if task.Status != model.TaskStatusPending {
		return fmt.Errorf("task %s is %s, only pending tasks can start: %w", id, task.Status, model.ErrNotValid)
	}

	if err := m.runner.CheckInstalled(ctx); err != nil {
		m.failTask(ctx, task, fmt.Sprintf("lnd command not available: %v", err))
		return fmt.Errorf("lnd command not available: %w", err)
	}

	s, err := m.settings(ctx)
	if err != nil {
		return fmt.Errorf("could not load settings: %w", err)
	}

	timeout := time.Duration(s.TaskTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Hour
	}

	// The worker outlives the request that started it.
	workerCtx, cancel := context.WithTimeout(context.Background(), timeout)

	m.mu.Lock()
	m.cancels[id] = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		defer func() {
			m.mu.Lock()
			delete(m.cancels, id)
			m.mu.Unlock()
		}()

		m.run(workerCtx, *task, s)
	}()

	return nil
}

// Cancel stops a running or pending task. Terminal tasks cannot be
// cancelled.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	task, err := m.repo.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if task.Status.IsTerminal() {
		return fmt.Errorf("task %s already finished: %w", id, model.ErrNotValid)
	}

	m.mu.Lock()
	cancel := m.cancels[id]
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	m.markCancelled(ctx, task)
	m.logger.Infof("Cancelled task %s", id)
	return nil
}

// Remove deletes a finished task and its logs. Running tasks must be
// cancelled first.
func (m *Manager) Remove(ctx context.Context, id string) error {
	task, err := m.repo.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if !task.Status.IsTerminal() {
		return fmt.Errorf("task %s is still %s, cancel it first: %w", id, task.Status, model.ErrNotValid)
	}

	return m.repo.DeleteTask(ctx, id)
}

// Get returns a single task.
func (m *Manager) Get(ctx context.Context, id string) (*model.Task, error) {
	return m.repo.GetTask(ctx, id)
}

// List returns all tasks, newest first.
func (m *Manager) List(ctx context.Context) ([]model.Task, error) {
	return m.repo.ListTasks(ctx)
}

// Logs returns a page of a task's log lines plus the total stored count.
func (m *Manager) Logs(ctx context.Context, id string, start, limit int) ([]string, int, error) {
	return m.repo.GetTaskLogs(ctx, id, start, limit)
}

// Wait blocks until every running worker has finished. Used on shutdown.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) run(ctx context.Context, task model.Task, s model.Settings) {
	// Respect the concurrency limit before doing any work.
	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		m.finish(ctx, task, ctx.Err())
		return
	}
	defer func() { <-m.sem }()

	now := time.Now().UTC()
	task.StartedAt = &now

	logLine := func(line string) { m.appendLog(ctx, task.ID, line) }

	m.setStatus(ctx, &task, model.TaskStatusLoggingIn, "logging in")
	if err := m.runner.Login(ctx, task.Delivery.Username, task.Delivery.Password, logLine); err != nil {
		m.finish(ctx, task, fmt.Errorf("login failed: %w", err))
		return
	}
	m.setProgress(ctx, &task, progressLogin)
	m.appendLog(ctx, task.ID, "login succeeded")

	m.setStatus(ctx, &task, model.TaskStatusListing, "listing remote files")
	if err := m.runner.List(ctx, task.Delivery.DataPath, task.DownloadDir, logLine); err != nil {
		m.finish(ctx, task, fmt.Errorf("listing failed: %w", err))
		return
	}
	m.setProgress(ctx, &task, progressList)
	m.appendLog(ctx, task.ID, "file listing stored")

	m.setStatus(ctx, &task, model.TaskStatusDownloading, "downloading files")
	onProgress := func(pct float64) {
		scaled := progressDownloadStart + (pct/100.0)*(progressDownloadEnd-progressDownloadStart)
		m.setProgress(ctx, &task, scaled)
	}
	if err := m.runner.Download(ctx, task.Delivery.DataPath, task.DownloadDir, onProgress, logLine); err != nil {
		m.finish(ctx, task, fmt.Errorf("download failed: %w", err))
		return
	}
	m.setProgress(ctx, &task, progressDownloadEnd)
	m.appendLog(ctx, task.ID, "download finished")

	if s.AutoValidate {
		m.setStatus(ctx, &task, model.TaskStatusValidating, "validating files")
		m.validateTask(ctx, &task, s)
	}

	m.setProgress(ctx, &task, progressDone)
	m.finish(ctx, task, nil)
}

// validateTask never fails the task, validation problems are only logged.
func (m *Manager) validateTask(ctx context.Context, task *model.Task, s model.Settings) {
	if s.GenerateReport {
		report, err := m.validator.Report(ctx, task.DownloadDir)
		if err != nil {
			m.appendLog(ctx, task.ID, fmt.Sprintf("validation warning: %v", err))
			return
		}

		reportPath := filepath.Join(task.DownloadDir, reportFileName)
		if err := os.WriteFile(reportPath, []byte(report), 0o644); err != nil {
			m.appendLog(ctx, task.ID, fmt.Sprintf("could not write validation report: %v", err))
			return
		}
		m.appendLog(ctx, task.ID, fmt.Sprintf("validation report written to %s", reportPath))
		return
	}

	manifests, err := m.validator.FindManifests(task.DownloadDir)
	if err != nil {
		m.appendLog(ctx, task.ID, fmt.Sprintf("validation warning: %v", err))
		return
	}
	if len(manifests) == 0 {
		m.appendLog(ctx, task.ID, "no MD5 manifests found")
		return
	}

	for _, manifest := range manifests {
		results, err := m.validator.VerifyManifest(ctx, manifest)
		if err != nil {
			m.appendLog(ctx, task.ID, fmt.Sprintf("validation warning: %v", err))
			continue
		}
		for _, r := range results {
			if r.OK {
				m.appendLog(ctx, task.ID, fmt.Sprintf("MD5 ok: %s", r.Name))
			} else {
				m.appendLog(ctx, task.ID, fmt.Sprintf("MD5 FAILED: %s", r.Name))
			}
		}
	}
}

func (m *Manager) finish(ctx context.Context, task model.Task, err error) {
	// Persist with a fresh context, the worker context may be what failed.
	sctx := context.WithoutCancel(ctx)

	now := time.Now().UTC()
	task.EndedAt = &now

	switch {
	case err == nil:
		task.Status = model.TaskStatusCompleted
		task.CurrentStep = "download complete"
		task.Progress = progressDone
		if task.StartedAt != nil {
			m.appendLog(sctx, task.ID, fmt.Sprintf("task completed in %s", now.Sub(*task.StartedAt).Round(time.Second)))
		}
	case errors.Is(err, context.Canceled):
		task.Status = model.TaskStatusCancelled
		task.CurrentStep = "cancelled"
		m.appendLog(sctx, task.ID, "task cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		task.Status = model.TaskStatusFailed
		task.ErrorMessage = "task timed out"
		m.appendLog(sctx, task.ID, "task timed out")
	default:
		task.Status = model.TaskStatusFailed
		task.ErrorMessage = err.Error()
		m.appendLog(sctx, task.ID, fmt.Sprintf("task failed: %v", err))
	}

	if uerr := m.repo.UpdateTask(sctx, task); uerr != nil {
		m.logger.Errorf("Could not update task %s: %v", task.ID, uerr)
	}
	m.logger.Infof("Task %s finished with status %s", task.ID, task.Status)
}

func (m *Manager) failTask(ctx context.Context, task *model.Task, msg string) {
	task.Status = model.TaskStatusFailed
	task.ErrorMessage = msg
	now := time.Now().UTC()
	task.EndedAt = &now

	if err := m.repo.UpdateTask(ctx, *task); err != nil {
		m.logger.Errorf("Could not update task %s: %v", task.ID, err)
	}
	m.appendLog(ctx, task.ID, msg)
}

func (m *Manager) markCancelled(ctx context.Context, task *model.Task) {
	task.Status = model.TaskStatusCancelled
	task.CurrentStep = "cancelled"
	now := time.Now().UTC()
	task.EndedAt = &now

	if err := m.repo.UpdateTask(ctx, *task); err != nil {
		m.logger.Errorf("Could not update task %s: %v", task.ID, err)
	}
	m.appendLog(ctx, task.ID, "task cancelled")
}

func (m *Manager) setStatus(ctx context.Context, task *model.Task, status model.TaskStatus, step string) {
	task.Status = status
	task.CurrentStep = step

	if err := m.repo.UpdateTask(ctx, *task); err != nil {
		m.logger.Errorf("Could not update task %s: %v", task.ID, err)
	}
}

func (m *Manager) setProgress(ctx context.Context, task *model.Task, progress float64) {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	task.Progress = progress

	if err := m.repo.UpdateTask(ctx, *task); err != nil {
		m.logger.Errorf("Could not update task %s: %v", task.ID, err)
	}
}

func (m *Manager) appendLog(ctx context.Context, taskID, line string) {
	stamped := fmt.Sprintf("[%s] %s", time.Now().Format("2006-01-02 15:04:05"), line)
	if err := m.repo.AppendTaskLog(ctx, taskID, stamped); err != nil {
		m.logger.Errorf("Could not append log for task %s: %v", taskID, err)
	}
}
