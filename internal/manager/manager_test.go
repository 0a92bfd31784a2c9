package manager_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novodl/novodl/internal/lnd"
	lndfake "github.com/novodl/novodl/internal/lnd/fake"
	"github.com/novodl/novodl/internal/manager"
	"github.com/novodl/novodl/internal/model"
	"github.com/novodl/novodl/internal/settings"
	"github.com/novodl/novodl/internal/storage"
	"github.com/novodl/novodl/internal/storage/memory"
)

func testDelivery() model.Delivery {
	return model.Delivery{
		DataPath:    "oss://CP2024121200080/X101SC24127971-Z01-J083/",
		Username:    "X101SC24127971-Z01-J083",
		Password:    "cfyyu3cy",
		ReleaseDate: "2025-08-05",
		ExpireDate:  "2025-09-04",
	}
}

func testSettings(t *testing.T) func(ctx context.Context) (model.Settings, error) {
	dir := t.TempDir()
	return func(ctx context.Context) (model.Settings, error) {
		s := settings.Defaults()
		s.DefaultDownloadDir = dir
		s.TaskTimeoutSeconds = 60
		return s, nil
	}
}

func newManager(t *testing.T, repo storage.TaskRepository, runner lnd.Runner) *manager.Manager {
	m, err := manager.NewManager(manager.ManagerConfig{
		Repo:     repo,
		Runner:   runner,
		Settings: testSettings(t),
	})
	require.NoError(t, err)
	return m
}

func newMemoryRepo(t *testing.T) storage.TaskRepository {
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)
	return repo
}

func waitForTerminal(t *testing.T, repo storage.TaskRepository, id string) *model.Task {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		task, err := repo.GetTask(context.Background(), id)
		require.NoError(t, err)
		if task.Status.IsTerminal() {
			return task
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %s never reached a terminal status", id)
	return nil
}

func TestManagerCreate(t *testing.T) {
	repo := newMemoryRepo(t)
	runner, err := lndfake.NewRunner(lndfake.RunnerConfig{})
	require.NoError(t, err)
	m := newManager(t, repo, runner)

	task, err := m.Create(context.Background(), testDelivery(), "")

	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, model.TaskStatusPending, task.Status)
	assert.Contains(t, filepath.Base(task.DownloadDir), "X101SC24127971-Z01-J083_")

	// The task directory exists already.
	info, err := os.Stat(task.DownloadDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	stored, err := repo.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, stored.ID)
}

func TestManagerCreateInvalidDelivery(t *testing.T) {
	repo := newMemoryRepo(t)
	runner, err := lndfake.NewRunner(lndfake.RunnerConfig{})
	require.NoError(t, err)
	m := newManager(t, repo, runner)

	d := testDelivery()
	d.Password = "x"

	_, err = m.Create(context.Background(), d, "")
	assert.ErrorIs(t, err, model.ErrNotValid)
}

func TestManagerPipelineCompletes(t *testing.T) {
	repo := newMemoryRepo(t)
	runner, err := lndfake.NewRunner(lndfake.RunnerConfig{})
	require.NoError(t, err)
	m := newManager(t, repo, runner)
	ctx := context.Background()

	task, err := m.Create(ctx, testDelivery(), "")
	require.NoError(t, err)
	require.NoError(t, m.Start(ctx, task.ID))

	got := waitForTerminal(t, repo, task.ID)

	assert.Equal(t, model.TaskStatusCompleted, got.Status)
	assert.Equal(t, float64(100), got.Progress)
	assert.Empty(t, got.ErrorMessage)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.EndedAt)

	// The fake listing landed in the task dir.
	_, err = os.Stat(filepath.Join(got.DownloadDir, "file_list.txt"))
	assert.NoError(t, err)

	// Auto validation wrote its report.
	_, err = os.Stat(filepath.Join(got.DownloadDir, "validation_report.txt"))
	assert.NoError(t, err)

	logs, total, err := repo.GetTaskLogs(ctx, task.ID, 0, 100)
	require.NoError(t, err)
	assert.NotZero(t, total)
	assert.NotEmpty(t, logs)
}

func TestManagerPipelineLoginFailure(t *testing.T) {
	repo := newMemoryRepo(t)
	runner, err := lndfake.NewRunner(lndfake.RunnerConfig{LoginErr: errors.New("bad credentials")})
	require.NoError(t, err)
	m := newManager(t, repo, runner)
	ctx := context.Background()

	task, err := m.Create(ctx, testDelivery(), "")
	require.NoError(t, err)
	require.NoError(t, m.Start(ctx, task.ID))

	got := waitForTerminal(t, repo, task.ID)

	assert.Equal(t, model.TaskStatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "login failed")
}

func TestManagerStartNonPendingTask(t *testing.T) {
	repo := newMemoryRepo(t)
	runner, err := lndfake.NewRunner(lndfake.RunnerConfig{})
	require.NoError(t, err)
	m := newManager(t, repo, runner)
	ctx := context.Background()

	task, err := m.Create(ctx, testDelivery(), "")
	require.NoError(t, err)
	require.NoError(t, m.Start(ctx, task.ID))
	waitForTerminal(t, repo, task.ID)

	err = m.Start(ctx, task.ID)
	assert.ErrorIs(t, err, model.ErrNotValid)
}

func TestManagerStartMissingTask(t *testing.T) {
	repo := newMemoryRepo(t)
	runner, err := lndfake.NewRunner(lndfake.RunnerConfig{})
	require.NoError(t, err)
	m := newManager(t, repo, runner)

	err = m.Start(context.Background(), "nope")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestManagerCancelPendingTask(t *testing.T) {
	repo := newMemoryRepo(t)
	runner, err := lndfake.NewRunner(lndfake.RunnerConfig{})
	require.NoError(t, err)
	m := newManager(t, repo, runner)
	ctx := context.Background()

	task, err := m.Create(ctx, testDelivery(), "")
	require.NoError(t, err)

	require.NoError(t, m.Cancel(ctx, task.ID))

	got, err := repo.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCancelled, got.Status)

	// Cancelling a finished task fails.
	err = m.Cancel(ctx, task.ID)
	assert.ErrorIs(t, err, model.ErrNotValid)
}

func TestManagerRemove(t *testing.T) {
	repo := newMemoryRepo(t)
	runner, err := lndfake.NewRunner(lndfake.RunnerConfig{})
	require.NoError(t, err)
	m := newManager(t, repo, runner)
	ctx := context.Background()

	task, err := m.Create(ctx, testDelivery(), "")
	require.NoError(t, err)

	// Still pending, removal refused.
	err = m.Remove(ctx, task.ID)
	assert.ErrorIs(t, err, model.ErrNotValid)

	require.NoError(t, m.Cancel(ctx, task.ID))
	require.NoError(t, m.Remove(ctx, task.ID))

	_, err = repo.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
