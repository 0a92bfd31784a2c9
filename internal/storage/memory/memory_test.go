package memory_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novodl/novodl/internal/model"
	"github.com/novodl/novodl/internal/storage/memory"
)

func taskFixture(id string, createdAt time.Time) model.Task {
	return model.Task{
		ID: id,
		Delivery: model.Delivery{
			DataPath: "oss://CP2024121200080/X101SC24127971-Z01-J083/",
			Username: "X101SC24127971-Z01-J083",
			Password: "cfyyu3cy",
		},
		DownloadDir: "/data/downloads",
		Status:      model.TaskStatusPending,
		CreatedAt:   createdAt,
	}
}

func TestRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)

	now := time.Now().UTC()
	task := taskFixture("t1", now)
	require.NoError(t, repo.CreateTask(ctx, task))

	err = repo.CreateTask(ctx, task)
	assert.ErrorIs(t, err, model.ErrAlreadyExists)

	got, err := repo.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, task, *got)

	// Mutating the returned task must not change the stored one.
	got.Status = model.TaskStatusFailed
	stored, err := repo.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusPending, stored.Status)

	require.NoError(t, repo.CreateTask(ctx, taskFixture("t2", now.Add(time.Minute))))

	all, err := repo.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "t2", all[0].ID) // Newest first.

	task.Status = model.TaskStatusCompleted
	require.NoError(t, repo.UpdateTask(ctx, task))
	updated, err := repo.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, updated.Status)

	require.NoError(t, repo.DeleteTask(ctx, "t1"))
	_, err = repo.GetTask(ctx, "t1")
	assert.ErrorIs(t, err, model.ErrNotFound)

	assert.ErrorIs(t, repo.UpdateTask(ctx, taskFixture("missing", now)), model.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteTask(ctx, "missing"), model.ErrNotFound)
}

func TestRepositoryTaskLogs(t *testing.T) {
	ctx := context.Background()
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, repo.AppendTaskLog(ctx, "t1", fmt.Sprintf("line %d", i)))
	}

	logs, total, err := repo.GetTaskLogs(ctx, "t1", 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 10, total)
	assert.Len(t, logs, 10)

	logs, _, err = repo.GetTaskLogs(ctx, "t1", 8, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"line 8", "line 9"}, logs)

	logs, total, err = repo.GetTaskLogs(ctx, "t1", 50, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, total)
	assert.Empty(t, logs)
}

func TestRepositoryTaskLogTrimming(t *testing.T) {
	ctx := context.Background()
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)

	for i := 0; i < 1001; i++ {
		require.NoError(t, repo.AppendTaskLog(ctx, "t1", fmt.Sprintf("line %d", i)))
	}

	logs, total, err := repo.GetTaskLogs(ctx, "t1", 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, 800, total)
	assert.Equal(t, "line 201", logs[0])
	assert.Equal(t, "line 1000", logs[len(logs)-1])
}
