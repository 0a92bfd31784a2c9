package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/novodl/novodl/internal/model"
)

// MockTaskRepository is a mock implementation of storage.TaskRepository.
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) CreateTask(ctx context.Context, t model.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	args := m.Called(ctx, id)
	task, _ := args.Get(0).(*model.Task)
	return task, args.Error(1)
}

func (m *MockTaskRepository) ListTasks(ctx context.Context) ([]model.Task, error) {
	args := m.Called(ctx)
	tasks, _ := args.Get(0).([]model.Task)
	return tasks, args.Error(1)
}

func (m *MockTaskRepository) UpdateTask(ctx context.Context, t model.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) DeleteTask(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTaskRepository) AppendTaskLog(ctx context.Context, taskID, line string) error {
	args := m.Called(ctx, taskID, line)
	return args.Error(0)
}

func (m *MockTaskRepository) GetTaskLogs(ctx context.Context, taskID string, start, limit int) ([]string, int, error) {
	args := m.Called(ctx, taskID, start, limit)
	logs, _ := args.Get(0).([]string)
	return logs, args.Int(1), args.Error(2)
}
