package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lndfake "github.com/novodl/novodl/internal/lnd/fake"
	"github.com/novodl/novodl/internal/manager"
	"github.com/novodl/novodl/internal/model"
	"github.com/novodl/novodl/internal/server"
	"github.com/novodl/novodl/internal/settings"
	"github.com/novodl/novodl/internal/storage"
	"github.com/novodl/novodl/internal/storage/memory"
)

type testEnv struct {
	srv  *httptest.Server
	mgr  *manager.Manager
	repo storage.TaskRepository
}

func newTestEnv(t *testing.T) *testEnv {
	dataDir := t.TempDir()

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)

	runner, err := lndfake.NewRunner(lndfake.RunnerConfig{})
	require.NoError(t, err)

	store, err := settings.NewStore(settings.StoreConfig{
		Path: filepath.Join(t.TempDir(), "settings.json"),
	})
	require.NoError(t, err)

	mgr, err := manager.NewManager(manager.ManagerConfig{
		Repo:   repo,
		Runner: runner,
		Settings: func(ctx context.Context) (model.Settings, error) {
			s := settings.Defaults()
			s.DefaultDownloadDir = dataDir
			return s, nil
		},
	})
	require.NoError(t, err)

	s, err := server.NewServer(server.Config{
		Manager:       mgr,
		SettingsStore: store,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, mgr: mgr, repo: repo}
}

func (e *testEnv) postJSON(t *testing.T, path string, body interface{}) *http.Response {
	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(e.srv.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func (e *testEnv) getJSON(t *testing.T, path string, out interface{}) *http.Response {
	resp, err := http.Get(e.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func testDelivery() model.Delivery {
	return model.Delivery{
		DataPath: "oss://CP2024121200080/X101SC24127971-Z01-J083/",
		Username: "X101SC24127971-Z01-J083",
		Password: "cfyyu3cy",
	}
}

func createTask(t *testing.T, e *testEnv) string {
	task, err := e.mgr.Create(context.Background(), testDelivery(), "")
	require.NoError(t, err)
	return task.ID
}

func waitFinished(t *testing.T, e *testEnv, id string) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		task, err := e.repo.GetTask(context.Background(), id)
		require.NoError(t, err)
		if task.Status.IsTerminal() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %s never finished", id)
}

func TestTaskStatusEndpoint(t *testing.T) {
	e := newTestEnv(t)
	id := createTask(t, e)

	var got struct {
		TaskID      string   `json:"task_id"`
		Status      string   `json:"status"`
		Progress    float64  `json:"progress"`
		CurrentStep string   `json:"current_step"`
		LogMessages []string `json:"log_messages"`
		IsFinished  bool     `json:"is_finished"`
	}
	resp := e.getJSON(t, "/api/task/"+id+"/status", &got)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, id, got.TaskID)
	assert.Equal(t, "pending", got.Status)
	assert.False(t, got.IsFinished)
	assert.NotEmpty(t, got.LogMessages)
}

func TestTaskStatusNotFound(t *testing.T) {
	e := newTestEnv(t)

	var got map[string]string
	resp := e.getJSON(t, "/api/task/nope/status", &got)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "task not found", got["error"])
}

func TestCreateTaskEndpoint(t *testing.T) {
	e := newTestEnv(t)

	body := map[string]interface{}{
		"data_path": "oss://CP2024121200080/X101SC24127971-Z01-J083/",
		"username":  "X101SC24127971-Z01-J083",
		"password":  "cfyyu3cy",
	}
	resp := e.postJSON(t, "/api/task", body)

	var got struct {
		Success bool   `json:"success"`
		TaskID  string `json:"task_id"`
		Message string `json:"message"`
	}
	decodeBody(t, resp, &got)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, got.Success)
	assert.NotEmpty(t, got.TaskID)

	waitFinished(t, e, got.TaskID)

	task, err := e.repo.GetTask(context.Background(), got.TaskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, task.Status)
}

func TestCreateTaskEndpointInvalidDelivery(t *testing.T) {
	e := newTestEnv(t)

	resp := e.postJSON(t, "/api/task", map[string]interface{}{"username": "nope"})

	var got struct {
		Success bool `json:"success"`
	}
	decodeBody(t, resp, &got)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, got.Success)
}

func TestCancelAndRemoveEndpoints(t *testing.T) {
	e := newTestEnv(t)
	id := createTask(t, e)

	var got struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}

	resp := e.postJSON(t, fmt.Sprintf("/api/task/%s/cancel", id), nil)
	decodeBody(t, resp, &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, got.Success)

	// Second cancel fails with 400.
	resp = e.postJSON(t, fmt.Sprintf("/api/task/%s/cancel", id), nil)
	decodeBody(t, resp, &got)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, got.Success)

	resp = e.postJSON(t, fmt.Sprintf("/api/task/%s/remove", id), nil)
	decodeBody(t, resp, &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, got.Success)
}

func TestRemoveRunningTaskFails(t *testing.T) {
	e := newTestEnv(t)
	id := createTask(t, e)

	var got struct {
		Success bool `json:"success"`
	}
	resp := e.postJSON(t, fmt.Sprintf("/api/task/%s/remove", id), nil)
	decodeBody(t, resp, &got)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, got.Success)
}

func TestTaskLogsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	id := createTask(t, e)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, e.repo.AppendTaskLog(ctx, id, fmt.Sprintf("line %d", i)))
	}

	var got struct {
		Logs  []string `json:"logs"`
		Total int      `json:"total"`
		Start int      `json:"start"`
		Limit int      `json:"limit"`
	}
	resp := e.getJSON(t, "/api/task/"+id+"/logs?start=1&limit=2", &got)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, got.Logs, 2)
	assert.Equal(t, 1, got.Start)
	assert.Equal(t, 2, got.Limit)
	// Task creation already logged one line before ours.
	assert.Equal(t, 6, got.Total)
}

func TestListTasksEndpoint(t *testing.T) {
	e := newTestEnv(t)
	createTask(t, e)
	createTask(t, e)

	var got []struct {
		TaskID   string `json:"task_id"`
		Username string `json:"username"`
		Status   string `json:"status"`
	}
	resp := e.getJSON(t, "/api/tasks", &got)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, got, 2)
	assert.Equal(t, "X101SC24127971-Z01-J083", got[0].Username)
}

func TestParseEndpoint(t *testing.T) {
	e := newTestEnv(t)

	emailText := "数据路径为：CP2024/X/\n登录账号：X101SC24127971-Z01-J083\n登录密码：cfyyu3cy\n"
	resp := e.postJSON(t, "/api/parse", map[string]string{"email_text": emailText})

	var got struct {
		Success  bool            `json:"success"`
		Delivery *model.Delivery `json:"delivery"`
	}
	decodeBody(t, resp, &got)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, got.Success)
	assert.Equal(t, "oss://CP2024/X/", got.Delivery.DataPath)
}

func TestSettingsEndpoints(t *testing.T) {
	e := newTestEnv(t)

	// Defaults come back before anything is saved.
	var current model.Settings
	resp := e.getJSON(t, "/api/settings", &current)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, current.FirstRun)

	// Saving forces first_run off.
	current.LndCmdPath = "/opt/lnd/lnd"
	current.DefaultDownloadDir = "/data"
	var action struct {
		Success bool `json:"success"`
	}
	resp = e.postJSON(t, "/api/settings", current)
	decodeBody(t, resp, &action)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, action.Success)

	var saved model.Settings
	e.getJSON(t, "/api/settings", &saved)
	assert.False(t, saved.FirstRun)
	assert.Equal(t, "/opt/lnd/lnd", saved.LndCmdPath)

	var firstRun map[string]bool
	e.getJSON(t, "/api/settings/check-first-run", &firstRun)
	assert.False(t, firstRun["first_run"])

	// Reset restores the defaults.
	resp = e.postJSON(t, "/api/settings/reset", nil)
	decodeBody(t, resp, &action)
	assert.True(t, action.Success)

	var after model.Settings
	e.getJSON(t, "/api/settings", &after)
	assert.True(t, after.FirstRun)
}

func TestSaveSettingsMissingPaths(t *testing.T) {
	e := newTestEnv(t)

	body := model.Settings{LndCmdPath: "  ", DefaultDownloadDir: ""}
	resp := e.postJSON(t, "/api/settings", body)

	var got struct {
		Success bool `json:"success"`
	}
	decodeBody(t, resp, &got)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, got.Success)
}

func TestValidateSettingsEndpoint(t *testing.T) {
	e := newTestEnv(t)

	body := model.Settings{LndCmdPath: "/definitely/missing", DefaultDownloadDir: ""}
	resp := e.postJSON(t, "/api/settings/validate", body)

	var got struct {
		Valid  bool              `json:"valid"`
		Errors map[string]string `json:"errors"`
	}
	decodeBody(t, resp, &got)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, got.Valid)
	assert.Contains(t, got.Errors, "lnd_cmd_path")
	assert.Contains(t, got.Errors, "default_download_dir")
}

func TestValidateDirEndpoint(t *testing.T) {
	e := newTestEnv(t)
	dir := t.TempDir()

	resp := e.postJSON(t, "/api/settings/validate-dir", map[string]string{"path": dir})

	var got model.ValidationResult
	decodeBody(t, resp, &got)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, got.Valid)
	assert.Contains(t, got.Message, "valid")
}

func TestValidateLndEndpointMissingFile(t *testing.T) {
	e := newTestEnv(t)

	resp := e.postJSON(t, "/api/settings/validate-lnd", map[string]string{"path": "/missing/lnd"})

	var got model.ValidationResult
	decodeBody(t, resp, &got)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, got.Valid)
	assert.Contains(t, got.Message, "does not exist")
}

func TestSystemInfoEndpoint(t *testing.T) {
	e := newTestEnv(t)

	var got model.SystemInfo
	resp := e.getJSON(t, "/api/settings/system-info", &got)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, got.Platform)
	assert.NotEmpty(t, got.RuntimeVersion)
}
