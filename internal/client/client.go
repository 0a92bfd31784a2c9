// Package client is the API client layer of the CLI: an HTTP wrapper with
// user notifications, the task status poller and the settings manager.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/novodl/novodl/internal/client/notify"
	"github.com/novodl/novodl/internal/log"
	"github.com/novodl/novodl/internal/model"
)

// TaskStatus is the polled view of a task.
type TaskStatus struct {
	TaskID       string           `json:"task_id"`
	Status       model.TaskStatus `json:"status"`
	Progress     float64          `json:"progress"`
	CurrentStep  string           `json:"current_step"`
	StartTime    *time.Time       `json:"start_time"`
	EndTime      *time.Time       `json:"end_time"`
	ErrorMessage string           `json:"error_message"`
	LogMessages  []string         `json:"log_messages"`
	IsFinished   bool             `json:"is_finished"`
}

// TaskSummary is one row of the task list.
type TaskSummary struct {
	TaskID      string    `json:"task_id"`
	Username    string    `json:"username"`
	DataPath    string    `json:"data_path"`
	Status      string    `json:"status"`
	Progress    float64   `json:"progress"`
	CurrentStep string    `json:"current_step"`
	CreatedAt   time.Time `json:"created_at"`
	IsFinished  bool      `json:"is_finished"`
}

// ActionResult is the outcome of cancel/remove/save style operations.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// CreateTaskResult is the outcome of creating a download task.
type CreateTaskResult struct {
	Success bool   `json:"success"`
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

// TaskLogs is a page of task log lines.
type TaskLogs struct {
	Logs  []string `json:"logs"`
	Total int      `json:"total"`
	Start int      `json:"start"`
	Limit int      `json:"limit"`
}

// SettingsCheck is the per-field verdict of the combined settings check.
type SettingsCheck struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors"`
}

// APIError is returned for non-2xx responses, carrying the server's message
// when the body had one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server returned %d", e.StatusCode)
}

// Config is the configuration for the API client.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Notifier   notify.Notifier
	Logger     log.Logger
}

func (c *Config) defaults() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.Notifier == nil {
		c.Notifier = notify.Noop
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "client.Client"})
	return nil
}

// Client talks to the API server. Every failed request emits exactly one
// "danger" notification, successful requests never notify.
type Client struct {
	baseURL    string
	httpClient *http.Client
	notifier   notify.Notifier
	logger     log.Logger
}

// NewClient creates a new API client.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: cfg.HTTPClient,
		notifier:   cfg.Notifier,
		logger:     cfg.Logger,
	}, nil
}

func (c *Client) GetTaskStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	st := &TaskStatus{}
	if err := c.get(ctx, fmt.Sprintf("/api/task/%s/status", taskID), st); err != nil {
		return nil, err
	}
	return st, nil
}

func (c *Client) ListTasks(ctx context.Context) ([]TaskSummary, error) {
	var tasks []TaskSummary
	if err := c.get(ctx, "/api/tasks", &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) CreateTask(ctx context.Context, delivery model.Delivery, downloadDir string) (*CreateTaskResult, error) {
	body := struct {
		model.Delivery
		DownloadDir string `json:"download_dir,omitempty"`
	}{Delivery: delivery, DownloadDir: downloadDir}

	res := &CreateTaskResult{}
	if err := c.post(ctx, "/api/task", body, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) CancelTask(ctx context.Context, taskID string) (*ActionResult, error) {
	res := &ActionResult{}
	if err := c.post(ctx, fmt.Sprintf("/api/task/%s/cancel", taskID), nil, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) RemoveTask(ctx context.Context, taskID string) (*ActionResult, error) {
	res := &ActionResult{}
	if err := c.post(ctx, fmt.Sprintf("/api/task/%s/remove", taskID), nil, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) GetTaskLogs(ctx context.Context, taskID string, start, limit int) (*TaskLogs, error) {
	logs := &TaskLogs{}
	path := fmt.Sprintf("/api/task/%s/logs?start=%d&limit=%d", taskID, start, limit)
	if err := c.get(ctx, path, logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (c *Client) ParseEmail(ctx context.Context, emailText string) (*model.Delivery, error) {
	var res struct {
		Success  bool            `json:"success"`
		Delivery *model.Delivery `json:"delivery"`
		Message  string          `json:"message"`
	}
	body := map[string]string{"email_text": emailText}
	if err := c.post(ctx, "/api/parse", body, &res); err != nil {
		return nil, err
	}
	if res.Delivery == nil {
		return nil, fmt.Errorf("server returned no delivery: %s", res.Message)
	}
	return res.Delivery, nil
}

func (c *Client) GetSettings(ctx context.Context) (model.Settings, error) {
	var s model.Settings
	if err := c.get(ctx, "/api/settings", &s); err != nil {
		return model.Settings{}, err
	}
	return s, nil
}

func (c *Client) SaveSettings(ctx context.Context, s model.Settings) (*ActionResult, error) {
	res := &ActionResult{}
	if err := c.post(ctx, "/api/settings", s, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) ResetSettings(ctx context.Context) (*ActionResult, error) {
	res := &ActionResult{}
	if err := c.post(ctx, "/api/settings/reset", nil, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) ValidateSettings(ctx context.Context, s model.Settings) (*SettingsCheck, error) {
	res := &SettingsCheck{}
	if err := c.post(ctx, "/api/settings/validate", s, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) CheckFirstRun(ctx context.Context) (bool, error) {
	var res struct {
		FirstRun bool `json:"first_run"`
	}
	if err := c.get(ctx, "/api/settings/check-first-run", &res); err != nil {
		return false, err
	}
	return res.FirstRun, nil
}

func (c *Client) GetSystemInfo(ctx context.Context) (model.SystemInfo, error) {
	var info model.SystemInfo
	if err := c.get(ctx, "/api/settings/system-info", &info); err != nil {
		return model.SystemInfo{}, err
	}
	return info, nil
}

func (c *Client) ValidateLndPath(ctx context.Context, path string) (model.ValidationResult, error) {
	var res model.ValidationResult
	if err := c.post(ctx, "/api/settings/validate-lnd", map[string]string{"path": path}, &res); err != nil {
		return model.ValidationResult{}, err
	}
	return res, nil
}

func (c *Client) ValidateDownloadDir(ctx context.Context, path string) (model.ValidationResult, error) {
	var res model.ValidationResult
	if err := c.post(ctx, "/api/settings/validate-dir", map[string]string{"path": path}, &res); err != nil {
		return model.ValidationResult{}, err
	}
	return res, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("could not marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.failNotify()
		c.logger.Errorf("Request %s %s failed: %v", method, path, err)
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.failNotify()
		return fmt.Errorf("could not read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.failNotify()
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: serverMessage(data)}
		c.logger.Errorf("Request %s %s failed: %v", method, path, apiErr)
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}

	if isJSON(resp.Header.Get("Content-Type")) {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("could not decode response: %w", err)
		}
		return nil
	}

	// Non-JSON responses come back as raw text.
	if sp, ok := out.(*string); ok {
		*sp = string(data)
		return nil
	}
	return fmt.Errorf("unexpected content type %q", resp.Header.Get("Content-Type"))
}

func (c *Client) failNotify() {
	c.notifier.Notify(notify.Notification{
		Message:  "network request failed",
		Severity: notify.SeverityDanger,
		Duration: notify.DefaultDuration,
	})
}

// serverMessage pulls a human message out of an error response body.
func serverMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
