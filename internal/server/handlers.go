package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/novodl/novodl/internal/model"
	"github.com/novodl/novodl/internal/settings"
)

const statusLogTail = 50

type taskStatusResponse struct {
	TaskID       string     `json:"task_id"`
	Status       string     `json:"status"`
	Progress     float64    `json:"progress"`
	CurrentStep  string     `json:"current_step"`
	StartTime    *time.Time `json:"start_time"`
	EndTime      *time.Time `json:"end_time"`
	ErrorMessage string     `json:"error_message"`
	LogMessages  []string   `json:"log_messages"`
	IsFinished   bool       `json:"is_finished"`
}

type taskListItem struct {
	TaskID      string    `json:"task_id"`
	Username    string    `json:"username"`
	DataPath    string    `json:"data_path"`
	Status      string    `json:"status"`
	Progress    float64   `json:"progress"`
	CurrentStep string    `json:"current_step"`
	CreatedAt   time.Time `json:"created_at"`
	IsFinished  bool      `json:"is_finished"`
}

type taskLogsResponse struct {
	Logs  []string `json:"logs"`
	Total int      `json:"total"`
	Start int      `json:"start"`
	Limit int      `json:"limit"`
}

type actionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type createTaskRequest struct {
	model.Delivery
	DownloadDir string `json:"download_dir"`
}

type createTaskResponse struct {
	Success bool   `json:"success"`
	TaskID  string `json:"task_id,omitempty"`
	Message string `json:"message"`
}

type parseRequest struct {
	EmailText string `json:"email_text"`
}

type parseResponse struct {
	Success  bool            `json:"success"`
	Delivery *model.Delivery `json:"delivery,omitempty"`
	Message  string          `json:"message,omitempty"`
}

type settingsCheckResponse struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors"`
}

func (s *Server) taskStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID := mux.Vars(r)["taskID"]

	task, err := s.manager.Get(ctx, taskID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// Only the most recent log lines travel with the status.
	_, total, err := s.manager.Logs(ctx, taskID, 0, 1)
	if err != nil {
		s.writeError(w, err)
		return
	}
	start := total - statusLogTail
	if start < 0 {
		start = 0
	}
	logs, _, err := s.manager.Logs(ctx, taskID, start, statusLogTail)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if logs == nil {
		logs = []string{}
	}

	s.writeJSON(w, http.StatusOK, taskStatusResponse{
		TaskID:       task.ID,
		Status:       string(task.Status),
		Progress:     task.Progress,
		CurrentStep:  task.CurrentStep,
		StartTime:    task.StartedAt,
		EndTime:      task.EndedAt,
		ErrorMessage: task.ErrorMessage,
		LogMessages:  logs,
		IsFinished:   task.Status.IsTerminal(),
	})
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.manager.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	items := make([]taskListItem, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, taskListItem{
			TaskID:      t.ID,
			Username:    t.Delivery.Username,
			DataPath:    t.Delivery.DataPath,
			Status:      string(t.Status),
			Progress:    t.Progress,
			CurrentStep: t.CurrentStep,
			CreatedAt:   t.CreatedAt,
			IsFinished:  t.Status.IsTerminal(),
		})
	}

	s.writeJSON(w, http.StatusOK, items)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, createTaskResponse{Message: "invalid request body"})
		return
	}

	task, err := s.manager.Create(ctx, req.Delivery, req.DownloadDir)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, createTaskResponse{Message: err.Error()})
		return
	}

	if err := s.manager.Start(ctx, task.ID); err != nil {
		s.writeJSON(w, http.StatusBadRequest, createTaskResponse{
			TaskID:  task.ID,
			Message: err.Error(),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, createTaskResponse{
		Success: true,
		TaskID:  task.ID,
		Message: "download started",
	})
}

func (s *Server) cancelTask(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskID"]

	if err := s.manager.Cancel(r.Context(), taskID); err != nil {
		s.writeJSON(w, http.StatusBadRequest, actionResponse{Message: "could not cancel task"})
		return
	}

	s.writeJSON(w, http.StatusOK, actionResponse{Success: true, Message: "task cancelled"})
}

func (s *Server) removeTask(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskID"]

	if err := s.manager.Remove(r.Context(), taskID); err != nil {
		s.writeJSON(w, http.StatusBadRequest, actionResponse{Message: "could not remove task"})
		return
	}

	s.writeJSON(w, http.StatusOK, actionResponse{Success: true, Message: "task removed"})
}

func (s *Server) taskLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID := mux.Vars(r)["taskID"]

	start := queryInt(r, "start", 0)
	limit := queryInt(r, "limit", 100)

	logs, total, err := s.manager.Logs(ctx, taskID, start, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if logs == nil {
		logs = []string{}
	}

	s.writeJSON(w, http.StatusOK, taskLogsResponse{
		Logs:  logs,
		Total: total,
		Start: start,
		Limit: limit,
	})
}

func (s *Server) parseEmail(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, parseResponse{Message: "invalid request body"})
		return
	}

	delivery, err := s.parser.Parse(req.EmailText)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, parseResponse{Message: err.Error()})
		return
	}

	s.writeJSON(w, http.StatusOK, parseResponse{Success: true, Delivery: delivery})
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	current, err := s.store.Load(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, current)
}

func (s *Server) saveSettings(w http.ResponseWriter, r *http.Request) {
	var req model.Settings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, actionResponse{Message: "invalid request body"})
		return
	}

	req.LndCmdPath = strings.TrimSpace(req.LndCmdPath)
	req.DefaultDownloadDir = strings.TrimSpace(req.DefaultDownloadDir)
	if req.LndCmdPath == "" || req.DefaultDownloadDir == "" {
		s.writeJSON(w, http.StatusBadRequest, actionResponse{Message: "lnd command path and download directory are required"})
		return
	}
	if req.MaxConcurrentTasks <= 0 {
		req.MaxConcurrentTasks = 3
	}
	if req.TaskTimeoutSeconds <= 0 {
		req.TaskTimeoutSeconds = 3600
	}

	// A successful save always ends the first-run state.
	req.FirstRun = false

	if err := s.store.Save(r.Context(), req); err != nil {
		s.writeJSON(w, http.StatusInternalServerError, actionResponse{Message: "could not save settings"})
		return
	}

	s.writeJSON(w, http.StatusOK, actionResponse{Success: true, Message: "settings saved"})
}

func (s *Server) resetSettings(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.Reset(r.Context()); err != nil {
		s.writeJSON(w, http.StatusInternalServerError, actionResponse{Message: "could not reset settings"})
		return
	}
	s.writeJSON(w, http.StatusOK, actionResponse{Success: true, Message: "settings reset to defaults"})
}

func (s *Server) validateSettings(w http.ResponseWriter, r *http.Request) {
	var req model.Settings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, actionResponse{Message: "invalid request body"})
		return
	}

	errs := map[string]string{}

	lndPath := strings.TrimSpace(req.LndCmdPath)
	switch {
	case lndPath == "":
		errs["lnd_cmd_path"] = "lnd command path is required"
	default:
		if info, err := os.Stat(lndPath); err != nil {
			errs["lnd_cmd_path"] = "lnd command file does not exist"
		} else if info.Mode().Perm()&0111 == 0 {
			errs["lnd_cmd_path"] = "lnd command file is not executable"
		}
	}

	if strings.TrimSpace(req.DefaultDownloadDir) == "" {
		errs["default_download_dir"] = "download directory is required"
	}

	s.writeJSON(w, http.StatusOK, settingsCheckResponse{
		Valid:  len(errs) == 0,
		Errors: errs,
	})
}

func (s *Server) checkFirstRun(w http.ResponseWriter, r *http.Request) {
	firstRun, err := s.store.IsFirstRun(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"first_run": firstRun})
}

func (s *Server) systemInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, settings.SystemInfo())
}

func (s *Server) validateLndPath(w http.ResponseWriter, r *http.Request) {
	path, ok := s.decodePath(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.pathval.ValidateLndPath(r.Context(), path))
}

func (s *Server) validateDownloadDir(w http.ResponseWriter, r *http.Request) {
	path, ok := s.decodePath(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.pathval.ValidateDownloadDir(r.Context(), path))
}

func (s *Server) decodePath(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, model.ValidationResult{Message: "invalid request body"})
		return "", false
	}
	return req.Path, true
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Errorf("Could not encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
	case errors.Is(err, model.ErrNotValid):
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		s.logger.Errorf("Unhandled API error: %v", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
