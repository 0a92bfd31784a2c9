package model

import (
	"fmt"
	"strings"
)

// Settings are the user-editable application settings.
type Settings struct {
	LndCmdPath         string `json:"lnd_cmd_path"`
	DefaultDownloadDir string `json:"default_download_dir"`
	MaxConcurrentTasks int    `json:"max_concurrent_tasks"`
	TaskTimeoutSeconds int    `json:"task_timeout"`
	AutoValidate       bool   `json:"auto_validate"`
	GenerateReport     bool   `json:"generate_report"`
	FirstRun           bool   `json:"first_run"`
}

// Validate validates the settings.
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.LndCmdPath) == "" {
		return fmt.Errorf("lnd command path is required: %w", ErrNotValid)
	}
	if strings.TrimSpace(s.DefaultDownloadDir) == "" {
		return fmt.Errorf("default download dir is required: %w", ErrNotValid)
	}
	if s.MaxConcurrentTasks <= 0 {
		return fmt.Errorf("max concurrent tasks must be positive: %w", ErrNotValid)
	}
	if s.TaskTimeoutSeconds <= 0 {
		return fmt.Errorf("task timeout must be positive: %w", ErrNotValid)
	}
	return nil
}

// ValidationResult is the verdict of checking a filesystem path's usability.
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
	// SpaceAvailable is the free disk space in bytes, only set for
	// download directory validations.
	SpaceAvailable int64 `json:"space_available,omitempty"`
}

// DiskUsage holds disk usage information in bytes.
type DiskUsage struct {
	Total int64 `json:"total"`
	Used  int64 `json:"used"`
	Free  int64 `json:"free"`
}

// SystemInfo describes the host the service runs on.
type SystemInfo struct {
	Platform       string    `json:"platform"`
	Architecture   string    `json:"architecture"`
	RuntimeVersion string    `json:"runtime_version"`
	HomeDir        string    `json:"home_dir"`
	CurrentDir     string    `json:"current_dir"`
	DiskUsage      DiskUsage `json:"disk_usage"`
}
