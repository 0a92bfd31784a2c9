package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/novodl/novodl/internal/client/notify"
	"github.com/novodl/novodl/internal/log"
	"github.com/novodl/novodl/internal/model"
	"github.com/novodl/novodl/internal/printer"
)

// DialogState is the settings dialog lifecycle state.
type DialogState string

const (
	DialogClosed  DialogState = "closed"
	DialogLoading DialogState = "loading"
	DialogOpen    DialogState = "open"
	DialogSaving  DialogState = "saving"
)

// SettingsView renders the settings dialog contents.
type SettingsView interface {
	RenderSettings(s model.Settings)
	RenderSystemInfo(info model.SystemInfo)
	// RenderValidation shows a per-field validation verdict. Field is the
	// wire name of the field the verdict belongs to.
	RenderValidation(field string, result model.ValidationResult)
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer interface {
	Confirm(message string) bool
}

// SettingsClient is the client side the settings manager needs.
type SettingsClient interface {
	GetSettings(ctx context.Context) (model.Settings, error)
	SaveSettings(ctx context.Context, s model.Settings) (*ActionResult, error)
	ResetSettings(ctx context.Context) (*ActionResult, error)
	GetSystemInfo(ctx context.Context) (model.SystemInfo, error)
	ValidateLndPath(ctx context.Context, path string) (model.ValidationResult, error)
	ValidateDownloadDir(ctx context.Context, path string) (model.ValidationResult, error)
}

// SettingsManagerConfig is the configuration for the settings manager.
type SettingsManagerConfig struct {
	Client    SettingsClient
	View      SettingsView
	Notifier  notify.Notifier
	Confirmer Confirmer
	Logger    log.Logger
}

func (c *SettingsManagerConfig) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("settings client is required")
	}
	if c.View == nil {
		return fmt.Errorf("settings view is required")
	}
	if c.Notifier == nil {
		c.Notifier = notify.Noop
	}
	if c.Confirmer == nil {
		return fmt.Errorf("confirmer is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "client.SettingsManager"})
	return nil
}

// SettingsManager owns the settings form lifecycle: load, local edits,
// validation, save and reset.
type SettingsManager struct {
	client    SettingsClient
	view      SettingsView
	notifier  notify.Notifier
	confirmer Confirmer
	logger    log.Logger

	mu    sync.Mutex
	state DialogState
	form  model.Settings
}

// NewSettingsManager creates a new settings manager.
func NewSettingsManager(cfg SettingsManagerConfig) (*SettingsManager, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &SettingsManager{
		client:    cfg.Client,
		view:      cfg.View,
		notifier:  cfg.Notifier,
		confirmer: cfg.Confirmer,
		logger:    cfg.Logger,
		state:     DialogClosed,
	}, nil
}

// State returns the current dialog state.
func (m *SettingsManager) State() DialogState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Form returns the current form contents.
func (m *SettingsManager) Form() model.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.form
}

// SetForm replaces the form contents with locally edited values.
func (m *SettingsManager) SetForm(s model.Settings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.form = s
}

// Show opens the dialog: it loads the current settings and then the system
// info, strictly in that order, renders both and leaves the dialog open.
func (m *SettingsManager) Show(ctx context.Context) error {
	m.setState(DialogLoading)

	settings, err := m.client.GetSettings(ctx)
	if err != nil {
		m.setState(DialogClosed)
		m.notify("could not load settings", notify.SeverityDanger)
		return err
	}

	info, err := m.client.GetSystemInfo(ctx)
	if err != nil {
		m.setState(DialogClosed)
		m.notify("could not load system info", notify.SeverityDanger)
		return err
	}

	m.mu.Lock()
	m.form = settings
	m.state = DialogOpen
	m.mu.Unlock()

	m.view.RenderSettings(settings)
	m.view.RenderSystemInfo(info)
	return nil
}

// Save persists the form. Empty required paths abort locally with a
// warning and no network call. A server-accepted save closes the dialog,
// any failure keeps it open.
func (m *SettingsManager) Save(ctx context.Context) error {
	m.mu.Lock()
	form := m.form
	m.mu.Unlock()

	form.LndCmdPath = strings.TrimSpace(form.LndCmdPath)
	form.DefaultDownloadDir = strings.TrimSpace(form.DefaultDownloadDir)
	if form.LndCmdPath == "" || form.DefaultDownloadDir == "" {
		m.notify("lnd command path and download directory are required", notify.SeverityWarning)
		return nil
	}

	// Saving always ends the first-run state.
	form.FirstRun = false

	m.setState(DialogSaving)

	res, err := m.client.SaveSettings(ctx, form)
	if err != nil {
		m.setState(DialogOpen)
		m.notify(saveFailureMessage(err), notify.SeverityDanger)
		return err
	}
	if !res.Success {
		m.setState(DialogOpen)
		msg := res.Message
		if msg == "" {
			msg = "could not save settings"
		}
		m.notify(msg, notify.SeverityDanger)
		return nil
	}

	m.mu.Lock()
	m.form = form
	m.state = DialogClosed
	m.mu.Unlock()

	m.notify("settings saved", notify.SeveritySuccess)
	return nil
}

// Reset restores the server defaults after user confirmation and reloads
// the form from the server.
func (m *SettingsManager) Reset(ctx context.Context) error {
	if !m.confirmer.Confirm("Reset all settings to their defaults?") {
		return nil
	}

	if _, err := m.client.ResetSettings(ctx); err != nil {
		m.notify("could not reset settings", notify.SeverityDanger)
		return err
	}

	settings, err := m.client.GetSettings(ctx)
	if err != nil {
		m.notify("could not reload settings", notify.SeverityDanger)
		return err
	}

	m.mu.Lock()
	m.form = settings
	m.mu.Unlock()

	m.view.RenderSettings(settings)
	m.notify("settings reset to defaults", notify.SeveritySuccess)
	return nil
}

// ValidateLndPath checks the form's lnd path against the server. An empty
// field renders a local verdict without any network call.
func (m *SettingsManager) ValidateLndPath(ctx context.Context) error {
	path := strings.TrimSpace(m.Form().LndCmdPath)
	if path == "" {
		m.view.RenderValidation("lnd_cmd_path", model.ValidationResult{
			Message: "please enter the lnd command path",
		})
		return nil
	}

	result, err := m.client.ValidateLndPath(ctx, path)
	if err != nil {
		return err
	}

	m.view.RenderValidation("lnd_cmd_path", result)
	return nil
}

// ValidateDownloadDir checks the form's download directory against the
// server. Valid results get the free space appended to the message.
func (m *SettingsManager) ValidateDownloadDir(ctx context.Context) error {
	path := strings.TrimSpace(m.Form().DefaultDownloadDir)
	if path == "" {
		m.view.RenderValidation("default_download_dir", model.ValidationResult{
			Message: "please enter the download directory",
		})
		return nil
	}

	result, err := m.client.ValidateDownloadDir(ctx, path)
	if err != nil {
		return err
	}

	if result.Valid && result.SpaceAvailable > 0 {
		result.Message = fmt.Sprintf("%s (free space: %s)", result.Message, printer.FormatBytes(result.SpaceAvailable))
	}

	m.view.RenderValidation("default_download_dir", result)
	return nil
}

func (m *SettingsManager) setState(s DialogState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *SettingsManager) notify(message string, severity notify.Severity) {
	m.notifier.Notify(notify.Notification{
		Message:  message,
		Severity: severity,
		Duration: notify.DefaultDuration,
	})
}

func saveFailureMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "could not save settings"
}
