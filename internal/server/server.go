// Package server exposes the task manager and settings store over the HTTP
// API consumed by the CLI client.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/novodl/novodl/internal/email"
	"github.com/novodl/novodl/internal/log"
	"github.com/novodl/novodl/internal/manager"
	"github.com/novodl/novodl/internal/settings"
)

// Config is the configuration for the API server.
type Config struct {
	Addr          string
	Manager       *manager.Manager
	SettingsStore *settings.Store
	PathValidator *settings.PathValidator
	Parser        *email.Parser

	// LogWriter receives the access log. Nil disables access logging.
	LogWriter io.Writer

	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.Addr == "" {
		c.Addr = ":3683"
	}
	if c.Manager == nil {
		return fmt.Errorf("task manager is required")
	}
	if c.SettingsStore == nil {
		return fmt.Errorf("settings store is required")
	}
	if c.PathValidator == nil {
		v, err := settings.NewPathValidator(settings.PathValidatorConfig{Logger: c.Logger})
		if err != nil {
			return err
		}
		c.PathValidator = v
	}
	if c.Parser == nil {
		c.Parser = email.NewParser()
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "server.Server"})
	return nil
}

// Server serves the HTTP API.
type Server struct {
	cfg     Config
	manager *manager.Manager
	store   *settings.Store
	pathval *settings.PathValidator
	parser  *email.Parser
	logger  log.Logger
}

// NewServer creates a new API server.
func NewServer(cfg Config) (*Server, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Server{
		cfg:     cfg,
		manager: cfg.Manager,
		store:   cfg.SettingsStore,
		pathval: cfg.PathValidator,
		parser:  cfg.Parser,
		logger:  cfg.Logger,
	}, nil
}

// Handler returns the routed HTTP handler with the middleware applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/tasks", s.listTasks).Methods(http.MethodGet)
	api.HandleFunc("/task", s.createTask).Methods(http.MethodPost)
	api.HandleFunc("/task/{taskID}/status", s.taskStatus).Methods(http.MethodGet)
	api.HandleFunc("/task/{taskID}/cancel", s.cancelTask).Methods(http.MethodPost)
	api.HandleFunc("/task/{taskID}/remove", s.removeTask).Methods(http.MethodPost)
	api.HandleFunc("/task/{taskID}/logs", s.taskLogs).Methods(http.MethodGet)

	api.HandleFunc("/parse", s.parseEmail).Methods(http.MethodPost)

	api.HandleFunc("/settings", s.getSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings", s.saveSettings).Methods(http.MethodPost)
	api.HandleFunc("/settings/reset", s.resetSettings).Methods(http.MethodPost)
	api.HandleFunc("/settings/validate", s.validateSettings).Methods(http.MethodPost)
	api.HandleFunc("/settings/check-first-run", s.checkFirstRun).Methods(http.MethodGet)
	api.HandleFunc("/settings/system-info", s.systemInfo).Methods(http.MethodGet)
	api.HandleFunc("/settings/validate-lnd", s.validateLndPath).Methods(http.MethodPost)
	api.HandleFunc("/settings/validate-dir", s.validateDownloadDir).Methods(http.MethodPost)

	var h http.Handler = r
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{s.logger}))(h)
	if s.cfg.LogWriter != nil {
		h = handlers.CombinedLoggingHandler(s.cfg.LogWriter, h)
	}
	return h
}

// Run serves the API until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("HTTP API listening on %s", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not shut down server: %w", err)
		}
		return nil
	}
}

type recoveryLogger struct {
	logger log.Logger
}

func (r recoveryLogger) Println(v ...interface{}) {
	r.logger.Errorf("Panic recovered in HTTP handler: %v", v)
}
