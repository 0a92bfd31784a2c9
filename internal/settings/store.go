// Package settings manages the user-editable application settings stored as
// a JSON file, plus validation of the paths those settings point at.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"k8s.io/client-go/util/homedir"

	"github.com/novodl/novodl/internal/log"
	"github.com/novodl/novodl/internal/model"
)

// Defaults returns the settings used when no settings file exists yet.
func Defaults() model.Settings {
	home := homedir.HomeDir()
	return model.Settings{
		LndCmdPath:         filepath.Join(home, "bin", "lnd"),
		DefaultDownloadDir: filepath.Join(home, "novodl", "data"),
		MaxConcurrentTasks: 3,
		TaskTimeoutSeconds: 3600,
		AutoValidate:       true,
		GenerateReport:     true,
		FirstRun:           true,
	}
}

// StoreConfig is the configuration for the settings store.
type StoreConfig struct {
	// Path is the settings JSON file location.
	Path   string
	Logger log.Logger
}

func (c *StoreConfig) defaults() error {
	if c.Path == "" {
		c.Path = filepath.Join(homedir.HomeDir(), ".novodl", "settings.json")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "settings.Store"})
	return nil
}

// Store loads and saves settings from a JSON file.
type Store struct {
	path   string
	logger log.Logger
	mu     sync.Mutex
}

// NewStore creates a new settings store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Store{
		path:   cfg.Path,
		logger: cfg.Logger,
	}, nil
}

// Load returns the stored settings merged over the defaults, so settings
// added after the file was written still get a value. A missing or broken
// file falls back to the defaults.
func (s *Store) Load(ctx context.Context) (model.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (model.Settings, error) {
	settings := Defaults()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, fmt.Errorf("could not read settings file: %w", err)
	}

	if err := json.Unmarshal(data, &settings); err != nil {
		s.logger.Warningf("Settings file %s is corrupt, using defaults: %v", s.path, err)
		return Defaults(), nil
	}

	return settings, nil
}

// Save persists the settings. The file is written atomically via a temp
// file rename so a crash mid-write never leaves a half-written file.
func (s *Store) Save(ctx context.Context, settings model.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(settings)
}

func (s *Store) save(settings model.Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("could not create settings dir: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal settings: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("could not write settings file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("could not replace settings file: %w", err)
	}

	return nil
}

// Reset restores the default settings and persists them.
func (s *Store) Reset(ctx context.Context) (model.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := Defaults()
	if err := s.save(settings); err != nil {
		return settings, err
	}
	return settings, nil
}

// IsFirstRun reports whether the initial setup has not completed yet.
func (s *Store) IsFirstRun(ctx context.Context) (bool, error) {
	settings, err := s.Load(ctx)
	if err != nil {
		return false, err
	}
	return settings.FirstRun, nil
}

// MarkSetupComplete records that the initial setup finished.
func (s *Store) MarkSetupComplete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.load()
	if err != nil {
		return err
	}
	settings.FirstRun = false
	return s.save(settings)
}
