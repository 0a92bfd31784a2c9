package settings

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/novodl/novodl/internal/lnd"
	"github.com/novodl/novodl/internal/log"
	"github.com/novodl/novodl/internal/model"
)

const versionProbeTimeout = 10 * time.Second

// PathValidatorConfig is the configuration for the path validator.
type PathValidatorConfig struct {
	// NewRunner creates the runner used to probe a candidate lnd binary.
	NewRunner func(path string) (lnd.Runner, error)
	Logger    log.Logger
}

func (c *PathValidatorConfig) defaults() error {
	if c.NewRunner == nil {
		c.NewRunner = func(path string) (lnd.Runner, error) {
			return lnd.NewCommandRunner(lnd.CommandRunnerConfig{Path: path})
		}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "settings.PathValidator"})
	return nil
}

// PathValidator checks that the lnd binary and download directory settings
// point at something usable.
type PathValidator struct {
	newRunner func(path string) (lnd.Runner, error)
	logger    log.Logger
}

// NewPathValidator creates a new path validator.
func NewPathValidator(cfg PathValidatorConfig) (*PathValidator, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &PathValidator{
		newRunner: cfg.NewRunner,
		logger:    cfg.Logger,
	}, nil
}

// ValidateLndPath checks the lnd binary exists, is executable and responds
// to a version probe.
func (v *PathValidator) ValidateLndPath(ctx context.Context, path string) model.ValidationResult {
	path = strings.TrimSpace(path)
	if path == "" {
		return model.ValidationResult{Message: "path is empty"}
	}

	info, err := os.Stat(path)
	if err != nil {
		return model.ValidationResult{Message: fmt.Sprintf("file does not exist: %s", path)}
	}
	if !info.Mode().IsRegular() {
		return model.ValidationResult{Message: fmt.Sprintf("path is not a regular file: %s", path)}
	}
	if info.Mode().Perm()&0111 == 0 {
		return model.ValidationResult{Message: fmt.Sprintf("file is not executable: %s", path)}
	}

	runner, err := v.newRunner(path)
	if err != nil {
		return model.ValidationResult{Message: fmt.Sprintf("could not prepare lnd probe: %v", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()

	version, err := runner.Version(ctx)
	if err != nil {
		return model.ValidationResult{Message: fmt.Sprintf("lnd did not respond to version probe: %v", err)}
	}

	return model.ValidationResult{
		Valid:   true,
		Message: fmt.Sprintf("lnd command is valid (%s)", version),
	}
}

// ValidateDownloadDir ensures the download directory exists, is writable,
// and reports the free space on its filesystem.
func (v *PathValidator) ValidateDownloadDir(ctx context.Context, path string) model.ValidationResult {
	path = strings.TrimSpace(path)
	if path == "" {
		return model.ValidationResult{Message: "path is empty"}
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return model.ValidationResult{Message: fmt.Sprintf("could not create directory: %v", err)}
	}

	info, err := os.Stat(path)
	if err != nil {
		return model.ValidationResult{Message: fmt.Sprintf("could not access directory: %v", err)}
	}
	if !info.IsDir() {
		return model.ValidationResult{Message: fmt.Sprintf("path is not a directory: %s", path)}
	}

	probe := filepath.Join(path, ".novodl_write_check")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return model.ValidationResult{Message: fmt.Sprintf("directory is not writable: %s", path)}
	}
	_ = os.Remove(probe)

	free, err := diskFree(path)
	if err != nil {
		v.logger.Warningf("Could not read free space of %s: %v", path, err)
		free = 0
	}

	return model.ValidationResult{
		Valid:          true,
		Message:        "download directory is valid",
		SpaceAvailable: free,
	}
}
