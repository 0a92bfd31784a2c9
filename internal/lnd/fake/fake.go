// Package fake provides a Runner implementation that simulates the lnd
// tool without shelling out. Useful for local development and tests.
package fake

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/novodl/novodl/internal/lnd"
	"github.com/novodl/novodl/internal/log"
)

// RunnerConfig is the configuration for the fake runner.
type RunnerConfig struct {
	// LoginErr, ListErr and DownloadErr make the corresponding step fail.
	LoginErr    error
	ListErr     error
	DownloadErr error

	// DownloadLines are replayed through the log callback during Download.
	// Lines containing a percentage also drive the progress callback.
	DownloadLines []string

	Logger log.Logger
}

func (c *RunnerConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "lnd.Fake"})
	return nil
}

// Runner is a fake implementation of the lnd.Runner interface.
type Runner struct {
	cfg    RunnerConfig
	logger log.Logger

	mu        sync.Mutex
	logins    []string
	lists     []string
	downloads []string
}

// NewRunner creates a new fake runner.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Runner{
		cfg:    cfg,
		logger: cfg.Logger,
	}, nil
}

func (r *Runner) CheckInstalled(ctx context.Context) error { return nil }

func (r *Runner) Version(ctx context.Context) (string, error) {
	return "lnd fake 0.0.0", nil
}

func (r *Runner) Login(ctx context.Context, username, password string, logLine func(string)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.cfg.LoginErr != nil {
		return r.cfg.LoginErr
	}

	r.mu.Lock()
	r.logins = append(r.logins, username)
	r.mu.Unlock()

	if logLine != nil {
		logLine(fmt.Sprintf("logged in as %s", username))
	}
	r.logger.Infof("Fake login as %s", username)
	return nil
}

func (r *Runner) List(ctx context.Context, dataPath, downloadDir string, logLine func(string)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.cfg.ListErr != nil {
		return r.cfg.ListErr
	}

	r.mu.Lock()
	r.lists = append(r.lists, dataPath)
	r.mu.Unlock()

	listing := fmt.Sprintf("%s/sample_1.fq.gz\n%s/MD5.txt\n", dataPath, dataPath)
	listPath := filepath.Join(downloadDir, "file_list.txt")
	if err := os.WriteFile(listPath, []byte(listing), 0o644); err != nil {
		return fmt.Errorf("could not write %s: %w", listPath, err)
	}

	if logLine != nil {
		logLine("listed 2 remote files")
	}
	return nil
}

func (r *Runner) Download(ctx context.Context, dataPath, downloadDir string, progress func(float64), logLine func(string)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.cfg.DownloadErr != nil {
		return r.cfg.DownloadErr
	}

	r.mu.Lock()
	r.downloads = append(r.downloads, dataPath)
	r.mu.Unlock()

	lines := r.cfg.DownloadLines
	if lines == nil {
		lines = []string{
			"downloading sample_1.fq.gz 25.0% 10MB/s",
			"downloading sample_1.fq.gz 100.0% 10MB/s",
			"done",
		}
	}

	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return err
		}
		if logLine != nil {
			logLine(line)
		}
		if pct, ok := lnd.ParseProgress(line); ok && progress != nil {
			progress(pct)
		}
	}

	return nil
}

// Logins returns the usernames Login was called with.
func (r *Runner) Logins() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.logins...)
}

// Lists returns the data paths List was called with.
func (r *Runner) Lists() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.lists...)
}

// Downloads returns the data paths Download was called with.
func (r *Runner) Downloads() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.downloads...)
}
