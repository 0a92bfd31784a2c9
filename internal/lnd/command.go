package lnd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/novodl/novodl/internal/log"
)

const (
	loginTimeout = 60 * time.Second
	listTimeout  = 120 * time.Second

	// The listing is kept next to the downloaded files so users can check
	// what the delivery contains without rerunning lnd.
	listFileName = "file_list.txt"
)

// CommandRunnerConfig is the configuration for the command runner.
type CommandRunnerConfig struct {
	// Path is the lnd binary location.
	Path   string
	Logger log.Logger
}

func (c *CommandRunnerConfig) defaults() error {
	if c.Path == "" {
		return fmt.Errorf("lnd binary path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "lnd.CommandRunner"})
	return nil
}

// CommandRunner is the Runner implementation that shells out to the real
// lnd binary.
type CommandRunner struct {
	path   string
	logger log.Logger
}

// NewCommandRunner creates a new command runner.
func NewCommandRunner(cfg CommandRunnerConfig) (*CommandRunner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &CommandRunner{
		path:   cfg.Path,
		logger: cfg.Logger,
	}, nil
}

func (r *CommandRunner) CheckInstalled(ctx context.Context) error {
	info, err := os.Stat(r.path)
	if err != nil {
		return fmt.Errorf("lnd binary not found at %s: %w", r.path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not an lnd binary", r.path)
	}
	if info.Mode().Perm()&0111 == 0 {
		return fmt.Errorf("%s is not executable", r.path)
	}
	return nil
}

func (r *CommandRunner) Version(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, r.path, "--version").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("could not get lnd version: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (r *CommandRunner) Login(ctx context.Context, username, password string, logLine func(string)) error {
	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.path, "login", "-u", username, "-p")
	cmd.Stdin = strings.NewReader(password + "\n")

	out, err := cmd.CombinedOutput()
	forwardLines(string(out), logLine)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("login timed out after %s", loginTimeout)
		}
		return fmt.Errorf("login failed: %s: %w", strings.TrimSpace(string(out)), err)
	}

	r.logger.Debugf("Logged in as %s", username)
	return nil
}

func (r *CommandRunner) List(ctx context.Context, dataPath, downloadDir string, logLine func(string)) error {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.path, "list", dataPath)
	cmd.Dir = downloadDir

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("listing timed out after %s", listTimeout)
		}
		return fmt.Errorf("could not list %s: %w", dataPath, err)
	}

	listPath := filepath.Join(downloadDir, listFileName)
	if err := os.WriteFile(listPath, out, 0o644); err != nil {
		return fmt.Errorf("could not write %s: %w", listPath, err)
	}

	forwardLines(string(out), logLine)
	r.logger.Debugf("Stored file listing at %s", listPath)
	return nil
}

func (r *CommandRunner) Download(ctx context.Context, dataPath, downloadDir string, progress func(float64), logLine func(string)) error {
	cmd := exec.CommandContext(ctx, r.path, "cp", "-d", dataPath, "./")
	cmd.Dir = downloadDir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("could not open stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("could not start lnd: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if logLine != nil {
			logLine(line)
		}
		if pct, ok := ParseProgress(line); ok && progress != nil {
			progress(pct)
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("download interrupted: %w", ctx.Err())
		}
		return fmt.Errorf("download failed: %w", err)
	}

	return nil
}

// ParseProgress extracts a transfer percentage from an lnd output line.
// The tool prints lines like "downloading sample_1.fq.gz 42.5% 12MB/s",
// the number right before the percent sign is the progress.
func ParseProgress(line string) (float64, bool) {
	idx := strings.Index(line, "%")
	if idx < 0 {
		return 0, false
	}

	fields := strings.Fields(line[:idx])
	if len(fields) == 0 {
		return 0, false
	}

	pct, err := strconv.ParseFloat(fields[len(fields)-1], 64)
	if err != nil {
		return 0, false
	}

	return pct, true
}

func forwardLines(out string, logLine func(string)) {
	if logLine == nil {
		return
	}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			logLine(line)
		}
	}
}
