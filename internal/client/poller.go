package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/novodl/novodl/internal/log"
)

// DefaultPollInterval is how often the poller refreshes a task's status.
const DefaultPollInterval = 2 * time.Second

// StatusView renders a polled task status.
type StatusView interface {
	RenderStatus(st TaskStatus)
}

// StatusGetter is the client side the poller needs.
type StatusGetter interface {
	GetTaskStatus(ctx context.Context, taskID string) (*TaskStatus, error)
}

// StatusPollerConfig is the configuration for the status poller.
type StatusPollerConfig struct {
	Client   StatusGetter
	View     StatusView
	Interval time.Duration
	Logger   log.Logger
}

func (c *StatusPollerConfig) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("status client is required")
	}
	if c.View == nil {
		return fmt.Errorf("status view is required")
	}
	if c.Interval <= 0 {
		c.Interval = DefaultPollInterval
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "client.StatusPoller"})
	return nil
}

// StatusPoller periodically fetches a task's status and renders it until
// the task finishes or it is stopped. At most one poll loop is active, a
// new Start stops the previous one first.
type StatusPoller struct {
	client   StatusGetter
	view     StatusView
	interval time.Duration
	logger   log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewStatusPoller creates a new status poller.
func NewStatusPoller(cfg StatusPollerConfig) (*StatusPoller, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &StatusPoller{
		client:   cfg.Client,
		view:     cfg.View,
		interval: cfg.Interval,
		logger:   cfg.Logger,
	}, nil
}

// Start begins polling taskID. Any previous polling is stopped first so
// exactly one loop runs at a time.
func (p *StatusPoller) Start(ctx context.Context, taskID string) {
	p.Stop()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	p.mu.Lock()
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	go p.loop(ctx, taskID, done)
}

// Stop halts polling. Calling it while idle is a no-op.
func (p *StatusPoller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Polling reports whether a poll loop is currently active.
func (p *StatusPoller) Polling() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Wait blocks until the active poll loop ends, either because the task
// finished or the poller was stopped. Returns immediately when idle.
func (p *StatusPoller) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (p *StatusPoller) loop(ctx context.Context, taskID string, done chan struct{}) {
	defer close(done)
	defer func() {
		p.mu.Lock()
		if p.done == done {
			p.cancel = nil
			p.done = nil
		}
		p.mu.Unlock()
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// First poll happens right away, not one interval in.
	if finished := p.tick(ctx, taskID); finished {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if finished := p.tick(ctx, taskID); finished {
				return
			}
		}
	}
}

// tick fetches and renders once. A fetch failure is logged and polling
// continues, a single failed poll must not abort monitoring.
func (p *StatusPoller) tick(ctx context.Context, taskID string) bool {
	st, err := p.client.GetTaskStatus(ctx, taskID)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warningf("Could not fetch status of task %s: %v", taskID, err)
		}
		return false
	}

	p.view.RenderStatus(*st)
	return st.IsFinished
}
