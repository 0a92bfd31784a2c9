// Package notify is the user-facing notification layer of the client:
// short severity-tagged messages about the outcome of operations.
package notify

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Severity is the visual weight of a notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// DefaultDuration is how long a notification stays visible when the
// renderer supports timed display.
const DefaultDuration = 5 * time.Second

// Notification is a single message for the user.
type Notification struct {
	Message  string
	Severity Severity
	Duration time.Duration
}

// Notifier delivers notifications to the user.
type Notifier interface {
	Notify(n Notification)
}

// Noop is a Notifier that discards everything.
var Noop Notifier = noop(0)

type noop int

func (noop) Notify(n Notification) {}

// TerminalNotifier renders notifications as severity-tagged lines.
type TerminalNotifier struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewTerminalNotifier creates a terminal notifier writing to w.
func NewTerminalNotifier(w io.Writer) *TerminalNotifier {
	return &TerminalNotifier{writer: w}
}

func (t *TerminalNotifier) Notify(n Notification) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.writer, "[%s] %s\n", n.Severity, n.Message)
}

// Recorder is a Notifier that stores notifications for inspection in tests.
type Recorder struct {
	mu            sync.Mutex
	notifications []Notification
}

// NewRecorder creates a recording notifier.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
}

// Notifications returns a copy of everything recorded so far.
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification{}, r.notifications...)
}

// Reset clears the recorded notifications.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = nil
}
