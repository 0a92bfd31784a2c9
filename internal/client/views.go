package client

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/novodl/novodl/internal/model"
	"github.com/novodl/novodl/internal/printer"
)

const statusBarWidth = 40

// TerminalStatusView renders polled task statuses as an in-place progress
// line, with a final newline once the task finishes.
type TerminalStatusView struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewTerminalStatusView creates a status view writing to w.
func NewTerminalStatusView(w io.Writer) *TerminalStatusView {
	return &TerminalStatusView{writer: w}
}

func (v *TerminalStatusView) RenderStatus(st TaskStatus) {
	v.mu.Lock()
	defer v.mu.Unlock()

	step := st.CurrentStep
	if step == "" {
		step = "waiting"
	}

	filled := int(st.Progress / 100 * statusBarWidth)
	if filled > statusBarWidth {
		filled = statusBarWidth
	}
	if filled < 0 {
		filled = 0
	}
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", statusBarWidth-filled)

	fmt.Fprintf(v.writer, "\r[%s] %5.1f%% %-12s %s", bar, st.Progress, st.Status, step)

	if st.IsFinished {
		fmt.Fprintln(v.writer)
		if st.ErrorMessage != "" {
			fmt.Fprintf(v.writer, "error: %s\n", st.ErrorMessage)
		}
	}
}

// TerminalSettingsView renders the settings dialog contents as plain text.
type TerminalSettingsView struct {
	printer printer.Printer
	writer  io.Writer
}

// NewTerminalSettingsView creates a settings view rendering through p and
// writing validation verdicts to w.
func NewTerminalSettingsView(p printer.Printer, w io.Writer) *TerminalSettingsView {
	return &TerminalSettingsView{printer: p, writer: w}
}

func (v *TerminalSettingsView) RenderSettings(s model.Settings) {
	_ = v.printer.PrintSettings(s)
}

func (v *TerminalSettingsView) RenderSystemInfo(info model.SystemInfo) {
	_ = v.printer.PrintSystemInfo(info)
}

func (v *TerminalSettingsView) RenderValidation(field string, result model.ValidationResult) {
	verdict := "invalid"
	if result.Valid {
		verdict = "ok"
	}
	fmt.Fprintf(v.writer, "%s: %s (%s)\n", field, result.Message, verdict)
}

// TerminalConfirmer asks yes/no questions on the terminal. Anything other
// than "y" or "yes" is a refusal.
type TerminalConfirmer struct {
	reader io.Reader
	writer io.Writer
}

// NewTerminalConfirmer creates a confirmer reading answers from r and writing
// prompts to w.
func NewTerminalConfirmer(r io.Reader, w io.Writer) *TerminalConfirmer {
	return &TerminalConfirmer{reader: r, writer: w}
}

func (c *TerminalConfirmer) Confirm(message string) bool {
	fmt.Fprintf(c.writer, "%s [y/N]: ", message)

	scanner := bufio.NewScanner(c.reader)
	if !scanner.Scan() {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "y", "yes":
		return true
	}
	return false
}

// StaticConfirmer always answers with a fixed verdict, used for
// non-interactive runs.
type StaticConfirmer struct {
	Answer bool
}

func (c StaticConfirmer) Confirm(message string) bool { return c.Answer }
