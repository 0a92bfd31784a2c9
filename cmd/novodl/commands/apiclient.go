package commands

import (
	"io"

	"github.com/novodl/novodl/internal/client"
	"github.com/novodl/novodl/internal/client/notify"
	"github.com/novodl/novodl/internal/model"
	"github.com/novodl/novodl/internal/printer"
)

// newAPIClient returns an API client that surfaces request failures as
// terminal notifications on stderr.
func newAPIClient(rootCmd *RootCommand) (*client.Client, error) {
	return client.NewClient(client.Config{
		BaseURL:  rootCmd.APIURL,
		Notifier: notify.NewTerminalNotifier(rootCmd.Stderr),
		Logger:   rootCmd.Logger,
	})
}

// newQuietAPIClient returns an API client without notifications. Watch loops
// and pollers use it so transient fetch errors are logged instead of spamming
// the terminal on every tick.
func newQuietAPIClient(rootCmd *RootCommand) (*client.Client, error) {
	return client.NewClient(client.Config{
		BaseURL:  rootCmd.APIURL,
		Notifier: notify.Noop,
		Logger:   rootCmd.Logger,
	})
}

// newPrinter returns the printer for the selected output format.
func newPrinter(format string, w io.Writer) printer.Printer {
	switch format {
	case "json":
		return printer.NewJSONPrinter(w)
	default: // table
		return printer.NewTablePrinter(w)
	}
}

// taskFromSummary maps an API task list row into the domain model so the
// printers can render it.
func taskFromSummary(s client.TaskSummary) model.Task {
	return model.Task{
		ID: s.TaskID,
		Delivery: model.Delivery{
			Username: s.Username,
			DataPath: s.DataPath,
		},
		Status:      model.TaskStatus(s.Status),
		Progress:    s.Progress,
		CurrentStep: s.CurrentStep,
		CreatedAt:   s.CreatedAt,
	}
}
