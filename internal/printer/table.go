package printer

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/novodl/novodl/internal/model"
)

// TablePrinter prints download manager information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintTaskList prints tasks in a table format.
func (t *TablePrinter) PrintTaskList(tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header
	fmt.Fprintln(tw, "ID\tUSER\tSTATUS\tPROGRESS\tCREATED")

	// Print rows
	for _, task := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f%%\t%s\n",
			task.ID,
			task.Delivery.Username,
			task.Status,
			task.Progress,
			TimeAgo(task.CreatedAt),
		)
	}

	return nil
}

// PrintTaskStatus prints detailed task status.
func (t *TablePrinter) PrintTaskStatus(task model.Task) error {
	fmt.Fprintf(t.writer, "ID:           %s\n", task.ID)
	fmt.Fprintf(t.writer, "Status:       %s\n", task.Status)
	fmt.Fprintf(t.writer, "Progress:     %.1f%%\n", task.Progress)

	if task.CurrentStep != "" {
		fmt.Fprintf(t.writer, "Current step: %s\n", task.CurrentStep)
	}

	fmt.Fprintf(t.writer, "Data path:    %s\n", task.Delivery.DataPath)
	fmt.Fprintf(t.writer, "User:         %s\n", task.Delivery.Username)
	fmt.Fprintf(t.writer, "Download dir: %s\n", task.DownloadDir)
	fmt.Fprintf(t.writer, "Created:      %s\n", FormatTimestamp(task.CreatedAt))

	if task.StartedAt != nil {
		fmt.Fprintf(t.writer, "Started:      %s\n", FormatTimestamp(*task.StartedAt))
	}

	if task.EndedAt != nil {
		fmt.Fprintf(t.writer, "Ended:        %s\n", FormatTimestamp(*task.EndedAt))
		if task.StartedAt != nil {
			fmt.Fprintf(t.writer, "Duration:     %s\n", FormatDuration(task.EndedAt.Sub(*task.StartedAt)))
		}
	}

	if task.ErrorMessage != "" {
		fmt.Fprintf(t.writer, "Error:        %s\n", task.ErrorMessage)
	}

	return nil
}

// PrintDelivery prints parsed delivery information.
func (t *TablePrinter) PrintDelivery(delivery model.Delivery) error {
	fmt.Fprintf(t.writer, "Data path:    %s\n", delivery.DataPath)
	fmt.Fprintf(t.writer, "Username:     %s\n", delivery.Username)
	fmt.Fprintf(t.writer, "Password:     %s\n", delivery.Password)
	fmt.Fprintf(t.writer, "Released:     %s\n", orPlaceholder(delivery.ReleaseDate))
	fmt.Fprintf(t.writer, "Expires:      %s\n", orPlaceholder(delivery.ExpireDate))
	fmt.Fprintf(t.writer, "Total size:   %s\n", orPlaceholder(delivery.TotalSize))
	fmt.Fprintf(t.writer, "Samples:      %s\n", orPlaceholder(delivery.SampleCount))
	fmt.Fprintf(t.writer, "Sample names: %s\n", orPlaceholder(delivery.SampleNames))

	if delivery.BatchInfo != "" {
		fmt.Fprintf(t.writer, "Batch:        %s\n", delivery.BatchInfo)
	}
	if delivery.Notes != "" {
		fmt.Fprintf(t.writer, "Notes:        %s\n", delivery.Notes)
	}

	return nil
}

// PrintSettings prints the current settings.
func (t *TablePrinter) PrintSettings(settings model.Settings) error {
	fmt.Fprintf(t.writer, "Lnd command:      %s\n", settings.LndCmdPath)
	fmt.Fprintf(t.writer, "Download dir:     %s\n", settings.DefaultDownloadDir)
	fmt.Fprintf(t.writer, "Max tasks:        %d\n", settings.MaxConcurrentTasks)
	fmt.Fprintf(t.writer, "Task timeout:     %s\n", FormatDuration(time.Duration(settings.TaskTimeoutSeconds)*time.Second))
	fmt.Fprintf(t.writer, "Auto validate:    %s\n", yesNo(settings.AutoValidate))
	fmt.Fprintf(t.writer, "Generate report:  %s\n", yesNo(settings.GenerateReport))
	fmt.Fprintf(t.writer, "First run:        %s\n", yesNo(settings.FirstRun))

	return nil
}

// PrintSystemInfo prints system information.
func (t *TablePrinter) PrintSystemInfo(info model.SystemInfo) error {
	fmt.Fprintf(t.writer, "Platform:      %s\n", info.Platform)
	fmt.Fprintf(t.writer, "Architecture:  %s\n", info.Architecture)
	fmt.Fprintf(t.writer, "Runtime:       %s\n", info.RuntimeVersion)
	fmt.Fprintf(t.writer, "Home dir:      %s\n", info.HomeDir)
	fmt.Fprintf(t.writer, "Current dir:   %s\n", info.CurrentDir)
	fmt.Fprintf(t.writer, "Disk total:    %s\n", FormatBytes(info.DiskUsage.Total))
	fmt.Fprintf(t.writer, "Disk used:     %s\n", FormatBytes(info.DiskUsage.Used))
	fmt.Fprintf(t.writer, "Disk free:     %s\n", FormatBytes(info.DiskUsage.Free))

	return nil
}

// PrintMessage prints a simple message.
func (t *TablePrinter) PrintMessage(msg string) error {
	_, err := fmt.Fprintln(t.writer, msg)
	return err
}

func orPlaceholder(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
