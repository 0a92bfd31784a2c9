package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/novodl/novodl/internal/model"
)

// JSONPrinter prints download manager information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// listItem represents a task in the list output (subset of fields).
type listItem struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Status    string    `json:"status"`
	Progress  float64   `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
}

// statusOutput represents the full task status output.
type statusOutput struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"`
	Progress     float64    `json:"progress"`
	CurrentStep  string     `json:"current_step,omitempty"`
	DataPath     string     `json:"data_path"`
	Username     string     `json:"username"`
	DownloadDir  string     `json:"download_dir"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintTaskList prints tasks in JSON format with a subset of fields.
func (j *JSONPrinter) PrintTaskList(tasks []model.Task) error {
	items := make([]listItem, len(tasks))
	for i, t := range tasks {
		items[i] = listItem{
			ID:        t.ID,
			Username:  t.Delivery.Username,
			Status:    string(t.Status),
			Progress:  t.Progress,
			CreatedAt: t.CreatedAt.UTC(),
		}
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// PrintTaskStatus prints detailed task status in JSON format.
func (j *JSONPrinter) PrintTaskStatus(task model.Task) error {
	output := statusOutput{
		ID:           task.ID,
		Status:       string(task.Status),
		Progress:     task.Progress,
		CurrentStep:  task.CurrentStep,
		DataPath:     task.Delivery.DataPath,
		Username:     task.Delivery.Username,
		DownloadDir:  task.DownloadDir,
		ErrorMessage: task.ErrorMessage,
		CreatedAt:    task.CreatedAt.UTC(),
	}

	if task.StartedAt != nil {
		utcTime := task.StartedAt.UTC()
		output.StartedAt = &utcTime
	}

	if task.EndedAt != nil {
		utcTime := task.EndedAt.UTC()
		output.EndedAt = &utcTime
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

// PrintDelivery prints parsed delivery information in JSON format.
func (j *JSONPrinter) PrintDelivery(delivery model.Delivery) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(delivery)
}

// PrintSettings prints the settings in JSON format.
func (j *JSONPrinter) PrintSettings(settings model.Settings) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(settings)
}

// PrintSystemInfo prints system information in JSON format.
func (j *JSONPrinter) PrintSystemInfo(info model.SystemInfo) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	output := messageOutput{Message: msg}
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}
