package printer

import "github.com/novodl/novodl/internal/model"

// Printer knows how to print download manager information in different formats.
type Printer interface {
	PrintTaskList(tasks []model.Task) error
	PrintTaskStatus(task model.Task) error
	PrintDelivery(delivery model.Delivery) error
	PrintSettings(settings model.Settings) error
	PrintSystemInfo(info model.SystemInfo) error
	PrintMessage(msg string) error
}
