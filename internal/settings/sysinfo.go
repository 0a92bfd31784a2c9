package settings

import (
	"os"
	"runtime"

	"k8s.io/client-go/util/homedir"

	"github.com/novodl/novodl/internal/model"
)

// SystemInfo gathers host information shown on the settings screen.
func SystemInfo() model.SystemInfo {
	home := homedir.HomeDir()
	cwd, _ := os.Getwd()

	info := model.SystemInfo{
		Platform:       runtime.GOOS,
		Architecture:   runtime.GOARCH,
		RuntimeVersion: runtime.Version(),
		HomeDir:        home,
		CurrentDir:     cwd,
	}

	if usage, err := diskUsage(home); err == nil {
		info.DiskUsage = usage
	}

	return info
}
