//go:build !linux

package settings

import "github.com/novodl/novodl/internal/model"

// Disk usage is best effort on platforms without statfs support, callers
// treat zero values as unknown.
func diskFree(path string) (int64, error) {
	return 0, nil
}

func diskUsage(path string) (model.DiskUsage, error) {
	return model.DiskUsage{}, nil
}
