//go:build linux

package settings

import (
	"golang.org/x/sys/unix"

	"github.com/novodl/novodl/internal/model"
)

func diskFree(path string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return int64(st.Bavail) * int64(st.Bsize), nil
}

func diskUsage(path string) (model.DiskUsage, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return model.DiskUsage{}, err
	}

	total := int64(st.Blocks) * int64(st.Bsize)
	free := int64(st.Bavail) * int64(st.Bsize)
	return model.DiskUsage{
		Total: total,
		Used:  total - int64(st.Bfree)*int64(st.Bsize),
		Free:  free,
	}, nil
}
