//go:build !windows

package model

import "golang.org/x/sys/unix"

// availableSpace reports free bytes on the filesystem holding path.
func availableSpace(path string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return int64(st.Bavail) * int64(st.Bsize), nil
}
