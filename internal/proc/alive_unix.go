//go:build !windows

package proc

import (
	"errors"

	"golang.org/x/sys/unix"
)

// IsAlive reports whether pid names a live process. A process owned by
// another user still counts: signal 0 fails with EPERM rather than ESRCH.
func IsAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
