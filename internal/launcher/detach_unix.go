//go:build !windows

package launcher

import "syscall"

// A new session keeps the child alive when the launching terminal closes.
func detachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
