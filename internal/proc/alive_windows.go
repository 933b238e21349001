//go:build windows

package proc

import (
	"errors"

	"golang.org/x/sys/windows"
)

// STILL_ACTIVE, the exit code GetExitCodeProcess reports for a running process.
const stillActive = 259

// IsAlive reports whether pid is a running process. A process that refuses
// a query handle exists, so it counts as alive.
func IsAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return errors.Is(err, windows.ERROR_ACCESS_DENIED)
	}
	defer windows.CloseHandle(h)

	code, ok := exitCode(h)
	return ok && code == stillActive
}

func exitCode(h windows.Handle) (uint32, bool) {
	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return 0, false
	}
	return code, true
}
