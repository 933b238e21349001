//go:build windows

package proc

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

const maxImagePath = 32768

type windowsDirectory struct{}

func NewDirectory() Directory {
	return windowsDirectory{}
}

func (windowsDirectory) List() ([]Info, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("create process snapshot: %w", err)
	}
	defer windows.CloseHandle(snap)

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	if err := windows.Process32First(snap, &entry); err != nil {
		if errors.Is(err, windows.ERROR_NO_MORE_FILES) {
			return nil, nil
		}
		return nil, fmt.Errorf("read process snapshot: %w", err)
	}

	var infos []Info
	for {
		pid := int(entry.ProcessID)
		info := Info{PID: pid, Name: windows.UTF16ToString(entry.ExeFile[:])}
		if exe, err := imagePath(entry.ProcessID); err == nil {
			info.Executable = exe
		}
		infos = append(infos, info)

		if err := windows.Process32Next(snap, &entry); err != nil {
			if errors.Is(err, windows.ERROR_NO_MORE_FILES) {
				break
			}
			return nil, fmt.Errorf("read process snapshot: %w", err)
		}
	}
	return normalize(infos), nil
}

func (windowsDirectory) ResolveExecutable(pid int) (string, error) {
	if pid <= 0 {
		return "", &ResolveError{PID: pid, Err: ErrNotFound}
	}

	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return "", &ResolveError{PID: pid, Err: classify(pid, err)}
	}
	defer windows.CloseHandle(h)

	if code, ok := exitCode(h); ok && code != stillActive {
		return "", &ResolveError{PID: pid, Err: ErrNotFound}
	}

	exe, err := queryImageName(h)
	if err != nil {
		if errors.Is(err, windows.ERROR_ACCESS_DENIED) {
			return "", &ResolveError{PID: pid, Err: fmt.Errorf("%w: %v", ErrPermission, err)}
		}
		return "", &ResolveError{PID: pid, Err: fmt.Errorf("%w: %v", ErrNoExecutable, err)}
	}
	return exe, nil
}

// classify maps an OpenProcess failure. Only access denial is reported
// directly; other codes are ambiguous, so liveness decides.
func classify(pid int, err error) error {
	switch {
	case errors.Is(err, windows.ERROR_ACCESS_DENIED):
		return fmt.Errorf("%w: %v", ErrPermission, err)
	case IsAlive(pid):
		return fmt.Errorf("%w: %v", ErrPermission, err)
	default:
		return ErrNotFound
	}
}

func imagePath(pid uint32) (string, error) {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return "", err
	}
	defer windows.CloseHandle(h)
	return queryImageName(h)
}

func queryImageName(h windows.Handle) (string, error) {
	buf := make([]uint16, maxImagePath)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return "", err
	}
	return windows.UTF16ToString(buf[:size]), nil
}
