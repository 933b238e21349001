//go:build darwin

package proc

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// runPS is replaced in tests.
var runPS = func(args ...string) ([]byte, error) {
	return exec.Command("ps", args...).Output()
}

type psDirectory struct{}

func NewDirectory() Directory {
	return psDirectory{}
}

// List uses ps because macOS exposes no /proc. comm is the full executable
// path for processes started from a path, and a bare name otherwise.
func (psDirectory) List() ([]Info, error) {
	out, err := runPS("-axww", "-o", "pid=,comm=")
	if err != nil {
		return nil, fmt.Errorf("ps: %w", err)
	}

	var infos []Info
	for _, line := range strings.Split(string(out), "\n") {
		pid, comm, ok := parsePSLine(line)
		if !ok {
			continue
		}
		info := Info{PID: pid, Name: filepath.Base(comm)}
		if filepath.IsAbs(comm) {
			info.Executable = comm
		}
		infos = append(infos, info)
	}
	return normalize(infos), nil
}

func (psDirectory) ResolveExecutable(pid int) (string, error) {
	if pid <= 0 {
		return "", &ResolveError{PID: pid, Err: ErrNotFound}
	}

	out, err := runPS("-ww", "-p", strconv.Itoa(pid), "-o", "comm=")
	comm := strings.TrimSpace(string(out))
	if err != nil || comm == "" {
		// ps exits 1 both for unknown pids and for pids it may not inspect.
		if IsAlive(pid) {
			return "", &ResolveError{PID: pid, Err: ErrPermission}
		}
		return "", &ResolveError{PID: pid, Err: ErrNotFound}
	}
	if !filepath.IsAbs(comm) {
		return "", &ResolveError{PID: pid, Err: fmt.Errorf("%w: ps reported %q", ErrNoExecutable, comm)}
	}
	return comm, nil
}

func parsePSLine(line string) (int, string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, "", false
	}
	i := strings.IndexFunc(line, func(r rune) bool { return r == ' ' || r == '\t' })
	if i < 0 {
		return 0, "", false
	}
	pid, err := strconv.Atoi(line[:i])
	if err != nil {
		return 0, "", false
	}
	comm := strings.TrimSpace(line[i:])
	if comm == "" {
		return 0, "", false
	}
	return pid, comm, true
}
