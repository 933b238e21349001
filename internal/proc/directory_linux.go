//go:build linux

package proc

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const deletedSuffix = " (deleted)"

type linuxDirectory struct {
	root string
}

func NewDirectory() Directory {
	return linuxDirectory{root: "/proc"}
}

func (d linuxDirectory) List() ([]Info, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", d.root, err)
	}

	infos := make([]Info, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid <= 0 {
			continue
		}
		name, ok := d.name(pid)
		if !ok {
			// Exited between ReadDir and now.
			continue
		}
		exe, _ := d.readExe(pid)
		infos = append(infos, Info{PID: pid, Name: name, Executable: exe})
	}
	return normalize(infos), nil
}

func (d linuxDirectory) ResolveExecutable(pid int) (string, error) {
	if pid <= 0 {
		return "", &ResolveError{PID: pid, Err: ErrNotFound}
	}

	exe, err := d.readExe(pid)
	if err == nil {
		if exe == "" {
			return "", &ResolveError{PID: pid, Err: ErrNoExecutable}
		}
		return exe, nil
	}

	switch {
	case errors.Is(err, fs.ErrPermission):
		return "", &ResolveError{PID: pid, Err: fmt.Errorf("%w: %v", ErrPermission, err)}
	case errors.Is(err, fs.ErrNotExist):
		if _, serr := os.Stat(d.pidDir(pid)); serr != nil {
			return "", &ResolveError{PID: pid, Err: ErrNotFound}
		}
		// Kernel threads and zombies keep their /proc entry but have no exe link.
		return "", &ResolveError{PID: pid, Err: ErrNoExecutable}
	default:
		return "", &ResolveError{PID: pid, Err: err}
	}
}

func (d linuxDirectory) pidDir(pid int) string {
	return filepath.Join(d.root, strconv.Itoa(pid))
}

func (d linuxDirectory) readExe(pid int) (string, error) {
	target, err := os.Readlink(filepath.Join(d.pidDir(pid), "exe"))
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(target, deletedSuffix), nil
}

func (d linuxDirectory) name(pid int) (string, bool) {
	if b, err := os.ReadFile(filepath.Join(d.pidDir(pid), "comm")); err == nil {
		if name := strings.TrimSpace(string(b)); name != "" {
			return name, true
		}
	}

	// stat format is "pid (comm) state ...", and comm may itself contain parens.
	b, err := os.ReadFile(filepath.Join(d.pidDir(pid), "stat"))
	if err != nil {
		return "", false
	}
	raw := string(b)
	open := strings.Index(raw, "(")
	end := strings.LastIndex(raw, ")")
	if open == -1 || end <= open {
		return "", false
	}
	return raw[open+1 : end], true
}
