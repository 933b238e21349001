// Package proc enumerates running processes and resolves a process to the
// executable it was started from. Results are point-in-time snapshots.
package proc

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrNotFound     = errors.New("process not found")
	ErrPermission   = errors.New("permission denied")
	ErrNoExecutable = errors.New("process has no executable")
	ErrUnsupported  = errors.New("process enumeration is not supported on this platform")
)

type Info struct {
	PID        int
	Name       string
	Executable string
}

func (i Info) DisplayText() string {
	if i.Executable == "" {
		return fmt.Sprintf("%s (%d)", i.Name, i.PID)
	}
	return fmt.Sprintf("%s (%d) - %s", i.Name, i.PID, i.Executable)
}

// Matches reports whether needle occurs in the name, PID or executable path.
func (i Info) Matches(needle string) bool {
	needle = strings.ToLower(strings.TrimSpace(needle))
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(i.Name), needle) ||
		strings.Contains(strconv.Itoa(i.PID), needle) ||
		strings.Contains(strings.ToLower(i.Executable), needle)
}

type Directory interface {
	List() ([]Info, error)
	ResolveExecutable(pid int) (string, error)
}

type ResolveError struct {
	PID int
	Err error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve executable of pid %d: %v", e.PID, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

func Filter(infos []Info, needle string) []Info {
	if strings.TrimSpace(needle) == "" {
		return infos
	}
	var out []Info
	for _, info := range infos {
		if info.Matches(needle) {
			out = append(out, info)
		}
	}
	return out
}

// normalize drops duplicate PIDs and orders by name, then PID.
func normalize(infos []Info) []Info {
	seen := make(map[int]bool, len(infos))
	out := infos[:0]
	for _, info := range infos {
		if info.PID < 0 || seen[info.PID] {
			continue
		}
		seen[info.PID] = true
		out = append(out, info)
	}
	sort.SliceStable(out, func(a, b int) bool {
		na, nb := strings.ToLower(out[a].Name), strings.ToLower(out[b].Name)
		if na != nb {
			return na < nb
		}
		return out[a].PID < out[b].PID
	})
	return out
}
