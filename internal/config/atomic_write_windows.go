//go:build windows

package config

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// replaceFile swaps from into to with MoveFileEx, which replaces an existing
// profile file in one step.
func replaceFile(from, to string) error {
	src, err := windows.UTF16PtrFromString(from)
	if err != nil {
		return fmt.Errorf("encode temp path: %w", err)
	}
	dst, err := windows.UTF16PtrFromString(to)
	if err != nil {
		return fmt.Errorf("encode target path: %w", err)
	}
	return windows.MoveFileEx(src, dst, windows.MOVEFILE_REPLACE_EXISTING|windows.MOVEFILE_WRITE_THROUGH)
}

// syncDir is a no-op; MOVEFILE_WRITE_THROUGH already flushes the move.
func syncDir(string) {}
