//go:build !windows

package config

import "os"

func replaceFile(from, to string) error {
	return os.Rename(from, to)
}

// syncDir flushes the directory entry so a completed rename survives a crash.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
