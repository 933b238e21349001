package config

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("profile not found")
	ErrDuplicateName  = errors.New("profile name already exists")
	ErrInvalidProfile = errors.New("invalid profile")
)

// CorruptStoreError reports a profile file that exists but cannot be used.
// The file is left untouched.
type CorruptStoreError struct {
	Path string
	Err  error
}

func (e *CorruptStoreError) Error() string {
	return fmt.Sprintf("profile store %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptStoreError) Unwrap() error { return e.Err }

// IOError reports a failed read or write of the profile file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
