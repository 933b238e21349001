package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

type Store struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
}

func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(base, "rproxy", "profiles.json"), nil
}

func NewStore(pathOverride string) (*Store, error) {
	path := pathOverride
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, &IOError{Op: "create config dir", Path: dir, Err: err}
	}

	return &Store{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

func (s *Store) Path() string { return s.path }

// Load returns the persisted profiles in file order. A missing or blank file
// is an empty store.
func (s *Store) Load() ([]Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return nil, &IOError{Op: "lock", Path: s.lock.Path(), Err: err}
	}
	defer func() { _ = s.lock.Unlock() }()

	return s.loadUnlocked()
}

// Save replaces the file with profiles. On failure the previous file is kept.
func (s *Store) Save(profiles []Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return &IOError{Op: "lock", Path: s.lock.Path(), Err: err}
	}
	defer func() { _ = s.lock.Unlock() }()

	return s.saveUnlocked(profiles)
}

// Update runs fn on the current profiles and saves the result, holding the
// file lock for the whole cycle. Nothing is written if fn fails.
func (s *Store) Update(fn func([]Profile) ([]Profile, error)) ([]Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return nil, &IOError{Op: "lock", Path: s.lock.Path(), Err: err}
	}
	defer func() { _ = s.lock.Unlock() }()

	profiles, err := s.loadUnlocked()
	if err != nil {
		return nil, err
	}

	next, err := fn(profiles)
	if err != nil {
		return profiles, err
	}

	if err := s.saveUnlocked(next); err != nil {
		return profiles, err
	}
	return next, nil
}

// Quarantine moves the current file aside so a corrupt store can be started
// over. It returns the new location, or "" when there was no file.
func (s *Store) Quarantine() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return "", &IOError{Op: "lock", Path: s.lock.Path(), Err: err}
	}
	defer func() { _ = s.lock.Unlock() }()

	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", &IOError{Op: "stat", Path: s.path, Err: err}
	}

	dest := s.path + ".corrupt-" + time.Now().UTC().Format("20060102T150405.000000000Z")
	if err := os.Rename(s.path, dest); err != nil {
		return "", &IOError{Op: "quarantine", Path: s.path, Err: err}
	}
	return dest, nil
}

func (s *Store) loadUnlocked() ([]Profile, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Profile{}, nil
		}
		return nil, &IOError{Op: "read", Path: s.path, Err: err}
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return []Profile{}, nil
	}

	var f file
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, &CorruptStoreError{Path: s.path, Err: fmt.Errorf("parse: %w", err)}
	}

	if f.Version == 0 {
		f.Version = CurrentVersion
	}
	if f.Version != CurrentVersion {
		return nil, &CorruptStoreError{
			Path: s.path,
			Err:  fmt.Errorf("unsupported version %d (expected %d)", f.Version, CurrentVersion),
		}
	}
	if err := validateAll(f.Profiles); err != nil {
		return nil, &CorruptStoreError{Path: s.path, Err: err}
	}

	if f.Profiles == nil {
		f.Profiles = []Profile{}
	}
	return f.Profiles, nil
}

func (s *Store) saveUnlocked(profiles []Profile) error {
	if err := validateAll(profiles); err != nil {
		return fmt.Errorf("refuse to write profiles: %w", err)
	}
	if profiles == nil {
		profiles = []Profile{}
	}

	b, err := json.MarshalIndent(file{Version: CurrentVersion, Profiles: profiles}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal profiles: %w", err)
	}
	b = append(b, '\n')

	if err := writeFileAtomic(s.path, b, 0o600); err != nil {
		return &IOError{Op: "write", Path: s.path, Err: err}
	}
	return nil
}
