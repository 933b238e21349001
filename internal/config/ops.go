package config

import (
	"fmt"
	"strings"
)

// The functions below never modify the slice they are given; they return a
// fresh slice so a failed save leaves the caller's copy usable.

func Find(profiles []Profile, name string) (Profile, bool) {
	i := indexOf(profiles, name)
	if i < 0 {
		return Profile{}, false
	}
	return profiles[i], true
}

func Add(profiles []Profile, p Profile) ([]Profile, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := p.Validate(); err != nil {
		return profiles, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if indexOf(profiles, p.Name) >= 0 {
		return profiles, fmt.Errorf("%w: %q", ErrDuplicateName, p.Name)
	}
	out := make([]Profile, 0, len(profiles)+1)
	out = append(out, profiles...)
	return append(out, p), nil
}

func UpdateConfig(profiles []Profile, name string, cfg ProxyConfig) ([]Profile, error) {
	i := indexOf(profiles, name)
	if i < 0 {
		return profiles, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err := cfg.Validate(); err != nil {
		return profiles, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	out := clone(profiles)
	out[i].ProxyConfig = cfg
	return out, nil
}

func Rename(profiles []Profile, oldName, newName string) ([]Profile, error) {
	i := indexOf(profiles, oldName)
	if i < 0 {
		return profiles, fmt.Errorf("%w: %q", ErrNotFound, oldName)
	}
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return profiles, fmt.Errorf("%w: profile name is empty", ErrInvalidProfile)
	}
	if j := indexOf(profiles, newName); j >= 0 && j != i {
		return profiles, fmt.Errorf("%w: %q", ErrDuplicateName, newName)
	}
	out := clone(profiles)
	out[i].Name = newName
	return out, nil
}

func Remove(profiles []Profile, name string) ([]Profile, error) {
	i := indexOf(profiles, name)
	if i < 0 {
		return profiles, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	out := make([]Profile, 0, len(profiles)-1)
	out = append(out, profiles[:i]...)
	return append(out, profiles[i+1:]...), nil
}

func indexOf(profiles []Profile, name string) int {
	name = strings.TrimSpace(name)
	if name == "" {
		return -1
	}
	for i, p := range profiles {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func clone(profiles []Profile) []Profile {
	out := make([]Profile, len(profiles))
	copy(out, profiles)
	return out
}

func validateAll(profiles []Profile) error {
	seen := make(map[string]bool, len(profiles))
	for i, p := range profiles {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if seen[p.Name] {
			return fmt.Errorf("record %d: %w: %q", i, ErrDuplicateName, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}
