// Package results keeps the most recent session summary on disk so the
// results screen and the summary command can show it after the console
// has moved on.
package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"xray-cbt/internal/scoring"
)

const (
	appDir   = "xray-cbt"
	lastFile = "last-session.json"
)

// ErrNoResult is returned when no summary has been stored.
var ErrNoResult = errors.New("no stored session result")

// Store reads and writes the last summary file.
type Store struct {
	mu   sync.Mutex
	path string
}

// Open returns a store rooted at dir. An empty dir means the user config
// directory, e.g. ~/.config/xray-cbt.
func Open(dir string) *Store {
	if dir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			configDir = filepath.Join(os.Getenv("HOME"), ".config")
		}
		dir = filepath.Join(configDir, appDir)
	}
	return &Store{path: filepath.Join(dir, lastFile)}
}

// Path returns the summary file location.
func (s *Store) Path() string {
	return s.path
}

// Save replaces the stored summary.
func (s *Store) Save(sum scoring.Summary) error {
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Last returns the stored summary.
func (s *Store) Last() (scoring.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// TakeLast returns the stored summary and removes it, so a summary is shown
// at most once.
func (s *Store) TakeLast() (scoring.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, err := s.read()
	if err != nil {
		return sum, err
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return sum, err
	}
	return sum, nil
}

func (s *Store) read() (scoring.Summary, error) {
	var sum scoring.Summary
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return sum, ErrNoResult
	}
	if err != nil {
		return sum, err
	}
	if err := json.Unmarshal(data, &sum); err != nil {
		return sum, fmt.Errorf("failed to decode %s: %w", s.path, err)
	}
	return sum, nil
}
