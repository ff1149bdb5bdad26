package calendar

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

// Store holds the current calendar snapshot. Readers take one snapshot per
// analysis; Reload swaps it atomically.
type Store struct {
	current  atomic.Pointer[Calendar]
	path     string
	loadedAt atomic.Int64
	modTime  atomic.Int64 // of the backing file at the last load
}

// NewStore loads path when set, otherwise starts from the embedded table
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}

	if path == "" {
		s.swap(Default())
		return s, nil
	}

	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStaticStore wraps a fixed calendar (tests, CLI)
func NewStaticStore(cal *Calendar) *Store {
	s := &Store{}
	s.swap(cal)
	return s
}

// Current returns the active snapshot
func (s *Store) Current() *Calendar {
	return s.current.Load()
}

// Path returns the backing file, empty for the embedded table
func (s *Store) Path() string {
	return s.path
}

// LoadedAt returns when the active snapshot was installed
func (s *Store) LoadedAt() time.Time {
	return time.Unix(0, s.loadedAt.Load())
}

// Reload re-reads the backing file. On failure the previous snapshot stays.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("reload calendar: %w", err)
	}
	cal, err := LoadFile(s.path)
	if err != nil {
		return fmt.Errorf("reload calendar: %w", err)
	}
	s.swap(cal)
	s.modTime.Store(info.ModTime().UnixNano())
	return nil
}

// ReloadIfChanged reloads only when the backing file was modified since the
// last load, so the snapshot version stays stable otherwise.
func (s *Store) ReloadIfChanged() (bool, error) {
	if s.path == "" {
		return false, nil
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return false, fmt.Errorf("stat calendar: %w", err)
	}
	if info.ModTime().UnixNano() == s.modTime.Load() {
		return false, nil
	}

	if err := s.Reload(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) swap(cal *Calendar) {
	s.current.Store(cal)
	s.loadedAt.Store(time.Now().UnixNano())
}
