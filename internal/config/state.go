// Curatarr - AI Recommendation Collections for Media Servers
// Copyright 2026 Curatarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curatarr/curatarr

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// state is the persisted runtime state document.
type state struct {
	LastSyncTime time.Time `json:"lastSyncTime"`
}

// StateStore persists engine runtime state to a JSON file. Writes go
// through a temp file and rename so a crash mid-write never corrupts the
// document. Concurrent writers are serialized; last writer wins.
type StateStore struct {
	mu   sync.Mutex
	path string
}

// NewStateStore creates a store backed by the given file path. The file is
// created lazily on first write.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// LastSyncTime returns the persisted last sync time, or the zero time when
// no state has been recorded yet.
func (s *StateStore) LastSyncTime() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to read state file %s: %w", s.path, err)
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return time.Time{}, fmt.Errorf("failed to parse state file %s: %w", s.path, err)
	}
	return st.LastSyncTime, nil
}

// SetLastSyncTime records the given time as the last successful sync.
func (s *StateStore) SetLastSyncTime(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(state{LastSyncTime: t}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace state file %s: %w", s.path, err)
	}
	return nil
}
