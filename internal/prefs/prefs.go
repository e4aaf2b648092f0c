// Package prefs provides the device-local scalar key-value store backing the
// checklist catalog and the session pointer. Values live in a single JSON
// file that is atomically replaced on every write.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/veshchi/backend/internal/faults"
)

// Store is the scalar key-value contract consumed by the local list store
// and the credential service.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
	Has(key string) bool
}

// FileStore persists the key-value map as one JSON document on disk.
type FileStore struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// Open loads the store at path. A missing file yields an empty store; an
// undecodable file is reported as a corrupt-data fault so the caller decides
// whether to reset or abort.
func Open(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("prefs: path is required")
	}

	store := &FileStore{path: path, values: map[string]string{}}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("prefs: read %s: %w", path, err)
	}
	if len(raw) == 0 {
		return store, nil
	}
	if err := json.Unmarshal(raw, &store.values); err != nil {
		return nil, faults.Wrap(faults.KindCorruptData, "preferences file is not decodable", err)
	}
	return store, nil
}

// Get returns the value stored under key and whether it was present.
func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	return value, ok
}

// Has reports whether key is present.
func (s *FileStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	return ok
}

// Set stores value under key and flushes the file.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.flushLocked()
}

// Delete removes key and flushes the file. Deleting an absent key is a no-op.
func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.flushLocked()
}

func (s *FileStore) flushLocked() error {
	encoded, err := json.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("prefs: encode: %w", err)
	}

	directory := filepath.Dir(s.path)
	temp, err := os.CreateTemp(directory, ".prefs-*")
	if err != nil {
		return fmt.Errorf("prefs: temp file: %w", err)
	}
	tempPath := temp.Name()
	if _, err := temp.Write(encoded); err != nil {
		temp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("prefs: write %s: %w", tempPath, err)
	}
	if err := temp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("prefs: close %s: %w", tempPath, err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("prefs: replace %s: %w", s.path, err)
	}
	return nil
}

// GetInt reads an integer value, returning fallback when the key is absent
// or does not parse.
func GetInt(store Store, key string, fallback int) int {
	raw, ok := store.Get(key)
	if !ok {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// SetInt stores an integer value under key.
func SetInt(store Store, key string, value int) error {
	return store.Set(key, strconv.Itoa(value))
}
