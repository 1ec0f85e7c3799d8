// Package idstore persists small string identifiers, such as the
// installation id, across runs.
package idstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Store reads and writes string identifiers by key.
type Store interface {
	GetString(key string) (string, bool)
	SetString(key, value string) error
}

// ErrEmptyKey is returned when writing an empty key.
var ErrEmptyKey = errors.New("identifier key must not be empty")

// fileFormat is the on-disk layout.
type fileFormat struct {
	Identifiers map[string]string `yaml:"identifiers"`
}

// FileStore keeps identifiers in a YAML file. Every SetString rewrites the
// file atomically.
type FileStore struct {
	path string

	mu     sync.RWMutex
	values map[string]string
}

// OpenFile loads the store at path. A missing file yields an empty store; the
// file and its directory are created on the first write.
func OpenFile(path string) (*FileStore, error) {
	s := &FileStore{
		path:   path,
		values: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read identifier store %s: %w", path, err)
	}

	var contents fileFormat
	if err := yaml.Unmarshal(data, &contents); err != nil {
		return nil, fmt.Errorf("parse identifier store %s: %w", path, err)
	}
	for k, v := range contents.Identifiers {
		s.values[k] = v
	}
	return s, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) GetString(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *FileStore) SetString(key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, existed := s.values[key]
	s.values[key] = value
	if err := s.flush(); err != nil {
		if existed {
			s.values[key] = previous
		} else {
			delete(s.values, key)
		}
		return err
	}
	return nil
}

// Keys returns the stored keys, sorted.
func (s *FileStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.values)
}

// flush must be called with mu held.
func (s *FileStore) flush() error {
	data, err := yaml.Marshal(fileFormat{Identifiers: s.values})
	if err != nil {
		return fmt.Errorf("encode identifier store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create identifier store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".identifiers-*.yaml")
	if err != nil {
		return fmt.Errorf("create identifier store: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write identifier store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write identifier store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace identifier store: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory returns a MemoryStore seeded with initial, which may be nil.
func NewMemory(initial map[string]string) *MemoryStore {
	values := make(map[string]string, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &MemoryStore{values: values}
}

func (s *MemoryStore) GetString(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemoryStore) SetString(key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Keys returns the stored keys, sorted.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.values)
}

func sortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
