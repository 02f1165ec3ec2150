package lastopened

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// Storage is a key-value store of raw documents.
type Storage interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
}

type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

func (s *MemoryStorage) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return slices.Clone(v), ok, nil
}

func (s *MemoryStorage) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = slices.Clone(value)
	return nil
}

// FileStorage keeps every key in one JSON document on disk. Writes go to a temporary file that is renamed over the
// document so a crash never leaves it half written.
type FileStorage struct {
	mu   sync.Mutex
	path string
}

func NewFileStorage(path string) (*FileStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &FileStorage{path: path}, nil
}

func (s *FileStorage) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, false, err
	}
	v, ok := doc[key]
	return v, ok, nil
}

func (s *FileStorage) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	doc[key] = value

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal storage document: %w", err)
	}

	tmp := s.path + ".tmp"
	if err = os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write storage document: %w", err)
	}
	if err = os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace storage document: %w", err)
	}
	return nil
}

func (s *FileStorage) read() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]json.RawMessage), nil
		}
		return nil, fmt.Errorf("read storage document: %w", err)
	}

	doc := make(map[string]json.RawMessage)
	if err = json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal storage document: %w", err)
	}
	return doc, nil
}
