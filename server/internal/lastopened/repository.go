package lastopened

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
)

const (
	// Capacity is the number of workspaces remembered.
	Capacity = 10

	storageKey = "lastOpenedWorkspaces"
)

// Repository remembers the most recently opened workspace paths, most recent first.
type Repository struct {
	mu      sync.Mutex
	storage Storage
}

func New(storage Storage) *Repository {
	return &Repository{storage: storage}
}

func (r *Repository) GetAll() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

// Add puts path at the front. A path already present is moved rather than duplicated; the oldest paths beyond
// Capacity are dropped.
func (r *Repository) Add(path string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	paths, err := r.load()
	if err != nil {
		return nil, err
	}

	path = filepath.Clean(path)
	paths = slices.DeleteFunc(paths, func(p string) bool { return p == path })
	paths = slices.Insert(paths, 0, path)
	if len(paths) > Capacity {
		paths = paths[:Capacity]
	}

	return paths, r.save(paths)
}

// Remove forgets path. Removing an unknown path is not an error.
func (r *Repository) Remove(path string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	paths, err := r.load()
	if err != nil {
		return nil, err
	}

	path = filepath.Clean(path)
	paths = slices.DeleteFunc(paths, func(p string) bool { return p == path })
	return paths, r.save(paths)
}

func (r *Repository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save([]string{})
}

func (r *Repository) load() ([]string, error) {
	data, ok, err := r.storage.Get(storageKey)
	if err != nil {
		return nil, fmt.Errorf("get last opened workspaces: %w", err)
	}
	paths := []string{}
	if !ok {
		return paths, nil
	}
	if err = json.Unmarshal(data, &paths); err != nil {
		return nil, fmt.Errorf("unmarshal last opened workspaces: %w", err)
	}
	return paths, nil
}

func (r *Repository) save(paths []string) error {
	data, err := json.Marshal(paths)
	if err != nil {
		return fmt.Errorf("marshal last opened workspaces: %w", err)
	}
	if err = r.storage.Set(storageKey, data); err != nil {
		return fmt.Errorf("set last opened workspaces: %w", err)
	}
	return nil
}
