package collection

import (
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hedisam/brunosync/lib/bru"
)

type EntryKind string

const (
	EntryRequest     EntryKind = "request"
	EntryFolder      EntryKind = "folder"
	EntryCollection  EntryKind = "collection"
	EntryEnvironment EntryKind = "environment"
)

// Entry is the in-memory model of one collection file. Exactly one of Item, Root and Environment is set according
// to Kind. A file that failed to convert keeps its entry with Error set; requests then hold the placeholder item.
type Entry struct {
	Path        string           `json:"path"`
	Kind        EntryKind        `json:"kind"`
	Item        *bru.Item        `json:"item,omitempty"`
	Root        *bru.Collection  `json:"root,omitempty"`
	Environment *bru.Environment `json:"environment,omitempty"`
	Error       string           `json:"error,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
}

// KindOf tells which model a collection file maps to.
func KindOf(c *Collection, path string) EntryKind {
	switch filepath.Base(path) {
	case RootFile:
		if filepath.Dir(path) == c.Path {
			return EntryCollection
		}
	case FolderFile:
		return EntryFolder
	}
	if filepath.Base(filepath.Dir(path)) == EnvironmentsDir && filepath.Dir(filepath.Dir(path)) == c.Path {
		return EntryEnvironment
	}
	return EntryRequest
}

// Index holds the latest model of every file of one collection, keyed by path.
type Index struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	// removals remembers when a path was last removed so a late conversion result cannot resurrect it.
	removals map[string]time.Time
}

func NewIndex() *Index {
	return &Index{
		entries:  make(map[string]*Entry),
		removals: make(map[string]time.Time),
	}
}

// Put stores e unless the index already knows a newer state of the same path. It reports whether e was stored.
func (i *Index) Put(e *Entry) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if existing, ok := i.entries[e.Path]; ok && existing.Timestamp.After(e.Timestamp) {
		return false
	}
	if removedAt, ok := i.removals[e.Path]; ok {
		if removedAt.After(e.Timestamp) {
			return false
		}
		delete(i.removals, e.Path)
	}

	i.entries[e.Path] = e
	return true
}

// Remove drops the entry of path unless it is newer than ts.
func (i *Index) Remove(path string, ts time.Time) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.remove(path, ts)
}

// RemoveDir drops every entry under dir and returns how many were removed.
func (i *Index) RemoveDir(dir string, ts time.Time) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	prefix := filepath.Clean(dir) + string(filepath.Separator)
	var n int
	for path := range maps.Keys(i.entries) {
		if strings.HasPrefix(path, prefix) && i.remove(path, ts) {
			n++
		}
	}
	return n
}

func (i *Index) remove(path string, ts time.Time) bool {
	existing, ok := i.entries[path]
	if ok && existing.Timestamp.After(ts) {
		return false
	}
	if removedAt, seen := i.removals[path]; !seen || ts.After(removedAt) {
		i.removals[path] = ts
	}
	if !ok {
		return false
	}
	delete(i.entries, path)
	return true
}

func (i *Index) Get(path string) (*Entry, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	e, ok := i.entries[path]
	return e, ok
}

// Entries returns every entry ordered by path.
func (i *Index) Entries() []*Entry {
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make([]*Entry, 0, len(i.entries))
	for path := range slices.Values(slices.Sorted(maps.Keys(i.entries))) {
		out = append(out, i.entries[path])
	}
	return out
}

// Items returns the request entries ordered by their sequence number, then path.
func (i *Index) Items() []*Entry {
	var out []*Entry
	for e := range slices.Values(i.Entries()) {
		if e.Kind == EntryRequest {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b *Entry) int {
		return a.Item.Seq - b.Item.Seq
	})
	return out
}

func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}
