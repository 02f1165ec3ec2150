package diagnostics

import (
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
)

// Capacities bounds the three record buffers of a Store.
type Capacities struct {
	Operations    int `yaml:"operations"`
	WatcherEvents int `yaml:"events"`
	ParsingErrors int `yaml:"errors"`
}

var DefaultCapacities = Capacities{
	Operations:    1000,
	WatcherEvents: 1000,
	ParsingErrors: 500,
}

type StoreOption func(s *Store)

// WithMetrics makes the store report appends, evictions and watcher counts.
func WithMetrics(m *Metrics) StoreOption {
	return func(s *Store) {
		s.metrics = m
	}
}

// Store owns every piece of diagnostic state: the bounded record buffers, the watcher table, the latest resource
// sample and the read-time filters. All mutations are serialized by its lock; readers get copies.
type Store struct {
	mu            sync.RWMutex
	operations    *ring[Operation]
	watcherEvents *ring[WatcherEvent]
	parsingErrors *ring[ParsingError]
	watchers      map[string]*WatcherInfo
	resources     ResourceSample
	filters       map[FilterCategory]*FilterSet
	metrics       *Metrics
}

func NewStore(caps Capacities, opts ...StoreOption) *Store {
	s := &Store{
		operations:    newRing[Operation](caps.Operations),
		watcherEvents: newRing[WatcherEvent](caps.WatcherEvents),
		parsingErrors: newRing[ParsingError](caps.ParsingErrors),
		watchers:      make(map[string]*WatcherInfo),
		filters: map[FilterCategory]*FilterSet{
			FilterEvents:     newCategoryFilter(FilterEvents),
			FilterOperations: newCategoryFilter(FilterOperations),
			FilterErrors:     newCategoryFilter(FilterErrors),
		},
	}
	for opt := range slices.Values(opts) {
		opt(s)
	}
	return s
}

func (s *Store) AppendOperation(op Operation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := s.operations.push(op)
	s.metrics.appended(KindOperation, string(op.Type), evicted)
}

func (s *Store) AppendWatcherEvent(ev WatcherEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := s.watcherEvents.push(ev)
	s.metrics.appended(KindWatcherEvent, string(ev.Type), evicted)
}

func (s *Store) AppendParsingError(pe ParsingError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := s.parsingErrors.push(pe)
	s.metrics.appended(KindParsingError, string(pe.Type), evicted)
}

// Operations returns every retained operation, oldest first, regardless of filters.
func (s *Store) Operations() []Operation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.operations.items()
}

func (s *Store) WatcherEvents() []WatcherEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.watcherEvents.items()
}

func (s *Store) ParsingErrors() []ParsingError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.parsingErrors.items()
}

// FilteredOperations returns the retained operations whose type is enabled in the operation filter.
func (s *Store) FilteredOperations() []Operation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f := s.filters[FilterOperations]
	return slices.DeleteFunc(s.operations.items(), func(op Operation) bool {
		return !f.Enabled(string(op.Type))
	})
}

func (s *Store) FilteredWatcherEvents() []WatcherEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f := s.filters[FilterEvents]
	return slices.DeleteFunc(s.watcherEvents.items(), func(ev WatcherEvent) bool {
		return !f.Enabled(string(ev.Type))
	})
}

func (s *Store) FilteredParsingErrors() []ParsingError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f := s.filters[FilterErrors]
	return slices.DeleteFunc(s.parsingErrors.items(), func(pe ParsingError) bool {
		return !f.Enabled(string(pe.Type))
	})
}

func (s *Store) ClearOperations() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operations.clear()
}

func (s *Store) ClearWatcherEvents() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watcherEvents.clear()
}

func (s *Store) ClearParsingErrors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parsingErrors.clear()
}

// ToggleFilter flips one key of a category filter. It reports false for an unknown category or key.
func (s *Store) ToggleFilter(category FilterCategory, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.filters[category]
	if !ok {
		return false
	}
	return f.Toggle(key)
}

// SetAllFilters turns every key of a category filter on or off.
func (s *Store) SetAllFilters(category FilterCategory, enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.filters[category]
	if !ok {
		return false
	}
	f.SetAll(enabled)
	return true
}

// Filters returns a copy of a category filter's values, or nil for an unknown category.
func (s *Store) Filters(category FilterCategory) map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.filters[category]
	if !ok {
		return nil
	}
	return f.Snapshot()
}

// StartWatcher registers a watcher as active. A previous entry for the same collection is replaced.
func (s *Store) StartWatcher(collectionUID string, startedAt time.Time) WatcherInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := &WatcherInfo{
		CollectionUID: collectionUID,
		Status:        WatcherActive,
		StartedAt:     startedAt,
	}
	s.watchers[collectionUID] = info
	s.metrics.setWatchers(s.watchers)
	return *info
}

// UpdateStatus changes the status of a registered watcher. A non-empty errMsg replaces its error message; an empty
// one keeps the last message. It is a no-op, returning false, when the collection has no watcher.
func (s *Store) UpdateStatus(collectionUID string, status WatcherStatus, errMsg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.watchers[collectionUID]
	if !ok {
		return false
	}
	info.Status = status
	if errMsg != "" {
		info.Error = errMsg
	}
	s.metrics.setWatchers(s.watchers)
	return true
}

func (s *Store) RemoveWatcher(collectionUID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.watchers[collectionUID]; !ok {
		return false
	}
	delete(s.watchers, collectionUID)
	s.metrics.setWatchers(s.watchers)
	return true
}

func (s *Store) Watcher(collectionUID string) (WatcherInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.watchers[collectionUID]
	if !ok {
		return WatcherInfo{}, false
	}
	return *info, true
}

// Watchers returns every registered watcher ordered by collection uid.
func (s *Store) Watchers() []WatcherInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]WatcherInfo, 0, len(s.watchers))
	for uid := range slices.Values(slices.Sorted(maps.Keys(s.watchers))) {
		out = append(out, *s.watchers[uid])
	}
	return out
}

// SetResourceSample replaces the current sample.
func (s *Store) SetResourceSample(sample ResourceSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources = sample
}

func (s *Store) ResourceSample() ResourceSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resources
}

// Stats summarizes buffer occupancy.
type Stats struct {
	Operations    BufferStats `json:"operations"`
	WatcherEvents BufferStats `json:"watcherEvents"`
	ParsingErrors BufferStats `json:"parsingErrors"`
	Watchers      int         `json:"watchers"`
	// Collections counts the retained records of every watched or recorded collection, keyed by collection uid.
	Collections map[string]CollectionStats `json:"collections"`
}

// CollectionStats counts the retained watcher events and parsing errors of one collection.
type CollectionStats struct {
	Events int `json:"events"`
	Errors int `json:"errors"`
}

type BufferStats struct {
	Len      int `json:"len"`
	Capacity int `json:"capacity"`
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Operations:    BufferStats{Len: s.operations.len(), Capacity: s.operations.capacity()},
		WatcherEvents: BufferStats{Len: s.watcherEvents.len(), Capacity: s.watcherEvents.capacity()},
		ParsingErrors: BufferStats{Len: s.parsingErrors.len(), Capacity: s.parsingErrors.capacity()},
		Watchers:      len(s.watchers),
		Collections:   s.collectionStats(),
	}
}

func (s *Store) collectionStats() map[string]CollectionStats {
	out := make(map[string]CollectionStats, len(s.watchers))
	for uid := range maps.Keys(s.watchers) {
		out[uid] = CollectionStats{}
	}
	for ev := range slices.Values(s.watcherEvents.items()) {
		if ev.CollectionUID == "" {
			continue
		}
		cs := out[ev.CollectionUID]
		cs.Events++
		out[ev.CollectionUID] = cs
	}
	for pe := range slices.Values(s.parsingErrors.items()) {
		uid, _ := pe.Details[DetailCollectionUID].(string)
		if uid == "" {
			continue
		}
		cs := out[uid]
		cs.Errors++
		out[uid] = cs
	}
	return out
}

// ParseFilterCategory maps user input such as "events" or "Errors" to a category.
func ParseFilterCategory(s string) (FilterCategory, bool) {
	c := FilterCategory(strings.ToLower(strings.TrimSpace(s)))
	_, ok := filterKeys[c]
	return c, ok
}
