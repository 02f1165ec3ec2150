package diagnostics

import (
	"maps"
	"slices"
)

type FilterCategory string

const (
	FilterEvents     FilterCategory = "events"
	FilterOperations FilterCategory = "operations"
	FilterErrors     FilterCategory = "errors"
)

var filterKeys = map[FilterCategory][]string{
	FilterEvents: {
		string(EventAdd), string(EventChange), string(EventUnlink),
		string(EventAddDir), string(EventUnlinkDir), string(EventError),
	},
	FilterOperations: {string(OperationRead), string(OperationWrite)},
	FilterErrors:     {string(ErrorSyntax), string(ErrorParsing), string(ErrorRuntime)},
}

// FilterKeys returns the fixed keys of a category, or nil for an unknown category.
func FilterKeys(category FilterCategory) []string {
	return slices.Clone(filterKeys[category])
}

// FilterSet is a closed set of boolean category keys. Keys are fixed at construction; operations naming any other
// key are ignored.
type FilterSet struct {
	keys   []string
	values map[string]bool
}

// NewFilterSet returns a set with every key enabled.
func NewFilterSet(keys ...string) *FilterSet {
	fs := &FilterSet{
		keys:   slices.Clone(keys),
		values: make(map[string]bool, len(keys)),
	}
	for k := range slices.Values(keys) {
		fs.values[k] = true
	}
	return fs
}

func newCategoryFilter(category FilterCategory) *FilterSet {
	return NewFilterSet(filterKeys[category]...)
}

// Toggle flips one key. It returns false if the key is not part of the set.
func (fs *FilterSet) Toggle(key string) bool {
	v, ok := fs.values[key]
	if !ok {
		return false
	}
	fs.values[key] = !v
	return true
}

// Set assigns one key. It returns false if the key is not part of the set.
func (fs *FilterSet) Set(key string, enabled bool) bool {
	if _, ok := fs.values[key]; !ok {
		return false
	}
	fs.values[key] = enabled
	return true
}

// SetAll assigns every key the same value.
func (fs *FilterSet) SetAll(enabled bool) {
	for k := range fs.values {
		fs.values[k] = enabled
	}
}

// Enabled reports whether key is on. Unknown keys are off.
func (fs *FilterSet) Enabled(key string) bool {
	return fs.values[key]
}

func (fs *FilterSet) Keys() []string {
	return slices.Clone(fs.keys)
}

func (fs *FilterSet) Snapshot() map[string]bool {
	return maps.Clone(fs.values)
}
