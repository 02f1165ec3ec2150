package diagnostics_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedisam/brunosync/server/internal/diagnostics"
)

func TestBoundedBuffers(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		capacity int
		appended int
		expected []string
	}{
		"under capacity": {
			capacity: 3,
			appended: 2,
			expected: []string{"op-1", "op-2"},
		},
		"exactly full": {
			capacity: 3,
			appended: 3,
			expected: []string{"op-1", "op-2", "op-3"},
		},
		"wraps around twice": {
			capacity: 3,
			appended: 8,
			expected: []string{"op-6", "op-7", "op-8"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s := diagnostics.NewStore(diagnostics.Capacities{Operations: tc.capacity, WatcherEvents: 1, ParsingErrors: 1})
			for i := 1; i <= tc.appended; i++ {
				s.AppendOperation(diagnostics.Operation{ID: fmt.Sprintf("op-%d", i), Type: diagnostics.OperationRead})
			}

			var got []string
			for _, op := range s.Operations() {
				got = append(got, op.ID)
			}
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestDefaultCapacityEvictsOldestFirst(t *testing.T) {
	t.Parallel()

	s := diagnostics.NewStore(diagnostics.DefaultCapacities)
	for i := 1; i <= 1001; i++ {
		s.AppendOperation(diagnostics.Operation{ID: fmt.Sprintf("op-%d", i), Type: diagnostics.OperationWrite})
	}
	for i := 1; i <= 501; i++ {
		s.AppendParsingError(diagnostics.ParsingError{ID: fmt.Sprintf("pe-%d", i), Type: diagnostics.ErrorSyntax})
	}

	ops := s.Operations()
	require.Len(t, ops, 1000)
	assert.Equal(t, "op-2", ops[0].ID)
	assert.Equal(t, "op-1001", ops[len(ops)-1].ID)

	errs := s.ParsingErrors()
	require.Len(t, errs, 500)
	assert.Equal(t, "pe-2", errs[0].ID)

	stats := s.Stats()
	assert.Equal(t, diagnostics.BufferStats{Len: 1000, Capacity: 1000}, stats.Operations)
	assert.Equal(t, diagnostics.BufferStats{Len: 500, Capacity: 500}, stats.ParsingErrors)
	assert.Equal(t, diagnostics.BufferStats{Len: 0, Capacity: 1000}, stats.WatcherEvents)
}

func TestCollectionStats(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		watchers []string
		events   []diagnostics.WatcherEvent
		errors   []diagnostics.ParsingError
		want     map[string]diagnostics.CollectionStats
	}{
		"empty store": {
			want: map[string]diagnostics.CollectionStats{},
		},
		"watched collection without records": {
			watchers: []string{"c1"},
			want:     map[string]diagnostics.CollectionStats{"c1": {}},
		},
		"events and errors per collection": {
			watchers: []string{"c1", "c2"},
			events: []diagnostics.WatcherEvent{
				{Type: diagnostics.EventAdd, CollectionUID: "c1"},
				{Type: diagnostics.EventAdd, CollectionUID: "c1"},
				{Type: diagnostics.EventError, CollectionUID: "c2"},
				{Type: diagnostics.EventAdd},
			},
			errors: []diagnostics.ParsingError{
				{Type: diagnostics.ErrorSyntax, Details: diagnostics.Details{diagnostics.DetailCollectionUID: "c2"}},
				{Type: diagnostics.ErrorSyntax, Details: diagnostics.Details{diagnostics.DetailCollectionUID: "c3"}},
				{Type: diagnostics.ErrorSyntax},
			},
			want: map[string]diagnostics.CollectionStats{
				"c1": {Events: 2},
				"c2": {Events: 1, Errors: 1},
				"c3": {Errors: 1},
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			s := diagnostics.NewStore(diagnostics.DefaultCapacities)
			for _, uid := range tc.watchers {
				s.StartWatcher(uid, time.Now())
			}
			for _, ev := range tc.events {
				s.AppendWatcherEvent(ev)
			}
			for _, pe := range tc.errors {
				s.AppendParsingError(pe)
			}
			assert.Equal(t, tc.want, s.Stats().Collections)
		})
	}

	t.Run("cleared records are not counted", func(t *testing.T) {
		t.Parallel()
		s := diagnostics.NewStore(diagnostics.DefaultCapacities)
		s.AppendWatcherEvent(diagnostics.WatcherEvent{Type: diagnostics.EventAdd, CollectionUID: "c1"})
		s.ClearWatcherEvents()
		assert.Empty(t, s.Stats().Collections)
	})
}

func TestFilters(t *testing.T) {
	t.Parallel()

	t.Run("toggle all", func(t *testing.T) {
		t.Parallel()
		s := diagnostics.NewStore(diagnostics.DefaultCapacities)

		filters := s.Filters(diagnostics.FilterEvents)
		require.Len(t, filters, 6)
		for key, enabled := range filters {
			assert.True(t, enabled, key)
		}

		require.True(t, s.SetAllFilters(diagnostics.FilterEvents, false))
		for key, enabled := range s.Filters(diagnostics.FilterEvents) {
			assert.False(t, enabled, key)
		}

		// mixed state, then everything back on
		require.True(t, s.ToggleFilter(diagnostics.FilterEvents, "change"))
		require.True(t, s.SetAllFilters(diagnostics.FilterEvents, true))
		for key, enabled := range s.Filters(diagnostics.FilterEvents) {
			assert.True(t, enabled, key)
		}
	})

	t.Run("toggle one leaves the others", func(t *testing.T) {
		t.Parallel()
		s := diagnostics.NewStore(diagnostics.DefaultCapacities)

		require.True(t, s.ToggleFilter(diagnostics.FilterOperations, "read"))
		assert.Equal(t, map[string]bool{"read": false, "write": true}, s.Filters(diagnostics.FilterOperations))
		assert.Equal(t, map[string]bool{"syntax": true, "parsing": true, "runtime": true}, s.Filters(diagnostics.FilterErrors))
	})

	t.Run("unknown keys and categories are rejected", func(t *testing.T) {
		t.Parallel()
		s := diagnostics.NewStore(diagnostics.DefaultCapacities)

		assert.False(t, s.ToggleFilter(diagnostics.FilterOperations, "delete"))
		assert.False(t, s.ToggleFilter("nope", "read"))
		assert.False(t, s.SetAllFilters("nope", true))
		assert.Nil(t, s.Filters("nope"))
		assert.Len(t, s.Filters(diagnostics.FilterOperations), 2)
	})

	t.Run("filters apply at read time only", func(t *testing.T) {
		t.Parallel()
		s := diagnostics.NewStore(diagnostics.DefaultCapacities)
		s.AppendWatcherEvent(diagnostics.WatcherEvent{ID: "1", Type: diagnostics.EventAdd})
		s.AppendWatcherEvent(diagnostics.WatcherEvent{ID: "2", Type: diagnostics.EventChange})

		s.ToggleFilter(diagnostics.FilterEvents, "add")
		s.AppendWatcherEvent(diagnostics.WatcherEvent{ID: "3", Type: diagnostics.EventAdd})

		filtered := s.FilteredWatcherEvents()
		require.Len(t, filtered, 1)
		assert.Equal(t, "2", filtered[0].ID)
		assert.Len(t, s.WatcherEvents(), 3)

		s.ToggleFilter(diagnostics.FilterEvents, "add")
		assert.Len(t, s.FilteredWatcherEvents(), 3)
	})
}

func TestWatcherLifecycle(t *testing.T) {
	t.Parallel()

	startedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("start then error", func(t *testing.T) {
		t.Parallel()
		s := diagnostics.NewStore(diagnostics.DefaultCapacities)

		info := s.StartWatcher("X", startedAt)
		assert.Equal(t, diagnostics.WatcherActive, info.Status)

		require.True(t, s.UpdateStatus("X", diagnostics.WatcherError, "disk full"))
		got, ok := s.Watcher("X")
		require.True(t, ok)
		assert.Equal(t, diagnostics.WatcherInfo{
			CollectionUID: "X",
			Status:        diagnostics.WatcherError,
			StartedAt:     startedAt,
			Error:         "disk full",
		}, got)
	})

	t.Run("warning without status change", func(t *testing.T) {
		t.Parallel()
		s := diagnostics.NewStore(diagnostics.DefaultCapacities)
		s.StartWatcher("X", startedAt)

		require.True(t, s.UpdateStatus("X", diagnostics.WatcherActive, "too many files"))
		got, _ := s.Watcher("X")
		assert.Equal(t, diagnostics.WatcherActive, got.Status)
		assert.Equal(t, "too many files", got.Error)
	})

	t.Run("empty message keeps the last error", func(t *testing.T) {
		t.Parallel()
		s := diagnostics.NewStore(diagnostics.DefaultCapacities)
		s.StartWatcher("X", startedAt)

		require.True(t, s.UpdateStatus("X", diagnostics.WatcherActive, "event queue overflowed"))
		require.True(t, s.UpdateStatus("X", diagnostics.WatcherActive, ""))
		got, _ := s.Watcher("X")
		assert.Equal(t, diagnostics.WatcherActive, got.Status)
		assert.Equal(t, "event queue overflowed", got.Error)

		require.True(t, s.UpdateStatus("X", diagnostics.WatcherError, ""))
		got, _ = s.Watcher("X")
		assert.Equal(t, diagnostics.WatcherError, got.Status)
		assert.Equal(t, "event queue overflowed", got.Error)

		// a restart starts clean
		s.StartWatcher("X", startedAt)
		got, _ = s.Watcher("X")
		assert.Empty(t, got.Error)
	})

	t.Run("update after remove is a no-op", func(t *testing.T) {
		t.Parallel()
		s := diagnostics.NewStore(diagnostics.DefaultCapacities)
		s.StartWatcher("X", startedAt)

		require.True(t, s.RemoveWatcher("X"))
		assert.False(t, s.UpdateStatus("X", diagnostics.WatcherActive, ""))
		_, ok := s.Watcher("X")
		assert.False(t, ok)
		assert.Empty(t, s.Watchers())
		assert.False(t, s.RemoveWatcher("X"))
	})

	t.Run("one entry per collection", func(t *testing.T) {
		t.Parallel()
		s := diagnostics.NewStore(diagnostics.DefaultCapacities)
		s.StartWatcher("b", startedAt)
		s.StartWatcher("a", startedAt)
		s.StartWatcher("a", startedAt.Add(time.Minute))

		watchers := s.Watchers()
		require.Len(t, watchers, 2)
		assert.Equal(t, "a", watchers[0].CollectionUID)
		assert.Equal(t, startedAt.Add(time.Minute), watchers[0].StartedAt)
	})
}

func TestResourceSampleIsReplaced(t *testing.T) {
	t.Parallel()

	s := diagnostics.NewStore(diagnostics.DefaultCapacities)
	s.SetResourceSample(diagnostics.ResourceSample{CPU: 10, Memory: 100, PID: 1})
	s.SetResourceSample(diagnostics.ResourceSample{CPU: 5, PID: 2})

	assert.Equal(t, diagnostics.ResourceSample{CPU: 5, PID: 2}, s.ResourceSample())
}

func TestStoreMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := diagnostics.NewMetrics(reg)
	require.NoError(t, err)

	s := diagnostics.NewStore(diagnostics.Capacities{Operations: 1, WatcherEvents: 1, ParsingErrors: 1}, diagnostics.WithMetrics(m))
	s.AppendOperation(diagnostics.Operation{Type: diagnostics.OperationRead})
	s.AppendOperation(diagnostics.Operation{Type: diagnostics.OperationRead})
	s.StartWatcher("a", time.Now())
	s.StartWatcher("b", time.Now())
	s.UpdateStatus("b", diagnostics.WatcherError, "boom")

	expected := `
# HELP brunosync_diagnostics_evicted_total Diagnostic records dropped from the front of a full buffer, labeled by kind
# TYPE brunosync_diagnostics_evicted_total counter
brunosync_diagnostics_evicted_total{kind="operation"} 1
# HELP brunosync_watchers Collection watchers currently registered, labeled by status
# TYPE brunosync_watchers gauge
brunosync_watchers{status="active"} 1
brunosync_watchers{status="error"} 1
`
	err = testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"brunosync_diagnostics_evicted_total", "brunosync_watchers")
	require.NoError(t, err)

	// registering twice on the same registry fails
	_, err = diagnostics.NewMetrics(reg)
	assert.Error(t, err)
}
