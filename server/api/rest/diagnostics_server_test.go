package rest_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedisam/brunosync/server/api/rest"
	"github.com/hedisam/brunosync/server/internal/diagnostics"
)

func newDiagnosticsMux(t *testing.T) (*http.ServeMux, *diagnostics.Store) {
	t.Helper()

	store := diagnostics.NewStore(diagnostics.DefaultCapacities)
	d := diagnostics.NewDispatcher(newTestLogger(), store)
	d.RecordOperation(diagnostics.Operation{Type: diagnostics.OperationRead, Path: "/c/a.bru"})
	d.RecordOperation(diagnostics.Operation{Type: diagnostics.OperationWrite, Path: "/c/b.bru"})
	d.RecordWatcherEvent(diagnostics.WatcherEvent{Type: diagnostics.EventAdd, Path: "/c/a.bru"})
	d.RecordParsingError(diagnostics.ParsingError{Type: diagnostics.ErrorSyntax, Path: "/c/a.bru", Message: "line 1"})
	store.StartWatcher("c1", time.Now())
	store.SetResourceSample(diagnostics.ResourceSample{CPU: 12.5, Memory: 1024, PID: 42, Uptime: 3})

	mux := http.NewServeMux()
	rest.NewDiagnosticsServer(newTestLogger(), store).Register(mux)
	return mux, store
}

type recordsResponse struct {
	Kind    string            `json:"kind"`
	Records []json.RawMessage `json:"records"`
	Filters map[string]bool   `json:"filters"`
}

func TestDiagnosticsServerRecords(t *testing.T) {
	mux, _ := newDiagnosticsMux(t)

	tests := map[string]struct {
		url           string
		expectedKind  string
		expectedCount int
	}{
		"operations": {url: "/v1/diagnostics/records/operations", expectedKind: "operations", expectedCount: 2},
		"events":     {url: "/v1/diagnostics/records/events", expectedKind: "events", expectedCount: 1},
		"errors":     {url: "/v1/diagnostics/records/Errors", expectedKind: "errors", expectedCount: 1},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			rr := serve(t, mux, http.MethodGet, tc.url, nil)
			require.Equal(t, http.StatusOK, rr.Code)
			resp := decode[recordsResponse](t, rr)
			assert.Equal(t, tc.expectedKind, resp.Kind)
			assert.Len(t, resp.Records, tc.expectedCount)
			assert.NotEmpty(t, resp.Filters)
		})
	}

	t.Run("unknown kind", func(t *testing.T) {
		rr := serve(t, mux, http.MethodGet, "/v1/diagnostics/records/logs", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestDiagnosticsServerFilters(t *testing.T) {
	mux, store := newDiagnosticsMux(t)

	rr := serve(t, mux, http.MethodPost, "/v1/diagnostics/filters/operations", map[string]string{"key": "read"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]bool{"read": false, "write": true}, decode[rest.FiltersResponse](t, rr).Filters)

	// filtered reads hide the toggled key; unfiltered reads see everything
	rr = serve(t, mux, http.MethodGet, "/v1/diagnostics/records/operations", nil)
	assert.Len(t, decode[recordsResponse](t, rr).Records, 1)
	rr = serve(t, mux, http.MethodGet, "/v1/diagnostics/records/operations?unfiltered=true", nil)
	assert.Len(t, decode[recordsResponse](t, rr).Records, 2)

	rr = serve(t, mux, http.MethodPost, "/v1/diagnostics/filters/operations", map[string]bool{"all": false})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]bool{"read": false, "write": false}, store.Filters(diagnostics.FilterOperations))

	rr = serve(t, mux, http.MethodGet, "/v1/diagnostics/filters/operations", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]bool{"read": false, "write": false}, decode[rest.FiltersResponse](t, rr).Filters)

	rr = serve(t, mux, http.MethodPost, "/v1/diagnostics/filters/operations", map[string]string{"key": "delete"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(t, mux, http.MethodPost, "/v1/diagnostics/filters/operations", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(t, mux, http.MethodPost, "/v1/diagnostics/filters/tabs", map[string]string{"key": "read"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDiagnosticsServerClear(t *testing.T) {
	mux, store := newDiagnosticsMux(t)

	rr := serve(t, mux, http.MethodDelete, "/v1/diagnostics/records/operations", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, store.Operations())
	assert.Len(t, store.WatcherEvents(), 1)
	assert.Len(t, store.ParsingErrors(), 1)
}

func TestDiagnosticsServerState(t *testing.T) {
	mux, _ := newDiagnosticsMux(t)

	rr := serve(t, mux, http.MethodGet, "/v1/diagnostics/watchers", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	watchers := decode[rest.WatchersResponse](t, rr).Watchers
	require.Len(t, watchers, 1)
	assert.Equal(t, "c1", watchers[0].CollectionUID)
	assert.Equal(t, diagnostics.WatcherActive, watchers[0].Status)

	rr = serve(t, mux, http.MethodGet, "/v1/diagnostics/resources", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	sample := decode[diagnostics.ResourceSample](t, rr)
	assert.Equal(t, 42, sample.PID)
	assert.InDelta(t, 12.5, sample.CPU, 0.001)

	rr = serve(t, mux, http.MethodGet, "/v1/diagnostics/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	stats := decode[diagnostics.Stats](t, rr)
	assert.Equal(t, 2, stats.Operations.Len)
	assert.Equal(t, diagnostics.DefaultCapacities.Operations, stats.Operations.Capacity)
	assert.Equal(t, 1, stats.Watchers)
}
