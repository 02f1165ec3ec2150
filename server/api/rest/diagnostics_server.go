package rest

import (
	"context"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/hedisam/brunosync/server/internal/diagnostics"
)

type DiagnosticsStore interface {
	Operations() []diagnostics.Operation
	WatcherEvents() []diagnostics.WatcherEvent
	ParsingErrors() []diagnostics.ParsingError
	FilteredOperations() []diagnostics.Operation
	FilteredWatcherEvents() []diagnostics.WatcherEvent
	FilteredParsingErrors() []diagnostics.ParsingError
	ClearOperations()
	ClearWatcherEvents()
	ClearParsingErrors()
	ToggleFilter(category diagnostics.FilterCategory, key string) bool
	SetAllFilters(category diagnostics.FilterCategory, enabled bool) bool
	Filters(category diagnostics.FilterCategory) map[string]bool
	Watchers() []diagnostics.WatcherInfo
	ResourceSample() diagnostics.ResourceSample
	Stats() diagnostics.Stats
}

// DiagnosticsServer serves the read side of the diagnostic store. The record kinds in routes are the filter
// categories: operations, events and errors.
type DiagnosticsServer struct {
	logger *logrus.Logger
	store  DiagnosticsStore
}

func NewDiagnosticsServer(logger *logrus.Logger, store DiagnosticsStore) *DiagnosticsServer {
	return &DiagnosticsServer{
		logger: logger,
		store:  store,
	}
}

func (s *DiagnosticsServer) Register(mux Mux) {
	RegisterFunc(s.logger, mux, http.MethodGet, "/v1/diagnostics/watchers", s.Watchers)
	RegisterFunc(s.logger, mux, http.MethodGet, "/v1/diagnostics/resources", s.Resources)
	RegisterFunc(s.logger, mux, http.MethodGet, "/v1/diagnostics/stats", s.Stats)
	RegisterFunc(s.logger, mux, http.MethodGet, "/v1/diagnostics/filters/{category}", s.Filters)
	RegisterFunc(s.logger, mux, http.MethodPost, "/v1/diagnostics/filters/{category}", s.SetFilter)
	RegisterFunc(s.logger, mux, http.MethodGet, "/v1/diagnostics/records/{kind}", s.Records)
	RegisterFunc(s.logger, mux, http.MethodDelete, "/v1/diagnostics/records/{kind}", s.Clear)
}

func (s *DiagnosticsServer) Records(_ context.Context, req *RecordsRequest) (*RecordsResponse, error) {
	category, err := parseCategory(req.Kind)
	if err != nil {
		return nil, err
	}
	unfiltered, _ := strconv.ParseBool(req.Unfiltered)

	var records any
	switch category {
	case diagnostics.FilterOperations:
		records = pick(unfiltered, s.store.Operations, s.store.FilteredOperations)
	case diagnostics.FilterEvents:
		records = pick(unfiltered, s.store.WatcherEvents, s.store.FilteredWatcherEvents)
	case diagnostics.FilterErrors:
		records = pick(unfiltered, s.store.ParsingErrors, s.store.FilteredParsingErrors)
	}

	return &RecordsResponse{
		Kind:    category,
		Records: records,
		Filters: s.store.Filters(category),
	}, nil
}

func pick[T any](unfiltered bool, all, filtered func() []T) []T {
	if unfiltered {
		return all()
	}
	return filtered()
}

func (s *DiagnosticsServer) Clear(ctx context.Context, req *RecordsRequest) (*ClearResponse, error) {
	category, err := parseCategory(req.Kind)
	if err != nil {
		return nil, err
	}

	switch category {
	case diagnostics.FilterOperations:
		s.store.ClearOperations()
	case diagnostics.FilterEvents:
		s.store.ClearWatcherEvents()
	case diagnostics.FilterErrors:
		s.store.ClearParsingErrors()
	}
	s.logger.WithContext(ctx).WithField("kind", category).Debug("Cleared diagnostic records")

	return &ClearResponse{Kind: category}, nil
}

func (s *DiagnosticsServer) Filters(_ context.Context, req *FilterRequest) (*FiltersResponse, error) {
	category, err := parseCategory(req.Category)
	if err != nil {
		return nil, err
	}
	return &FiltersResponse{Category: category, Filters: s.store.Filters(category)}, nil
}

// SetFilter toggles one key of a category, or turns every key on or off when All is set.
func (s *DiagnosticsServer) SetFilter(_ context.Context, req *FilterRequest) (*FiltersResponse, error) {
	category, err := parseCategory(req.Category)
	if err != nil {
		return nil, err
	}

	switch {
	case req.All != nil:
		s.store.SetAllFilters(category, *req.All)
	case req.Key != "":
		if !s.store.ToggleFilter(category, req.Key) {
			return nil, NewErrf(http.StatusBadRequest, "unknown %s filter %q", category, req.Key)
		}
	default:
		return nil, NewErrf(http.StatusBadRequest, "invalid request body: one of 'key' or 'all' is required")
	}

	return &FiltersResponse{Category: category, Filters: s.store.Filters(category)}, nil
}

func (s *DiagnosticsServer) Watchers(context.Context, *struct{}) (*WatchersResponse, error) {
	return &WatchersResponse{Watchers: s.store.Watchers()}, nil
}

func (s *DiagnosticsServer) Resources(context.Context, *struct{}) (*diagnostics.ResourceSample, error) {
	sample := s.store.ResourceSample()
	return &sample, nil
}

func (s *DiagnosticsServer) Stats(context.Context, *struct{}) (*diagnostics.Stats, error) {
	stats := s.store.Stats()
	return &stats, nil
}

func parseCategory(s string) (diagnostics.FilterCategory, error) {
	category, ok := diagnostics.ParseFilterCategory(s)
	if !ok {
		return "", NewErrf(http.StatusNotFound, "unknown diagnostics kind %q", s)
	}
	return category, nil
}

type RecordsRequest struct {
	Kind       string `json:"kind"`
	Unfiltered string `json:"unfiltered"`
}

type RecordsResponse struct {
	Kind    diagnostics.FilterCategory `json:"kind"`
	Records any                        `json:"records"`
	Filters map[string]bool            `json:"filters"`
}

type ClearResponse struct {
	Kind diagnostics.FilterCategory `json:"kind"`
}

type FilterRequest struct {
	Category string `json:"category"`
	Key      string `json:"key"`
	All      *bool  `json:"all"`
}

type FiltersResponse struct {
	Category diagnostics.FilterCategory `json:"category"`
	Filters  map[string]bool            `json:"filters"`
}

type WatchersResponse struct {
	Watchers []diagnostics.WatcherInfo `json:"watchers"`
}
