package rest

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hedisam/brunosync/lib/bru"
	"github.com/hedisam/brunosync/server/internal/collection"
	"github.com/hedisam/brunosync/server/internal/convert"
)

type CollectionRegistry interface {
	Watching() []string
	Syncer(collectionUID string) (*collection.Syncer, bool)
}

// CollectionServer exposes the in-memory model of the watched collections.
type CollectionServer struct {
	logger   *logrus.Logger
	registry CollectionRegistry
}

func NewCollectionServer(logger *logrus.Logger, registry CollectionRegistry) *CollectionServer {
	return &CollectionServer{
		logger:   logger,
		registry: registry,
	}
}

func (s *CollectionServer) Register(mux Mux) {
	RegisterFunc(s.logger, mux, http.MethodGet, "/v1/collections", s.ListCollections)
	RegisterFunc(s.logger, mux, http.MethodGet, "/v1/collections/{uid}/entries", s.ListEntries)
	RegisterFunc(s.logger, mux, http.MethodPost, "/v1/collections/{uid}/items", s.SaveItem)
}

func (s *CollectionServer) ListCollections(context.Context, *struct{}) (*CollectionsResponse, error) {
	out := []*collection.Collection{}
	for _, uid := range s.registry.Watching() {
		if syncer, ok := s.registry.Syncer(uid); ok {
			out = append(out, syncer.Collection())
		}
	}
	return &CollectionsResponse{Collections: out}, nil
}

func (s *CollectionServer) ListEntries(_ context.Context, req *CollectionRequest) (*EntriesResponse, error) {
	syncer, err := s.syncer(req.UID)
	if err != nil {
		return nil, err
	}
	return &EntriesResponse{Entries: syncer.Index().Entries()}, nil
}

// SaveItem writes a request item into a watched collection. The path is relative to the collection root.
func (s *CollectionServer) SaveItem(ctx context.Context, req *SaveItemRequest) (*bru.Item, error) {
	logger := s.logger.WithContext(ctx).WithFields(logrus.Fields{
		"collection_uid": req.UID,
		"path":           req.Path,
	})
	if strings.TrimSpace(req.Path) == "" || req.Item == nil {
		return nil, NewErrf(http.StatusBadRequest, "invalid request body: 'path' and 'item' are required")
	}
	syncer, err := s.syncer(req.UID)
	if err != nil {
		return nil, err
	}

	saved, err := syncer.Save(ctx, req.Item, req.Path)
	if err != nil {
		logger.WithError(err).Warn("Failed to save item")
		if errors.Is(err, collection.ErrClosed) || errors.Is(err, convert.ErrClosed) {
			return nil, NewErrf(http.StatusServiceUnavailable, "save item: %s", err)
		}
		return nil, NewErrf(http.StatusUnprocessableEntity, "save item: %s", err)
	}
	logger.Debug("Item saved")

	return saved, nil
}

func (s *CollectionServer) syncer(uid string) (*collection.Syncer, error) {
	syncer, ok := s.registry.Syncer(uid)
	if !ok {
		return nil, NewErrf(http.StatusNotFound, "collection %q is not open", uid)
	}
	return syncer, nil
}

type CollectionRequest struct {
	UID string `json:"uid"`
}

type CollectionsResponse struct {
	Collections []*collection.Collection `json:"collections"`
}

type EntriesResponse struct {
	Entries []*collection.Entry `json:"entries"`
}

type SaveItemRequest struct {
	UID  string    `json:"uid"`
	Path string    `json:"path"`
	Item *bru.Item `json:"item"`
}
