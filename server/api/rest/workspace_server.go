package rest

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hedisam/brunosync/server/internal/workspace"
)

type WorkspaceService interface {
	Create(ctx context.Context, name, folderName, location string) (*workspace.Result, error)
	Open(ctx context.Context, path string) (*workspace.Result, error)
	LoadCollections(path string) ([]workspace.CollectionRef, error)
	LastOpened(ctx context.Context) ([]*workspace.Workspace, error)
	SaveDocs(path, docs string) (string, error)
	AddCollection(ctx context.Context, path string, ref workspace.CollectionRef) ([]workspace.CollectionRef, error)
	BrowseDirectory(ctx context.Context, hint string) (string, bool, error)
}

// WorkspaceServer serves the workspace commands.
type WorkspaceServer struct {
	logger  *logrus.Logger
	service WorkspaceService
}

func NewWorkspaceServer(logger *logrus.Logger, service WorkspaceService) *WorkspaceServer {
	return &WorkspaceServer{
		logger:  logger,
		service: service,
	}
}

func (s *WorkspaceServer) Register(mux Mux) {
	RegisterFunc(s.logger, mux, http.MethodPost, "/v1/workspaces", s.CreateWorkspace)
	RegisterFunc(s.logger, mux, http.MethodPost, "/v1/workspaces/open", s.OpenWorkspace)
	RegisterFunc(s.logger, mux, http.MethodGet, "/v1/workspaces/collections", s.LoadWorkspaceCollections)
	RegisterFunc(s.logger, mux, http.MethodPost, "/v1/workspaces/collections", s.AddCollectionToWorkspace)
	RegisterFunc(s.logger, mux, http.MethodGet, "/v1/workspaces/recent", s.LastOpenedWorkspaces)
	RegisterFunc(s.logger, mux, http.MethodPut, "/v1/workspaces/docs", s.SaveWorkspaceDocs)
	RegisterFunc(s.logger, mux, http.MethodPost, "/v1/browse", s.BrowseDirectory)
}

func (s *WorkspaceServer) CreateWorkspace(ctx context.Context, req *CreateWorkspaceRequest) (*workspace.Result, error) {
	logger := s.logger.WithContext(ctx).WithFields(logrus.Fields{
		"name":     req.Name,
		"location": req.Location,
	})
	if strings.TrimSpace(req.Location) == "" {
		return nil, NewErrf(http.StatusBadRequest, "invalid request body: 'location' is required")
	}

	res, err := s.service.Create(ctx, req.Name, req.FolderName, req.Location)
	if err != nil {
		logger.WithError(err).Warn("Failed to create workspace")
		return nil, workspaceErr("create workspace", err)
	}
	return res, nil
}

func (s *WorkspaceServer) OpenWorkspace(ctx context.Context, req *WorkspacePathRequest) (*workspace.Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	res, err := s.service.Open(ctx, req.Path)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("path", req.Path).Warn("Failed to open workspace")
		return nil, workspaceErr("open workspace", err)
	}
	return res, nil
}

func (s *WorkspaceServer) LoadWorkspaceCollections(ctx context.Context, req *WorkspacePathRequest) (*CollectionRefsResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	refs, err := s.service.LoadCollections(req.Path)
	if err != nil {
		return nil, workspaceErr("load workspace collections", err)
	}
	return &CollectionRefsResponse{Collections: refs}, nil
}

func (s *WorkspaceServer) LastOpenedWorkspaces(ctx context.Context, _ *struct{}) (*LastOpenedResponse, error) {
	list, err := s.service.LastOpened(ctx)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to read last opened workspaces")
		return nil, workspaceErr("get last opened workspaces", err)
	}
	return &LastOpenedResponse{Workspaces: list}, nil
}

func (s *WorkspaceServer) SaveWorkspaceDocs(ctx context.Context, req *SaveDocsRequest) (*SaveDocsResponse, error) {
	if strings.TrimSpace(req.Path) == "" {
		return nil, NewErrf(http.StatusBadRequest, "invalid request body: 'path' is required")
	}

	docs, err := s.service.SaveDocs(req.Path, req.Docs)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("path", req.Path).Warn("Failed to save workspace docs")
		return nil, workspaceErr("save workspace docs", err)
	}
	return &SaveDocsResponse{Docs: docs}, nil
}

func (s *WorkspaceServer) AddCollectionToWorkspace(ctx context.Context, req *AddCollectionRequest) (*CollectionRefsResponse, error) {
	if strings.TrimSpace(req.Path) == "" {
		return nil, NewErrf(http.StatusBadRequest, "invalid request body: 'path' is required")
	}

	refs, err := s.service.AddCollection(ctx, req.Path, req.Collection)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("path", req.Path).Warn("Failed to add collection to workspace")
		return nil, workspaceErr("add collection to workspace", err)
	}
	return &CollectionRefsResponse{Collections: refs}, nil
}

func (s *WorkspaceServer) BrowseDirectory(ctx context.Context, req *BrowseRequest) (*BrowseResponse, error) {
	path, ok, err := s.service.BrowseDirectory(ctx, req.Hint)
	if err != nil {
		return nil, workspaceErr("browse directory", err)
	}
	return &BrowseResponse{Path: path, Selected: ok}, nil
}

func workspaceErr(action string, err error) error {
	switch {
	case errors.Is(err, workspace.ErrDescriptorNotFound):
		return NewErrf(http.StatusNotFound, "%s: %s", action, err)
	case errors.Is(err, workspace.ErrInvalidDescriptor):
		return NewErrf(http.StatusUnprocessableEntity, "%s: %s", action, err)
	case errors.Is(err, workspace.ErrDirectoryNotEmpty):
		return NewErrf(http.StatusConflict, "%s: %s", action, err)
	case errors.Is(err, workspace.ErrInvalidName), errors.Is(err, workspace.ErrInvalidRef):
		return NewErrf(http.StatusBadRequest, "%s: %s", action, err)
	}
	return NewErrf(http.StatusInternalServerError, "%s: %s", action, err)
}

type CreateWorkspaceRequest struct {
	Name       string `json:"name"`
	FolderName string `json:"folderName"`
	Location   string `json:"location"`
}

type WorkspacePathRequest struct {
	Path string `json:"path"`
}

func (r *WorkspacePathRequest) validate() error {
	if strings.TrimSpace(r.Path) == "" {
		return NewErrf(http.StatusBadRequest, "invalid request: 'path' is required")
	}
	return nil
}

type CollectionRefsResponse struct {
	Collections []workspace.CollectionRef `json:"collections"`
}

type LastOpenedResponse struct {
	Workspaces []*workspace.Workspace `json:"workspaces"`
}

type SaveDocsRequest struct {
	Path string `json:"path"`
	Docs string `json:"docs"`
}

type SaveDocsResponse struct {
	Docs string `json:"docs"`
}

type AddCollectionRequest struct {
	Path       string                  `json:"path"`
	Collection workspace.CollectionRef `json:"collection"`
}

type BrowseRequest struct {
	Hint string `json:"hint"`
}

// BrowseResponse carries the picked directory. Selected is false when nothing was picked.
type BrowseResponse struct {
	Path     string `json:"path,omitempty"`
	Selected bool   `json:"selected"`
}
