package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	ErrDirectoryNotEmpty = errors.New("workspace directory is not empty")
	ErrInvalidName       = errors.New("invalid workspace name")
	ErrInvalidRef        = errors.New("invalid collection ref")
)

// DirectoryPicker asks for a directory. It reports false when nothing was picked.
type DirectoryPicker interface {
	PickDirectory(ctx context.Context, hint string) (string, bool, error)
}

type LastOpened interface {
	GetAll() ([]string, error)
	Add(path string) ([]string, error)
}

// Result is what creating or opening a workspace answers with.
type Result struct {
	WorkspaceConfig *Descriptor `json:"workspaceConfig"`
	WorkspaceUID    string      `json:"workspaceUid"`
	WorkspacePath   string      `json:"workspacePath"`
}

// Service implements the workspace commands.
type Service struct {
	logger     *logrus.Logger
	lastOpened LastOpened
	loader     *Loader
	picker     DirectoryPicker

	mu sync.Mutex
	// descriptor read-modify-write cycles are serialized per workspace directory
	writeLocks map[string]*sync.Mutex
}

func NewService(logger *logrus.Logger, lastOpened LastOpened, loader *Loader, picker DirectoryPicker) *Service {
	return &Service{
		logger:     logger,
		lastOpened: lastOpened,
		loader:     loader,
		picker:     picker,
		writeLocks: make(map[string]*sync.Mutex),
	}
}

// lockDescriptor locks the descriptor of the workspace at dir, an absolute path, and returns the unlock function.
func (s *Service) lockDescriptor(dir string) func() {
	s.mu.Lock()
	l, ok := s.writeLocks[dir]
	if !ok {
		l = &sync.Mutex{}
		s.writeLocks[dir] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Create makes a new workspace directory named after folderName (or name) under location, with an empty collections
// directory and a fresh descriptor, and remembers it as last opened.
func (s *Service) Create(ctx context.Context, name, folderName, location string) (*Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if folderName == "" {
		folderName = name
	}
	folder, err := SanitizeName(folderName)
	if err != nil {
		return nil, err
	}

	dir, err := filepath.Abs(filepath.Join(location, folder))
	if err != nil {
		return nil, fmt.Errorf("resolve workspace path: %w", err)
	}
	defer s.lockDescriptor(dir)()

	entries, err := os.ReadDir(dir)
	switch {
	case err == nil && len(entries) > 0:
		return nil, fmt.Errorf("%s: %w", dir, ErrDirectoryNotEmpty)
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read workspace directory: %w", err)
	}

	if err = os.MkdirAll(filepath.Join(dir, CollectionsDir), 0o755); err != nil {
		return nil, fmt.Errorf("create workspace directory: %w", err)
	}
	d := NewDescriptor(name)
	if err = WriteDescriptor(dir, d); err != nil {
		return nil, err
	}
	s.remember(ctx, dir)

	s.logger.WithContext(ctx).WithField("path", dir).Info("Created workspace")
	return &Result{
		WorkspaceConfig: d,
		WorkspaceUID:    FromDescriptor(dir, d).UID,
		WorkspacePath:   dir,
	}, nil
}

// Open validates the descriptor at path before anything else happens; an invalid workspace leaves every piece of
// state untouched. A valid one is remembered and its member collections are mounted.
func (s *Service) Open(ctx context.Context, path string) (*Result, error) {
	dir, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace path: %w", err)
	}

	d, err := ReadDescriptor(dir)
	if err != nil {
		return nil, err
	}

	s.remember(ctx, dir)
	ws := FromDescriptor(dir, d)
	members := s.loader.Mount(ctx, ws)

	s.logger.WithContext(ctx).WithFields(logrus.Fields{
		"path":        dir,
		"collections": len(members),
	}).Info("Opened workspace")
	return &Result{
		WorkspaceConfig: d,
		WorkspaceUID:    ws.UID,
		WorkspacePath:   dir,
	}, nil
}

// LoadCollections returns the refs declared by the workspace at path.
func (s *Service) LoadCollections(path string) ([]CollectionRef, error) {
	d, err := ReadDescriptor(path)
	if err != nil {
		return nil, err
	}
	return d.Collections, nil
}

// LastOpened returns the remembered workspaces, most recent first. Paths that no longer hold a valid workspace are
// left out.
func (s *Service) LastOpened(ctx context.Context) ([]*Workspace, error) {
	paths, err := s.lastOpened.GetAll()
	if err != nil {
		return nil, err
	}

	out := []*Workspace{}
	for path := range slices.Values(paths) {
		d, err := ReadDescriptor(path)
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).WithField("path", path).Debug("Skipping last opened workspace")
			continue
		}
		ws := FromDescriptor(path, d)
		ws.LoadingState = s.loader.State(ws.UID)
		out = append(out, ws)
	}
	return out, nil
}

// SaveDocs replaces the docs of the workspace at path.
func (s *Service) SaveDocs(path, docs string) (string, error) {
	dir, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve workspace path: %w", err)
	}
	defer s.lockDescriptor(dir)()

	d, err := ReadDescriptor(dir)
	if err != nil {
		return "", err
	}
	d.Docs = docs
	if err = WriteDescriptor(dir, d); err != nil {
		return "", err
	}
	return docs, nil
}

// AddCollection declares ref in the workspace at path. Adding a ref whose name or location is already declared
// changes nothing and is not an error.
func (s *Service) AddCollection(ctx context.Context, path string, ref CollectionRef) ([]CollectionRef, error) {
	if ref.Name == "" || ref.Location == "" {
		return nil, fmt.Errorf("%w: name and location are required", ErrInvalidRef)
	}
	switch ref.Type {
	case RefLocal, RefWorkspace, RefRemote:
	case "":
		ref.Type = RefLocal
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidRef, ref.Type)
	}
	if ref.Type == RefLocal {
		abs, err := filepath.Abs(ref.Location)
		if err != nil {
			return nil, fmt.Errorf("resolve collection location: %w", err)
		}
		ref.Location = abs
	}

	dir, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace path: %w", err)
	}
	defer s.lockDescriptor(dir)()

	d, err := ReadDescriptor(dir)
	if err != nil {
		return nil, err
	}

	refs, added := AddCollectionRef(d.Collections, ref)
	if !added {
		s.logger.WithContext(ctx).WithField("name", ref.Name).Debug("Collection is already part of the workspace")
		return refs, nil
	}
	d.Collections = refs
	if err = WriteDescriptor(dir, d); err != nil {
		return nil, err
	}

	return refs, nil
}

// BrowseDirectory asks the picker for a directory.
func (s *Service) BrowseDirectory(ctx context.Context, hint string) (string, bool, error) {
	return s.picker.PickDirectory(ctx, hint)
}

func (s *Service) remember(ctx context.Context, dir string) {
	if _, err := s.lastOpened.Add(dir); err != nil {
		// the workspace itself is fine; only the recent list is stale
		s.logger.WithContext(ctx).WithError(err).WithField("path", dir).Warn("Failed to remember workspace")
	}
}

var invalidNameChars = `<>:"/\|?*`

// SanitizeName turns a workspace name into a directory name. Characters that are not allowed in file names become
// dashes; a name that is empty or only dots afterwards is invalid.
func SanitizeName(name string) (string, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		if r < 0x20 || strings.ContainsRune(invalidNameChars, r) {
			b.WriteRune('-')
			continue
		}
		b.WriteRune(r)
	}

	out := strings.TrimRight(b.String(), ". ")
	if out == "" || strings.Trim(out, "-") == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return out, nil
}

// StatPicker picks the hinted directory when it exists. It is what the daemon uses: the directory is chosen on the
// client side and only validated here.
type StatPicker struct{}

func (StatPicker) PickDirectory(_ context.Context, hint string) (string, bool, error) {
	if hint == "" {
		return "", false, nil
	}
	abs, err := filepath.Abs(hint)
	if err != nil {
		return "", false, fmt.Errorf("resolve directory: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return "", false, nil
	}
	return abs, true, nil
}
