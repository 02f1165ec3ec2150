package workspace

import (
	"github.com/hedisam/brunosync/server/internal/collection"
)

type LoadingState string

const (
	StateIdle    LoadingState = "idle"
	StateLoading LoadingState = "loading"
	StateLoaded  LoadingState = "loaded"
	StateError   LoadingState = "error"
)

// Workspace is a named set of collection refs backed by a directory holding its descriptor.
type Workspace struct {
	UID          string          `json:"uid"`
	Name         string          `json:"name"`
	Path         string          `json:"pathname"`
	Docs         string          `json:"docs"`
	Collections  []CollectionRef `json:"collections"`
	LoadingState LoadingState    `json:"loadingState"`
}

// FromDescriptor builds the workspace rooted at path. path must be absolute.
func FromDescriptor(path string, d *Descriptor) *Workspace {
	return &Workspace{
		UID:          collection.UID(path),
		Name:         d.Name,
		Path:         path,
		Docs:         d.Docs,
		Collections:  d.Collections,
		LoadingState: StateIdle,
	}
}
