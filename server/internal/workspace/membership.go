package workspace

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/hedisam/brunosync/server/internal/collection"
)

type RefType string

const (
	RefLocal     RefType = "local"
	RefWorkspace RefType = "workspace"
	// RefRemote is declared but never resolved to a live collection.
	RefRemote RefType = "remote"
)

// CollectionRef declares that a collection belongs to a workspace. It is a record, not a live handle.
type CollectionRef struct {
	Name     string  `yaml:"name" json:"name"`
	Type     RefType `yaml:"type" json:"type"`
	Location string  `yaml:"location" json:"location"`
}

// IsMember reports whether the collection c is the one ref points at, for a workspace rooted at workspacePath.
//   - local refs match the collection's absolute path exactly
//   - workspace refs match a collection under workspacePath whose relative path contains the ref location as whole
//     path components
//   - remote and unknown refs never match
func IsMember(c *collection.Collection, ref CollectionRef, workspacePath string) bool {
	switch ref.Type {
	case RefLocal:
		return ref.Location == c.Path
	case RefWorkspace:
		rel, err := filepath.Rel(workspacePath, c.Path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return false
		}
		return containsComponents(splitPath(rel), splitPath(ref.Location))
	}
	return false
}

func splitPath(p string) []string {
	p = filepath.ToSlash(filepath.Clean(p))
	var parts []string
	for part := range strings.SplitSeq(p, "/") {
		if part != "" && part != "." {
			parts = append(parts, part)
		}
	}
	return parts
}

func containsComponents(path, sub []string) bool {
	if len(sub) == 0 || len(sub) > len(path) {
		return false
	}
	for i := 0; i+len(sub) <= len(path); i++ {
		if slices.Equal(path[i:i+len(sub)], sub) {
			return true
		}
	}
	return false
}

// FilterByWorkspace returns the collections that any ref of the workspace points at.
func FilterByWorkspace(collections []*collection.Collection, ws *Workspace) []*collection.Collection {
	if len(ws.Collections) == 0 {
		return nil
	}

	var out []*collection.Collection
	for c := range slices.Values(collections) {
		if slices.ContainsFunc(ws.Collections, func(ref CollectionRef) bool {
			return IsMember(c, ref, ws.Path)
		}) {
			out = append(out, c)
		}
	}
	return out
}

// AddCollectionRef appends ref unless a ref with the same name or the same location is already declared. It reports
// whether refs changed.
func AddCollectionRef(refs []CollectionRef, ref CollectionRef) ([]CollectionRef, bool) {
	if slices.ContainsFunc(refs, func(existing CollectionRef) bool {
		return existing.Name == ref.Name || existing.Location == ref.Location
	}) {
		return refs, false
	}
	return append(slices.Clip(refs), ref), true
}
