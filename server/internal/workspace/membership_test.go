package workspace_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hedisam/brunosync/server/internal/collection"
	"github.com/hedisam/brunosync/server/internal/workspace"
)

func TestIsMember(t *testing.T) {
	t.Parallel()

	api := &collection.Collection{Path: "/ws/collections/api"}

	tests := map[string]struct {
		coll     *collection.Collection
		ref      workspace.CollectionRef
		expected bool
	}{
		"workspace ref matching the relative path": {
			coll:     api,
			ref:      workspace.CollectionRef{Type: workspace.RefWorkspace, Location: "collections/api"},
			expected: true,
		},
		"workspace ref matching a trailing component": {
			coll:     api,
			ref:      workspace.CollectionRef{Type: workspace.RefWorkspace, Location: "api"},
			expected: true,
		},
		"workspace ref matching only part of a component": {
			coll:     api,
			ref:      workspace.CollectionRef{Type: workspace.RefWorkspace, Location: "ap"},
			expected: false,
		},
		"workspace ref for a collection outside the workspace": {
			coll:     &collection.Collection{Path: "/elsewhere/api"},
			ref:      workspace.CollectionRef{Type: workspace.RefWorkspace, Location: "api"},
			expected: false,
		},
		"local ref with the exact path": {
			coll:     api,
			ref:      workspace.CollectionRef{Type: workspace.RefLocal, Location: "/ws/collections/api"},
			expected: true,
		},
		"local ref with another path": {
			coll:     api,
			ref:      workspace.CollectionRef{Type: workspace.RefLocal, Location: "/other/path"},
			expected: false,
		},
		"remote ref": {
			coll:     api,
			ref:      workspace.CollectionRef{Type: workspace.RefRemote, Location: "collections/api"},
			expected: false,
		},
		"unknown ref type": {
			coll:     api,
			ref:      workspace.CollectionRef{Type: "git", Location: "collections/api"},
			expected: false,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, workspace.IsMember(tc.coll, tc.ref, "/ws"))
		})
	}
}

func TestFilterByWorkspace(t *testing.T) {
	t.Parallel()

	api := &collection.Collection{Path: "/ws/collections/api"}
	billing := &collection.Collection{Path: "/ws/collections/billing"}
	shared := &collection.Collection{Path: "/other/path"}
	all := []*collection.Collection{api, billing, shared}

	t.Run("workspace and local refs", func(t *testing.T) {
		t.Parallel()
		ws := &workspace.Workspace{
			Path: "/ws",
			Collections: []workspace.CollectionRef{
				{Name: "api", Type: workspace.RefWorkspace, Location: "collections/api"},
				{Name: "shared", Type: workspace.RefLocal, Location: "/other/path"},
			},
		}
		assert.Equal(t, []*collection.Collection{api, shared}, workspace.FilterByWorkspace(all, ws))
	})

	t.Run("local ref elsewhere does not pull in workspace collections", func(t *testing.T) {
		t.Parallel()
		ws := &workspace.Workspace{
			Path: "/ws",
			Collections: []workspace.CollectionRef{
				{Name: "api", Type: workspace.RefWorkspace, Location: "collections/api"},
				{Name: "missing", Type: workspace.RefLocal, Location: "/nowhere"},
			},
		}
		assert.Equal(t, []*collection.Collection{api}, workspace.FilterByWorkspace(all, ws))
	})

	t.Run("no refs means no members", func(t *testing.T) {
		t.Parallel()
		ws := &workspace.Workspace{Path: "/ws"}
		assert.Empty(t, workspace.FilterByWorkspace(all, ws))
	})
}

func TestAddCollectionRef(t *testing.T) {
	t.Parallel()

	ref := workspace.CollectionRef{Name: "api", Type: workspace.RefWorkspace, Location: "collections/api"}

	refs, added := workspace.AddCollectionRef(nil, ref)
	assert.True(t, added)
	assert.Len(t, refs, 1)

	refs, added = workspace.AddCollectionRef(refs, ref)
	assert.False(t, added)
	assert.Len(t, refs, 1)

	refs, added = workspace.AddCollectionRef(refs, workspace.CollectionRef{Name: "api", Type: workspace.RefLocal, Location: "/x"})
	assert.False(t, added, "same name")
	assert.Len(t, refs, 1)

	refs, added = workspace.AddCollectionRef(refs, workspace.CollectionRef{Name: "api2", Type: workspace.RefWorkspace, Location: "collections/api"})
	assert.False(t, added, "same location")
	assert.Len(t, refs, 1)

	refs, added = workspace.AddCollectionRef(refs, workspace.CollectionRef{Name: "billing", Type: workspace.RefWorkspace, Location: "collections/billing"})
	assert.True(t, added)
	assert.Len(t, refs, 2)
}
