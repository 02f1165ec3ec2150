package workspace_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedisam/brunosync/server/internal/lastopened"
	"github.com/hedisam/brunosync/server/internal/workspace"
	"github.com/hedisam/brunosync/server/internal/workspace/mocks"
)

type serviceFixture struct {
	service    *workspace.Service
	registry   *mocks.RegistryMock
	lastOpened *lastopened.Repository
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	registry := newRegistryMock(nil)
	loader := workspace.NewLoader(newTestLogger(), registry, workspace.WithDebounceWindow(0))
	t.Cleanup(loader.Unmount)
	repo := lastopened.New(lastopened.NewMemoryStorage())

	return &serviceFixture{
		service:    workspace.NewService(newTestLogger(), repo, loader, workspace.StatPicker{}),
		registry:   registry,
		lastOpened: repo,
	}
}

func TestServiceCreate(t *testing.T) {
	t.Parallel()

	t.Run("creates the layout", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		location := t.TempDir()

		res, err := f.service.Create(context.Background(), "My Team", "", location)
		require.NoError(t, err)

		dir := filepath.Join(location, "My Team")
		assert.Equal(t, dir, res.WorkspacePath)
		assert.Equal(t, "My Team", res.WorkspaceConfig.Name)
		assert.Equal(t, workspace.DescriptorType, res.WorkspaceConfig.Type)
		assert.NotEmpty(t, res.WorkspaceUID)
		assert.DirExists(t, filepath.Join(dir, workspace.CollectionsDir))

		d, err := workspace.ReadDescriptor(dir)
		require.NoError(t, err)
		assert.Equal(t, res.WorkspaceConfig, d)

		paths, err := f.lastOpened.GetAll()
		require.NoError(t, err)
		assert.Equal(t, []string{dir}, paths)
	})

	t.Run("folder name is sanitized", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		location := t.TempDir()

		res, err := f.service.Create(context.Background(), "Team", "a/b:c", location)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(location, "a-b-c"), res.WorkspacePath)
	})

	t.Run("existing empty directory is reused", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		location := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(location, "team"), 0755))

		_, err := f.service.Create(context.Background(), "Team", "team", location)
		require.NoError(t, err)
	})

	t.Run("non-empty directory is refused", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		location := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(location, "team", "stuff"), 0755))

		_, err := f.service.Create(context.Background(), "Team", "team", location)
		require.ErrorIs(t, err, workspace.ErrDirectoryNotEmpty)
		assert.NoFileExists(t, filepath.Join(location, "team", workspace.DescriptorFile))

		paths, err := f.lastOpened.GetAll()
		require.NoError(t, err)
		assert.Empty(t, paths)
	})

	t.Run("invalid names", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)

		for _, name := range []string{"", "   ", "..", "///"} {
			_, err := f.service.Create(context.Background(), name, "", t.TempDir())
			assert.ErrorIs(t, err, workspace.ErrInvalidName, name)
		}
	})
}

func TestServiceOpen(t *testing.T) {
	t.Parallel()

	t.Run("valid workspace mounts members", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		wsDir := t.TempDir()
		api := writeCollection(t, filepath.Join(wsDir, workspace.CollectionsDir, "api"), "API")
		writeCollection(t, filepath.Join(wsDir, workspace.CollectionsDir, "unlisted"), "Unlisted")
		writeWorkspace(t, wsDir, workspace.CollectionRef{Name: "api", Type: workspace.RefWorkspace, Location: "collections/api"})

		res, err := f.service.Open(context.Background(), wsDir)
		require.NoError(t, err)
		assert.Equal(t, wsDir, res.WorkspacePath)
		assert.Equal(t, []string{api}, startedPaths(f.registry))

		paths, err := f.lastOpened.GetAll()
		require.NoError(t, err)
		assert.Equal(t, []string{wsDir}, paths)
	})

	t.Run("wrong descriptor type changes nothing", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		wsDir := t.TempDir()
		writeCollection(t, filepath.Join(wsDir, workspace.CollectionsDir, "api"), "API")
		content := "name: x\ntype: not-a-workspace\ncollections:\n  - name: api\n    type: workspace\n    location: api\n"
		require.NoError(t, os.WriteFile(filepath.Join(wsDir, workspace.DescriptorFile), []byte(content), 0644))

		_, err := f.service.Open(context.Background(), wsDir)
		require.ErrorIs(t, err, workspace.ErrInvalidDescriptor)
		assert.Empty(t, f.registry.StartCalls())
		assert.Empty(t, f.registry.StopCalls())

		paths, err := f.lastOpened.GetAll()
		require.NoError(t, err)
		assert.Empty(t, paths)
	})

	t.Run("missing descriptor", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)

		_, err := f.service.Open(context.Background(), t.TempDir())
		require.ErrorIs(t, err, workspace.ErrDescriptorNotFound)
	})
}

func TestServiceAddCollection(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	wsDir := t.TempDir()
	writeWorkspace(t, wsDir)

	ref := workspace.CollectionRef{Name: "api", Type: workspace.RefWorkspace, Location: "collections/api"}
	refs, err := f.service.AddCollection(context.Background(), wsDir, ref)
	require.NoError(t, err)
	assert.Equal(t, []workspace.CollectionRef{ref}, refs)

	info, err := os.Stat(filepath.Join(wsDir, workspace.DescriptorFile))
	require.NoError(t, err)

	refs, err = f.service.AddCollection(context.Background(), wsDir, ref)
	require.NoError(t, err)
	assert.Len(t, refs, 1)

	again, err := os.Stat(filepath.Join(wsDir, workspace.DescriptorFile))
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), again.ModTime(), "descriptor rewritten without a change")

	loaded, err := f.service.LoadCollections(wsDir)
	require.NoError(t, err)
	assert.Equal(t, []workspace.CollectionRef{ref}, loaded)

	_, err = f.service.AddCollection(context.Background(), wsDir, workspace.CollectionRef{Name: "x", Type: "git", Location: "y"})
	assert.ErrorIs(t, err, workspace.ErrInvalidRef)
	_, err = f.service.AddCollection(context.Background(), wsDir, workspace.CollectionRef{Name: "x"})
	assert.ErrorIs(t, err, workspace.ErrInvalidRef)
}

func TestServiceConcurrentDescriptorUpdates(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	wsDir := t.TempDir()
	writeWorkspace(t, wsDir)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := range n {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ref := workspace.CollectionRef{Name: fmt.Sprintf("c%d", i), Type: workspace.RefWorkspace, Location: fmt.Sprintf("collections/c%d", i)}
			_, err := f.service.AddCollection(context.Background(), wsDir, ref)
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := f.service.SaveDocs(wsDir, "shared docs")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	d, err := workspace.ReadDescriptor(wsDir)
	require.NoError(t, err)
	assert.Len(t, d.Collections, n)
	assert.Equal(t, "shared docs", d.Docs)

	entries, err := os.ReadDir(wsDir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestServiceSaveDocs(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	wsDir := t.TempDir()
	writeWorkspace(t, wsDir, workspace.CollectionRef{Name: "api", Type: workspace.RefWorkspace, Location: "api"})

	docs, err := f.service.SaveDocs(wsDir, "# Team\n\nReadme")
	require.NoError(t, err)
	assert.Equal(t, "# Team\n\nReadme", docs)

	d, err := workspace.ReadDescriptor(wsDir)
	require.NoError(t, err)
	assert.Equal(t, "# Team\n\nReadme", d.Docs)
	assert.Len(t, d.Collections, 1)

	_, err = f.service.SaveDocs(t.TempDir(), "x")
	assert.ErrorIs(t, err, workspace.ErrDescriptorNotFound)
}

func TestServiceLastOpened(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	first := t.TempDir()
	second := t.TempDir()
	writeWorkspace(t, first)
	writeWorkspace(t, second)

	_, err := f.service.Open(context.Background(), first)
	require.NoError(t, err)
	_, err = f.service.Open(context.Background(), second)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(first, workspace.DescriptorFile)))

	list, err := f.service.LastOpened(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second, list[0].Path)
	assert.Equal(t, workspace.StateLoaded, list[0].LoadingState)
}

func TestStatPicker(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	tests := map[string]struct {
		hint       string
		expected   string
		expectedOK bool
	}{
		"existing directory": {hint: dir, expected: dir, expectedOK: true},
		"file":               {hint: file},
		"missing":            {hint: filepath.Join(dir, "nope")},
		"empty":              {},
	}

	f := newServiceFixture(t)
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, ok, err := f.service.BrowseDirectory(context.Background(), tc.hint)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedOK, ok)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestSanitizeName(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		name     string
		expected string
		invalid  bool
	}{
		"plain":           {name: "team", expected: "team"},
		"spaces kept":     {name: " My Team ", expected: "My Team"},
		"reserved chars":  {name: `a<b>c:d"e|f?g*h\i`, expected: "a-b-c-d-e-f-g-h-i"},
		"trailing dots":   {name: "team...", expected: "team"},
		"only dots":       {name: "..", invalid: true},
		"only separators": {name: "//", invalid: true},
		"control chars":   {name: "a\tb", expected: "a-b"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := workspace.SanitizeName(tc.name)
			if tc.invalid {
				assert.ErrorIs(t, err, workspace.ErrInvalidName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}
