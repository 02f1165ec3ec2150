package workspace_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedisam/brunosync/server/internal/collection"
	"github.com/hedisam/brunosync/server/internal/emitter"
	"github.com/hedisam/brunosync/server/internal/workspace"
	"github.com/hedisam/brunosync/server/internal/workspace/mocks"
)

//go:generate moq -out mocks/registry.go -pkg mocks -skip-ensure . Registry
//go:generate moq -out mocks/emitter.go -pkg mocks -skip-ensure . Emitter

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
	window  = 20 * time.Millisecond
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func writeCollection(t *testing.T, dir, name string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, collection.ConfigFile), []byte(`{"name": "`+name+`"}`), 0644))
	return dir
}

func writeWorkspace(t *testing.T, dir string, refs ...workspace.CollectionRef) *workspace.Workspace {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, workspace.CollectionsDir), 0755))
	d := workspace.NewDescriptor(filepath.Base(dir))
	d.Collections = append(d.Collections, refs...)
	require.NoError(t, workspace.WriteDescriptor(dir, d))
	return workspace.FromDescriptor(dir, d)
}

// statusRecorder collects the loading states emitted for a workspace.
type statusRecorder struct {
	mu     sync.Mutex
	states []string
}

func (r *statusRecorder) emitter() *mocks.EmitterMock {
	return &mocks.EmitterMock{
		EmitFunc: func(_ context.Context, event *emitter.Event) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			if event.Kind == emitter.KindWorkspaceLoading {
				r.states = append(r.states, event.Status)
			}
			return nil
		},
	}
}

func (r *statusRecorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.states)
}

func newRegistryMock(startErr error) *mocks.RegistryMock {
	return &mocks.RegistryMock{
		StartFunc: func(context.Context, *collection.Collection) error {
			return startErr
		},
		StopFunc: func(string) bool {
			return true
		},
	}
}

func startedPaths(registry *mocks.RegistryMock) []string {
	var out []string
	for call := range slices.Values(registry.StartCalls()) {
		out = append(out, call.C.Path)
	}
	slices.Sort(out)
	return out
}

func TestLoaderCandidates(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	wsDir := filepath.Join(root, "ws")
	api := writeCollection(t, filepath.Join(wsDir, workspace.CollectionsDir, "api"), "API")
	billing := writeCollection(t, filepath.Join(wsDir, workspace.CollectionsDir, "billing"), "Billing")
	external := writeCollection(t, filepath.Join(root, "external"), "External")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "not-a-collection"), 0755))

	ws := writeWorkspace(t, wsDir,
		workspace.CollectionRef{Name: "api", Type: workspace.RefWorkspace, Location: "collections/api"},
		workspace.CollectionRef{Name: "external", Type: workspace.RefLocal, Location: external},
		workspace.CollectionRef{Name: "plain", Type: workspace.RefLocal, Location: filepath.Join(root, "not-a-collection")},
		workspace.CollectionRef{Name: "remote", Type: workspace.RefRemote, Location: "https://example.com/c.git"},
	)

	loader := workspace.NewLoader(newTestLogger(), newRegistryMock(nil))
	var paths []string
	for c := range slices.Values(loader.Candidates(ws)) {
		paths = append(paths, c.Path)
	}
	assert.Equal(t, []string{external, api, billing}, sortedCopy(paths))
}

func sortedCopy(s []string) []string {
	out := slices.Clone(s)
	slices.Sort(out)
	return out
}

func TestLoaderMount(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	wsDir := filepath.Join(root, "ws")
	api := writeCollection(t, filepath.Join(wsDir, workspace.CollectionsDir, "api"), "API")
	writeCollection(t, filepath.Join(wsDir, workspace.CollectionsDir, "billing"), "Billing")
	external := writeCollection(t, filepath.Join(root, "external"), "External")

	ws := writeWorkspace(t, wsDir,
		workspace.CollectionRef{Name: "api", Type: workspace.RefWorkspace, Location: "collections/api"},
		workspace.CollectionRef{Name: "external", Type: workspace.RefLocal, Location: external},
	)

	recorder := &statusRecorder{}
	registry := newRegistryMock(nil)
	loader := workspace.NewLoader(newTestLogger(), registry,
		workspace.WithEmitter(recorder.emitter()),
		workspace.WithDebounceWindow(window),
	)
	t.Cleanup(loader.Unmount)

	members := loader.Mount(context.Background(), ws)
	require.Len(t, members, 2)
	assert.Equal(t, sortedCopy([]string{api, external}), startedPaths(registry))
	assert.Empty(t, registry.StopCalls())
	assert.Len(t, loader.Mounted(), 2)

	require.Eventually(t, func() bool {
		return len(recorder.get()) == 2
	}, waitFor, tick)
	assert.Equal(t, workspace.StateLoaded, loader.State(ws.UID))
	assert.Equal(t, []string{string(workspace.StateLoading), string(workspace.StateLoaded)}, recorder.get())

	t.Run("mounting again starts nothing new", func(t *testing.T) {
		loader.Mount(context.Background(), ws)
		assert.Len(t, registry.StartCalls(), 2)
		assert.Empty(t, registry.StopCalls())
	})

	t.Run("mounting another workspace stops the old members", func(t *testing.T) {
		otherDir := filepath.Join(root, "other")
		other := writeCollection(t, filepath.Join(otherDir, workspace.CollectionsDir, "other"), "Other")
		otherWS := writeWorkspace(t, otherDir,
			workspace.CollectionRef{Name: "other", Type: workspace.RefWorkspace, Location: "other"},
		)

		loader.Mount(context.Background(), otherWS)
		var stopped []string
		for call := range slices.Values(registry.StopCalls()) {
			stopped = append(stopped, call.CollectionUID)
		}
		assert.ElementsMatch(t, []string{collection.UID(api), collection.UID(external)}, stopped)
		require.Len(t, loader.Mounted(), 1)
		assert.Equal(t, other, loader.Mounted()[0].Path)
	})
}

func TestLoaderMountFailure(t *testing.T) {
	t.Parallel()

	wsDir := t.TempDir()
	writeCollection(t, filepath.Join(wsDir, workspace.CollectionsDir, "api"), "API")
	ws := writeWorkspace(t, wsDir,
		workspace.CollectionRef{Name: "api", Type: workspace.RefWorkspace, Location: "api"},
	)

	recorder := &statusRecorder{}
	loader := workspace.NewLoader(newTestLogger(), newRegistryMock(errors.New("too many open files")),
		workspace.WithEmitter(recorder.emitter()),
		workspace.WithDebounceWindow(window),
	)
	t.Cleanup(loader.Unmount)

	loader.Mount(context.Background(), ws)
	require.Eventually(t, func() bool {
		return len(recorder.get()) == 2
	}, waitFor, tick)
	assert.Equal(t, workspace.StateError, loader.State(ws.UID))
	assert.Equal(t, []string{string(workspace.StateLoading), string(workspace.StateError)}, recorder.get())
	assert.Len(t, loader.Mounted(), 1)
}

func TestLoaderStateUnknownWorkspace(t *testing.T) {
	t.Parallel()

	loader := workspace.NewLoader(newTestLogger(), newRegistryMock(nil))
	assert.Equal(t, workspace.StateIdle, loader.State("nope"))
}

func TestLoaderStateWhileMounting(t *testing.T) {
	t.Parallel()

	wsDir := t.TempDir()
	writeCollection(t, filepath.Join(wsDir, workspace.CollectionsDir, "api"), "API")
	ws := writeWorkspace(t, wsDir,
		workspace.CollectionRef{Name: "api", Type: workspace.RefWorkspace, Location: "api"},
	)

	release := make(chan struct{})
	registry := &mocks.RegistryMock{
		StartFunc: func(context.Context, *collection.Collection) error {
			<-release
			return nil
		},
		StopFunc: func(string) bool {
			return true
		},
	}
	loader := workspace.NewLoader(newTestLogger(), registry, workspace.WithDebounceWindow(window))
	t.Cleanup(loader.Unmount)

	mounted := make(chan struct{})
	go func() {
		defer close(mounted)
		loader.Mount(context.Background(), ws)
	}()

	require.Eventually(t, func() bool {
		return len(registry.StartCalls()) == 1
	}, waitFor, tick)
	require.Eventually(t, func() bool {
		return loader.State(ws.UID) == workspace.StateLoading
	}, waitFor, tick)
	assert.Empty(t, loader.Mounted())

	close(release)
	select {
	case <-mounted:
	case <-time.After(waitFor):
		t.Fatal("Mount did not return")
	}
	require.Eventually(t, func() bool {
		return loader.State(ws.UID) == workspace.StateLoaded
	}, waitFor, tick)
	assert.Len(t, loader.Mounted(), 1)
}
