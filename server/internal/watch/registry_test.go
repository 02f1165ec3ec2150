package watch_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedisam/brunosync/server/internal/collection"
	cmocks "github.com/hedisam/brunosync/server/internal/collection/mocks"
	"github.com/hedisam/brunosync/server/internal/convert"
	"github.com/hedisam/brunosync/server/internal/diagnostics"
	"github.com/hedisam/brunosync/server/internal/emitter"
	"github.com/hedisam/brunosync/server/internal/watch"
	"github.com/hedisam/brunosync/server/internal/watch/mocks"
)

//go:generate moq -out mocks/emitter.go -pkg mocks -skip-ensure . Emitter

const (
	waitFor = 5 * time.Second
	tick    = 10 * time.Millisecond
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fixture struct {
	root     string
	coll     *collection.Collection
	store    *diagnostics.Store
	registry *watch.Registry
	emitter  *mocks.EmitterMock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, collection.ConfigFile), []byte(`{"name": "API"}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "ping.bru"), []byte("get {\n  url: http://localhost/ping\n}\n"), 0644))
	c, err := collection.Open(root)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	worker := convert.New(newTestLogger(), 2)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(ctx)
	}()

	store := diagnostics.NewStore(diagnostics.DefaultCapacities)
	em := &mocks.EmitterMock{
		EmitFunc: func(context.Context, *emitter.Event) error { return nil },
	}
	registry := watch.NewRegistry(newTestLogger(), worker, diagnostics.NewDispatcher(newTestLogger(), store), watch.WithEmitter(em))

	t.Cleanup(func() {
		registry.StopAll()
		cancel()
		<-done
	})

	return &fixture{root: root, coll: c, store: store, registry: registry, emitter: em}
}

func (f *fixture) hasEvent(typ diagnostics.WatcherEventType, path string) bool {
	return slices.ContainsFunc(f.store.WatcherEvents(), func(ev diagnostics.WatcherEvent) bool {
		return ev.Type == typ && ev.Path == path && ev.CollectionUID == f.coll.UID
	})
}

func (f *fixture) indexed(path string) bool {
	s, ok := f.registry.Syncer(f.coll.UID)
	if !ok {
		return false
	}
	_, ok = s.Index().Get(path)
	return ok
}

func TestRegistryLifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.registry.Start(context.Background(), f.coll))

	info, ok := f.store.Watcher(f.coll.UID)
	require.True(t, ok)
	assert.Equal(t, diagnostics.WatcherActive, info.Status)
	assert.Equal(t, []string{f.coll.UID}, f.registry.Watching())

	require.Eventually(t, func() bool {
		return f.indexed(filepath.Join(f.root, "ping.bru"))
	}, waitFor, tick)

	// restarting keeps a single entry
	require.NoError(t, f.registry.Start(context.Background(), f.coll))
	assert.Len(t, f.store.Watchers(), 1)

	require.True(t, f.registry.Stop(f.coll.UID))
	_, ok = f.store.Watcher(f.coll.UID)
	assert.False(t, ok)
	assert.Empty(t, f.registry.Watching())
	assert.False(t, f.registry.Stop(f.coll.UID))

	var statuses []string
	for _, call := range f.emitter.EmitCalls() {
		assert.Equal(t, emitter.KindWatcherStatus, call.Event.Kind)
		assert.Equal(t, f.coll.UID, call.Event.CollectionUID)
		statuses = append(statuses, call.Event.Status)
	}
	assert.Equal(t, []string{"active", emitter.StatusStopped, "active", emitter.StatusStopped}, statuses)
}

func TestRegistryFollowsChanges(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.registry.Start(context.Background(), f.coll))

	created := filepath.Join(f.root, "users.bru")
	require.NoError(t, os.WriteFile(created, []byte("post {\n  url: http://localhost/users\n}\n"), 0644))
	require.Eventually(t, func() bool {
		return f.hasEvent(diagnostics.EventAdd, created) && f.indexed(created)
	}, waitFor, tick)

	dir := filepath.Join(f.root, "admin")
	require.NoError(t, os.Mkdir(dir, 0755))
	require.Eventually(t, func() bool {
		return f.hasEvent(diagnostics.EventAddDir, dir)
	}, waitFor, tick)

	nested := filepath.Join(dir, "list.bru")
	require.NoError(t, os.WriteFile(nested, []byte("get {\n  url: http://localhost/admin\n}\n"), 0644))
	require.Eventually(t, func() bool {
		return f.indexed(nested)
	}, waitFor, tick)

	broken := filepath.Join(f.root, "broken.bru")
	require.NoError(t, os.WriteFile(broken, []byte("get {\n  url: http://x\n"), 0644))
	require.Eventually(t, func() bool {
		return slices.ContainsFunc(f.store.ParsingErrors(), func(pe diagnostics.ParsingError) bool {
			return pe.Path == broken && pe.Type == diagnostics.ErrorSyntax
		})
	}, waitFor, tick)

	require.NoError(t, os.Remove(created))
	require.Eventually(t, func() bool {
		return f.hasEvent(diagnostics.EventUnlink, created) && !f.indexed(created)
	}, waitFor, tick)

	require.NoError(t, os.RemoveAll(dir))
	require.Eventually(t, func() bool {
		return f.hasEvent(diagnostics.EventUnlinkDir, dir) && !f.indexed(nested)
	}, waitFor, tick)

	// reads are recorded as operations
	assert.True(t, slices.ContainsFunc(f.store.Operations(), func(op diagnostics.Operation) bool {
		return op.Type == diagnostics.OperationRead && op.Path == created
	}))
}

func TestRegistryIgnoresHiddenAndTemporaryFiles(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.registry.Start(context.Background(), f.coll))

	require.NoError(t, os.WriteFile(filepath.Join(f.root, ".draft.bru"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "ping.bru~"), []byte("x"), 0644))
	marker := filepath.Join(f.root, "marker.bru")
	require.NoError(t, os.WriteFile(marker, []byte("get {\n  url: m\n}\n"), 0644))

	require.Eventually(t, func() bool {
		return f.hasEvent(diagnostics.EventAdd, marker)
	}, waitFor, tick)

	for _, ev := range f.store.WatcherEvents() {
		assert.NotEqual(t, filepath.Join(f.root, ".draft.bru"), ev.Path)
		assert.NotEqual(t, filepath.Join(f.root, "ping.bru~"), ev.Path)
	}
}

func TestRegistryRootRemoved(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.registry.Start(context.Background(), f.coll))

	require.NoError(t, os.RemoveAll(f.root))
	require.Eventually(t, func() bool {
		info, ok := f.store.Watcher(f.coll.UID)
		return ok && info.Status == diagnostics.WatcherError && info.Error != ""
	}, waitFor, tick)
}

func TestRegistryStartFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	missing := &collection.Collection{UID: "missing", Path: filepath.Join(f.root, "nope")}

	err := f.registry.Start(context.Background(), missing)
	require.Error(t, err)

	info, ok := f.store.Watcher("missing")
	require.True(t, ok)
	assert.Equal(t, diagnostics.WatcherError, info.Status)
	assert.NotEmpty(t, info.Error)
}

func TestRegistryKeepsWatchingWhileConverterIsBusy(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	release := make(chan struct{})
	converter := &cmocks.ConverterMock{
		SubmitFunc: func(ctx context.Context, req convert.Request) (*convert.Future, error) {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil, errors.New("converter unavailable")
		},
	}
	registry := watch.NewRegistry(newTestLogger(), converter, diagnostics.NewDispatcher(newTestLogger(), f.store))
	t.Cleanup(registry.StopAll)
	t.Cleanup(func() { close(release) })

	started := make(chan error, 1)
	go func() {
		started <- registry.Start(context.Background(), f.coll)
	}()
	select {
	case err := <-started:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("Start blocked behind the converter")
	}

	var created []string
	for i := range 5 {
		path := filepath.Join(f.root, fmt.Sprintf("r%d.bru", i))
		require.NoError(t, os.WriteFile(path, []byte("get {\n  url: x\n}\n"), 0644))
		created = append(created, path)
	}
	require.Eventually(t, func() bool {
		for _, path := range created {
			if !f.hasEvent(diagnostics.EventAdd, path) {
				return false
			}
		}
		return true
	}, waitFor, tick)

	assert.Equal(t, []string{f.coll.UID}, registry.Watching())
	_, ok := registry.Syncer(f.coll.UID)
	assert.True(t, ok)
}
