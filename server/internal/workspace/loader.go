package workspace

import (
	"context"
	"errors"
	"maps"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hedisam/brunosync/lib/debounce"
	"github.com/hedisam/brunosync/server/internal/collection"
	"github.com/hedisam/brunosync/server/internal/emitter"
)

const DefaultDebounceWindow = 200 * time.Millisecond

type Registry interface {
	Start(ctx context.Context, c *collection.Collection) error
	Stop(collectionUID string) bool
}

type Emitter interface {
	Emit(ctx context.Context, event *emitter.Event) error
}

type LoaderOption func(l *Loader)

func WithEmitter(e Emitter) LoaderOption {
	return func(l *Loader) {
		l.emitter = e
	}
}

func WithDebounceWindow(window time.Duration) LoaderOption {
	return func(l *Loader) {
		l.window = window
	}
}

type loadState struct {
	debouncer *debounce.Debouncer

	mu sync.Mutex
	// outcome is reported once the debouncer settles on idle
	outcome LoadingState
	current LoadingState
}

func (st *loadState) get() (outcome, current LoadingState) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.outcome, st.current
}

// Loader resolves which collections on disk belong to a workspace and keeps exactly those watched.
type Loader struct {
	logger   *logrus.Logger
	registry Registry
	emitter  Emitter
	window   time.Duration

	// mountMu serializes Mount and Unmount; mu guards the maps and is never held across registry calls
	mountMu sync.Mutex
	mu      sync.Mutex
	mounted map[string]*collection.Collection
	states  map[string]*loadState
}

func NewLoader(logger *logrus.Logger, registry Registry, opts ...LoaderOption) *Loader {
	l := &Loader{
		logger:   logger,
		registry: registry,
		window:   DefaultDebounceWindow,
		mounted:  make(map[string]*collection.Collection),
		states:   make(map[string]*loadState),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Candidates lists the collections a workspace could refer to: every collection under its collections directory
// and every collection a local or workspace ref points at. Refs pointing at something that is not a collection are
// skipped.
func (l *Loader) Candidates(ws *Workspace) []*collection.Collection {
	logger := l.logger.WithField("workspace_uid", ws.UID)

	found, err := collection.Discover(filepath.Join(ws.Path, CollectionsDir))
	if err != nil {
		logger.WithError(err).Warn("Failed to discover workspace collections")
	}

	byUID := make(map[string]*collection.Collection)
	for c := range slices.Values(found) {
		byUID[c.UID] = c
	}

	for ref := range slices.Values(ws.Collections) {
		var dir string
		switch ref.Type {
		case RefLocal:
			dir = ref.Location
		case RefWorkspace:
			dir = filepath.Join(ws.Path, ref.Location)
		default:
			continue
		}
		if _, ok := byUID[collection.UID(dir)]; ok {
			continue
		}
		c, err := collection.Open(dir)
		if err != nil {
			if !errors.Is(err, collection.ErrNotCollection) {
				logger.WithError(err).WithField("location", ref.Location).Warn("Failed to open referenced collection")
			}
			continue
		}
		byUID[c.UID] = c
	}

	out := slices.Collect(maps.Values(byUID))
	slices.SortFunc(out, func(a, b *collection.Collection) int {
		switch {
		case a.Path < b.Path:
			return -1
		case a.Path > b.Path:
			return 1
		}
		return 0
	})
	return out
}

// Mount makes the workspace's member collections the watched set: members not yet watched are started and watched
// collections that are not members are stopped. It returns the members.
func (l *Loader) Mount(ctx context.Context, ws *Workspace) []*collection.Collection {
	l.mountMu.Lock()
	defer l.mountMu.Unlock()

	l.setBusy(ws.UID, true, "")

	members := FilterByWorkspace(l.Candidates(ws), ws)
	memberUIDs := make(map[string]struct{}, len(members))
	for c := range slices.Values(members) {
		memberUIDs[c.UID] = struct{}{}
	}

	l.mu.Lock()
	var stale []string
	for uid := range maps.Keys(l.mounted) {
		if _, ok := memberUIDs[uid]; !ok {
			stale = append(stale, uid)
			delete(l.mounted, uid)
		}
	}
	var fresh []*collection.Collection
	for c := range slices.Values(members) {
		if _, ok := l.mounted[c.UID]; !ok {
			fresh = append(fresh, c)
		}
	}
	l.mu.Unlock()

	for uid := range slices.Values(stale) {
		l.registry.Stop(uid)
	}

	outcome := StateLoaded
	for c := range slices.Values(fresh) {
		if err := l.registry.Start(ctx, c); err != nil {
			l.logger.WithContext(ctx).WithError(err).WithField("collection_uid", c.UID).Error("Failed to mount collection")
			outcome = StateError
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	// a failed start still holds a registry entry in the error state
	for c := range slices.Values(fresh) {
		l.mounted[c.UID] = c
	}
	l.setBusyLocked(ws.UID, false, outcome)
	return members
}

// Mounted returns the collections currently mounted, ordered by uid.
func (l *Loader) Mounted() []*collection.Collection {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*collection.Collection, 0, len(l.mounted))
	for uid := range slices.Values(slices.Sorted(maps.Keys(l.mounted))) {
		out = append(out, l.mounted[uid])
	}
	return out
}

// State returns the debounced loading state of a workspace.
func (l *Loader) State(workspaceUID string) LoadingState {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.states[workspaceUID]
	if !ok {
		return StateIdle
	}
	_, current := st.get()
	return current
}

// Unmount stops every mounted collection.
func (l *Loader) Unmount() {
	l.mountMu.Lock()
	defer l.mountMu.Unlock()

	l.mu.Lock()
	mounted := slices.Collect(maps.Keys(l.mounted))
	clear(l.mounted)
	for st := range maps.Values(l.states) {
		st.debouncer.Stop()
	}
	l.mu.Unlock()

	for uid := range slices.Values(mounted) {
		l.registry.Stop(uid)
	}
}

func (l *Loader) setBusy(workspaceUID string, busy bool, outcome LoadingState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.setBusyLocked(workspaceUID, busy, outcome)
}

func (l *Loader) setBusyLocked(workspaceUID string, busy bool, outcome LoadingState) {
	st, ok := l.states[workspaceUID]
	if !ok {
		st = &loadState{current: StateIdle}
		st.debouncer = debounce.New(l.window, func(busy bool) {
			state := StateLoading
			if !busy {
				state, _ = st.get()
			}
			l.transition(workspaceUID, st, state)
		})
		l.states[workspaceUID] = st
	}
	if !busy {
		st.mu.Lock()
		st.outcome = outcome
		st.mu.Unlock()
	}
	st.debouncer.Set(busy)
}

// transition runs on the debouncer, either inline from setBusyLocked or from its timer.
func (l *Loader) transition(workspaceUID string, st *loadState, state LoadingState) {
	st.mu.Lock()
	st.current = state
	st.mu.Unlock()

	l.logger.WithFields(logrus.Fields{
		"workspace_uid": workspaceUID,
		"state":         state,
	}).Debug("Workspace loading state changed")

	if l.emitter == nil {
		return
	}
	err := l.emitter.Emit(context.Background(), &emitter.Event{
		Kind:         emitter.KindWorkspaceLoading,
		WorkspaceUID: workspaceUID,
		Status:       string(state),
	})
	if err != nil {
		l.logger.WithError(err).WithField("workspace_uid", workspaceUID).Warn("Failed to emit workspace loading state")
	}
}
