package watch

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hedisam/brunosync/server/internal/collection"
	"github.com/hedisam/brunosync/server/internal/diagnostics"
	"github.com/hedisam/brunosync/server/internal/emitter"
)

type Emitter interface {
	Emit(ctx context.Context, event *emitter.Event) error
}

type RegistryOption func(r *Registry)

// WithEmitter publishes watcher status changes.
func WithEmitter(e Emitter) RegistryOption {
	return func(r *Registry) {
		r.emitter = e
	}
}

type entry struct {
	watcher *Watcher
	syncer  *collection.Syncer
	cancel  context.CancelFunc
}

// Registry owns one watcher per collection root and keeps the diagnostic watcher table in line with them.
type Registry struct {
	logger     *logrus.Logger
	converter  collection.Converter
	dispatcher *diagnostics.Dispatcher
	emitter    Emitter
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

func NewRegistry(logger *logrus.Logger, converter collection.Converter, dispatcher *diagnostics.Dispatcher,
	opts ...RegistryOption) *Registry {
	r := &Registry{
		logger:     logger,
		converter:  converter,
		dispatcher: dispatcher,
		now:        time.Now,
		entries:    make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start watches the collection root and loads every file below it. A collection that is already watched is
// restarted. A failed walk leaves the watcher registered in the error state. The walk runs without holding the
// registry lock.
func (r *Registry) Start(ctx context.Context, c *collection.Collection) error {
	logger := r.logger.WithContext(ctx).WithFields(logrus.Fields{
		"collection_uid": c.UID,
		"path":           c.Path,
	})

	syncer := collection.NewSyncer(r.logger, c, r.converter, r.dispatcher)
	w, err := newWatcher(r.logger, c, syncer, r.dispatcher, func(err error, fatal bool) {
		r.reportStatus(c.UID, err, fatal)
	})
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// outlives the request that opened the collection; Stop cancels it
	wctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e := &entry{watcher: w, syncer: syncer, cancel: cancel}

	r.mu.Lock()
	old := r.entries[c.UID]
	r.entries[c.UID] = e
	r.dispatcher.Store().StartWatcher(c.UID, r.now().UTC())
	r.mu.Unlock()
	if old != nil {
		r.teardown(c.UID, old)
	}

	err = w.Start(wctx)
	if err != nil {
		logger.WithError(err).Error("Failed to start watcher")
		if r.current(c.UID, e) {
			r.dispatcher.Store().UpdateStatus(c.UID, diagnostics.WatcherError, err.Error())
			r.emit(c.UID, string(diagnostics.WatcherError), err.Error())
		}
		return fmt.Errorf("start watcher for %s: %w", c.Path, err)
	}

	logger.Info("Started collection watcher")
	r.emit(c.UID, string(diagnostics.WatcherActive), "")
	return nil
}

// Stop tears down the watcher of a collection and forgets its watcher info. Conversions still in flight for the
// collection are discarded when they finish.
func (r *Registry) Stop(collectionUID string) bool {
	r.mu.Lock()
	e := r.detach(collectionUID)
	r.mu.Unlock()
	if e == nil {
		return false
	}
	r.teardown(collectionUID, e)
	return true
}

func (r *Registry) StopAll() {
	r.mu.Lock()
	detached := make(map[string]*entry, len(r.entries))
	for uid := range maps.Keys(r.entries) {
		detached[uid] = r.detach(uid)
	}
	r.mu.Unlock()

	for uid, e := range detached {
		r.teardown(uid, e)
	}
}

// detach removes the entry and the watcher info of a collection. r.mu must be held.
func (r *Registry) detach(collectionUID string) *entry {
	e, ok := r.entries[collectionUID]
	if !ok {
		return nil
	}
	delete(r.entries, collectionUID)
	r.dispatcher.Store().RemoveWatcher(collectionUID)
	return e
}

func (r *Registry) teardown(collectionUID string, e *entry) {
	e.cancel()
	e.watcher.Close()
	e.syncer.Close()

	r.logger.WithField("collection_uid", collectionUID).Info("Stopped collection watcher")
	r.emit(collectionUID, emitter.StatusStopped, "")
}

func (r *Registry) current(collectionUID string, e *entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[collectionUID] == e
}

// Watching returns the uids of watched collections in order.
func (r *Registry) Watching() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(maps.Keys(r.entries))
}

// Syncer returns the syncer of a watched collection, through which its index is read and its requests are saved.
func (r *Registry) Syncer(collectionUID string) (*collection.Syncer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[collectionUID]
	if !ok {
		return nil, false
	}
	return e.syncer, true
}

func (r *Registry) reportStatus(collectionUID string, err error, fatal bool) {
	status := diagnostics.WatcherActive
	if fatal {
		status = diagnostics.WatcherError
	}
	if !r.dispatcher.Store().UpdateStatus(collectionUID, status, err.Error()) {
		// stopped meanwhile
		return
	}
	r.emit(collectionUID, string(status), err.Error())
}

func (r *Registry) emit(collectionUID, status, errMsg string) {
	if r.emitter == nil {
		return
	}
	err := r.emitter.Emit(context.Background(), &emitter.Event{
		Kind:          emitter.KindWatcherStatus,
		CollectionUID: collectionUID,
		Status:        status,
		Error:         errMsg,
	})
	if err != nil {
		r.logger.WithError(err).WithField("collection_uid", collectionUID).Warn("Failed to emit watcher status")
	}
}
