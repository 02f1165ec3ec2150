package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/hedisam/brunosync/server/internal/collection"
	"github.com/hedisam/brunosync/server/internal/diagnostics"
)

var errRootRemoved = errors.New("collection root was removed")

type Recorder interface {
	RecordWatcherEvent(ev diagnostics.WatcherEvent) diagnostics.WatcherEvent
}

// Watcher is the OS level monitor of one collection root.
type Watcher struct {
	logger     *logrus.Logger
	collection *collection.Collection
	fsw        *fsnotify.Watcher
	classifier *Classifier
	syncer     *collection.Syncer
	recorder   Recorder
	// onStatus is told about watcher failures (fatal) and warnings (not fatal).
	onStatus func(err error, fatal bool)
	now      func() time.Time
	done     chan struct{}
}

func newWatcher(logger *logrus.Logger, c *collection.Collection, syncer *collection.Syncer, recorder Recorder,
	onStatus func(err error, fatal bool)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &Watcher{
		logger:     logger,
		collection: c,
		fsw:        fsw,
		classifier: NewClassifier(),
		syncer:     syncer,
		recorder:   recorder,
		onStatus:   onStatus,
		now:        time.Now,
		done:       make(chan struct{}),
	}, nil
}

// Add implements collection.DirWatcher.
func (w *Watcher) Add(dirPath string) error {
	err := w.fsw.Add(dirPath)
	if err != nil {
		return fmt.Errorf("add dir to watcher: %w", err)
	}
	w.classifier.RememberDir(dirPath)

	w.logger.WithField("dir", dirPath).Debug("Watching directory...")
	return nil
}

// Start walks the collection root and then runs the event loop in the background until ctx is done or the watcher
// is closed.
func (w *Watcher) Start(ctx context.Context) error {
	err := collection.Walk(ctx, w.logger, w.collection, w.collection.Path, w, w.syncer)
	if err != nil {
		return fmt.Errorf("walk collection: %w", err)
	}

	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	logger := w.logger.WithField("collection_uid", w.collection.UID)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ctx, event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.WithError(err).Error("Received error from watcher")
			w.recorder.RecordWatcherEvent(diagnostics.WatcherEvent{
				Type:          diagnostics.EventError,
				Path:          w.collection.Path,
				CollectionUID: w.collection.UID,
				Details:       diagnostics.Details{"error": err.Error()},
			})
			// an overflow loses events but the watch itself keeps working
			w.onStatus(err, !errors.Is(err, fsnotify.ErrEventOverflow))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if collection.Skip(filepath.Base(event.Name)) {
		// ignore hidden and temporary files (e.g. file.bru~ that are automatically created by editors)
		return
	}
	if event.Name != w.collection.Path && w.collection.Ignored(w.collection.Rel(event.Name)) {
		return
	}

	logger := w.logger.WithContext(ctx).WithFields(logrus.Fields{
		"collection_uid": w.collection.UID,
		"path":           event.Name,
	})

	ts := w.now()
	for change := range slices.Values(w.classifier.Classify(event)) {
		w.recorder.RecordWatcherEvent(diagnostics.WatcherEvent{
			Type:          change.Type,
			Path:          change.Path,
			CollectionUID: w.collection.UID,
			Timestamp:     ts.UTC(),
			Details:       diagnostics.Details{"op": event.Op.String()},
		})
		logger.WithField("type", change.Type).Debug("Watcher event")

		switch change.Type {
		case diagnostics.EventAdd, diagnostics.EventChange:
			if filepath.Ext(change.Path) != collection.Ext {
				continue
			}
			if err := w.syncer.Load(ctx, change.Path, ts); err != nil {
				logger.WithError(err).Warn("Failed to load changed file")
			}
		case diagnostics.EventAddDir:
			// files may have landed in the directory before it was watched
			if err := collection.Walk(ctx, w.logger, w.collection, change.Path, w, w.syncer); err != nil {
				logger.WithError(err).Warn("Failed to walk new directory")
			}
		case diagnostics.EventUnlink:
			w.syncer.Remove(change.Path, ts)
		case diagnostics.EventUnlinkDir:
			w.syncer.RemoveDir(change.Path, ts)
			if change.Path == w.collection.Path {
				w.onStatus(errRootRemoved, true)
			}
		}
	}
}

// Close tears down the OS level watch. The event loop exits once fsnotify has closed its channels.
func (w *Watcher) Close() {
	_ = w.fsw.Close()
}

// Done is closed when the event loop has exited.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}
