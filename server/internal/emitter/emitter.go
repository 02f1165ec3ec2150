package emitter

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrClosed = errors.New("emitter closed")
)

type EventKind string

const (
	// KindWatcherStatus reports a collection watcher starting, failing or stopping.
	KindWatcherStatus EventKind = "watcher_status"
	// KindWorkspaceLoading reports the debounced loading state of a workspace.
	KindWorkspaceLoading EventKind = "workspace_loading"
)

// Statuses carried by KindWatcherStatus events besides the watcher's own active/error.
const StatusStopped = "stopped"

// Event is a state change pushed to observers outside the sync engine.
type Event struct {
	Kind          EventKind `json:"kind"`
	CollectionUID string    `json:"collectionUid,omitempty"`
	WorkspaceUID  string    `json:"workspaceUid,omitempty"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Emitter is a multi-writer, single-reader queue of events.
type Emitter struct {
	ch   chan *Event
	done chan struct{}
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func New(size int) *Emitter {
	return &Emitter{
		ch:   make(chan *Event, max(size, 1)),
		done: make(chan struct{}),
	}
}

func (e *Emitter) Emit(ctx context.Context, event *Event) error {
	// the read lock orders wg.Add before the Wait in Close
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return ErrClosed
	}
	e.wg.Add(1)
	e.mu.RUnlock()
	defer e.wg.Done()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrClosed
	case e.ch <- event:
		return nil
	}
}

func (e *Emitter) Chan() <-chan *Event {
	return e.ch
}

func (e *Emitter) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return // already closed
	}
	e.closed = true
	// signal blocked emit calls
	close(e.done)
	e.mu.Unlock()

	// wait for inflight emit calls to finish
	e.wg.Wait()
	// now we're safe to close the multi-writer queue channel
	close(e.ch)
}
