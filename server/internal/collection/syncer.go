package collection

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hedisam/brunosync/lib/bru"
	"github.com/hedisam/brunosync/server/internal/convert"
	"github.com/hedisam/brunosync/server/internal/diagnostics"
)

var ErrClosed = errors.New("collection closed")

type Converter interface {
	Submit(ctx context.Context, req convert.Request) (*convert.Future, error)
}

type Recorder interface {
	RecordOperation(op diagnostics.Operation) diagnostics.Operation
	RecordParsingError(pe diagnostics.ParsingError) diagnostics.ParsingError
}

// Syncer keeps the index of one collection in line with its files. Reads and writes are recorded as operations;
// conversions run on the converter and their results are applied asynchronously, so Load returns as soon as the
// file is read and queued. Loaded files wait in a per-syncer queue that a single goroutine hands to the converter,
// so a busy converter never blocks the caller of Load.
type Syncer struct {
	logger     *logrus.Logger
	collection *Collection
	index      *Index
	converter  Converter
	recorder   Recorder

	closed   atomic.Bool
	inflight sync.WaitGroup

	qmu      sync.Mutex
	queue    []pendingLoad
	draining bool
}

type pendingLoad struct {
	ctx  context.Context
	path string
	kind EntryKind
	ts   time.Time
	data []byte
}

func NewSyncer(logger *logrus.Logger, c *Collection, converter Converter, recorder Recorder) *Syncer {
	return &Syncer{
		logger:     logger,
		collection: c,
		index:      NewIndex(),
		converter:  converter,
		recorder:   recorder,
	}
}

func (s *Syncer) Collection() *Collection {
	return s.collection
}

func (s *Syncer) Index() *Index {
	return s.index
}

// Load reads path and queues its conversion. ts orders the result against other changes of the same path.
func (s *Syncer) Load(ctx context.Context, path string, ts time.Time) error {
	if s.closed.Load() {
		return ErrClosed
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// gone before we got to it; the removal event follows
			return nil
		}
		return fmt.Errorf("read collection file: %w", err)
	}
	s.recorder.RecordOperation(diagnostics.Operation{
		Type: diagnostics.OperationRead,
		Path: path,
		Details: diagnostics.Details{
			diagnostics.DetailCollectionUID: s.collection.UID,
			"size":                          len(data),
		},
	})

	s.enqueue(pendingLoad{
		ctx:  ctx,
		path: path,
		kind: KindOf(s.collection, path),
		ts:   ts,
		data: data,
	})

	return nil
}

func (s *Syncer) enqueue(p pendingLoad) {
	s.inflight.Add(1)

	s.qmu.Lock()
	s.queue = append(s.queue, p)
	start := !s.draining
	s.draining = true
	s.qmu.Unlock()

	if start {
		go s.drain()
	}
}

// drain submits queued loads in order until the queue is empty.
func (s *Syncer) drain() {
	for {
		s.qmu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.qmu.Unlock()
			return
		}
		p := s.queue[0]
		s.queue[0] = pendingLoad{}
		s.queue = s.queue[1:]
		s.qmu.Unlock()

		s.submit(p)
	}
}

func (s *Syncer) submit(p pendingLoad) {
	if s.closed.Load() || p.ctx.Err() != nil {
		s.inflight.Done()
		return
	}

	future, err := s.converter.Submit(p.ctx, convert.Request{
		Kind:    convertKind(p.kind),
		Op:      convert.OpDecode,
		Data:    p.data,
		Options: convert.Options{Filename: p.path},
	})
	if err != nil {
		s.inflight.Done()
		s.logger.WithContext(p.ctx).WithError(err).WithFields(logrus.Fields{
			"collection_uid": s.collection.UID,
			"path":           p.path,
		}).Warn("Failed to submit conversion, dropping")
		return
	}

	go func() {
		defer s.inflight.Done()
		s.apply(p.ctx, p.path, p.kind, p.ts, future)
	}()
}

func (s *Syncer) apply(ctx context.Context, path string, kind EntryKind, ts time.Time, future *convert.Future) {
	logger := s.logger.WithContext(ctx).WithFields(logrus.Fields{
		"collection_uid": s.collection.UID,
		"path":           path,
	})

	reply, err := future.Wait(ctx)
	if err != nil {
		logger.WithError(err).Warn("Conversion was not answered, dropping")
		return
	}
	if s.closed.Load() {
		logger.Debug("Collection closed while converting, discarding result")
		return
	}

	entry := &Entry{
		Path:      path,
		Kind:      kind,
		Timestamp: ts,
	}
	switch v := reply.Value.(type) {
	case *bru.Item:
		v.PersistedPath = path
		v.UID = UID(path)
		entry.Item = v
	case *bru.Collection:
		entry.Root = v
	case *bru.Environment:
		entry.Environment = v
	}

	if reply.Failed() {
		entry.Error = reply.Error
		s.recorder.RecordParsingError(diagnostics.ParsingError{
			Type:    diagnostics.ParsingErrorType(reply.ErrorType),
			Path:    path,
			Message: reply.Error,
			Details: diagnostics.Details{
				diagnostics.DetailCollectionUID: s.collection.UID,
				"kind":                          string(kind),
			},
		})
		logger.WithField("error", reply.Error).Debug("Collection file could not be parsed")
	}

	if !s.index.Put(entry) {
		logger.Debug("Index holds a newer state of the file, dropping conversion result")
	}
}

// Remove forgets a deleted file.
func (s *Syncer) Remove(path string, ts time.Time) {
	s.index.Remove(path, ts)
}

// RemoveDir forgets every file under a deleted directory.
func (s *Syncer) RemoveDir(dir string, ts time.Time) {
	s.index.RemoveDir(dir, ts)
}

// Save encodes item and writes it to path, a location inside the collection. A transient item becomes persisted:
// the returned copy carries its path.
func (s *Syncer) Save(ctx context.Context, item *bru.Item, path string) (*bru.Item, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.collection.Path, path)
	}
	if rel := s.collection.Rel(path); rel == ".." || strings.HasPrefix(rel, "../") {
		return nil, fmt.Errorf("%s is outside collection %s", path, s.collection.Path)
	}
	if filepath.Ext(path) != Ext {
		path += Ext
	}

	future, err := s.converter.Submit(ctx, convert.Request{
		Kind:    convert.KindRequest,
		Op:      convert.OpEncode,
		Data:    item,
		Options: convert.Options{Filename: path},
	})
	if err != nil {
		return nil, fmt.Errorf("submit conversion: %w", err)
	}
	reply, err := future.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("wait for conversion: %w", err)
	}
	if reply.Failed() {
		return nil, fmt.Errorf("encode request: %s", reply.Error)
	}
	text, _ := reply.Value.(string)

	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create request directory: %w", err)
	}
	if err = os.WriteFile(path, []byte(text), 0o644); err != nil {
		return nil, fmt.Errorf("write request file: %w", err)
	}
	s.recorder.RecordOperation(diagnostics.Operation{
		Type: diagnostics.OperationWrite,
		Path: path,
		Details: diagnostics.Details{
			diagnostics.DetailCollectionUID: s.collection.UID,
			"size":                          len(text),
		},
	})

	saved := *item
	saved.PersistedPath = path
	saved.UID = UID(path)
	s.index.Put(&Entry{
		Path:      path,
		Kind:      EntryRequest,
		Item:      &saved,
		Timestamp: time.Now(),
	})

	return &saved, nil
}

// Wait blocks until every queued load has been converted and applied or dropped.
func (s *Syncer) Wait() {
	s.inflight.Wait()
}

// Close makes the syncer discard queued loads and conversions that finish from now on.
func (s *Syncer) Close() {
	s.closed.Store(true)
}

func convertKind(kind EntryKind) convert.Kind {
	switch kind {
	case EntryCollection, EntryFolder:
		return convert.KindCollection
	case EntryEnvironment:
		return convert.KindEnvironment
	}
	return convert.KindRequest
}
