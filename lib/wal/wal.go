package wal

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hedisam/brunosync/lib/chans"
)

const pollInterval = 100 * time.Millisecond

// Entry is one line of the journal.
type Entry struct {
	Timestamp    time.Time       `json:"timestamp"`
	Kind         string          `json:"kind"`
	Record       json.RawMessage `json:"record"`
	Error        string          `json:"-"`
	ErroredBytes []byte          `json:"-"`
}

// WAL is an append-only JSON-lines journal that can be tailed while it is written.
type WAL struct {
	logger *logrus.Logger

	closed    atomic.Bool
	mu        sync.Mutex
	writeFile *os.File
	encoder   *json.Encoder

	readFile *os.File
	reader   *bufio.Reader
}

// New opens (or creates) a journal file at the given path.
func New(logger *logrus.Logger, path string) (*WAL, error) {
	wf, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open wal file: %w", err)
	}

	rf, err := os.Open(path)
	if err != nil {
		_ = wf.Close()
		return nil, fmt.Errorf("open wal file for reading: %w", err)
	}

	return &WAL{
		logger:    logger,
		writeFile: wf,
		encoder:   json.NewEncoder(wf),
		readFile:  rf,
		reader:    bufio.NewReader(rf),
	}, nil
}

// Append encodes record as JSON and writes it as a single line tagged with kind. Concurrent appends are serialized.
func (w *WAL) Append(kind string, record any) error {
	if w.closed.Load() {
		return os.ErrClosed
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	err = w.encoder.Encode(&Entry{
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		Record:    raw,
	})
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}

	return nil
}

type consumerConfig struct {
	follow bool
	kinds  []string
}

type Option func(cfg *consumerConfig)

// WithFollow keeps the consumer waiting for new entries at the end of the file instead of stopping.
func WithFollow() Option {
	return func(cfg *consumerConfig) {
		cfg.follow = true
	}
}

// WithKinds only emits entries of the given kinds.
func WithKinds(kinds ...string) Option {
	return func(cfg *consumerConfig) {
		cfg.kinds = kinds
	}
}

// Consume returns a channel that emits journal entries in write order. Without WithFollow the channel is closed once
// the end of the file is reached; with it the journal is tailed until the context is canceled.
func (w *WAL) Consume(ctx context.Context, opts ...Option) <-chan *Entry {
	out := make(chan *Entry)

	cfg := &consumerConfig{}
	for opt := range slices.Values(opts) {
		opt(cfg)
	}

	go func() {
		defer close(out)

		var partialData []byte
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			line, err := w.reader.ReadBytes('\n')
			if err != nil {
				if errors.Is(err, io.EOF) {
					// the writer may not have finished the line yet; keep what we got for the next read.
					if len(line) > 0 {
						partialData = append(partialData, line...)
					}
					if !cfg.follow && len(partialData) == 0 {
						return
					}
					time.Sleep(pollInterval)
					continue
				}
				if !errors.Is(err, os.ErrClosed) {
					w.logger.WithError(err).Error("Failed to read from the journal")
				}
				return
			}
			if len(partialData) > 0 {
				line = append(partialData, line...)
				partialData = partialData[:0]
			}

			var entry Entry
			err = json.Unmarshal(line, &entry)
			if err != nil {
				w.logger.WithError(err).Error("Failed to unmarshal journal entry")
				entry = Entry{
					Timestamp:    time.Now().UTC(),
					Error:        err.Error(),
					ErroredBytes: line,
				}
			}

			if err == nil && len(cfg.kinds) > 0 && !slices.Contains(cfg.kinds, entry.Kind) {
				continue
			}

			if !chans.SendOrDone(ctx, out, &entry) {
				return
			}
		}
	}()

	return out
}

// Close cleans up file descriptors used by the journal.
func (w *WAL) Close() {
	if w.closed.CompareAndSwap(false, true) {
		w.mu.Lock()
		_ = w.writeFile.Close()
		w.mu.Unlock()
		_ = w.readFile.Close()
	}
}
