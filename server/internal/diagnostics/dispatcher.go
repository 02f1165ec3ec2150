package diagnostics

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Journal receives a copy of every record the Dispatcher stores.
type Journal interface {
	Append(kind string, record any) error
}

type DispatcherOption func(d *Dispatcher)

func WithJournal(j Journal) DispatcherOption {
	return func(d *Dispatcher) {
		d.journal = j
	}
}

// WithClock overrides the time source used to stamp records.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// Dispatcher stamps raw occurrences and files them in the Store. Filters are not consulted here: everything is kept
// up to capacity and filtering happens when the store is read.
type Dispatcher struct {
	logger  *logrus.Logger
	store   *Store
	journal Journal
	now     func() time.Time
}

func NewDispatcher(logger *logrus.Logger, store *Store, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		logger: logger,
		store:  store,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Store() *Store {
	return d.store
}

// RecordOperation files a read or write.
func (d *Dispatcher) RecordOperation(op Operation) Operation {
	op.ID, op.Timestamp, op.Details = d.stamp(op.ID, op.Timestamp, op.Details)
	d.store.AppendOperation(op)
	d.journalAppend(KindOperation, op)
	return op
}

// RecordWatcherEvent files a filesystem notification.
func (d *Dispatcher) RecordWatcherEvent(ev WatcherEvent) WatcherEvent {
	ev.ID, ev.Timestamp, ev.Details = d.stamp(ev.ID, ev.Timestamp, ev.Details)
	d.store.AppendWatcherEvent(ev)
	d.journalAppend(KindWatcherEvent, ev)
	return ev
}

// RecordParsingError files a conversion failure.
func (d *Dispatcher) RecordParsingError(pe ParsingError) ParsingError {
	pe.ID, pe.Timestamp, pe.Details = d.stamp(pe.ID, pe.Timestamp, pe.Details)
	d.store.AppendParsingError(pe)
	d.journalAppend(KindParsingError, pe)
	return pe
}

func (d *Dispatcher) stamp(id string, ts time.Time, details Details) (string, time.Time, Details) {
	if id == "" {
		// v7 ids sort by creation time
		id = uuid.Must(uuid.NewV7()).String()
	}
	if ts.IsZero() {
		ts = d.now().UTC()
	}
	if details == nil {
		details = Details{}
	}
	return id, ts, details
}

func (d *Dispatcher) journalAppend(kind string, record any) {
	if d.journal == nil {
		return
	}
	if err := d.journal.Append(kind, record); err != nil {
		d.logger.WithError(err).WithField("kind", kind).Warn("Failed to append record to the diagnostics journal")
	}
}
