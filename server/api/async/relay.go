package async

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hedisam/brunosync/lib/chans"
	"github.com/hedisam/brunosync/server/internal/emitter"
)

type Journal interface {
	Append(kind string, record any) error
}

// Relay copies status events from the emitter into the journal so that clients tailing it see watchers start, fail
// and stop.
type Relay struct {
	logger  *logrus.Logger
	journal Journal
}

func NewRelay(logger *logrus.Logger, journal Journal) *Relay {
	return &Relay{
		logger:  logger,
		journal: journal,
	}
}

// Run blocks until in is closed or ctx is done.
func (r *Relay) Run(ctx context.Context, in <-chan *emitter.Event) {
	r.logger.WithContext(ctx).Info("Running event relay")

	for event := range chans.ReceiveOrDoneSeq(ctx, in) {
		r.relay(ctx, event)
	}
}

func (r *Relay) relay(ctx context.Context, event *emitter.Event) {
	ctx, span := otel.Tracer("").Start(ctx, "relay")
	defer span.End()
	span.SetAttributes(
		attribute.String("kind", string(event.Kind)),
		attribute.String("status", event.Status),
	)

	logger := r.logger.WithContext(ctx).WithFields(logrus.Fields{
		"kind":           event.Kind,
		"status":         event.Status,
		"collection_uid": event.CollectionUID,
		"workspace_uid":  event.WorkspaceUID,
	})
	logger.Debug("Relaying event")

	bk := backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(time.Second*3),
		backoff.WithMaxInterval(time.Second),
		backoff.WithInitialInterval(time.Millisecond*100),
		backoff.WithMultiplier(2),
		backoff.WithRandomizationFactor(0.2),
	)
	err := backoff.Retry(func() error {
		err := r.journal.Append(string(event.Kind), event)
		if err != nil {
			if errors.Is(err, os.ErrClosed) {
				// the journal is gone for good during shutdown
				return backoff.Permanent(err)
			}
			logger.WithError(err).Warn("Failed to append event to the journal, retrying")
			return err
		}

		return nil
	}, backoff.WithContext(bk, ctx))
	if err != nil {
		logger.WithError(err).Error("Failed to relay event")
		return
	}
}
