package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hedisam/brunosync/lib/bru"
	"github.com/hedisam/pipeline"
	"github.com/hedisam/pipeline/stage"
)

const tracerName = "github.com/hedisam/brunosync/server/internal/convert"

// ErrClosed is returned for submissions made to, or left pending in, a closed worker.
var ErrClosed = errors.New("conversion worker closed")

// Future is the handle of a submitted conversion. It is resolved exactly once.
type Future struct {
	done  chan struct{}
	once  sync.Once
	reply Reply
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(reply Reply, err error) {
	f.once.Do(func() {
		f.reply = reply
		f.err = err
		close(f.done)
	})
}

// Done is closed once the conversion has been answered.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the conversion is answered or ctx is done. The returned error is never a conversion failure;
// those are reported by Reply.Failed.
func (f *Future) Wait(ctx context.Context) (Reply, error) {
	select {
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	case <-f.done:
		return f.reply, f.err
	}
}

type job struct {
	ctx     context.Context
	req     Request
	future  *Future
	reply   Reply
	queued  time.Time
	elapsed time.Duration
}

type Option func(w *Worker)

func WithMetrics(m *Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

// Worker runs codec invocations on a pool of goroutines, away from whoever submits them. Each submission gets exactly
// one reply; a conversion that panics is answered with a runtime error instead of taking the worker down.
type Worker struct {
	logger  *logrus.Logger
	tracer  trace.Tracer
	metrics *Metrics
	workers uint

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	quit      chan struct{}
	mailbox   chan *job

	beforeConvert func(req Request)
}

func New(logger *logrus.Logger, workers uint, opts ...Option) *Worker {
	workers = max(workers, 1)
	w := &Worker{
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
		workers: workers,
		quit:    make(chan struct{}),
		mailbox: make(chan *job, workers),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run processes submissions until the worker is closed or ctx is canceled. Submissions still queued when Run returns
// are answered with ErrClosed.
func (w *Worker) Run(ctx context.Context) error {
	defer w.drain()

	p := pipeline.NewPipeline(w, w.sink)
	err := p.Run(ctx, stage.WorkerPoolRunner(w.workers, w.process))
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("conversion pipeline error: %w", err)
	}

	return nil
}

// Submit queues a conversion. It blocks while the queue is full.
func (w *Worker) Submit(ctx context.Context, req Request) (*Future, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return nil, ErrClosed
	}

	j := &job{
		ctx:    context.WithoutCancel(ctx),
		req:    req,
		future: newFuture(),
		queued: time.Now(),
	}
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("could not queue conversion: %w", ctx.Err())
	case <-w.quit:
		return nil, ErrClosed
	case w.mailbox <- j:
	}

	return j.future, nil
}

// Convert submits req and waits for its reply.
func (w *Worker) Convert(ctx context.Context, req Request) (Reply, error) {
	f, err := w.Submit(ctx, req)
	if err != nil {
		return Reply{}, err
	}
	return f.Wait(ctx)
}

// Close stops accepting submissions. Conversions already picked up by the pool still complete; the rest are answered
// with ErrClosed.
func (w *Worker) Close() {
	w.closeOnce.Do(func() {
		close(w.quit)
	})
	// wait for submitters that passed the closed check
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}

func (w *Worker) drain() {
	w.Close()
	for {
		select {
		case j := <-w.mailbox:
			j.future.resolve(Reply{}, ErrClosed)
		default:
			return
		}
	}
}

// Next implements pipeline.Source. It returns io.EOF once the worker is closed or ctx is canceled.
func (w *Worker) Next(ctx context.Context) (any, error) {
	if ctx.Err() != nil {
		return nil, io.EOF
	}
	select {
	case <-ctx.Done():
		return nil, io.EOF
	case <-w.quit:
		return nil, io.EOF
	case j := <-w.mailbox:
		return j, nil
	}
}

// process is the stage processor run by the pool. It never fails the pipeline: every outcome, a panic included, is
// carried to the sink inside the job's reply.
func (w *Worker) process(_ context.Context, payload any) (out any, drop bool, err error) {
	j, ok := payload.(*job)
	if !ok {
		return nil, false, fmt.Errorf("invalid payload type received by conversion processor: %T", payload)
	}

	ctx, span := w.tracer.Start(j.ctx, "convert."+string(j.req.Op),
		trace.WithAttributes(
			attribute.String("convert.kind", string(j.req.Kind)),
			attribute.String("convert.filename", j.req.Options.Filename),
		),
	)
	defer span.End()

	start := time.Now()
	j.reply = w.convert(ctx, j.req)
	j.elapsed = time.Since(start)

	if j.reply.Failed() {
		span.SetStatus(codes.Error, j.reply.Error)
		span.SetAttributes(attribute.String("convert.error_type", string(j.reply.ErrorType)))
	}

	return j, false, nil
}

func (w *Worker) convert(ctx context.Context, req Request) (reply Reply) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.WithContext(ctx).WithFields(logrus.Fields{
				"kind":     req.Kind,
				"op":       req.Op,
				"filename": req.Options.Filename,
				"panic":    r,
				"stack":    string(debug.Stack()),
			}).Error("Recovered from panic during conversion")
			reply = Reply{Error: fmt.Sprintf("conversion panicked: %v", r), ErrorType: ErrorRuntime}
		}
	}()

	if w.beforeConvert != nil {
		w.beforeConvert(req)
	}
	if req.Op == OpDecode {
		return decode(req)
	}
	return encode(req)
}

func decode(req Request) Reply {
	text, err := textFrom(req.Data)
	if err != nil {
		return Reply{Error: err.Error(), ErrorType: ErrorRuntime}
	}

	var value any
	switch req.Kind {
	case KindRequest:
		value, err = bru.Decode(text, req.Options.fallbackName())
	case KindCollection:
		value, err = bru.DecodeCollection(text)
	case KindEnvironment:
		value, err = bru.DecodeEnvironment(text, req.Options.fallbackName())
	}
	if err != nil {
		return Reply{Value: value, Error: err.Error(), ErrorType: classify(err)}
	}

	return Reply{Value: value}
}

func encode(req Request) Reply {
	var (
		text string
		err  error
	)
	switch req.Kind {
	case KindRequest:
		var item *bru.Item
		if item, err = modelFrom[bru.Item](req.Data); err == nil {
			text = bru.Encode(item)
		}
	case KindCollection:
		var c *bru.Collection
		if c, err = modelFrom[bru.Collection](req.Data); err == nil {
			text = bru.EncodeCollection(c)
		}
	case KindEnvironment:
		var env *bru.Environment
		if env, err = modelFrom[bru.Environment](req.Data); err == nil {
			text = bru.EncodeEnvironment(env)
		}
	}
	if err != nil {
		return Reply{Error: err.Error(), ErrorType: ErrorRuntime}
	}

	return Reply{Value: text}
}

func classify(err error) ErrorType {
	var syntaxErr *bru.SyntaxError
	if errors.As(err, &syntaxErr) {
		return ErrorSyntax
	}
	var modelErr *bru.ModelError
	if errors.As(err, &modelErr) {
		return ErrorParsing
	}
	return ErrorRuntime
}

// sink implements pipeline.Sink and answers the submitter.
func (w *Worker) sink(_ context.Context, payload any) error {
	j, ok := payload.(*job)
	if !ok {
		return fmt.Errorf("invalid payload type received by conversion sink: %T", payload)
	}

	w.metrics.observe(j.req, j.reply, j.elapsed, time.Since(j.queued))
	j.future.resolve(j.reply, nil)
	return nil
}
