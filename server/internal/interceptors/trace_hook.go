package interceptors

import (
	"slices"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// spanFields are the log fields copied onto span events.
var spanFields = []string{"collection_uid", "workspace_uid", "path"}

// TraceHook ties log entries to the span of the IPC request that produced them. Entries logged through
// WithContext(ctx) carry trace_id and span_id; warnings and errors are also recorded on the span as events, and
// errors mark the span as failed.
type TraceHook struct{}

func (h *TraceHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *TraceHook) Fire(entry *logrus.Entry) error {
	if entry.Context == nil {
		return nil
	}

	span := trace.SpanFromContext(entry.Context)
	sc := span.SpanContext()
	if !sc.IsValid() {
		return nil
	}
	entry.Data["trace_id"] = sc.TraceID().String()
	entry.Data["span_id"] = sc.SpanID().String()

	if entry.Level > logrus.WarnLevel || !span.IsRecording() {
		return nil
	}

	attrs := []attribute.KeyValue{attribute.String("log.severity", entry.Level.String())}
	for key := range slices.Values(spanFields) {
		if v, ok := entry.Data[key].(string); ok {
			attrs = append(attrs, attribute.String(key, v))
		}
	}
	err, _ := entry.Data[logrus.ErrorKey].(error)
	if err != nil {
		attrs = append(attrs, attribute.String("exception.message", err.Error()))
	}
	span.AddEvent(entry.Message, trace.WithAttributes(attrs...))

	if entry.Level <= logrus.ErrorLevel {
		span.SetStatus(codes.Error, entry.Message)
	}
	return nil
}
