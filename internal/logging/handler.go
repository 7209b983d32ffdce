package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// The root handler of the service: JSON records, with Cloud Trace fields when a GCP project is set
func NewHandler(w io.Writer, gcpProject string) slog.Handler {
	var handler slog.Handler = slog.NewJSONHandler(w, nil)
	if gcpProject != "" {
		handler = NewGoogleCloudTracingLogHandler(handler, gcpProject)
	}
	return handler
}

// Adds the active trace and span to each record so Cloud Logging can group them
//
// NOTE: Only the *Context slog methods carry the span
func NewGoogleCloudTracingLogHandler(base slog.Handler, gcpProject string) slog.Handler {
	return &cloudTraceHandler{base: base, traceRoot: fmt.Sprintf("projects/%s/traces/", gcpProject)}
}

type cloudTraceHandler struct {
	base      slog.Handler
	traceRoot string
}

func (h *cloudTraceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *cloudTraceHandler) Handle(ctx context.Context, record slog.Record) error {
	spanContext := trace.SpanContextFromContext(ctx)
	if !spanContext.IsValid() {
		return h.base.Handle(ctx, record)
	}

	record.AddAttrs(
		slog.String("logging.googleapis.com/trace", h.traceRoot+spanContext.TraceID().String()),
		slog.String("logging.googleapis.com/spanId", spanContext.SpanID().String()),
		slog.Bool("logging.googleapis.com/trace_sampled", spanContext.IsSampled()),
	)
	return h.base.Handle(ctx, record)
}

func (h *cloudTraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &cloudTraceHandler{base: h.base.WithAttrs(attrs), traceRoot: h.traceRoot}
}

func (h *cloudTraceHandler) WithGroup(name string) slog.Handler {
	return &cloudTraceHandler{base: h.base.WithGroup(name), traceRoot: h.traceRoot}
}

var _ slog.Handler = (*cloudTraceHandler)(nil)
