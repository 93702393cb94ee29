package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrService = "service"
)

// TracingHandler is an [slog.Handler] that injects the active span's
// trace_id/span_id into every log record and pins the service name as
// a top-level attribute regardless of later WithGroup calls.
type TracingHandler struct {
	inner slog.Handler
}

// NewTracingHandler wraps inner, pre-attaching service as a top-level attribute.
func NewTracingHandler(inner slog.Handler, service string) *TracingHandler {
	return &TracingHandler{inner: inner.WithAttrs([]slog.Attr{slog.String(attrService, service)})}
}

func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.inner.Enabled(ctx, level)
}

func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	if err := th.inner.Handle(ctx, record); err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{inner: th.inner.WithAttrs(attrs)}
}

func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{inner: th.inner.WithGroup(name)}
}
