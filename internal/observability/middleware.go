package observability

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const httpStatusServerError = 500

var errPanic = errors.New("panic recovered")

// statusWriter wraps [http.ResponseWriter] to capture the status code
// for the access log and span attribute below.
type statusWriter struct {
	http.ResponseWriter

	statusCode int
	written    bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.written {
		sw.statusCode = code
		sw.written = true
	}

	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(buf []byte) (int, error) {
	if !sw.written {
		sw.statusCode = http.StatusOK
		sw.written = true
	}

	n, err := sw.ResponseWriter.Write(buf)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}

	return n, nil
}

// HTTPMiddleware wraps next in a span per request, a one-line access
// log, and panic recovery that turns a recovered panic into a 500
// instead of taking down the listener.
func HTTPMiddleware(tracer trace.Tracer, logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		start := time.Now()
		spanName := hr.Method + " " + hr.URL.Path

		parentCtx := otel.GetTextMapPropagator().Extract(hr.Context(), propagation.HeaderCarrier(hr.Header))

		ctx, span := tracer.Start(parentCtx, spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(hr.Method),
				attribute.String("http.target", hr.URL.Path),
			),
		)
		defer span.End()

		sw := &statusWriter{ResponseWriter: rw}

		defer func() {
			if r := recover(); r != nil {
				span.RecordError(fmt.Errorf("%w: %v", errPanic, r))
				span.SetStatus(codes.Error, "panic")
				span.SetAttributes(attribute.String("error.type", "panic"))
				span.AddEvent("panic.stack", trace.WithAttributes(
					attribute.String("stack", string(debug.Stack())),
				))
				sw.WriteHeader(http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(sw, hr.WithContext(ctx))

		span.SetAttributes(semconv.HTTPResponseStatusCode(sw.statusCode))

		if sw.statusCode >= httpStatusServerError {
			span.SetStatus(codes.Error, http.StatusText(sw.statusCode))
		}

		logger.InfoContext(ctx, "http.request",
			"method", hr.Method,
			"path", hr.URL.Path,
			"status", sw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
