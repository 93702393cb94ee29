package observability_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/wikiguard/internal/observability"
)

func TestHTTPMiddlewareCreatesSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	tracer := tp.Tracer("test")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
	})

	mw := observability.HTTPMiddleware(tracer, logger, handler)

	req := httptest.NewRequest(http.MethodGet, "/wiki/Example", http.NoBody)
	rec := httptest.NewRecorder()

	mw.ServeHTTP(rec, req)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, "GET /wiki/Example", spans[0].Name)
}

func TestHTTPMiddlewareRecoversPanic(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	tracer := tp.Tracer("test")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		panic("boom")
	})

	mw := observability.HTTPMiddleware(tracer, logger, handler)

	req := httptest.NewRequest(http.MethodGet, "/wiki/Example", http.NoBody)
	rec := httptest.NewRecorder()

	require.NotPanics(t, func() { mw.ServeHTTP(rec, req) })
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
