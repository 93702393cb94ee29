// Package observability wires structured logging, tracing, and metrics
// for wikiguard: an slog logger that stamps every record with the
// active trace/span id, an OTel tracer (OTLP if configured, no-op
// otherwise), and a meter whose readings are always scrapeable locally
// via a Prometheus registry, with an optional OTLP push on top.
package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

const (
	tracerName             = "wikiguard"
	meterName              = "wikiguard"
	defaultShutdownTimeout = 5 * time.Second
)

// Config controls telemetry wiring. The zero value is a fully
// functional, purely local configuration: no-op tracing, a Prometheus
// registry for /metrics, and text logs on stderr.
type Config struct {
	ServiceName  string
	OTLPEndpoint string // empty disables OTLP export of traces and metrics
	OTLPInsecure bool
	LogJSON      bool
	LogLevel     slog.Level
}

// Providers holds everything wikiguard's call sites need: the tracer
// and meter for instrumenting the merge pipeline, the logger, a
// Prometheus registry for the /metrics route, and a Shutdown hook that
// must run before process exit.
type Providers struct {
	Tracer   trace.Tracer
	Meter    metric.Meter
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Shutdown func(ctx context.Context) error
}

// Init builds the provider set described by cfg.
func Init(cfg Config) (Providers, error) {
	ctx := context.Background()

	if cfg.ServiceName == "" {
		cfg.ServiceName = "wikiguard"
	}

	res, err := buildResource(cfg)
	if err != nil {
		return Providers{}, err
	}

	tp, tpShutdown, err := buildTracerProvider(ctx, cfg, res)
	if err != nil {
		return Providers{}, fmt.Errorf("build tracer provider: %w", err)
	}

	registry := prometheus.NewRegistry()

	mp, mpShutdown, err := buildMeterProvider(ctx, cfg, res, registry)
	if err != nil {
		return Providers{}, errors.Join(fmt.Errorf("build meter provider: %w", err), tpShutdown(ctx))
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	shutdown := func(shutdownCtx context.Context) error {
		deadlineCtx, cancel := context.WithTimeout(shutdownCtx, defaultShutdownTimeout)
		defer cancel()

		return errors.Join(tpShutdown(deadlineCtx), mpShutdown(deadlineCtx))
	}

	return Providers{
		Tracer:   tp.Tracer(tracerName),
		Meter:    mp.Meter(meterName),
		Logger:   buildLogger(cfg),
		Registry: registry,
		Shutdown: shutdown,
	}, nil
}

func buildResource(cfg Config) (*resource.Resource, error) {
	res, err := resource.New(context.Background(), resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("build otel resource: %w", err)
	}

	return res, nil
}

type shutdownFunc func(ctx context.Context) error

func noopShutdown(_ context.Context) error { return nil }

func buildTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (trace.TracerProvider, shutdownFunc, error) {
	if cfg.OTLPEndpoint == "" {
		return nooptrace.NewTracerProvider(), noopShutdown, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.OTLPInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)

	return tp, tp.Shutdown, nil
}

// buildMeterProvider always attaches a Prometheus reader bound to
// registry (so /metrics works with zero configuration) and, when
// OTLPEndpoint is set, additionally pushes the same instruments to a
// collector on a periodic timer.
func buildMeterProvider(ctx context.Context, cfg Config, res *resource.Resource, registry *prometheus.Registry) (metric.MeterProvider, shutdownFunc, error) {
	if cfg.OTLPEndpoint == "" {
		promReader, err := otelprometheus.New(otelprometheus.WithRegisterer(registry))
		if err != nil {
			return nil, nil, fmt.Errorf("create prometheus reader: %w", err)
		}

		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(promReader), sdkmetric.WithResource(res))

		return mp, mp.Shutdown, nil
	}

	promReader, err := otelprometheus.New(otelprometheus.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus reader: %w", err)
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.OTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create metric exporter: %w", err)
	}

	otlpReader := sdkmetric.NewPeriodicReader(exporter)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(promReader),
		sdkmetric.WithReader(otlpReader),
		sdkmetric.WithResource(res),
	)

	return mp, mp.Shutdown, nil
}

func buildLogger(cfg Config) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var inner slog.Handler
	if cfg.LogJSON {
		inner = slog.NewJSONHandler(os.Stderr, handlerOpts)
	} else {
		inner = slog.NewTextHandler(os.Stderr, handlerOpts)
	}

	return slog.New(NewTracingHandler(inner, cfg.ServiceName))
}
