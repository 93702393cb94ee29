package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/wikiguard/internal/cache"
	"github.com/Sumatoshi-tech/wikiguard/internal/config"
	"github.com/Sumatoshi-tech/wikiguard/internal/httpserver"
	"github.com/Sumatoshi-tech/wikiguard/internal/merge"
	"github.com/Sumatoshi-tech/wikiguard/internal/observability"
	"github.com/Sumatoshi-tech/wikiguard/internal/orchestrator"
	"github.com/Sumatoshi-tech/wikiguard/internal/wiki"
)

const (
	serverReadHeaderTimeout = 10 * time.Second
	serverShutdownTimeout   = 10 * time.Second
)

func newServeCommand() *cobra.Command {
	var configPath string

	v := viper.New()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the wikiguard HTTP front door",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(configPath, v)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a wikiguard config file")
	bindServeFlags(cmd, v)

	return cmd
}

func runServe(configPath string, v *viper.Viper) error {
	cfg, err := config.Load(configPath, v)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		return fmt.Errorf("parse logging level: %w", err)
	}

	providers, err := observability.Init(observability.Config{
		ServiceName:  "wikiguard",
		OTLPEndpoint: cfg.OTLP.Endpoint,
		OTLPInsecure: cfg.OTLP.Insecure,
		LogJSON:      cfg.Logging.Format == "json",
		LogLevel:     logLevel,
	})
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	defer func() {
		if shutdownErr := providers.Shutdown(context.Background()); shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	var pageCache *cache.Cache
	if cfg.CacheConfigured() {
		pageCache = cache.New(cache.DefaultMaxSize)
		providers.Logger.Info("page cache enabled", "host", cfg.CacheHost, "port", cfg.CachePort, "stats", pageCache.Stats())
	}

	var wikiClient *wiki.HTTPClient
	if pageCache != nil {
		wikiClient = wiki.NewHTTPClient(fmt.Sprintf("%s:%d", cfg.WikiHost, cfg.WikiPort), nil, pageCache)
	} else {
		wikiClient = wiki.NewHTTPClient(fmt.Sprintf("%s:%d", cfg.WikiHost, cfg.WikiPort), nil, nil)
	}

	orch := orchestrator.New(wikiClient, orchestrator.Config{
		Merge: merge.Config{
			SizeLimitBytes: cfg.DiffSizeLimitBytes,
			TimeLimit:      time.Duration(cfg.DiffTimeLimitMS) * time.Millisecond,
		},
		MaxConsecutiveDiffTimeouts: cfg.MaxConsecutiveDiffTimeouts,
		RevisionWindow:             cfg.RevisionWindow,
	}, providers.Logger)

	front := httpserver.New(orch, cfg.WikiHost, cfg.WikiPort, providers.Logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(providers.Registry, promhttp.HandlerOpts{}))
	mux.Handle("/", front)

	handler := httpserver.WithMiddleware(providers.Tracer, providers.Logger, mux)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ListenPort),
		Handler:           handler,
		ReadHeaderTimeout: serverReadHeaderTimeout,
	}

	printBanner(cfg.ListenPort, cfg.WikiHost)

	return runUntilSignal(srv, providers.Logger.With("component", "http"))
}

func runUntilSignal(srv *http.Server, log interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
},
) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
