package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/dshills/masf-go/graph"
	"github.com/dshills/masf-go/graph/emit"
	"github.com/dshills/masf-go/graph/loader"
	"github.com/dshills/masf-go/graph/model"
	"github.com/dshills/masf-go/graph/model/anthropic"
	"github.com/dshills/masf-go/graph/model/google"
	"github.com/dshills/masf-go/graph/model/openai"
	"github.com/dshills/masf-go/graph/store"
	"github.com/dshills/masf-go/graph/tool"
	"github.com/dshills/masf-go/internal/config"
	"github.com/dshills/masf-go/internal/logging"
)

// app holds the runtime a command needs, built from configuration.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   store.Store
	metrics *graph.PrometheusMetrics
	emitter emit.Emitter
	model   model.ChatModel

	tracer *sdktrace.TracerProvider
	server *http.Server
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	if a.model, err = newModel(cfg.Model); err != nil {
		return nil, err
	}
	if a.store, err = store.Open(cfg.Store.Driver, cfg.Store.DSN); err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	emitters := emit.MultiEmitter{emit.NewLogEmitter(logger, slog.LevelDebug)}
	if cfg.Trace.Enabled {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr), stdouttrace.WithPrettyPrint())
		if err != nil {
			_ = a.close(ctx)
			return nil, fmt.Errorf("creating trace exporter: %w", err)
		}
		a.tracer = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
		emitters = append(emitters, emit.NewOTelEmitter(a.tracer.Tracer("masf")))
	}
	a.emitter = emitters

	if cfg.Metrics.Addr != "" {
		registry := prometheus.NewRegistry()
		a.metrics = graph.NewPrometheusMetrics(registry)
		a.serveMetrics(registry)
	}
	return a, nil
}

// newModel returns the configured chat model, or nil for provider "none".
func newModel(cfg config.ModelConfig) (model.ChatModel, error) {
	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "anthropic":
		return anthropic.NewChatModel(cfg.APIKey, cfg.Name), nil
	case "openai":
		return openai.NewChatModel(cfg.APIKey, cfg.Name), nil
	case "google":
		return google.NewChatModel(cfg.APIKey, cfg.Name), nil
	}
	return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
}

func (a *app) serveMetrics(registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	a.server = &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		a.logger.Info("metrics server listening", "addr", a.cfg.Metrics.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", "error", err)
		}
	}()
}

// loader returns a definition loader wired to the app's model, tools and
// instrumentation.
func (a *app) loader() *loader.Loader {
	opts := []graph.Option{
		graph.WithLogger(a.logger),
		graph.WithEmitter(a.emitter),
		graph.WithRecorder(a.store),
	}
	if a.metrics != nil {
		opts = append(opts, graph.WithMetrics(a.metrics))
	}
	return loader.New(
		loader.WithModel(a.model),
		loader.WithTools(tool.NewHTTPTool(30*time.Second)),
		loader.WithGraphOptions(opts...),
	)
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.server != nil {
		errs = append(errs, a.server.Shutdown(ctx))
	}
	if a.tracer != nil {
		errs = append(errs, a.tracer.Shutdown(ctx))
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}

func withApp(ctx context.Context, configPath string, fn func(context.Context, *app) error) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer func() {
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := a.close(shutdown); err == nil {
			err = cerr
		}
	}()
	return fn(graph.ContextWithLogger(ctx, a.logger), a)
}
