// Package app assembles the shared runtime of the orrery commands: logger,
// metrics, tracing and the factories for views, clocks and recorders.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/internal/config"
	"github.com/signalsfoundry/orrery/internal/host"
	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/internal/observability"
	"github.com/signalsfoundry/orrery/internal/recorder"
	"github.com/signalsfoundry/orrery/internal/sensors"
	"github.com/signalsfoundry/orrery/model"
	"github.com/signalsfoundry/orrery/timectrl"
)

// App carries the resources every command needs.
type App struct {
	Config   *config.Config
	Variant  model.Variant
	Log      logging.Logger
	Metrics  *observability.FrameCollector
	Registry *prometheus.Registry

	tracing *observability.Tracing
	logFile *os.File
}

// New validates cfg and wires logging, metrics and tracing for service.
func New(ctx context.Context, cfg *config.Config, service string) (*App, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}
	variant, err := model.LookupVariant(cfg.Variant)
	if err != nil {
		return nil, fmt.Errorf("select variant: %w", err)
	}
	if err := config.ValidateStep(cfg.Step); err != nil {
		return nil, fmt.Errorf("orbit step: %w", err)
	}

	logCfg := logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}
	var logFile *os.File
	if cfg.Logging.Path != "" {
		logFile, err = os.OpenFile(cfg.Logging.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		logCfg.Output = logFile
	}
	log := logging.New(logCfg).With(logging.String("service", service))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := observability.NewFrameCollector(registry)
	if err != nil {
		closeQuietly(logFile)
		return nil, fmt.Errorf("initialise metrics: %w", err)
	}

	tracing, err := observability.StartTracing(ctx, observability.TracingConfigFromEnv(service), log)
	if err != nil {
		closeQuietly(logFile)
		return nil, fmt.Errorf("initialise tracing: %w", err)
	}

	return &App{
		Config:   cfg,
		Variant:  variant,
		Log:      log,
		Metrics:  metrics,
		Registry: registry,
		tracing:  tracing,
		logFile:  logFile,
	}, nil
}

// SceneOptions derives the scene settings from the configuration.
func (a *App) SceneOptions() core.SceneOptions {
	return core.SceneOptions{
		Step:               a.Config.Step,
		OrientationDamping: a.Config.OrientationDamping,
		Width:              a.Config.ViewportWidth,
		Height:             a.Config.ViewportHeight,
	}
}

// Locator returns the configured fixed observer, or nil.
func (a *App) Locator() sensors.Locator {
	if a.Config.Observer == nil {
		return nil
	}
	return sensors.StaticLocator{Position: *a.Config.Observer}
}

// NewClock builds a frame clock at the configured frame rate.
func (a *App) NewClock(mode timectrl.Mode) *timectrl.TimeController {
	return timectrl.NewTimeController(time.Now().UTC(), a.Config.FrameInterval(), mode)
}

// NewRecorder opens a capture below the configured record directory. It
// returns nil when recording is disabled.
func (a *App) NewRecorder(ctx context.Context) (*recorder.Writer, error) {
	if a.Config.RecordDir == "" {
		return nil, nil
	}
	_, log, session := logging.StartSession(ctx, a.Log)
	w, err := recorder.NewWriter(a.Config.RecordDir, session, recorder.Manifest{
		Variant: a.Variant.Name,
		Step:    a.Config.Step,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("open recorder: %w", err)
	}
	log.Info(ctx, "recording session", logging.String("dir", w.Directory()))
	return w, nil
}

// NewView builds a host view, filling unset options from the configuration.
func (a *App) NewView(opts host.Options) *host.View {
	if opts.Variant.Name == "" {
		opts.Variant = a.Variant
	}
	if opts.Scene == (core.SceneOptions{}) {
		opts.Scene = a.SceneOptions()
	}
	if opts.Locator == nil {
		opts.Locator = a.Locator()
	}
	if opts.GeolocationTimeout == 0 {
		opts.GeolocationTimeout = a.Config.GeolocationTimeout
	}
	if opts.Metrics == nil {
		opts.Metrics = a.Metrics
	}
	if opts.Logger == nil {
		opts.Logger = a.Log
	}
	return host.NewView(opts)
}

// MetricsHandler serves the app registry.
func (a *App) MetricsHandler() http.Handler {
	return a.Metrics.Handler()
}

// ServeMetrics starts a /metrics server on addr. It returns nil when addr is
// empty.
func (a *App) ServeMetrics(addr string) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.MetricsHandler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()
	a.Log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

// Close flushes tracing and releases the log file.
func (a *App) Close(ctx context.Context) {
	a.tracing.Shutdown(ctx)
	closeQuietly(a.logFile)
}

func closeQuietly(f *os.File) {
	if f != nil {
		_ = f.Close()
	}
}
