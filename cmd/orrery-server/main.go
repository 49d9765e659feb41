package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/signalsfoundry/orrery/internal/app"
	"github.com/signalsfoundry/orrery/internal/config"
	"github.com/signalsfoundry/orrery/internal/host"
	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/internal/sensors"
	"github.com/signalsfoundry/orrery/internal/stream"
	"github.com/signalsfoundry/orrery/timectrl"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	addr := flag.String("addr", cfg.StreamAddr, "HTTP address serving the /ws stream")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "HTTP address for Prometheus /metrics; empty serves it on -addr")
	variant := flag.String("variant", cfg.Variant, "scene variant (classic, orbit, arrows, minimal)")
	every := flag.Int("every", cfg.StreamEvery, "broadcast every Nth frame")
	flag.Parse()

	cfg.StreamAddr = *addr
	cfg.MetricsAddr = *metricsAddr
	cfg.Variant = *variant
	cfg.StreamEvery = *every

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", cfg.StreamAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "listen on %s: %v\n", cfg.StreamAddr, err)
		os.Exit(1)
	}
	if err := run(ctx, cfg, lis); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run serves the stream on lis until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, lis net.Listener) error {
	a, err := app.New(ctx, cfg, "orrery-server")
	if err != nil {
		lis.Close()
		return err
	}
	defer a.Close(context.Background())
	log := a.Log

	rec, err := a.NewRecorder(ctx)
	if err != nil {
		lis.Close()
		return err
	}

	// Browser orientation readings pass through the regular sensor path.
	feed := sensors.NewFeedSensor()
	hub := stream.NewHub(nil, stream.Options{
		Every:  cfg.StreamEvery,
		Sensor: feed,
		Gauge:  a.Metrics,
		Logger: log,
	})

	sinks := []host.FrameSink{hub}
	viewOpts := host.Options{Clock: a.NewClock(timectrl.RealTime), Sensor: feed}
	if rec != nil {
		sinks = append(sinks, rec)
		viewOpts.Events = rec
	}
	viewOpts.Sinks = sinks
	view := a.NewView(viewOpts)
	hub.SetInputs(view)

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	var metricsSrv *http.Server
	if cfg.MetricsAddr == "" {
		mux.Handle("/metrics", a.MetricsHandler())
	} else {
		metricsSrv = a.ServeMetrics(cfg.MetricsAddr)
	}

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(lis)
	}()
	log.Info(ctx, "serving orbital stream", logging.String("addr", lis.Addr().String()))

	if err := view.Mount(ctx); err != nil {
		_ = srv.Close()
		_ = hub.Close()
		if metricsSrv != nil {
			_ = metricsSrv.Close()
		}
		if rec != nil {
			_ = rec.Close()
		}
		return fmt.Errorf("mount view: %w", err)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("stream server: %w", err)
		}
	}

	log.Info(context.Background(), "shutting down orbital stream")
	if err := view.Unmount(); err != nil {
		log.Warn(context.Background(), "unmount reported errors", logging.Err(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return runErr
}
