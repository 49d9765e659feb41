package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/signalsfoundry/orrery/internal/app"
	"github.com/signalsfoundry/orrery/internal/config"
	"github.com/signalsfoundry/orrery/internal/host"
	"github.com/signalsfoundry/orrery/internal/render/term"
	"github.com/signalsfoundry/orrery/internal/sensors"
	"github.com/signalsfoundry/orrery/model"
	"github.com/signalsfoundry/orrery/scenegraph"
	"github.com/signalsfoundry/orrery/timectrl"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	variant := flag.String("variant", cfg.Variant, "scene variant (classic, orbit, arrows, minimal)")
	logPath := flag.String("log", "orrery-term.log", "file receiving log output while the screen is active")
	flag.Parse()
	cfg.Variant = *variant
	if cfg.Logging.Path == "" {
		cfg.Logging.Path = *logPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintln(os.Stderr, "open terminal:", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "init terminal:", err)
		os.Exit(1)
	}

	err = run(ctx, cfg, screen)
	screen.Fini()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run drives the terminal view until the user quits or ctx is cancelled.
// The caller owns screen and finalises it.
func run(ctx context.Context, cfg *config.Config, screen tcell.Screen) error {
	a, err := app.New(ctx, cfg, "orrery-term")
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	graph, err := scenegraph.Build(a.Variant, model.CircularOrbit(a.Variant.OrbitRadius))
	if err != nil {
		return fmt.Errorf("build scene: %w", err)
	}
	rec, err := a.NewRecorder(ctx)
	if err != nil {
		return err
	}

	keys := sensors.NewFeedSensor()
	sinks := []host.FrameSink{graph}
	viewOpts := host.Options{Clock: a.NewClock(timectrl.RealTime), Sensor: keys}
	if rec != nil {
		sinks = append(sinks, rec)
		viewOpts.Events = rec
	}
	viewOpts.Sinks = sinks
	view := a.NewView(viewOpts)

	renderer := term.New(screen, graph, term.Options{Keys: keys, Resizer: view, Logger: a.Log})
	if err := view.Mount(ctx); err != nil {
		return err
	}
	runErr := renderer.Run(ctx)
	if err := view.Unmount(); err != nil && runErr == nil {
		runErr = fmt.Errorf("unmount: %w", err)
	}
	return runErr
}
