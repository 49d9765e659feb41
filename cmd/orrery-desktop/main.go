package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/signalsfoundry/orrery/internal/app"
	"github.com/signalsfoundry/orrery/internal/config"
	"github.com/signalsfoundry/orrery/internal/host"
	"github.com/signalsfoundry/orrery/internal/render/desktop"
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
	width := flag.Int("width", cfg.ViewportWidth, "initial window width")
	height := flag.Int("height", cfg.ViewportHeight, "initial window height")
	flag.Parse()
	cfg.Variant = *variant
	cfg.ViewportWidth = *width
	cfg.ViewportHeight = *height

	if err := run(context.Background(), cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	a, err := app.New(ctx, cfg, "orrery-desktop")
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

	game := desktop.New(graph, desktop.Options{Keys: keys, Resizer: view})
	if err := view.Mount(ctx); err != nil {
		return err
	}
	runErr := desktop.Run(game, desktop.Options{
		Title:  "orrery: " + a.Variant.Name,
		Width:  cfg.ViewportWidth,
		Height: cfg.ViewportHeight,
	})
	if errors.Is(runErr, ebiten.Termination) {
		runErr = nil
	}
	if err := view.Unmount(); err != nil && runErr == nil {
		runErr = fmt.Errorf("unmount: %w", err)
	}
	return runErr
}
