package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/internal/app"
	"github.com/signalsfoundry/orrery/internal/config"
	"github.com/signalsfoundry/orrery/internal/host"
	"github.com/signalsfoundry/orrery/internal/recorder"
	"github.com/signalsfoundry/orrery/timectrl"
)

// options are the headless-only flags.
type options struct {
	Frames      int
	PrintEvery  int
	Accelerated bool
	Replay      string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var opts options
	variant := flag.String("variant", cfg.Variant, "scene variant (classic, orbit, arrows, minimal)")
	step := flag.Float64("step", cfg.Step, "orbit progress added per frame")
	observer := flag.String("observer", "", "fixed observer position as \"lat,lon\"")
	record := flag.String("record", cfg.RecordDir, "directory to record the session into")
	flag.IntVar(&opts.Frames, "frames", 600, "number of frames to run; 0 runs until interrupted")
	flag.IntVar(&opts.PrintEvery, "print-every", 60, "print one line every N frames")
	flag.BoolVar(&opts.Accelerated, "accelerated", true, "run frames back-to-back instead of at the frame rate")
	flag.StringVar(&opts.Replay, "replay", "", "print a recorded session and exit")
	flag.Parse()

	if err := config.ValidateStep(*step); err != nil {
		fmt.Fprintln(os.Stderr, "invalid -step:", err)
		os.Exit(2)
	}
	cfg.Variant = *variant
	cfg.Step = *step
	cfg.RecordDir = *record
	if *observer != "" {
		pos, err := config.ParseObserver(*observer)
		if err != nil {
			fmt.Fprintln(os.Stderr, "invalid -observer:", err)
			os.Exit(2)
		}
		cfg.Observer = &pos
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if opts.Replay != "" {
		if err := replay(opts.Replay, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, opts, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, out io.Writer) error {
	a, err := app.New(ctx, cfg, "orrery")
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	rec, err := a.NewRecorder(ctx)
	if err != nil {
		return err
	}

	mode := timectrl.RealTime
	if opts.Accelerated {
		mode = timectrl.Accelerated
	}
	clock := a.NewClock(mode)

	sinks := []host.FrameSink{&printer{out: out, every: opts.PrintEvery}}
	viewOpts := host.Options{
		Clock:    clock,
		Duration: time.Duration(opts.Frames) * clock.Tick,
	}
	if rec != nil {
		sinks = append(sinks, rec)
		viewOpts.Events = rec
	}
	viewOpts.Sinks = sinks

	view := a.NewView(viewOpts)
	fmt.Fprintf(out, "Starting orrery: variant=%s frames=%d tick=%s mode=%v\n",
		a.Variant.Name, opts.Frames, clock.Tick, mode)
	if err := mount(ctx, view, rec); err != nil {
		return err
	}

	select {
	case <-view.Done():
	case <-ctx.Done():
	}
	if err := view.Unmount(); err != nil {
		return fmt.Errorf("unmount: %w", err)
	}
	fmt.Fprintf(out, "Run complete after %d frames.\n", view.LastFrame().Seq)
	return nil
}

// mount starts view. Unmount closes the recorder along with the other sinks,
// so a view that never mounts closes it here.
func mount(ctx context.Context, view *host.View, rec *recorder.Writer) error {
	if err := view.Mount(ctx); err != nil {
		if rec != nil {
			_ = rec.Close()
		}
		return fmt.Errorf("mount view: %w", err)
	}
	return nil
}

// printer writes one line per N frames.
type printer struct {
	out   io.Writer
	every int
}

func (p *printer) ConsumeFrame(_ context.Context, f core.Frame) error {
	if p.every <= 0 || f.Seq%uint64(p.every) != 0 {
		return nil
	}
	_, err := fmt.Fprintf(p.out, "[%6d] progress=%.4f earth=(%7.3f, %7.3f) tangent=(%6.3f, %6.3f) starfield=(%.3f, %.3f, %.3f)\n",
		f.Seq, f.Progress,
		f.Sample.Position.X, f.Sample.Position.Y,
		f.Sample.Tangent.X, f.Sample.Tangent.Y,
		f.Starfield.X, f.Starfield.Y, f.Starfield.Z,
	)
	return err
}

func replay(dir string, out io.Writer) error {
	manifest, err := recorder.ReadManifest(dir)
	if err != nil {
		return err
	}
	frames, err := recorder.ReadFrames(dir)
	if err != nil {
		return err
	}
	events, err := recorder.ReadEvents(dir)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Capture %s: variant=%s step=%g created=%s frames=%d events=%d\n",
		dir, manifest.Variant, manifest.Step, manifest.CreatedAt, len(frames), len(events))

	next := 0
	for _, f := range frames {
		for next < len(events) && events[next].Seq <= f.Seq {
			ev := events[next]
			fmt.Fprintf(out, "         %s %s\n", ev.Kind, string(ev.Payload))
			next++
		}
		fmt.Fprintf(out, "[%6d] progress=%.4f earth=(%7.3f, %7.3f) tangent=(%6.3f, %6.3f)\n",
			f.Seq, f.Progress, f.X, f.Y, f.TX, f.TY)
	}
	return nil
}
