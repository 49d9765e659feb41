package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/internal/config"
	"github.com/signalsfoundry/orrery/internal/host"
	"github.com/signalsfoundry/orrery/internal/recorder"
	"github.com/signalsfoundry/orrery/model"
)

// TestRunHeadlessAndReplay runs a short accelerated session with recording
// and replays the capture.
func TestRunHeadlessAndReplay(t *testing.T) {
	root := t.TempDir()
	cfg := config.Defaults()
	cfg.Logging.Level = "error"
	cfg.RecordDir = root

	var out bytes.Buffer
	opts := options{Frames: 120, PrintEvery: 60, Accelerated: true}
	if err := run(context.Background(), cfg, opts, &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines of output, got %d:\n%s", len(lines), out.String())
	}
	if !strings.Contains(lines[1], "[    60]") || !strings.Contains(lines[2], "[   120]") {
		t.Fatalf("unexpected frame lines: %q", lines[1:3])
	}
	if !strings.Contains(lines[3], "after 120 frames") {
		t.Fatalf("unexpected summary: %q", lines[3])
	}

	entries, err := os.ReadDir(root)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one capture directory, got %v (err=%v)", entries, err)
	}

	var replayed bytes.Buffer
	if err := replay(root+"/"+entries[0].Name(), &replayed); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !strings.Contains(replayed.String(), "frames=120") {
		t.Fatalf("replay header missing frame count:\n%s", replayed.String())
	}
	if !strings.Contains(replayed.String(), "[   120] progress=0.0600") {
		t.Fatalf("replay missing last frame:\n%s", replayed.String())
	}
}

func TestRunRejectsUnknownVariant(t *testing.T) {
	cfg := config.Defaults()
	cfg.Variant = "comet"
	if err := run(context.Background(), cfg, options{Frames: 1}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unknown variant")
	}
}

func TestRunRejectsBackwardStep(t *testing.T) {
	for _, step := range []float64{-0.01, 0} {
		cfg := config.Defaults()
		cfg.Logging.Level = "error"
		cfg.Step = step
		if err := run(context.Background(), cfg, options{Frames: 1}, &bytes.Buffer{}); err == nil {
			t.Fatalf("expected error for step %v", step)
		}
	}
}

func TestMountFailureClosesRecorder(t *testing.T) {
	variant, err := model.LookupVariant("orbit")
	if err != nil {
		t.Fatal(err)
	}
	rec, err := recorder.NewWriter(t.TempDir(), "mount", recorder.Manifest{Variant: variant.Name, Step: core.DefaultStep}, nil)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	view := host.NewView(host.Options{Variant: variant, Sinks: []host.FrameSink{rec}})
	if err := view.Unmount(); err != nil {
		t.Fatalf("Unmount: %v", err)
	}

	err = mount(context.Background(), view, rec)
	if !errors.Is(err, host.ErrUnmounted) {
		t.Fatalf("mount error = %v, want ErrUnmounted", err)
	}
	if err := rec.ConsumeFrame(context.Background(), core.Frame{Seq: 1}); err == nil {
		t.Fatal("recorder still accepts frames after a failed mount")
	}
	if _, err := recorder.ReadFrames(rec.Directory()); err != nil {
		t.Fatalf("capture not finalised: %v", err)
	}
}
