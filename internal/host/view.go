// Package host mounts an orbital scene onto a frame loop and routes external
// inputs into it. All scene state is owned by the frame loop goroutine;
// inputs from other goroutines are queued and applied before the next frame.
package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/internal/observability"
	"github.com/signalsfoundry/orrery/internal/sensors"
	"github.com/signalsfoundry/orrery/model"
	"github.com/signalsfoundry/orrery/timectrl"
)

// DefaultInputQueue is the capacity of the pending input queue.
const DefaultInputQueue = 64

var (
	ErrAlreadyMounted = errors.New("view already mounted")
	ErrUnmounted      = errors.New("view has been unmounted")
)

// FrameSink consumes the per-frame output of the scene.
type FrameSink interface {
	ConsumeFrame(ctx context.Context, frame core.Frame) error
}

// EventRecorder captures applied input events, keyed by the sequence number
// of the frame they precede.
type EventRecorder interface {
	AppendEvent(seq uint64, kind string, payload any) error
}

// Options configures a View.
type Options struct {
	Variant model.Variant
	Scene   core.SceneOptions

	// Clock drives the frame loop. Defaults to a real-time controller at
	// 60 frames per second starting now.
	Clock *timectrl.TimeController
	// Duration bounds the loop in frame time; 0 runs until Unmount.
	Duration time.Duration

	Sinks  []FrameSink
	Events EventRecorder

	Sensor             sensors.OrientationSensor
	Locator            sensors.Locator
	GeolocationTimeout time.Duration

	Metrics *observability.FrameCollector
	Logger  logging.Logger
	Tracer  trace.Tracer
}

type input struct {
	kind    string
	payload any
	apply   func(s *core.Scene, frameTime time.Time)
}

// View is a mounted orbital scene.
type View struct {
	scene    *core.Scene
	clock    *timectrl.TimeController
	duration time.Duration
	sinks    []FrameSink
	events   EventRecorder

	sensor     sensors.OrientationSensor
	locator    sensors.Locator
	geoTimeout time.Duration

	metrics *observability.FrameCollector
	log     logging.Logger
	tracer  trace.Tracer

	inputs chan input

	mu         sync.Mutex
	state      viewState
	cancel     context.CancelFunc
	loopDone   <-chan struct{}
	background sync.WaitGroup
	cleanups   []func()
	capability sensors.Capability
	last       core.Frame
	sinkFailed map[int]bool
	unmounted  chan struct{}
}

type viewState int

const (
	stateIdle viewState = iota
	stateMounted
	stateUnmounted
)

// NewView builds a view. Nothing runs until Mount.
func NewView(opts Options) *View {
	clock := opts.Clock
	if clock == nil {
		clock = timectrl.NewTimeController(time.Now(), time.Second/60, timectrl.RealTime)
	}
	log := opts.Logger
	if log == nil {
		log = logging.Noop()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = observability.Tracer()
	}
	geoTimeout := opts.GeolocationTimeout
	if geoTimeout <= 0 {
		geoTimeout = 10 * time.Second
	}

	scene := core.NewScene(opts.Variant, opts.Scene)
	return &View{
		scene:      scene,
		clock:      clock,
		duration:   opts.Duration,
		sinks:      append([]FrameSink(nil), opts.Sinks...),
		events:     opts.Events,
		sensor:     opts.Sensor,
		locator:    opts.Locator,
		geoTimeout: geoTimeout,
		metrics:    opts.Metrics,
		log:        log.With(logging.String("variant", opts.Variant.Name)),
		tracer:     tracer,
		inputs:     make(chan input, DefaultInputQueue),
		last:       scene.Peek(),
		sinkFailed: make(map[int]bool),
		unmounted:  make(chan struct{}),
	}
}

// Mount starts the frame loop and the asynchronous sensor and geolocation
// lookups. Neither lookup delays the first frame.
func (v *View) Mount(ctx context.Context) error {
	v.mu.Lock()
	switch v.state {
	case stateMounted:
		v.mu.Unlock()
		return ErrAlreadyMounted
	case stateUnmounted:
		v.mu.Unlock()
		return ErrUnmounted
	}
	v.state = stateMounted

	ctx, span := observability.StartSpan(ctx, v.tracer, "view/mount",
		attribute.Bool("sensor_present", v.sensor != nil))
	defer span.End()

	loopCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel

	remove := v.clock.AddListener(func(frameTime time.Time) {
		v.frame(loopCtx, frameTime)
	})
	v.cleanups = append(v.cleanups, remove)
	v.loopDone = v.clock.Start(loopCtx, v.duration)
	// Adds happen under mu so a concurrent Unmount cannot reach Wait first.
	v.background.Add(1)
	if v.locator != nil {
		v.background.Add(1)
	}
	v.mu.Unlock()

	v.log.Info(ctx, "view mounted",
		logging.String("mode", v.clock.Mode.String()),
		logging.Int("sinks", len(v.sinks)),
	)

	go func() {
		defer v.background.Done()
		v.acquireOrientation(loopCtx)
	}()

	if v.locator != nil {
		go func() {
			defer v.background.Done()
			v.locate(loopCtx)
		}()
	}
	return nil
}

func (v *View) acquireOrientation(ctx context.Context) {
	ctx, span := observability.StartSpan(ctx, v.tracer, "sensors/orientation")
	defer span.End()

	capability, release := sensors.AcquireOrientation(ctx, v.sensor, v.Orient,
		func(reason string, err error) {
			v.metrics.ObserveDegraded("orientation", reason)
			observability.FailSpan(span, err)
		}, v.log)
	span.SetAttributes(attribute.String("capability", capability.String()))

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != stateMounted {
		release()
		return
	}
	v.capability = capability
	v.cleanups = append(v.cleanups, release)
	v.metrics.SetOrientationAvailable(capability == sensors.OrientationAvailable)
}

func (v *View) locate(ctx context.Context) {
	ctx, span := observability.StartSpan(ctx, v.tracer, "sensors/geolocation",
		attribute.String("timeout", v.geoTimeout.String()))
	defer span.End()

	done := sensors.LocateOnce(ctx, v.locator, v.geoTimeout, v.log,
		func(pos model.GeoPosition) {
			span.SetAttributes(
				attribute.Float64("latitude", pos.Latitude),
				attribute.Float64("longitude", pos.Longitude),
			)
			v.Locate(pos)
		},
		func(err error) {
			observability.FailSpan(span, err)
			v.metrics.ObserveDegraded("geolocation", geolocationReason(err))
		})
	<-done
}

// frame runs on the loop goroutine.
func (v *View) frame(ctx context.Context, frameTime time.Time) {
	if ctx.Err() != nil {
		return
	}
	started := time.Now()
	v.drainInputs(frameTime)

	f := v.scene.Tick()
	for i, sink := range v.sinks {
		if err := sink.ConsumeFrame(ctx, f); err != nil && ctx.Err() == nil {
			v.sinkError(ctx, i, f.Seq, err)
		}
	}

	v.mu.Lock()
	v.last = f
	v.mu.Unlock()
	v.metrics.ObserveFrame(f.Progress, time.Since(started))
}

func (v *View) drainInputs(frameTime time.Time) {
	for {
		select {
		case in := <-v.inputs:
			in.apply(v.scene, frameTime)
			if v.events != nil {
				if err := v.events.AppendEvent(v.scene.Peek().Seq+1, in.kind, in.payload); err != nil {
					v.log.Warn(context.Background(), "record input event failed",
						logging.String("kind", in.kind), logging.Err(err))
				}
			}
		default:
			return
		}
	}
}

func (v *View) sinkError(ctx context.Context, index int, seq uint64, err error) {
	v.metrics.ObserveDegraded("sink", "consume_error")
	if v.sinkFailed[index] {
		return
	}
	v.sinkFailed[index] = true
	v.log.Warn(ctx, "frame sink failed; continuing",
		logging.Int("sink", index),
		logging.Uint64("seq", seq),
		logging.Err(err),
	)
}

func (v *View) enqueue(in input) {
	v.metrics.ObserveInput(in.kind)
	select {
	case <-v.unmounted:
		return
	default:
	}
	select {
	case v.inputs <- in:
	default:
		v.log.Warn(context.Background(), "input queue full; dropping event", logging.String("kind", in.kind))
	}
}

// Resize queues a viewport change.
func (v *View) Resize(width, height int) {
	v.enqueue(input{
		kind:    "resize",
		payload: map[string]int{"width": width, "height": height},
		apply: func(s *core.Scene, _ time.Time) {
			s.Resize(width, height)
		},
	})
}

// Orient queues an orientation reading. Sensors call it from their own
// goroutines.
func (v *View) Orient(o model.Orientation) {
	v.enqueue(input{
		kind:    "orientation",
		payload: o,
		apply: func(s *core.Scene, _ time.Time) {
			s.ApplyOrientation(o)
		},
	})
}

// Locate queues a geolocation fix. The sidereal alignment is computed for
// the frame time at which it is applied.
func (v *View) Locate(pos model.GeoPosition) {
	v.enqueue(input{
		kind:    "geolocation",
		payload: pos,
		apply: func(s *core.Scene, frameTime time.Time) {
			s.SetObserver(pos, frameTime)
		},
	})
}

// LocateFailed reports a geolocation failure from an external surface. The
// scene is left untouched.
func (v *View) LocateFailed(err error) {
	if err == nil {
		err = sensors.ErrNoFix
	}
	v.log.Error(context.Background(), "geolocation failed", logging.Err(err))
	v.metrics.ObserveDegraded("geolocation", geolocationReason(err))
}

// PermissionDenied reports a refused orientation prompt from an external
// surface.
func (v *View) PermissionDenied() {
	v.log.Warn(context.Background(), "permission for orientation denied")
	v.metrics.ObserveDegraded("orientation", "permission_denied")
	v.metrics.SetOrientationAvailable(false)

	v.mu.Lock()
	v.capability = sensors.OrientationUnavailable
	v.mu.Unlock()
}

// Capability reports the orientation capability acquired at mount.
func (v *View) Capability() sensors.Capability {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.capability
}

// LastFrame returns the most recently produced frame, or the initial state
// before the first tick.
func (v *View) LastFrame() core.Frame {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.last
}

// Done is closed when the frame loop exits, either because Duration elapsed
// or because the view was unmounted. It is nil before Mount.
func (v *View) Done() <-chan struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loopDone
}

// OnUnmount registers fn to run once during Unmount.
func (v *View) OnUnmount(fn func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cleanups = append(v.cleanups, fn)
}

// Unmount stops the loop, waits for it and for pending lookups, then runs
// every cleanup and closes sinks that implement io.Closer. Further calls are
// no-ops.
func (v *View) Unmount() error {
	v.mu.Lock()
	if v.state == stateUnmounted {
		v.mu.Unlock()
		return nil
	}
	wasMounted := v.state == stateMounted
	v.state = stateUnmounted
	close(v.unmounted)
	cancel := v.cancel
	loopDone := v.loopDone
	v.mu.Unlock()

	if !wasMounted {
		return nil
	}

	cancel()
	<-loopDone
	v.background.Wait()

	v.mu.Lock()
	cleanups := v.cleanups
	v.cleanups = nil
	v.mu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}

	var errs []error
	for i, sink := range v.sinks {
		if closer, ok := sink.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close sink %d: %w", i, err))
			}
		}
	}
	v.metrics.SetOrientationAvailable(false)
	v.log.Info(context.Background(), "view unmounted", logging.Uint64("frames", v.LastFrame().Seq))
	return errors.Join(errs...)
}

func geolocationReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, sensors.ErrNoFix):
		return "unavailable"
	default:
		return "error"
	}
}
