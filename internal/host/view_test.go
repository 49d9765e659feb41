package host

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/internal/observability"
	"github.com/signalsfoundry/orrery/internal/sensors"
	"github.com/signalsfoundry/orrery/model"
	"github.com/signalsfoundry/orrery/timectrl"
)

type captureSink struct {
	mu     sync.Mutex
	frames []core.Frame
	closed int
	err    error
}

func (s *captureSink) ConsumeFrame(_ context.Context, f core.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
	return s.err
}

func (s *captureSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *captureSink) snapshot() []core.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Frame(nil), s.frames...)
}

type eventLog struct {
	mu    sync.Mutex
	kinds []string
	seqs  []uint64
}

func (e *eventLog) AppendEvent(seq uint64, kind string, _ any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.kinds = append(e.kinds, kind)
	e.seqs = append(e.seqs, seq)
	return nil
}

func orbitVariant(t *testing.T) model.Variant {
	t.Helper()
	v, err := model.LookupVariant("orbit")
	require.NoError(t, err)
	return v
}

func newCollector(t *testing.T) *observability.FrameCollector {
	t.Helper()
	c, err := observability.NewFrameCollector(prometheus.NewRegistry())
	require.NoError(t, err)
	return c
}

func acceleratedClock(frames int) (*timectrl.TimeController, time.Duration) {
	tick := time.Millisecond
	start := time.Date(2025, time.June, 21, 12, 0, 0, 0, time.UTC)
	return timectrl.NewTimeController(start, tick, timectrl.Accelerated), time.Duration(frames) * tick
}

func TestViewProducesFramesInOrder(t *testing.T) {
	clock, duration := acceleratedClock(120)
	sink := &captureSink{}
	metrics := newCollector(t)
	v := NewView(Options{
		Variant:  orbitVariant(t),
		Scene:    core.SceneOptions{Width: 800, Height: 400},
		Clock:    clock,
		Duration: duration,
		Sinks:    []FrameSink{sink},
		Metrics:  metrics,
	})

	require.NoError(t, v.Mount(context.Background()))
	<-v.Done()
	require.NoError(t, v.Unmount())

	frames := sink.snapshot()
	require.Len(t, frames, 120)
	for i, f := range frames {
		assert.Equal(t, uint64(i+1), f.Seq)
		assert.InDelta(t, float64(i+1)*core.DefaultStep, f.Progress, 1e-12)
		assert.InDelta(t, 1.0, f.Sample.Tangent.Norm(), 1e-9)
	}
	assert.InDelta(t, 2.0, frames[0].Camera.Aspect, 1e-12)
	assert.Equal(t, 1, sink.closed)
	assert.Equal(t, 120.0, testutil.ToFloat64(metrics.Frames))
	assert.Equal(t, uint64(120), v.LastFrame().Seq)
}

func TestViewAppliesQueuedInputsBeforeNextFrame(t *testing.T) {
	clock, duration := acceleratedClock(5)
	sink := &captureSink{}
	events := &eventLog{}
	v := NewView(Options{
		Variant:  orbitVariant(t),
		Scene:    core.SceneOptions{Width: 800, Height: 600},
		Clock:    clock,
		Duration: duration,
		Sinks:    []FrameSink{sink},
		Events:   events,
	})

	v.Resize(1000, 500)
	v.Orient(model.Orientation{Beta: model.Degrees(10)})

	require.NoError(t, v.Mount(context.Background()))
	<-v.Done()
	require.NoError(t, v.Unmount())

	frames := sink.snapshot()
	require.NotEmpty(t, frames)
	first := frames[0]
	assert.InDelta(t, 2.0, first.Camera.Aspect, 1e-12)
	assert.True(t, first.OrientationActive)
	assert.InDelta(t, core.DegToRad(0.5), first.Starfield.X, 1e-12)

	assert.Equal(t, []string{"resize", "orientation"}, events.kinds)
	assert.Equal(t, []uint64{1, 1}, events.seqs)
}

func TestViewGeolocationAlignsStarfield(t *testing.T) {
	clock := timectrl.NewTimeController(time.Now(), time.Millisecond, timectrl.RealTime)
	v := NewView(Options{
		Variant: orbitVariant(t),
		Clock:   clock,
		Locator: sensors.StaticLocator{Position: model.GeoPosition{Latitude: 45, Longitude: 10}},
	})

	require.NoError(t, v.Mount(context.Background()))
	defer v.Unmount()

	require.Eventually(t, func() bool {
		return v.LastFrame().Observed
	}, 2*time.Second, 5*time.Millisecond)
	assert.InDelta(t, core.DegToRad(45), v.LastFrame().Starfield.X, 1e-6)
}

func TestViewGeolocationFailureIsIgnored(t *testing.T) {
	metrics := newCollector(t)
	clock := timectrl.NewTimeController(time.Now(), time.Millisecond, timectrl.RealTime)
	v := NewView(Options{
		Variant: orbitVariant(t),
		Clock:   clock,
		Metrics: metrics,
		Locator: sensors.LocatorFunc(func(context.Context) (model.GeoPosition, error) {
			return model.GeoPosition{}, sensors.ErrNoFix
		}),
	})

	require.NoError(t, v.Mount(context.Background()))
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.DegradedFeatures.WithLabelValues("geolocation", "unavailable")) == 1
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return v.LastFrame().Seq > 3
	}, 2*time.Second, time.Millisecond)
	require.NoError(t, v.Unmount())

	assert.False(t, v.LastFrame().Observed)
}

func TestViewOrientationPermissionDenied(t *testing.T) {
	metrics := newCollector(t)
	feed := sensors.NewFeedSensor()
	feed.Gate = func(context.Context) (sensors.Permission, error) {
		return sensors.PermissionDenied, nil
	}
	clock := timectrl.NewTimeController(time.Now(), time.Millisecond, timectrl.RealTime)
	v := NewView(Options{
		Variant: orbitVariant(t),
		Clock:   clock,
		Sensor:  sensors.GatedFeedSensor{FeedSensor: feed},
		Metrics: metrics,
	})

	require.NoError(t, v.Mount(context.Background()))
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.DegradedFeatures.WithLabelValues("orientation", "permission_denied")) == 1
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return v.LastFrame().Seq > 0
	}, 2*time.Second, time.Millisecond)
	require.NoError(t, v.Unmount())

	assert.Equal(t, sensors.OrientationUnavailable, v.Capability())
	assert.Equal(t, 0, feed.Subscribers())
	assert.False(t, v.LastFrame().OrientationActive)
}

func TestViewSensorReadingsReachScene(t *testing.T) {
	feed := sensors.NewFeedSensor()
	clock := timectrl.NewTimeController(time.Now(), time.Millisecond, timectrl.RealTime)
	v := NewView(Options{Variant: orbitVariant(t), Clock: clock, Sensor: feed})

	require.NoError(t, v.Mount(context.Background()))
	require.Eventually(t, func() bool {
		return v.Capability() == sensors.OrientationAvailable
	}, 2*time.Second, time.Millisecond)

	feed.Push(model.Orientation{Alpha: model.Degrees(20)})
	require.Eventually(t, func() bool {
		return v.LastFrame().OrientationActive
	}, 2*time.Second, time.Millisecond)
	require.NoError(t, v.Unmount())

	assert.Equal(t, 0, feed.Subscribers())
	assert.Equal(t, 0, clock.ListenerCount())
}

func TestViewUnmountIsIdempotent(t *testing.T) {
	sink := &captureSink{}
	cleanups := 0
	clock := timectrl.NewTimeController(time.Now(), time.Millisecond, timectrl.RealTime)
	v := NewView(Options{Variant: orbitVariant(t), Clock: clock, Sinks: []FrameSink{sink}})
	v.OnUnmount(func() { cleanups++ })

	require.NoError(t, v.Mount(context.Background()))
	assert.ErrorIs(t, v.Mount(context.Background()), ErrAlreadyMounted)

	require.NoError(t, v.Unmount())
	require.NoError(t, v.Unmount())
	assert.Equal(t, 1, cleanups)
	assert.Equal(t, 1, sink.closed)
	assert.ErrorIs(t, v.Mount(context.Background()), ErrUnmounted)

	seq := v.LastFrame().Seq
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, seq, v.LastFrame().Seq)
}

func TestViewUnmountBeforeMount(t *testing.T) {
	v := NewView(Options{Variant: orbitVariant(t)})
	require.NoError(t, v.Unmount())
	assert.Nil(t, v.Done())
}

func TestViewSinkFailureDoesNotStopLoop(t *testing.T) {
	clock, duration := acceleratedClock(10)
	metrics := newCollector(t)
	failing := &captureSink{err: errors.New("disk full")}
	healthy := &captureSink{}
	v := NewView(Options{
		Variant:  orbitVariant(t),
		Clock:    clock,
		Duration: duration,
		Sinks:    []FrameSink{failing, healthy},
		Metrics:  metrics,
	})

	require.NoError(t, v.Mount(context.Background()))
	<-v.Done()
	require.NoError(t, v.Unmount())

	assert.Len(t, healthy.snapshot(), 10)
	assert.Equal(t, 10.0, testutil.ToFloat64(metrics.DegradedFeatures.WithLabelValues("sink", "consume_error")))
}

func TestViewConcurrentMountUnmountReleasesEverything(t *testing.T) {
	for i := 0; i < 200; i++ {
		feed := sensors.NewFeedSensor()
		clock := timectrl.NewTimeController(time.Now(), time.Millisecond, timectrl.RealTime)
		v := NewView(Options{
			Variant: orbitVariant(t),
			Clock:   clock,
			Sensor:  feed,
			Locator: sensors.StaticLocator{Position: model.GeoPosition{Latitude: 51.5, Longitude: -0.1}},
		})

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := v.Mount(context.Background()); err != nil && !errors.Is(err, ErrUnmounted) {
				t.Errorf("Mount: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if err := v.Unmount(); err != nil {
				t.Errorf("Unmount: %v", err)
			}
		}()
		wg.Wait()

		require.Equal(t, 0, feed.Subscribers(), "iteration %d", i)
		require.Equal(t, 0, clock.ListenerCount(), "iteration %d", i)
	}
}
