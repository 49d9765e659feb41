// Package sensors adapts optional device capabilities (orientation and
// geolocation) to the frame loop. Every capability may be absent; absence is
// a normal outcome, never an error the caller has to handle.
package sensors

import (
	"context"
	"errors"
	"sync"

	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/model"
)

// Capability reports whether orientation-driven effects are active.
type Capability int

const (
	OrientationUnavailable Capability = iota
	OrientationAvailable
)

func (c Capability) String() string {
	if c == OrientationAvailable {
		return "available"
	}
	return "unavailable"
}

// Permission is the outcome of a runtime permission prompt.
type Permission int

const (
	PermissionDenied Permission = iota
	PermissionGranted
)

// OrientationSensor delivers orientation readings to subscribers.
type OrientationSensor interface {
	Subscribe(fn func(model.Orientation)) (unsubscribe func())
}

// PermissionRequester is implemented by sensors that sit behind a runtime
// permission prompt.
type PermissionRequester interface {
	RequestPermission(ctx context.Context) (Permission, error)
}

// ErrPermissionDenied is reported to the degrade callback when the user
// refuses orientation access.
var ErrPermissionDenied = errors.New("permission for orientation denied")

// AcquireOrientation subscribes onReading to sensor, requesting permission
// first when the sensor requires it. It returns the resulting capability and
// a release function that is always safe to call. onDegraded, if set, is
// told why the capability is unavailable.
func AcquireOrientation(
	ctx context.Context,
	sensor OrientationSensor,
	onReading func(model.Orientation),
	onDegraded func(reason string, err error),
	log logging.Logger,
) (Capability, func()) {
	if log == nil {
		log = logging.Noop()
	}
	if onDegraded == nil {
		onDegraded = func(string, error) {}
	}
	noop := func() {}

	if sensor == nil {
		log.Info(ctx, "orientation sensor not present; starfield follows idle spin only")
		onDegraded("unsupported", nil)
		return OrientationUnavailable, noop
	}

	if requester, ok := sensor.(PermissionRequester); ok {
		perm, err := requester.RequestPermission(ctx)
		if err != nil {
			log.Error(ctx, "orientation permission error", logging.Err(err))
			onDegraded("permission_error", err)
			return OrientationUnavailable, noop
		}
		if perm != PermissionGranted {
			log.Warn(ctx, "permission for orientation denied")
			onDegraded("permission_denied", ErrPermissionDenied)
			return OrientationUnavailable, noop
		}
	}

	var once sync.Once
	unsubscribe := sensor.Subscribe(onReading)
	release := func() {
		once.Do(func() {
			if unsubscribe != nil {
				unsubscribe()
			}
		})
	}
	return OrientationAvailable, release
}

// FeedSensor is an OrientationSensor driven by Push. Keyboard input and the
// stream hub use it to stand in for a device sensor. The zero value needs no
// permission; set Gate to model a permission prompt.
type FeedSensor struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(model.Orientation)

	// Gate, when set, answers permission requests.
	Gate func(ctx context.Context) (Permission, error)
}

// NewFeedSensor constructs an empty sensor.
func NewFeedSensor() *FeedSensor {
	return &FeedSensor{subs: make(map[int]func(model.Orientation))}
}

// Subscribe registers fn for future readings.
func (s *FeedSensor) Subscribe(fn func(model.Orientation)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs == nil {
		s.subs = make(map[int]func(model.Orientation))
	}
	s.nextID++
	id := s.nextID
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Push delivers a reading to every subscriber.
func (s *FeedSensor) Push(o model.Orientation) {
	s.mu.Lock()
	subs := make([]func(model.Orientation), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(o)
	}
}

// Subscribers reports the number of live subscriptions.
func (s *FeedSensor) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// GatedFeedSensor is a FeedSensor that also answers permission prompts.
type GatedFeedSensor struct {
	*FeedSensor
}

// RequestPermission implements PermissionRequester.
func (s GatedFeedSensor) RequestPermission(ctx context.Context) (Permission, error) {
	if s.Gate == nil {
		return PermissionGranted, nil
	}
	return s.Gate(ctx)
}
