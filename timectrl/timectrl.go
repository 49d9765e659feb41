package timectrl

import (
	"context"
	"sync"
	"time"
)

// SimClock is an interface for reading the frame clock. Components that only
// need the current frame time depend on it rather than on TimeController.
type SimClock interface {
	// Now returns the time of the most recent frame.
	Now() time.Time
}

// Mode describes how the TimeController paces frames.
type Mode int

const (
	// RealTime emits one frame per Tick of wall-clock time.
	RealTime Mode = iota
	// Accelerated emits frames back-to-back while still stepping by Tick.
	Accelerated
)

func (m Mode) String() string {
	if m == Accelerated {
		return "accelerated"
	}
	return "realtime"
}

// Listener is invoked once per frame on the controller's goroutine.
type Listener func(frameTime time.Time)

// TimeController drives the frame loop and notifies registered listeners.
// Listeners run sequentially on a single goroutine.
type TimeController struct {
	mu        sync.RWMutex
	StartTime time.Time
	Tick      time.Duration
	Mode      Mode

	currentTime time.Time
	frames      uint64

	nextID    int
	listeners []listenerEntry
}

type listenerEntry struct {
	id int
	fn Listener
}

// NewTimeController constructs a controller. A non-positive tick defaults to
// one 60 Hz frame.
func NewTimeController(start time.Time, tick time.Duration, mode Mode) *TimeController {
	if tick <= 0 {
		tick = time.Second / 60
	}
	return &TimeController{
		StartTime:   start,
		Tick:        tick,
		Mode:        mode,
		currentTime: start,
	}
}

// Now returns the time of the most recent frame. Implements SimClock.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// SetTime moves the clock without emitting a frame.
func (tc *TimeController) SetTime(t time.Time) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.currentTime = t
}

// Frames returns how many frames have been emitted.
func (tc *TimeController) Frames() uint64 {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.frames
}

// AddListener registers a per-frame callback. The returned function removes
// it again and is safe to call more than once.
func (tc *TimeController) AddListener(fn Listener) (remove func()) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.nextID++
	id := tc.nextID
	tc.listeners = append(tc.listeners, listenerEntry{id: id, fn: fn})

	return func() {
		tc.mu.Lock()
		defer tc.mu.Unlock()
		for i, l := range tc.listeners {
			if l.id == id {
				tc.listeners = append(tc.listeners[:i:i], tc.listeners[i+1:]...)
				return
			}
		}
	}
}

// ListenerCount reports how many listeners are registered.
func (tc *TimeController) ListenerCount() int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return len(tc.listeners)
}

// Start runs the frame loop in a separate goroutine until duration of frame
// time has elapsed (0 runs indefinitely) or ctx is cancelled. It returns a
// channel that is closed when the loop has exited.
func (tc *TimeController) Start(ctx context.Context, duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		tc.mu.Lock()
		frameTime := tc.StartTime
		tc.currentTime = frameTime
		tc.mu.Unlock()

		elapsed := time.Duration(0)

		var tick <-chan time.Time
		if tc.Mode == RealTime {
			ticker := time.NewTicker(tc.Tick)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			if duration > 0 && elapsed >= duration {
				return
			}

			if tick != nil {
				select {
				case <-ctx.Done():
					return
				case <-tick:
				}
			} else if ctx.Err() != nil {
				return
			}

			frameTime = frameTime.Add(tc.Tick)
			elapsed += tc.Tick

			tc.mu.Lock()
			tc.currentTime = frameTime
			tc.frames++
			listeners := make([]Listener, 0, len(tc.listeners))
			for _, l := range tc.listeners {
				listeners = append(listeners, l.fn)
			}
			tc.mu.Unlock()

			for _, fn := range listeners {
				fn(frameTime)
			}
		}
	}()
	return done
}
