package timectrl

import (
	"context"
	"testing"
	"time"
)

func TestTimeControllerSetTime(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, time.Second, RealTime)

	newNow := start.Add(42 * time.Second)
	tc.SetTime(newNow)

	if got := tc.Now(); !got.Equal(newNow) {
		t.Fatalf("Now() = %v, want %v", got, newNow)
	}
}

func TestTimeControllerStartUpdatesNow(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, 5*time.Millisecond, Accelerated)

	var seen []time.Time
	tc.AddListener(func(ft time.Time) { seen = append(seen, ft) })

	done := tc.Start(context.Background(), 15*time.Millisecond)
	<-done

	expected := start.Add(15 * time.Millisecond)
	if got := tc.Now(); !got.Equal(expected) {
		t.Fatalf("Now() = %v, want %v", got, expected)
	}
	if len(seen) != 3 || tc.Frames() != 3 {
		t.Fatalf("listener saw %d frames, controller counted %d, want 3", len(seen), tc.Frames())
	}
}

func TestTimeControllerRealTimePacing(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, 2*time.Millisecond, RealTime)

	began := time.Now()
	<-tc.Start(context.Background(), 10*time.Millisecond)
	if elapsed := time.Since(began); elapsed < 8*time.Millisecond {
		t.Fatalf("real-time loop finished in %v, expected at least ~10ms", elapsed)
	}
	if tc.Frames() != 5 {
		t.Fatalf("Frames() = %d, want 5", tc.Frames())
	}
}

func TestTimeControllerStopsOnCancel(t *testing.T) {
	tc := NewTimeController(time.Now(), time.Millisecond, RealTime)
	ctx, cancel := context.WithCancel(context.Background())

	ticked := make(chan struct{}, 1)
	tc.AddListener(func(time.Time) {
		select {
		case ticked <- struct{}{}:
		default:
		}
	})

	done := tc.Start(ctx, 0)
	<-ticked
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not exit after cancel")
	}
}

func TestTimeControllerRemoveListener(t *testing.T) {
	tc := NewTimeController(time.Now(), time.Millisecond, Accelerated)

	calls := 0
	remove := tc.AddListener(func(time.Time) { calls++ })
	keep := 0
	tc.AddListener(func(time.Time) { keep++ })

	if tc.ListenerCount() != 2 {
		t.Fatalf("ListenerCount() = %d, want 2", tc.ListenerCount())
	}
	remove()
	remove()
	if tc.ListenerCount() != 1 {
		t.Fatalf("ListenerCount() = %d after remove, want 1", tc.ListenerCount())
	}

	<-tc.Start(context.Background(), 3*time.Millisecond)
	if calls != 0 || keep != 3 {
		t.Fatalf("removed listener called %d times, kept listener %d times", calls, keep)
	}
}
