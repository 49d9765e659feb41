package stream

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/internal/sensors"
	"github.com/signalsfoundry/orrery/model"
)

type recordingInputs struct {
	mu      sync.Mutex
	resizes [][2]int
	orients []model.Orientation
	fixes   []model.GeoPosition
	fails   []error
	denied  int
}

func (r *recordingInputs) Resize(w, h int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resizes = append(r.resizes, [2]int{w, h})
}

func (r *recordingInputs) Orient(o model.Orientation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orients = append(r.orients, o)
}

func (r *recordingInputs) Locate(pos model.GeoPosition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fixes = append(r.fixes, pos)
}

func (r *recordingInputs) LocateFailed(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fails = append(r.fails, err)
}

func (r *recordingInputs) PermissionDenied() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.denied++
}

func (r *recordingInputs) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.resizes) + len(r.orients) + len(r.fixes) + len(r.fails) + r.denied
}

type gauge struct {
	mu sync.Mutex
	n  int
}

func (g *gauge) SetStreamClients(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = n
}

func (g *gauge) get() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

func dial(t *testing.T, hub *Hub) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(hub)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, time.Millisecond)
	return conn, func() {
		conn.Close()
		hub.Close()
		srv.Close()
	}
}

func sampleFrame(seq uint64) core.Frame {
	scene := core.NewScene(model.Variant{OrbitRadius: 6, CameraDistance: 15}, core.SceneOptions{Width: 1280, Height: 720})
	var f core.Frame
	for i := uint64(0); i < seq; i++ {
		f = scene.Tick()
	}
	return f
}

func TestHubBroadcastsFrames(t *testing.T) {
	g := &gauge{}
	hub := NewHub(&recordingInputs{}, Options{Gauge: g})
	conn, cleanup := dial(t, hub)
	defer cleanup()
	assert.Equal(t, 1, g.get())

	frame := sampleFrame(3)
	require.NoError(t, hub.ConsumeFrame(context.Background(), frame))

	var msg FrameMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, TypeFrame, msg.Type)
	assert.Equal(t, uint64(3), msg.Seq)
	assert.InDelta(t, frame.Progress, msg.Progress, 1e-15)
	assert.InDelta(t, frame.Sample.Position.X, msg.Position.X, 1e-15)
	assert.InDelta(t, 1280.0/720.0, msg.Camera.Aspect, 1e-12)
	assert.Equal(t, 75.0, msg.Camera.FOV)
}

func TestHubThrottlesToEveryNthFrame(t *testing.T) {
	hub := NewHub(nil, Options{Every: 2})
	conn, cleanup := dial(t, hub)
	defer cleanup()

	for seq := uint64(1); seq <= 4; seq++ {
		require.NoError(t, hub.ConsumeFrame(context.Background(), core.Frame{Seq: seq}))
	}

	var seqs []uint64
	for i := 0; i < 2; i++ {
		var msg FrameMessage
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		require.NoError(t, conn.ReadJSON(&msg))
		seqs = append(seqs, msg.Seq)
	}
	assert.Equal(t, []uint64{2, 4}, seqs)
}

func TestHubForwardsClientMessages(t *testing.T) {
	inputs := &recordingInputs{}
	hub := NewHub(inputs, Options{})
	conn, cleanup := dial(t, hub)
	defer cleanup()

	beta := 12.5
	messages := []ClientMessage{
		{Type: TypeResize, Width: 640, Height: 480},
		{Type: TypeOrientation, Beta: &beta},
		{Type: TypeGeolocation, Latitude: 51.5, Longitude: -0.1},
		{Type: TypeGeolocationError, Message: "timeout"},
		{Type: TypePermission, Granted: false},
		{Type: TypePermission, Granted: true},
		{Type: "bogus"},
	}
	for _, m := range messages {
		require.NoError(t, conn.WriteJSON(m))
	}
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	require.Eventually(t, func() bool { return inputs.count() == 5 }, time.Second, time.Millisecond)

	inputs.mu.Lock()
	defer inputs.mu.Unlock()
	assert.Equal(t, [][2]int{{640, 480}}, inputs.resizes)
	require.Len(t, inputs.orients, 1)
	assert.Nil(t, inputs.orients[0].Alpha)
	assert.Equal(t, 12.5, *inputs.orients[0].Beta)
	assert.Equal(t, 51.5, inputs.fixes[0].Latitude)
	require.Len(t, inputs.fails, 1)
	assert.True(t, errors.Is(inputs.fails[0], sensors.ErrNoFix))
	assert.Equal(t, 1, inputs.denied)
}

func TestHubRoutesOrientationThroughSensor(t *testing.T) {
	inputs := &recordingInputs{}
	feed := sensors.NewFeedSensor()
	got := make(chan model.Orientation, 1)
	unsubscribe := feed.Subscribe(func(o model.Orientation) { got <- o })
	defer unsubscribe()

	hub := NewHub(inputs, Options{Sensor: feed})
	conn, cleanup := dial(t, hub)
	defer cleanup()

	alpha := 90.0
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: TypeOrientation, Alpha: &alpha}))

	select {
	case o := <-got:
		assert.Equal(t, 90.0, *o.Alpha)
	case <-time.After(time.Second):
		t.Fatal("orientation not delivered to sensor")
	}
	assert.Equal(t, 0, inputs.count())
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	g := &gauge{}
	hub := NewHub(nil, Options{Gauge: g})
	conn, cleanup := dial(t, hub)
	defer cleanup()

	require.NoError(t, hub.Close())
	assert.Equal(t, 0, hub.Clients())
	assert.Equal(t, 0, g.get())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	assert.ErrorIs(t, hub.ConsumeFrame(context.Background(), core.Frame{Seq: 1}), ErrClosed)
}
