// Package stream serves scene frames to browser front-ends over WebSocket
// and feeds their window, sensor and geolocation events back to the view.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/internal/sensors"
	"github.com/signalsfoundry/orrery/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 256
)

// ErrClosed is returned by ConsumeFrame after Close.
var ErrClosed = errors.New("stream hub closed")

// Inputs receives client events. host.View implements it.
type Inputs interface {
	Resize(width, height int)
	Orient(o model.Orientation)
	Locate(pos model.GeoPosition)
	LocateFailed(err error)
	PermissionDenied()
}

// ClientGauge records the number of connected clients.
type ClientGauge interface {
	SetStreamClients(n int)
}

// Options configures a Hub.
type Options struct {
	// Every broadcasts only frames whose sequence is a multiple of it.
	Every int
	// Sensor, when set, receives orientation readings instead of Inputs so
	// that they pass through the regular sensor acquisition.
	Sensor  *sensors.FeedSensor
	Gauge   ClientGauge
	Logger  logging.Logger
	Origins func(r *http.Request) bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	id   string
	once sync.Once
}

func (c *client) closeSend() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans frames out to connected clients.
type Hub struct {
	upgrader websocket.Upgrader
	every    uint64
	sensor   *sensors.FeedSensor
	gauge    ClientGauge
	log      logging.Logger

	mu      sync.Mutex
	inputs  Inputs
	clients map[*client]struct{}
	closed  bool
	wg      sync.WaitGroup
}

// NewHub constructs a hub. Inputs may be set later with SetInputs.
func NewHub(inputs Inputs, opts Options) *Hub {
	every := opts.Every
	if every < 1 {
		every = 1
	}
	log := opts.Logger
	if log == nil {
		log = logging.Noop()
	}
	origins := opts.Origins
	if origins == nil {
		origins = func(*http.Request) bool { return true }
	}
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: origins},
		every:    uint64(every),
		sensor:   opts.Sensor,
		gauge:    opts.Gauge,
		log:      log,
		inputs:   inputs,
		clients:  make(map[*client]struct{}),
	}
}

// SetInputs replaces the input controller.
func (h *Hub) SetInputs(inputs Inputs) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inputs = inputs
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ConsumeFrame broadcasts the frame to every client.
func (h *Hub) ConsumeFrame(_ context.Context, frame core.Frame) error {
	if frame.Seq%h.every != 0 {
		return nil
	}
	msg, err := json.Marshal(NewFrameMessage(frame))
	if err != nil {
		return fmt.Errorf("encode frame %d: %w", frame.Seq, err)
	}
	return h.broadcast(msg)
}

func (h *Hub) broadcast(msg []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	dropped := 0
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			c.closeSend()
			delete(h.clients, c)
			dropped++
			h.log.Warn(context.Background(), "dropping slow stream client", logging.String("client", c.id))
		}
	}
	if dropped > 0 {
		h.reportClientsLocked()
	}
	return nil
}

// ServeHTTP upgrades the request and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "websocket upgrade failed", logging.Err(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer), id: logging.NewSessionID()}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.reportClientsLocked()
	h.wg.Add(2)
	h.mu.Unlock()

	h.log.Info(r.Context(), "stream client connected",
		logging.String("client", c.id), logging.String("remote", r.RemoteAddr))
	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.closeSend()
		h.reportClientsLocked()
	}
}

func (h *Hub) reportClientsLocked() {
	if h.gauge != nil {
		h.gauge.SetStreamClients(len(h.clients))
	}
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
		h.wg.Done()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn(context.Background(), "stream client read failed",
					logging.String("client", c.id), logging.Err(err))
			}
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.log.Warn(context.Background(), "ignoring malformed client message",
				logging.String("client", c.id), logging.Err(err))
			continue
		}
		h.dispatch(c, msg)
	}
}

func (h *Hub) dispatch(c *client, msg ClientMessage) {
	h.mu.Lock()
	inputs := h.inputs
	h.mu.Unlock()

	if msg.Type == TypeOrientation && h.sensor != nil {
		h.sensor.Push(msg.orientation())
		return
	}
	if inputs == nil {
		return
	}

	switch msg.Type {
	case TypeResize:
		inputs.Resize(msg.Width, msg.Height)
	case TypeOrientation:
		inputs.Orient(msg.orientation())
	case TypeGeolocation:
		inputs.Locate(msg.position())
	case TypeGeolocationError:
		err := sensors.ErrNoFix
		if msg.Message != "" {
			err = fmt.Errorf("%w: %s", sensors.ErrNoFix, msg.Message)
		}
		inputs.LocateFailed(err)
	case TypePermission:
		if !msg.Granted {
			inputs.PermissionDenied()
		}
	default:
		h.log.Debug(context.Background(), "ignoring unknown client message",
			logging.String("client", c.id), logging.String("type", msg.Type))
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		h.wg.Done()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client and waits for their goroutines.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	for c := range h.clients {
		c.closeSend()
		delete(h.clients, c)
	}
	h.reportClientsLocked()
	h.mu.Unlock()

	h.wg.Wait()
	return nil
}
