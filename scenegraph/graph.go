package scenegraph

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/orrery/core"
)

// EventType indicates what kind of change happened in the graph.
type EventType int

const (
	EventDrawableAdded EventType = iota
	EventFrameApplied
)

// Event is emitted to subscribers when the graph changes.
type Event struct {
	Type EventType
	// Seq is the frame sequence for EventFrameApplied.
	Seq uint64
	// IDs lists the drawables that changed.
	IDs []string
}

// Graph is a thread-safe store of drawables. The frame loop writes to it
// through Apply; renderers read snapshots from their own goroutines.
type Graph struct {
	mu sync.RWMutex

	drawables map[string]*Drawable
	camera    core.Camera
	lastSeq   uint64

	nextSub int
	subs    map[int]func(Event)
}

// New constructs an empty graph.
func New() *Graph {
	return &Graph{
		drawables: make(map[string]*Drawable),
		subs:      make(map[int]func(Event)),
	}
}

// Add inserts a drawable. It returns an error if the ID already exists.
func (g *Graph) Add(d *Drawable) error {
	if d == nil || d.ID == "" {
		return fmt.Errorf("drawable must have an ID")
	}
	g.mu.Lock()
	if _, exists := g.drawables[d.ID]; exists {
		g.mu.Unlock()
		return fmt.Errorf("drawable with ID %q already exists", d.ID)
	}
	g.drawables[d.ID] = d.clone()
	subs := g.subscribersLocked()
	g.mu.Unlock()

	notify(subs, Event{Type: EventDrawableAdded, IDs: []string{d.ID}})
	return nil
}

// Get returns a copy of the drawable with the given ID, or nil.
func (g *Graph) Get(id string) *Drawable {
	g.mu.RLock()
	defer g.mu.RUnlock()
	d, ok := g.drawables[id]
	if !ok {
		return nil
	}
	return d.clone()
}

// List returns copies of all drawables, backdrops and lights first and
// then by ID, which is a usable painter's order for flat renderers.
func (g *Graph) List() []*Drawable {
	g.mu.RLock()
	res := make([]*Drawable, 0, len(g.drawables))
	for _, d := range g.drawables {
		res = append(res, d.clone())
	}
	g.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool {
		ri, rj := paintRank(res[i].Kind), paintRank(res[j].Kind)
		if ri != rj {
			return ri < rj
		}
		return res[i].ID < res[j].ID
	})
	return res
}

// Camera returns the camera of the most recently applied frame.
func (g *Graph) Camera() core.Camera {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.camera
}

// LastSeq returns the sequence of the most recently applied frame.
func (g *Graph) LastSeq() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lastSeq
}

// Apply moves the Earth, its direction arrow and the starfield to the
// state described by frame and notifies subscribers.
func (g *Graph) Apply(frame core.Frame) {
	g.mu.Lock()
	var changed []string
	if d, ok := g.drawables[IDEarth]; ok {
		d.Transform.Position = frame.Earth
		d.Transform.Rotation.Y = frame.EarthSpin
		changed = append(changed, IDEarth)
	}
	if d, ok := g.drawables[IDEarthArrow]; ok {
		d.Transform.Position = frame.Earth
		d.Transform.Direction = frame.Sample.Tangent.Vec3(0)
		changed = append(changed, IDEarthArrow)
	}
	if d, ok := g.drawables[IDStarfield]; ok {
		d.Transform.Rotation = frame.Starfield
		changed = append(changed, IDStarfield)
	}
	g.camera = frame.Camera
	g.lastSeq = frame.Seq
	subs := g.subscribersLocked()
	g.mu.Unlock()

	notify(subs, Event{Type: EventFrameApplied, Seq: frame.Seq, IDs: changed})
}

// ConsumeFrame lets the graph act as a frame sink.
func (g *Graph) ConsumeFrame(_ context.Context, frame core.Frame) error {
	g.Apply(frame)
	return nil
}

// Subscribe registers a callback for graph events. Callbacks run on the
// writer's goroutine outside the graph lock. It returns an unsubscribe
// function.
func (g *Graph) Subscribe(fn func(Event)) (unsubscribe func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextSub++
	id := g.nextSub
	g.subs[id] = fn

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.subs, id)
	}
}

func (g *Graph) subscribersLocked() []func(Event) {
	subs := make([]func(Event), 0, len(g.subs))
	for _, fn := range g.subs {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(Event), ev Event) {
	for _, fn := range subs {
		fn(ev)
	}
}

func paintRank(k Kind) int {
	switch k {
	case KindAmbientLight, KindPointLight:
		return 0
	case KindBackdrop:
		return 1
	case KindLineStrip:
		return 2
	case KindSphere:
		return 3
	default:
		return 4
	}
}
