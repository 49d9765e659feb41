// Package term draws the orbital scene into a terminal with tcell.
package term

import (
	"context"
	"image/color"
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/internal/sensors"
	"github.com/signalsfoundry/orrery/scenegraph"
)

const (
	// cellAspect is the height of a terminal cell relative to its width.
	cellAspect = 2
	starCount  = 400
)

// Resizer receives viewport changes. host.View implements it.
type Resizer interface {
	Resize(width, height int)
}

// Options configures a Renderer.
type Options struct {
	// Keys, when set, receives keyboard-driven orientation readings.
	Keys    *sensors.FeedSensor
	Resizer Resizer
	Logger  logging.Logger
}

// Renderer paints a scene graph onto a tcell screen. Draw and HandleEvent
// must be called from one goroutine; Run does that.
type Renderer struct {
	screen  tcell.Screen
	graph   *scenegraph.Graph
	keys    *sensors.KeyboardOrientation
	resizer Resizer
	log     logging.Logger

	stars []core.Vec3
}

// New constructs a renderer over an initialised screen.
func New(screen tcell.Screen, graph *scenegraph.Graph, opts Options) *Renderer {
	log := opts.Logger
	if log == nil {
		log = logging.Noop()
	}
	return &Renderer{
		screen:  screen,
		graph:   graph,
		keys:    sensors.NewKeyboardOrientation(opts.Keys),
		resizer: opts.Resizer,
		log:     log,
		stars:   scenegraph.StarDirections(starCount),
	}
}

// Viewport returns the screen size in camera pixels, where one cell is one
// pixel wide and cellAspect pixels tall.
func (r *Renderer) Viewport() (width, height int) {
	w, h := r.screen.Size()
	return w, h * cellAspect
}

// Run redraws whenever the graph applies a frame and handles terminal events
// until ctx is cancelled or the user quits.
func (r *Renderer) Run(ctx context.Context) error {
	redraw := make(chan struct{}, 1)
	unsubscribe := r.graph.Subscribe(func(ev scenegraph.Event) {
		if ev.Type != scenegraph.EventFrameApplied {
			return
		}
		select {
		case redraw <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	// PollEvent returns nil once the screen is finalised, which ends the
	// poller after the caller runs Fini.
	events := make(chan tcell.Event, 100)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			ev := r.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-stop:
				return
			}
		}
	}()

	if r.resizer != nil {
		r.resizer.Resize(r.Viewport())
	}
	r.Draw()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if r.HandleEvent(ev) {
				r.log.Info(ctx, "terminal view closed by user")
				return nil
			}
		case <-redraw:
			r.Draw()
		}
	}
}

// HandleEvent reacts to one terminal event and reports whether the user
// asked to quit.
func (r *Renderer) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		r.screen.Sync()
		if r.resizer != nil {
			w, h := ev.Size()
			r.resizer.Resize(w, h*cellAspect)
		}
		r.Draw()
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return true
		case tcell.KeyLeft:
			r.keys.Turn(-1, 0, 0)
		case tcell.KeyRight:
			r.keys.Turn(1, 0, 0)
		case tcell.KeyUp:
			r.keys.Turn(0, -1, 0)
		case tcell.KeyDown:
			r.keys.Turn(0, 1, 0)
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q', 'Q':
				return true
			case ',':
				r.keys.Turn(0, 0, -1)
			case '.':
				r.keys.Turn(0, 0, 1)
			case '0':
				r.keys.Reset()
			}
		}
	}
	return false
}

// Draw paints the current graph state.
func (r *Renderer) Draw() {
	r.screen.Clear()
	width, height := r.Viewport()
	camera := r.graph.Camera()
	if camera.Distance == 0 {
		r.screen.Show()
		return
	}

	for _, d := range r.graph.List() {
		switch d.Kind {
		case scenegraph.KindBackdrop:
			for _, s := range d.Stars(r.stars) {
				r.plot(camera, width, height, s, '.', tcell.StyleDefault.Foreground(tcell.ColorSilver))
			}
		case scenegraph.KindLineStrip:
			style := styleFor(d.Color)
			for _, p := range d.Points {
				r.plot(camera, width, height, p, '·', style)
			}
		case scenegraph.KindSphere:
			r.disc(camera, width, height, d)
		case scenegraph.KindArrow:
			r.arrow(camera, width, height, d)
		}
	}
	r.status(width)
	r.screen.Show()
}

func (r *Renderer) cell(camera core.Camera, width, height int, p core.Vec3) (col, row int, ok bool) {
	x, y, ok := camera.Project(p, width, height)
	if !ok {
		return 0, 0, false
	}
	col, row = int(math.Floor(x)), int(math.Floor(y/cellAspect))
	cols, rows := r.screen.Size()
	if col < 0 || row < 0 || col >= cols || row >= rows {
		return 0, 0, false
	}
	return col, row, true
}

func (r *Renderer) plot(camera core.Camera, width, height int, p core.Vec3, ch rune, style tcell.Style) {
	if col, row, ok := r.cell(camera, width, height, p); ok {
		r.screen.SetContent(col, row, ch, nil, style)
	}
}

func (r *Renderer) disc(camera core.Camera, width, height int, d *scenegraph.Drawable) {
	cx, cy, ok := camera.Project(d.Transform.Position, width, height)
	if !ok {
		return
	}
	radius := d.Radius * camera.PixelsPerUnit(height)
	style := styleFor(d.Color)
	glyph := '●'
	if d.ID == scenegraph.IDSun {
		glyph = '@'
	}
	if radius < 1 {
		r.plot(camera, width, height, d.Transform.Position, glyph, style)
		return
	}

	cols, rows := r.screen.Size()
	minRow := int(math.Floor((cy - radius) / cellAspect))
	maxRow := int(math.Ceil((cy + radius) / cellAspect))
	for row := max(minRow, 0); row <= maxRow && row < rows; row++ {
		py := (float64(row) + 0.5) * cellAspect
		dy := py - cy
		if math.Abs(dy) > radius {
			continue
		}
		half := math.Sqrt(radius*radius - dy*dy)
		for col := max(int(math.Floor(cx-half)), 0); col <= int(math.Ceil(cx+half)) && col < cols; col++ {
			px := float64(col) + 0.5
			if (px-cx)*(px-cx)+dy*dy <= radius*radius {
				r.screen.SetContent(col, row, glyph, nil, style)
			}
		}
	}
	r.plot(camera, width, height, d.Transform.Position, glyph, style)
}

func (r *Renderer) arrow(camera core.Camera, width, height int, d *scenegraph.Drawable) {
	style := styleFor(d.Color)
	const steps = 24
	origin := d.Transform.Position
	// The shaft starts outside the cell of the body it is attached to.
	oc, or, _ := r.cell(camera, width, height, origin)
	for i := 1; i <= steps; i++ {
		p := origin.Add(d.Transform.Direction.Scale(d.Radius * float64(i) / steps))
		col, row, ok := r.cell(camera, width, height, p)
		if !ok || (col == oc && row == or) {
			continue
		}
		glyph := '∙'
		if i == steps {
			glyph = '*'
		}
		r.screen.SetContent(col, row, glyph, nil, style)
	}
}

func (r *Renderer) status(width int) {
	line := "arrows/,. orient  0 reset  q quit"
	if len(line) > width {
		return
	}
	_, rows := r.screen.Size()
	style := tcell.StyleDefault.Foreground(tcell.ColorGray)
	for i, ch := range line {
		r.screen.SetContent(i, rows-1, ch, nil, style)
	}
}

func styleFor(c color.RGBA) tcell.Style {
	return tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B)))
}
