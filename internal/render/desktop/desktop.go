// Package desktop draws the orbital scene in a native window with ebiten.
package desktop

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/internal/sensors"
	"github.com/signalsfoundry/orrery/scenegraph"
)

const starCount = 600

var background = color.RGBA{R: 0, G: 0, B: 0, A: 255}

// Resizer receives viewport changes. host.View implements it.
type Resizer interface {
	Resize(width, height int)
}

// Options configures a Game.
type Options struct {
	Title         string
	Width, Height int
	Keys          *sensors.FeedSensor
	Resizer       Resizer
}

// Game implements ebiten.Game over a scene graph. The frame loop that feeds
// the graph runs separately; Draw always paints the latest applied frame.
type Game struct {
	graph   *scenegraph.Graph
	keys    *sensors.KeyboardOrientation
	resizer Resizer
	stars   []core.Vec3

	width, height int
}

// New constructs a game over graph.
func New(graph *scenegraph.Graph, opts Options) *Game {
	return &Game{
		graph:   graph,
		keys:    sensors.NewKeyboardOrientation(opts.Keys),
		resizer: opts.Resizer,
		stars:   scenegraph.StarDirections(starCount),
	}
}

// Run opens the window and blocks until it is closed.
func Run(g *Game, opts Options) error {
	width, height := opts.Width, opts.Height
	if width <= 0 || height <= 0 {
		width, height = 1280, 720
	}
	title := opts.Title
	if title == "" {
		title = "orrery"
	}
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(g)
}

func (g *Game) Update() error {
	if ebiten.IsKeyPressed(ebiten.KeyQ) || ebiten.IsKeyPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyLeft):
		g.keys.Turn(-1, 0, 0)
	case inpututil.IsKeyJustPressed(ebiten.KeyRight):
		g.keys.Turn(1, 0, 0)
	case inpututil.IsKeyJustPressed(ebiten.KeyUp):
		g.keys.Turn(0, -1, 0)
	case inpututil.IsKeyJustPressed(ebiten.KeyDown):
		g.keys.Turn(0, 1, 0)
	case inpututil.IsKeyJustPressed(ebiten.KeyComma):
		g.keys.Turn(0, 0, -1)
	case inpututil.IsKeyJustPressed(ebiten.KeyPeriod):
		g.keys.Turn(0, 0, 1)
	case inpututil.IsKeyJustPressed(ebiten.Key0):
		g.keys.Reset()
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(background)
	width, height := screen.Bounds().Dx(), screen.Bounds().Dy()
	camera := g.graph.Camera()
	if camera.Distance == 0 {
		return
	}

	for _, d := range g.graph.List() {
		switch d.Kind {
		case scenegraph.KindBackdrop:
			starColor := color.RGBA{R: 200, G: 200, B: 220, A: 255}
			for _, s := range d.Stars(g.stars) {
				if x, y, ok := camera.Project(s, width, height); ok {
					vector.DrawFilledCircle(screen, float32(x), float32(y), 1, starColor, false)
				}
			}
		case scenegraph.KindLineStrip:
			for _, seg := range Segments(camera, width, height, d.Points) {
				vector.StrokeLine(screen, seg[0], seg[1], seg[2], seg[3], 1, d.Color, true)
			}
		case scenegraph.KindSphere:
			if x, y, ok := camera.Project(d.Transform.Position, width, height); ok {
				r := float32(d.Radius * camera.PixelsPerUnit(height))
				vector.DrawFilledCircle(screen, float32(x), float32(y), max(r, 1), d.Color, true)
			}
		case scenegraph.KindArrow:
			tip := d.Transform.Position.Add(d.Transform.Direction.Scale(d.Radius))
			for _, seg := range Segments(camera, width, height, []core.Vec3{d.Transform.Position, tip}) {
				vector.StrokeLine(screen, seg[0], seg[1], seg[2], seg[3], 2, d.Color, true)
				vector.DrawFilledCircle(screen, seg[2], seg[3], 3, d.Color, true)
			}
		}
	}
}

// Layout reports the window size as the logical screen size and forwards
// changes to the resizer.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != g.width || outsideHeight != g.height {
		g.width, g.height = outsideWidth, outsideHeight
		if g.resizer != nil {
			g.resizer.Resize(outsideWidth, outsideHeight)
		}
	}
	return outsideWidth, outsideHeight
}

// Segments projects a polyline into screen-space segments
// {x0, y0, x1, y1}, dropping segments with an endpoint behind the camera.
func Segments(camera core.Camera, width, height int, points []core.Vec3) [][4]float32 {
	if len(points) < 2 {
		return nil
	}
	out := make([][4]float32, 0, len(points)-1)
	px, py, pok := camera.Project(points[0], width, height)
	for _, p := range points[1:] {
		x, y, ok := camera.Project(p, width, height)
		if ok && pok {
			out = append(out, [4]float32{float32(px), float32(py), float32(x), float32(y)})
		}
		px, py, pok = x, y, ok
	}
	return out
}
