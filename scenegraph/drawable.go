package scenegraph

import (
	"image/color"

	"github.com/signalsfoundry/orrery/core"
)

// Kind classifies a drawable for renderers.
type Kind int

const (
	KindSphere Kind = iota
	KindLineStrip
	KindArrow
	KindBackdrop
	KindAmbientLight
	KindPointLight
)

func (k Kind) String() string {
	switch k {
	case KindSphere:
		return "sphere"
	case KindLineStrip:
		return "line"
	case KindArrow:
		return "arrow"
	case KindBackdrop:
		return "backdrop"
	case KindAmbientLight:
		return "ambient_light"
	case KindPointLight:
		return "point_light"
	default:
		return "unknown"
	}
}

// Well-known drawable IDs.
const (
	IDAmbientLight = "ambient-light"
	IDSunLight     = "sun-light"
	IDSun          = "sun"
	IDEarth        = "earth"
	IDOrbit        = "orbit"
	IDStarfield    = "starfield"
	IDEarthArrow   = "earth-arrow"
	IDSolarArrow   = "solar-arrow"
)

// Transform places a drawable in the scene.
type Transform struct {
	Position core.Vec3
	Rotation core.Euler
	// Direction is the unit pointing direction of arrows.
	Direction core.Vec3
}

// Drawable is a renderer-owned scene object.
type Drawable struct {
	ID    string
	Kind  Kind
	Color color.RGBA

	// Radius of spheres and backdrops, length of arrows, range of lights.
	Radius    float64
	Intensity float64

	Transform Transform
	// Points of a line strip in scene space.
	Points []core.Vec3
}

func (d *Drawable) clone() *Drawable {
	c := *d
	if d.Points != nil {
		c.Points = append([]core.Vec3(nil), d.Points...)
	}
	return &c
}
