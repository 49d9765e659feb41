package model

import "math"

// Winding selects the direction of travel along an OrbitPath.
type Winding int

const (
	CounterClockwise Winding = iota
	Clockwise
)

func (w Winding) String() string {
	if w == Clockwise {
		return "clockwise"
	}
	return "counter-clockwise"
}

// OrbitPath is an elliptical arc in the orbital plane. Angles are radians.
// It is a value type; copies handed to samplers are never mutated.
type OrbitPath struct {
	CX, CY     float64
	RX, RY     float64
	StartAngle float64
	EndAngle   float64
	Winding    Winding

	// Rotation turns the whole ellipse about its centre (radians).
	Rotation float64
}

// NewOrbitPath constructs an elliptical path.
func NewOrbitPath(cx, cy, rx, ry, start, end float64, winding Winding) OrbitPath {
	return OrbitPath{
		CX:         cx,
		CY:         cy,
		RX:         rx,
		RY:         ry,
		StartAngle: start,
		EndAngle:   end,
		Winding:    winding,
	}
}

// CircularOrbit is a full counter-clockwise circle centred on the origin,
// starting at angle 0.
func CircularOrbit(radius float64) OrbitPath {
	return NewOrbitPath(0, 0, radius, radius, 0, 2*math.Pi, CounterClockwise)
}
