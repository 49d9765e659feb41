package core

import (
	"math"

	"github.com/signalsfoundry/orrery/model"
)

// SamplePoint is a position on an orbit path and the unit direction of
// travel at that position.
type SamplePoint struct {
	Position Vec2
	Tangent  Vec2
}

// DefaultTangent is returned when the path has no usable direction, e.g. a
// zero-radius ellipse.
var DefaultTangent = Vec2{X: 1, Y: 0}

const twoPi = 2 * math.Pi

// sweepEpsilon matches the tolerance used to decide that start and end
// angles coincide.
const sweepEpsilon = 1e-10

// Sweep returns the signed angle travelled when t goes from 0 to 1.
// Counter-clockwise sweeps lie in (0, 2π]; clockwise sweeps in [-2π, 0).
// A path whose start and end angles coincide has a zero sweep.
func Sweep(path model.OrbitPath) float64 {
	delta := path.EndAngle - path.StartAngle
	samePoints := math.Abs(delta) < sweepEpsilon

	delta = math.Mod(delta, twoPi)
	if delta < 0 {
		delta += twoPi
	}
	if delta < sweepEpsilon {
		if samePoints {
			delta = 0
		} else {
			delta = twoPi
		}
	}

	if path.Winding == model.Clockwise && !samePoints {
		if delta == twoPi {
			delta = -twoPi
		} else {
			delta -= twoPi
		}
	}
	return delta
}

// AngleAt maps the normalised parameter t to an angle on the path. Values
// outside [0, 1) keep extending the parametrisation.
func AngleAt(path model.OrbitPath, t float64) float64 {
	return path.StartAngle + t*Sweep(path)
}

// SampleEllipse returns the point on path at parameter t together with the
// unit tangent in the direction of travel. It has no side effects.
func SampleEllipse(path model.OrbitPath, t float64) SamplePoint {
	sweep := Sweep(path)
	angle := path.StartAngle + t*sweep
	sin, cos := math.Sincos(angle)

	offset := Vec2{X: path.RX * cos, Y: path.RY * sin}.Rotate(path.Rotation)
	position := Vec2{X: path.CX + offset.X, Y: path.CY + offset.Y}

	// d/dt of the position; a zero sweep falls back to d/dangle.
	derivative := Vec2{X: -path.RX * sin, Y: path.RY * cos}
	if sweep != 0 {
		derivative = derivative.Scale(sweep)
	}
	tangent := derivative.Rotate(path.Rotation).NormalizeOr(DefaultTangent)

	return SamplePoint{Position: position, Tangent: tangent}
}

// OrbitPoints returns divisions+1 evenly spaced positions along path, from
// t = 0 to t = 1 inclusive, for drawing the orbit line.
func OrbitPoints(path model.OrbitPath, divisions int) []Vec2 {
	if divisions < 1 {
		divisions = 1
	}
	points := make([]Vec2, 0, divisions+1)
	for i := 0; i <= divisions; i++ {
		t := float64(i) / float64(divisions)
		points = append(points, SampleEllipse(path, t).Position)
	}
	return points
}
