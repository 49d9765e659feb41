package scenegraph

import (
	"math"

	"github.com/signalsfoundry/orrery/core"
)

// StarDirections returns n unit vectors spread evenly over the sphere on a
// Fibonacci lattice. Renderers scale them by the backdrop radius and rotate
// them by the backdrop transform.
func StarDirections(n int) []core.Vec3 {
	if n <= 0 {
		return nil
	}
	golden := math.Pi * (3 - math.Sqrt(5))
	out := make([]core.Vec3, n)
	for i := range out {
		y := 1 - 2*(float64(i)+0.5)/float64(n)
		r := math.Sqrt(1 - y*y)
		theta := golden * float64(i)
		out[i] = core.Vec3{X: r * math.Cos(theta), Y: y, Z: r * math.Sin(theta)}
	}
	return out
}

// Stars places the backdrop's stars in scene space for its current rotation.
func (d *Drawable) Stars(directions []core.Vec3) []core.Vec3 {
	out := make([]core.Vec3, len(directions))
	for i, dir := range directions {
		out[i] = d.Transform.Rotation.Apply(dir).Scale(d.Radius)
	}
	return out
}
