package core

import "math"

// Camera is a perspective camera placed on the +Z axis looking at the
// origin, with +Y up.
type Camera struct {
	FOVDegrees float64
	Near       float64
	Far        float64
	Aspect     float64
	Distance   float64
}

// NewCamera returns a camera with a 75° vertical field of view sized for
// the given viewport.
func NewCamera(distance float64, width, height int) Camera {
	c := Camera{
		FOVDegrees: 75,
		Near:       0.1,
		Far:        1000,
		Aspect:     1,
		Distance:   distance,
	}
	return c.Resize(width, height)
}

// Resize returns a copy of c with its aspect ratio matched to the viewport.
// Non-positive dimensions leave the aspect unchanged.
func (c Camera) Resize(width, height int) Camera {
	if width <= 0 || height <= 0 {
		return c
	}
	c.Aspect = float64(width) / float64(height)
	return c
}

// Project maps a world-space point to viewport pixel coordinates, with the
// origin in the top-left corner. ok is false when the point lies outside the
// near/far range.
func (c Camera) Project(p Vec3, width, height int) (x, y float64, ok bool) {
	depth := c.Distance - p.Z
	if depth < c.Near || depth > c.Far || width <= 0 || height <= 0 {
		return 0, 0, false
	}
	aspect := c.Aspect
	if aspect <= 0 {
		aspect = float64(width) / float64(height)
	}
	f := math.Tan(DegToRad(c.FOVDegrees) / 2)
	ndcX := p.X / depth / (f * aspect)
	ndcY := p.Y / depth / f

	x = (ndcX + 1) / 2 * float64(width)
	y = (1 - ndcY) / 2 * float64(height)
	return x, y, true
}

// PixelsPerUnit returns how many pixels one world unit spans at the origin
// plane, useful for sizing spheres.
func (c Camera) PixelsPerUnit(height int) float64 {
	if c.Distance <= 0 || height <= 0 {
		return 0
	}
	f := math.Tan(DegToRad(c.FOVDegrees) / 2)
	return float64(height) / 2 / (f * c.Distance)
}
