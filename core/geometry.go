package core

import "math"

// Vec2 is a point or direction in the orbital plane.
type Vec2 struct {
	X, Y float64
}

// Norm returns the Euclidean norm of the vector.
func (v Vec2) Norm() float64 {
	return math.Hypot(v.X, v.Y)
}

// Sub returns v - other.
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Y: v.Y - other.Y}
}

// Scale returns v * k.
func (v Vec2) Scale(k float64) Vec2 {
	return Vec2{X: v.X * k, Y: v.Y * k}
}

// Rotate turns v counter-clockwise by theta radians.
func (v Vec2) Rotate(theta float64) Vec2 {
	if theta == 0 {
		return v
	}
	s, c := math.Sincos(theta)
	return Vec2{X: v.X*c - v.Y*s, Y: v.X*s + v.Y*c}
}

// NormalizeOr returns v scaled to unit length, or fallback when v has no
// direction (zero, NaN or infinite length). Tiny vectors still normalise.
func (v Vec2) NormalizeOr(fallback Vec2) Vec2 {
	n := v.Norm()
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return fallback
	}
	return Vec2{X: v.X / n, Y: v.Y / n}
}

// Vec3 lifts v into 3D at the given depth.
func (v Vec2) Vec3(z float64) Vec3 {
	return Vec3{X: v.X, Y: v.Y, Z: z}
}

// Vec3 is a scene-space vector. The orbital plane is z = 0.
type Vec3 struct {
	X, Y, Z float64
}

// DistanceTo returns the straight-line distance between two points.
func (v Vec3) DistanceTo(other Vec3) float64 {
	return v.Sub(other).Norm()
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Scale returns v * k.
func (v Vec3) Scale(k float64) Vec3 {
	return Vec3{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// NormalizeOr returns v scaled to unit length, or fallback for a zero vector.
func (v Vec3) NormalizeOr(fallback Vec3) Vec3 {
	n := v.Norm()
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return fallback
	}
	return Vec3{X: v.X / n, Y: v.Y / n, Z: v.Z / n}
}

// Euler is an XYZ rotation in radians.
type Euler struct {
	X, Y, Z float64
}

// Add returns the component-wise sum of two rotations.
func (e Euler) Add(other Euler) Euler {
	return Euler{X: e.X + other.X, Y: e.Y + other.Y, Z: e.Z + other.Z}
}

// Apply rotates v by e using the intrinsic XYZ order (Z first, then Y,
// then X, in world terms).
func (e Euler) Apply(v Vec3) Vec3 {
	sz, cz := math.Sincos(e.Z)
	v = Vec3{X: v.X*cz - v.Y*sz, Y: v.X*sz + v.Y*cz, Z: v.Z}
	sy, cy := math.Sincos(e.Y)
	v = Vec3{X: v.X*cy + v.Z*sy, Y: v.Y, Z: -v.X*sy + v.Z*cy}
	sx, cx := math.Sincos(e.X)
	return Vec3{X: v.X, Y: v.Y*cx - v.Z*sx, Z: v.Y*sx + v.Z*cx}
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

