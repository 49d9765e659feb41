package core

import "github.com/signalsfoundry/orrery/model"

// DefaultOrientationDamping scales raw sensor angles down so that device
// movement turns the starfield gently.
const DefaultOrientationDamping = 0.05

// MapOrientation converts a device-orientation reading into a starfield
// rotation. Beta drives X, alpha drives Y and gamma drives Z; missing angles
// count as zero. A non-positive damping selects DefaultOrientationDamping.
func MapOrientation(o model.Orientation, damping float64) Euler {
	if damping <= 0 {
		damping = DefaultOrientationDamping
	}
	return Euler{
		X: DegToRad(valueOrZero(o.Beta) * damping),
		Y: DegToRad(valueOrZero(o.Alpha) * damping),
		Z: DegToRad(valueOrZero(o.Gamma) * damping),
	}
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
