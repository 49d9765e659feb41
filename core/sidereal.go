package core

import (
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/orrery/model"
)

// SiderealOffset aligns the starfield with the observer's equatorial frame:
// yaw is the right ascension of the local zenith and pitch its declination
// (geocentric latitude), both in radians.
func SiderealOffset(observer model.GeoPosition, at time.Time) Euler {
	at = at.UTC()
	year, month, day := at.Date()
	hour, min, sec := at.Clock()
	jd := satellite.JDay(year, int(month), day, hour, min, sec)

	coords := satellite.LatLong{
		Latitude:  DegToRad(observer.Latitude),
		Longitude: DegToRad(observer.Longitude),
	}
	eci := satellite.LLAToECI(coords, 0, jd)

	yaw := math.Atan2(eci.Y, eci.X)
	if yaw < 0 {
		yaw += twoPi
	}
	r := math.Sqrt(eci.X*eci.X + eci.Y*eci.Y + eci.Z*eci.Z)
	pitch := 0.0
	if r > 0 {
		pitch = math.Asin(eci.Z / r)
	}
	return Euler{X: pitch, Y: yaw}
}
