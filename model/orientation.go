package model

// Orientation is a raw device-orientation reading in degrees. Any angle the
// sensor did not report is nil.
type Orientation struct {
	Alpha *float64 `json:"alpha"`
	Beta  *float64 `json:"beta"`
	Gamma *float64 `json:"gamma"`
}

// Degrees is a helper for building Orientation literals.
func Degrees(v float64) *float64 { return &v }

// GeoPosition is a geolocation fix in decimal degrees.
type GeoPosition struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	// AccuracyM is the reported horizontal accuracy in metres, 0 if unknown.
	AccuracyM float64 `json:"accuracy_m,omitempty"`
}
