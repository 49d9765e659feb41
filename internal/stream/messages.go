package stream

import (
	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/model"
)

// Message types exchanged over the socket.
const (
	TypeFrame            = "frame"
	TypeResize           = "resize"
	TypeOrientation      = "orientation"
	TypeGeolocation      = "geolocation"
	TypeGeolocationError = "geolocation_error"
	TypePermission       = "permission"
)

type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type CameraState struct {
	FOV      float64 `json:"fov"`
	Near     float64 `json:"near"`
	Far      float64 `json:"far"`
	Aspect   float64 `json:"aspect"`
	Distance float64 `json:"distance"`
}

// FrameMessage is the JSON form of core.Frame sent to browser clients.
type FrameMessage struct {
	Type              string      `json:"type"`
	Seq               uint64      `json:"seq"`
	Progress          float64     `json:"progress"`
	Position          Vec2        `json:"position"`
	Tangent           Vec2        `json:"tangent"`
	Earth             Vec3        `json:"earth"`
	EarthSpin         float64     `json:"earth_spin"`
	Starfield         Vec3        `json:"starfield"`
	Camera            CameraState `json:"camera"`
	OrientationActive bool        `json:"orientation_active"`
	Observed          bool        `json:"observed"`
}

// NewFrameMessage converts a frame to its wire form.
func NewFrameMessage(f core.Frame) FrameMessage {
	return FrameMessage{
		Type:      TypeFrame,
		Seq:       f.Seq,
		Progress:  f.Progress,
		Position:  Vec2{X: f.Sample.Position.X, Y: f.Sample.Position.Y},
		Tangent:   Vec2{X: f.Sample.Tangent.X, Y: f.Sample.Tangent.Y},
		Earth:     Vec3{X: f.Earth.X, Y: f.Earth.Y, Z: f.Earth.Z},
		EarthSpin: f.EarthSpin,
		Starfield: Vec3{X: f.Starfield.X, Y: f.Starfield.Y, Z: f.Starfield.Z},
		Camera: CameraState{
			FOV:      f.Camera.FOVDegrees,
			Near:     f.Camera.Near,
			Far:      f.Camera.Far,
			Aspect:   f.Camera.Aspect,
			Distance: f.Camera.Distance,
		},
		OrientationActive: f.OrientationActive,
		Observed:          f.Observed,
	}
}

// ClientMessage is any message a client may send. Only the fields relevant
// to Type are read.
type ClientMessage struct {
	Type string `json:"type"`

	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	Alpha *float64 `json:"alpha,omitempty"`
	Beta  *float64 `json:"beta,omitempty"`
	Gamma *float64 `json:"gamma,omitempty"`

	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Accuracy  float64 `json:"accuracy,omitempty"`

	Message string `json:"message,omitempty"`
	Granted bool   `json:"granted,omitempty"`
}

func (m ClientMessage) orientation() model.Orientation {
	return model.Orientation{Alpha: m.Alpha, Beta: m.Beta, Gamma: m.Gamma}
}

func (m ClientMessage) position() model.GeoPosition {
	return model.GeoPosition{Latitude: m.Latitude, Longitude: m.Longitude, AccuracyM: m.Accuracy}
}
