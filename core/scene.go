package core

import (
	"time"

	"github.com/signalsfoundry/orrery/model"
)

const (
	// EarthSpinPerFrame is the Earth's self-rotation about Y per frame.
	EarthSpinPerFrame = 0.01
	// StarfieldSpinPerFrame is the idle starfield drift about Y per frame.
	StarfieldSpinPerFrame = 0.0005
)

// Frame is the complete per-frame output consumed by rendering surfaces.
type Frame struct {
	Seq      uint64
	Progress float64
	Sample   SamplePoint

	// Earth is Sample.Position in scene space (orbital plane z = 0).
	Earth     Vec3
	EarthSpin float64
	Starfield Euler
	Camera    Camera

	// OrientationActive reports whether a sensor reading has been applied.
	OrientationActive bool
	// Observed reports whether a geolocation fix aligned the starfield.
	Observed bool
}

// SceneOptions configures a Scene.
type SceneOptions struct {
	Step               float64
	InitialProgress    float64
	OrientationDamping float64
	Width, Height      int
}

// Scene composes the orbital animator with the cosmetic per-frame state of
// the view. Like the animator it belongs to one frame loop.
type Scene struct {
	animator *OrbitalAnimator
	camera   Camera
	damping  float64

	seq          uint64
	earthSpin    float64
	starfieldYaw float64

	orientation       Euler
	orientationActive bool
	sidereal          Euler
	observed          bool
}

// NewScene builds the scene for a variant.
func NewScene(variant model.Variant, opts SceneOptions) *Scene {
	step := opts.Step
	if step == 0 {
		step = DefaultStep
	}
	radius := variant.OrbitRadius
	if radius <= 0 {
		radius = 6
	}
	return &Scene{
		animator: NewOrbitalAnimator(
			model.CircularOrbit(radius),
			WithStep(step),
			WithProgress(opts.InitialProgress),
		),
		camera:  NewCamera(variant.CameraDistance, opts.Width, opts.Height),
		damping: opts.OrientationDamping,
	}
}

// Tick advances the scene by one frame.
func (s *Scene) Tick() Frame {
	sample := s.animator.Advance()
	s.seq++
	s.earthSpin += EarthSpinPerFrame
	s.starfieldYaw += StarfieldSpinPerFrame
	return s.frame(sample)
}

// Peek returns the current frame without advancing.
func (s *Scene) Peek() Frame {
	return s.frame(s.animator.Current())
}

func (s *Scene) frame(sample SamplePoint) Frame {
	starfield := s.orientation.Add(s.sidereal)
	starfield.Y += s.starfieldYaw
	return Frame{
		Seq:               s.seq,
		Progress:          s.animator.Progress(),
		Sample:            sample,
		Earth:             sample.Position.Vec3(0),
		EarthSpin:         s.earthSpin,
		Starfield:         starfield,
		Camera:            s.camera,
		OrientationActive: s.orientationActive,
		Observed:          s.observed,
	}
}

// ApplyOrientation replaces the starfield rotation with the reading. Idle
// drift accumulated so far is discarded and resumes from the new rotation.
func (s *Scene) ApplyOrientation(o model.Orientation) {
	s.orientation = MapOrientation(o, s.damping)
	s.starfieldYaw = 0
	s.orientationActive = true
}

// Resize updates the camera aspect ratio for a new viewport.
func (s *Scene) Resize(width, height int) {
	s.camera = s.camera.Resize(width, height)
}

// SetObserver aligns the starfield to the observer's sky at the given time.
func (s *Scene) SetObserver(pos model.GeoPosition, at time.Time) {
	s.sidereal = SiderealOffset(pos, at)
	s.observed = true
}

func (s *Scene) Animator() *OrbitalAnimator { return s.animator }
func (s *Scene) Camera() Camera             { return s.camera }
