package core

import (
	"math"

	"github.com/signalsfoundry/orrery/model"
)

// DefaultStep is the progress increment applied per frame. At 60 frames per
// second a full orbit takes a little under 34 seconds.
const DefaultStep = 0.0005

// OrbitalAnimator advances a progress value along an orbit path once per
// frame. It is owned by a single frame loop and is not safe for concurrent
// use.
type OrbitalAnimator struct {
	path     model.OrbitPath
	step     float64
	progress float64
}

// AnimatorOption customises a new OrbitalAnimator.
type AnimatorOption func(*OrbitalAnimator)

// WithStep overrides the per-frame progress increment.
func WithStep(step float64) AnimatorOption {
	return func(a *OrbitalAnimator) {
		if !math.IsNaN(step) && !math.IsInf(step, 0) {
			a.step = step
		}
	}
}

// WithProgress sets the starting progress. It is wrapped into [0, 1).
func WithProgress(progress float64) AnimatorOption {
	return func(a *OrbitalAnimator) {
		a.progress = WrapProgress(progress)
	}
}

// NewOrbitalAnimator constructs an animator positioned at progress 0.
func NewOrbitalAnimator(path model.OrbitPath, opts ...AnimatorOption) *OrbitalAnimator {
	a := &OrbitalAnimator{path: path, step: DefaultStep}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Advance moves progress forward by one step, wrapping at 1, and returns the
// sample at the new progress.
func (a *OrbitalAnimator) Advance() SamplePoint {
	a.progress = WrapProgress(a.progress + a.step)
	return SampleEllipse(a.path, a.progress)
}

// Current samples the path at the current progress without advancing.
func (a *OrbitalAnimator) Current() SamplePoint {
	return SampleEllipse(a.path, a.progress)
}

// Reset moves the animator to the given progress.
func (a *OrbitalAnimator) Reset(progress float64) {
	a.progress = WrapProgress(progress)
}

func (a *OrbitalAnimator) Progress() float64     { return a.progress }
func (a *OrbitalAnimator) Step() float64         { return a.step }
func (a *OrbitalAnimator) Path() model.OrbitPath { return a.path }

// WrapProgress reduces p into [0, 1). Non-finite input yields 0.
func WrapProgress(p float64) float64 {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	p -= math.Floor(p)
	if p >= 1 {
		// p was a tiny negative number and rounded up.
		return 0
	}
	return p
}
