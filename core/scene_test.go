package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/orrery/model"
)

func newTestScene(t *testing.T) *Scene {
	t.Helper()
	variant, err := model.LookupVariant("orbit")
	require.NoError(t, err)
	return NewScene(variant, SceneOptions{Width: 800, Height: 600})
}

func TestSceneTick(t *testing.T) {
	s := newTestScene(t)

	f := s.Tick()
	assert.Equal(t, uint64(1), f.Seq)
	assert.InDelta(t, DefaultStep, f.Progress, 1e-12)
	assert.InDelta(t, EarthSpinPerFrame, f.EarthSpin, 1e-12)
	assert.InDelta(t, StarfieldSpinPerFrame, f.Starfield.Y, 1e-12)
	assert.Equal(t, f.Sample.Position.X, f.Earth.X)
	assert.Equal(t, f.Sample.Position.Y, f.Earth.Y)
	assert.Equal(t, 0.0, f.Earth.Z)
	assert.Equal(t, 15.0, f.Camera.Distance)
	assert.False(t, f.OrientationActive)

	f = s.Tick()
	assert.Equal(t, uint64(2), f.Seq)
	assert.InDelta(t, 2*EarthSpinPerFrame, f.EarthSpin, 1e-12)
}

func TestSceneOrientationAndResize(t *testing.T) {
	s := newTestScene(t)

	s.ApplyOrientation(model.Orientation{Beta: model.Degrees(10)})
	s.Resize(1000, 500)
	f := s.Tick()

	assert.True(t, f.OrientationActive)
	assert.InDelta(t, DegToRad(0.5), f.Starfield.X, 1e-12)
	assert.InDelta(t, StarfieldSpinPerFrame, f.Starfield.Y, 1e-12)
	assert.InDelta(t, 2.0, f.Camera.Aspect, 1e-12)
}

func TestSceneOrientationRestartsIdleDrift(t *testing.T) {
	s := newTestScene(t)
	for i := 0; i < 1000; i++ {
		s.Tick()
	}

	s.ApplyOrientation(model.Orientation{Alpha: model.Degrees(0)})
	assert.InDelta(t, 0, s.Peek().Starfield.Y, 1e-12)
	assert.InDelta(t, StarfieldSpinPerFrame, s.Tick().Starfield.Y, 1e-12)

	s.ApplyOrientation(model.Orientation{Alpha: model.Degrees(20)})
	assert.InDelta(t, DegToRad(1)+StarfieldSpinPerFrame, s.Tick().Starfield.Y, 1e-12)
}

func TestSceneObserver(t *testing.T) {
	s := newTestScene(t)
	at := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	offset := SiderealOffset(model.GeoPosition{Latitude: 50, Longitude: 30}, at)

	s.SetObserver(model.GeoPosition{Latitude: 50, Longitude: 30}, at)
	f := s.Peek()
	assert.True(t, f.Observed)
	assert.InDelta(t, offset.X, f.Starfield.X, 1e-12)
	assert.InDelta(t, offset.Y, f.Starfield.Y, 1e-12)
	assert.Equal(t, uint64(0), f.Seq)
}
