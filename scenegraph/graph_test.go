package scenegraph

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/model"
)

func buildVariant(t *testing.T, name string) *Graph {
	t.Helper()
	v, err := model.LookupVariant(name)
	require.NoError(t, err)
	g, err := Build(v, model.CircularOrbit(v.OrbitRadius))
	require.NoError(t, err)
	return g
}

func TestBuildOrbitVariant(t *testing.T) {
	g := buildVariant(t, "orbit")

	for _, id := range []string{IDAmbientLight, IDSunLight, IDSun, IDEarth, IDOrbit, IDStarfield, IDEarthArrow, IDSolarArrow} {
		assert.NotNil(t, g.Get(id), "missing %s", id)
	}

	sun := g.Get(IDSun)
	assert.Equal(t, uint8(0xff), sun.Color.R)
	assert.Equal(t, uint8(0xcc), sun.Color.G)
	assert.Equal(t, uint8(0x00), sun.Color.B)

	earth := g.Get(IDEarth)
	assert.InDelta(t, 6, earth.Transform.Position.X, 1e-9)

	arrow := g.Get(IDEarthArrow)
	assert.InDelta(t, 1, arrow.Transform.Direction.Y, 1e-9)
	assert.Equal(t, uint8(0xff), arrow.Color.G)

	solar := g.Get(IDSolarArrow)
	assert.InDelta(t, 1, solar.Transform.Direction.Norm(), 1e-12)

	orbit := g.Get(IDOrbit)
	assert.Len(t, orbit.Points, 101)
}

func TestBuildMinimalVariantOmitsIndicators(t *testing.T) {
	g := buildVariant(t, "minimal")
	assert.Nil(t, g.Get(IDOrbit))
	assert.Nil(t, g.Get(IDEarthArrow))
	assert.Nil(t, g.Get(IDSolarArrow))
	assert.NotNil(t, g.Get(IDEarth))
}

func TestBuildRejectsBadColour(t *testing.T) {
	v, err := model.LookupVariant("orbit")
	require.NoError(t, err)
	v.SunColor = "yellow"
	_, err = Build(v, model.CircularOrbit(6))
	assert.Error(t, err)
}

func TestApplyUpdatesTransformsAndNotifies(t *testing.T) {
	g := buildVariant(t, "orbit")

	var events []Event
	unsubscribe := g.Subscribe(func(ev Event) { events = append(events, ev) })

	sample := core.SampleEllipse(model.CircularOrbit(6), 0.25)
	frame := core.Frame{
		Seq:       9,
		Sample:    sample,
		Earth:     sample.Position.Vec3(0),
		EarthSpin: 0.5,
		Starfield: core.Euler{X: 0.1, Y: 0.2},
		Camera:    core.NewCamera(15, 800, 600),
	}
	require.NoError(t, g.ConsumeFrame(context.Background(), frame))

	earth := g.Get(IDEarth)
	assert.InDelta(t, 6, earth.Transform.Position.Y, 1e-9)
	assert.Equal(t, 0.5, earth.Transform.Rotation.Y)

	arrow := g.Get(IDEarthArrow)
	assert.InDelta(t, -1, arrow.Transform.Direction.X, 1e-9)
	assert.Equal(t, frame.Earth, arrow.Transform.Position)

	assert.Equal(t, core.Euler{X: 0.1, Y: 0.2}, g.Get(IDStarfield).Transform.Rotation)
	assert.Equal(t, uint64(9), g.LastSeq())
	assert.InDelta(t, 800.0/600.0, g.Camera().Aspect, 1e-12)

	require.Len(t, events, 1)
	assert.Equal(t, EventFrameApplied, events[0].Type)
	assert.ElementsMatch(t, []string{IDEarth, IDEarthArrow, IDStarfield}, events[0].IDs)

	unsubscribe()
	g.Apply(frame)
	assert.Len(t, events, 1)
}

func TestAddRejectsDuplicates(t *testing.T) {
	g := New()
	require.NoError(t, g.Add(&Drawable{ID: "a"}))
	assert.Error(t, g.Add(&Drawable{ID: "a"}))
	assert.Error(t, g.Add(&Drawable{}))
}

func TestGetReturnsCopies(t *testing.T) {
	g := New()
	require.NoError(t, g.Add(&Drawable{ID: "line", Kind: KindLineStrip, Points: []core.Vec3{{X: 1}}}))

	d := g.Get("line")
	d.Points[0].X = math.Pi
	assert.Equal(t, 1.0, g.Get("line").Points[0].X)
}

func TestListPaintOrder(t *testing.T) {
	g := buildVariant(t, "orbit")
	list := g.List()
	require.NotEmpty(t, list)

	last := -1
	for _, d := range list {
		rank := paintRank(d.Kind)
		assert.GreaterOrEqual(t, rank, last, "drawable %s out of order", d.ID)
		last = rank
	}
}

func TestStarDirectionsAreUnitAndRotate(t *testing.T) {
	dirs := StarDirections(200)
	require.Len(t, dirs, 200)
	for _, d := range dirs {
		assert.InDelta(t, 1.0, d.Norm(), 1e-12)
	}
	assert.Nil(t, StarDirections(0))

	backdrop := &Drawable{Kind: KindBackdrop, Radius: 90}
	backdrop.Transform.Rotation = core.Euler{Y: 0.3}
	stars := backdrop.Stars(dirs)
	for _, s := range stars {
		assert.InDelta(t, 90.0, s.Norm(), 1e-9)
	}
	assert.NotEqual(t, dirs[0].Scale(90), stars[0])
}
