package scenegraph

import (
	"fmt"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/model"
)

const (
	sunRadius       = 1.2
	earthRadius     = 0.4
	starfieldRadius = 90
	earthArrowLen   = 3
	solarArrowLen   = 5
	orbitDivisions  = 100
)

// solarDirection is the fixed direction of the solar arrow.
var solarDirection = core.Vec3{X: 1, Y: 0.4, Z: -0.3}.NormalizeOr(core.Vec3{X: 1})

// Build populates a graph with the drawables of a variant. path is the orbit
// the Earth follows; the Earth starts at its t = 0 sample.
func Build(variant model.Variant, path model.OrbitPath) (*Graph, error) {
	palette, err := parsePalette(variant)
	if err != nil {
		return nil, err
	}

	start := core.SampleEllipse(path, 0)
	earthPos := start.Position.Vec3(0)

	drawables := []*Drawable{
		{ID: IDAmbientLight, Kind: KindAmbientLight, Color: color.RGBA{R: 255, G: 255, B: 255, A: 255}, Intensity: 0.4},
		{ID: IDSunLight, Kind: KindPointLight, Color: palette["sun-light"], Intensity: 2, Radius: 200},
		{ID: IDSun, Kind: KindSphere, Color: palette["sun"], Radius: sunRadius},
		{
			ID: IDEarth, Kind: KindSphere, Color: palette["earth"], Radius: earthRadius,
			Transform: Transform{Position: earthPos},
		},
		{ID: IDStarfield, Kind: KindBackdrop, Color: color.RGBA{R: 8, G: 8, B: 24, A: 255}, Radius: starfieldRadius},
	}

	if variant.ShowOrbitLine {
		points := core.OrbitPoints(path, orbitDivisions)
		line := make([]core.Vec3, 0, len(points))
		for _, p := range points {
			line = append(line, p.Vec3(0))
		}
		drawables = append(drawables, &Drawable{ID: IDOrbit, Kind: KindLineStrip, Color: palette["orbit"], Points: line})
	}
	if variant.ShowEarthArrow {
		drawables = append(drawables, &Drawable{
			ID: IDEarthArrow, Kind: KindArrow, Color: palette["earth-arrow"], Radius: earthArrowLen,
			Transform: Transform{Position: earthPos, Direction: start.Tangent.Vec3(0)},
		})
	}
	if variant.ShowSolarArrow {
		drawables = append(drawables, &Drawable{
			ID: IDSolarArrow, Kind: KindArrow, Color: palette["solar-arrow"], Radius: solarArrowLen,
			Transform: Transform{Direction: solarDirection},
		})
	}

	g := New()
	for _, d := range drawables {
		if err := g.Add(d); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func parsePalette(v model.Variant) (map[string]color.RGBA, error) {
	entries := map[string]string{
		"sun-light":   "#ffcc66",
		"sun":         v.SunColor,
		"earth":       v.EarthColor,
		"orbit":       v.OrbitLineColor,
		"earth-arrow": v.EarthArrowColor,
		"solar-arrow": v.SolarArrowColor,
	}
	palette := make(map[string]color.RGBA, len(entries))
	for name, hex := range entries {
		if hex == "" {
			palette[name] = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			continue
		}
		c, err := colorful.Hex(hex)
		if err != nil {
			return nil, fmt.Errorf("variant %q: %s colour: %w", v.Name, name, err)
		}
		r, g, b := c.RGB255()
		palette[name] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return palette, nil
}
