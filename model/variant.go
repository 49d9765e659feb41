package model

import (
	"fmt"
	"sort"
	"strings"
)

// Variant bundles the cosmetic constants that distinguish the page variants
// of the scene. None of them change the orbital sampling.
type Variant struct {
	Name string

	CameraDistance float64
	OrbitRadius    float64

	ShowOrbitLine   bool
	ShowEarthArrow  bool
	ShowSolarArrow  bool
	OrbitLineColor  string
	EarthArrowColor string
	SolarArrowColor string

	SunColor   string
	EarthColor string
}

// DefaultVariantName is used when no variant is configured.
const DefaultVariantName = "orbit"

var variants = map[string]Variant{
	"classic": {
		Name:            "classic",
		CameraDistance:  10,
		OrbitRadius:     6,
		ShowEarthArrow:  true,
		ShowSolarArrow:  true,
		EarthArrowColor: "#00ff00",
		SolarArrowColor: "#ff0000",
		SunColor:        "#ffcc00",
		EarthColor:      "#2266ff",
	},
	"orbit": {
		Name:            "orbit",
		CameraDistance:  15,
		OrbitRadius:     6,
		ShowOrbitLine:   true,
		ShowEarthArrow:  true,
		ShowSolarArrow:  true,
		OrbitLineColor:  "#ffffff",
		EarthArrowColor: "#00ff00",
		SolarArrowColor: "#ff0000",
		SunColor:        "#ffcc00",
		EarthColor:      "#2266ff",
	},
	"arrows": {
		Name:            "arrows",
		CameraDistance:  12,
		OrbitRadius:     6,
		ShowEarthArrow:  true,
		ShowSolarArrow:  true,
		EarthArrowColor: "#00ffff",
		SolarArrowColor: "#ffaa00",
		SunColor:        "#ffcc00",
		EarthColor:      "#2266ff",
	},
	"minimal": {
		Name:           "minimal",
		CameraDistance: 15,
		OrbitRadius:    6,
		SunColor:       "#ffcc00",
		EarthColor:     "#2266ff",
	},
}

// LookupVariant returns the named preset. Names are case-insensitive; an
// empty name selects DefaultVariantName.
func LookupVariant(name string) (Variant, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = DefaultVariantName
	}
	v, ok := variants[key]
	if !ok {
		return Variant{}, fmt.Errorf("unknown variant %q (known: %s)", name, strings.Join(VariantNames(), ", "))
	}
	return v, nil
}

// VariantNames lists the available presets in sorted order.
func VariantNames() []string {
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
