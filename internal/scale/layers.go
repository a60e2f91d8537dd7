package scale

import (
	"errors"
	"fmt"
	"io"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/litescript/ls-orrery/internal/astro"
)

// Context says which reveal factor drives a layer and when it is written.
type Context string

const (
	// ContextGalaxy layers fade with the galaxy reveal while the galaxy
	// group is visible.
	ContextGalaxy Context = "galaxy"
	// ContextUniverse layers fade with the universe reveal while the
	// universe group is visible.
	ContextUniverse Context = "universe"
	// ContextBelt layers fade out with the galaxy reveal.
	ContextBelt Context = "belt"
	// ContextOrbit layers fade with both reveals and are written on every
	// fade pass.
	ContextOrbit Context = "orbit"
)

func (c Context) valid() bool {
	switch c {
	case ContextGalaxy, ContextUniverse, ContextBelt, ContextOrbit:
		return true
	}
	return false
}

// Layer describes the opacity and scale of a set of scene objects as a
// function of the reveal factors:
//
//	opacity = (Bias + Gain·r^Exp)·(1 − UDamp·uA)
//	scale   = 1 + ScaleG·gA + ScaleU·uA
//
// where r is the universe reveal for universe layers and the galaxy reveal
// otherwise. Object names ending in "*" match by prefix.
type Layer struct {
	Name    string   `yaml:"name"`
	Context Context  `yaml:"context"`
	Objects []string `yaml:"objects"`
	Bias    float64  `yaml:"bias"`
	Gain    float64  `yaml:"gain"`
	Exp     float64  `yaml:"exp"`
	UDamp   float64  `yaml:"udamp"`
	ScaleG  float64  `yaml:"scale_g"`
	ScaleU  float64  `yaml:"scale_u"`
}

// Opacity evaluates the layer's opacity for the two reveal factors.
func (l Layer) Opacity(gA, uA float64) float64 {
	r := gA
	if l.Context == ContextUniverse {
		r = uA
	}
	exp := l.Exp
	if exp == 0 {
		exp = 1
	}
	return astro.Clamp01((l.Bias + l.Gain*math.Pow(r, exp)) * (1 - l.UDamp*uA))
}

// Scales reports whether the layer also drives object scale.
func (l Layer) Scales() bool {
	return l.ScaleG != 0 || l.ScaleU != 0
}

// Scale evaluates the layer's scale factor.
func (l Layer) Scale(gA, uA float64) float64 {
	return 1 + l.ScaleG*gA + l.ScaleU*uA
}

// Scene object names used by the default layers and budgets.
const (
	ObjGalaxyGroup     = "galaxy"
	ObjMilkyWayBand    = "galaxy/band"
	ObjGalacticBar     = "galaxy/bar"
	ObjGalacticGlow    = "galaxy/glow"
	ObjSolarMarker     = "galaxy/sun-marker"
	ObjSolarLabel      = "galaxy/sun-label"
	ObjNebulae         = "galaxy/nebula/*"
	ObjUniverseGroup   = "universe"
	ObjUniverseField   = "universe/field"
	ObjClusters        = "universe/clusters"
	ObjMilkyWayMarker  = "universe/milkyway-marker"
	ObjMilkyWayLabel   = "universe/milkyway-label"
	ObjUniverseLabel   = "universe/label"
	ObjNamedPoints     = "universe/named/points"
	ObjNamedGlow       = "universe/named/glow"
	ObjNamedLabels     = "universe/named/label/*"
	ObjBeltGroup       = "belt"
	ObjBeltDust        = "belt/dust"
	ObjBeltMedium      = "belt/medium"
	ObjBeltLarge       = "belt/large"
	ObjBeltGlow        = "belt/glow"
	ObjKuiper          = "kuiper"
	ObjOrbitLines      = "orbit/*"
	ObjStarsNear       = "stars/near"
	ObjStarsFar        = "stars/far"
	ObjSolarDetailPref = "solar/*"
)

// DefaultLayers returns the fades of the default scene.
func DefaultLayers() []Layer {
	return []Layer{
		{Name: "milky-way-band", Context: ContextGalaxy, Objects: []string{ObjMilkyWayBand, ObjGalacticBar},
			Bias: 0.05, Gain: 0.5, UDamp: 0.45},
		{Name: "galactic-glow", Context: ContextGalaxy, Objects: []string{ObjGalacticGlow},
			Bias: 0.04, Gain: 0.2, UDamp: 0.5},
		{Name: "solar-marker", Context: ContextGalaxy, Objects: []string{ObjSolarMarker},
			Bias: 0.08, Gain: 0.58, UDamp: 0.65, ScaleG: 2.3, ScaleU: -1.6},
		{Name: "solar-label", Context: ContextGalaxy, Objects: []string{ObjSolarLabel},
			Gain: 0.95, Exp: 1.3, UDamp: 0.7},
		{Name: "nebulae", Context: ContextGalaxy, Objects: []string{ObjNebulae},
			Gain: 0.6, Exp: 1.5, UDamp: 0.7},

		{Name: "belt-dust", Context: ContextBelt, Objects: []string{ObjBeltDust}, Bias: 0.55, Gain: -0.9 * 0.55},
		{Name: "belt-medium", Context: ContextBelt, Objects: []string{ObjBeltMedium}, Bias: 0.72, Gain: -0.9 * 0.72},
		{Name: "belt-large", Context: ContextBelt, Objects: []string{ObjBeltLarge}, Bias: 0.65, Gain: -0.9 * 0.65},
		{Name: "belt-glow", Context: ContextBelt, Objects: []string{ObjBeltGlow}, Bias: 0.06, Gain: -0.9 * 0.06},
		{Name: "kuiper", Context: ContextBelt, Objects: []string{ObjKuiper}, Bias: 0.4, Gain: -0.9 * 0.4},

		{Name: "universe-field", Context: ContextUniverse, Objects: []string{ObjUniverseField}, Gain: 0.86},
		{Name: "clusters", Context: ContextUniverse, Objects: []string{ObjClusters}, Gain: 0.45},
		{Name: "milky-way-marker", Context: ContextUniverse, Objects: []string{ObjMilkyWayMarker},
			Gain: 0.82, ScaleU: 0.8},
		{Name: "milky-way-label", Context: ContextUniverse, Objects: []string{ObjMilkyWayLabel}, Gain: 0.96, Exp: 1.2},
		{Name: "universe-label", Context: ContextUniverse, Objects: []string{ObjUniverseLabel}, Gain: 0.9, Exp: 1.5},
		{Name: "named-galaxies", Context: ContextUniverse, Objects: []string{ObjNamedPoints}, Gain: 0.7},
		{Name: "named-galaxy-glow", Context: ContextUniverse, Objects: []string{ObjNamedGlow}, Gain: 0.25},
		{Name: "named-galaxy-labels", Context: ContextUniverse, Objects: []string{ObjNamedLabels}, Gain: 0.85, Exp: 1.3},

		{Name: "orbit-lines", Context: ContextOrbit, Objects: []string{ObjOrbitLines},
			Bias: 0.4, Gain: -0.82 * 0.4, UDamp: 0.8},
	}
}

type layerFile struct {
	Layers []Layer `yaml:"layers"`
}

// ErrLayer wraps every layer validation failure.
var ErrLayer = errors.New("invalid scale layer")

// LoadLayers reads layer specs from a YAML document of the form
//
//	layers:
//	  - name: milky-way-band
//	    context: galaxy
//	    objects: [galaxy/band]
//	    bias: 0.05
//	    gain: 0.5
func LoadLayers(r io.Reader) ([]Layer, error) {
	var f layerFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode scale layers: %w", err)
	}
	if err := ValidateLayers(f.Layers); err != nil {
		return nil, err
	}
	return f.Layers, nil
}

// ValidateLayers rejects unnamed layers, duplicate names, unknown contexts
// and layers with no objects.
func ValidateLayers(layers []Layer) error {
	seen := make(map[string]bool, len(layers))
	for i, l := range layers {
		if l.Name == "" {
			return fmt.Errorf("%w: layer %d has no name", ErrLayer, i)
		}
		if seen[l.Name] {
			return fmt.Errorf("%w: duplicate layer %q", ErrLayer, l.Name)
		}
		seen[l.Name] = true
		if !l.Context.valid() {
			return fmt.Errorf("%w: layer %q has unknown context %q", ErrLayer, l.Name, l.Context)
		}
		if len(l.Objects) == 0 {
			return fmt.Errorf("%w: layer %q names no objects", ErrLayer, l.Name)
		}
		if l.Exp < 0 {
			return fmt.Errorf("%w: layer %q has negative exponent", ErrLayer, l.Name)
		}
	}
	return nil
}
