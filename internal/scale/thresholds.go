// Package scale decides which distance-tiered layers of the scene are
// drawn, and how strongly, as the camera moves from a planet's surface out
// to the edge of the observable universe.
package scale

import (
	"errors"
	"fmt"

	"github.com/litescript/ls-orrery/internal/astro"
)

// Tier is one nested distance regime of the scene.
type Tier int

const (
	TierSolarDetail Tier = iota
	TierAsteroidBelt
	TierKuiperBelt
	TierGalaxy
	TierUniverse
)

// Tiers lists every tier from the innermost out.
var Tiers = []Tier{TierSolarDetail, TierAsteroidBelt, TierKuiperBelt, TierGalaxy, TierUniverse}

func (t Tier) String() string {
	switch t {
	case TierSolarDetail:
		return "solarDetail"
	case TierAsteroidBelt:
		return "asteroidBelt"
	case TierKuiperBelt:
		return "kuiperBelt"
	case TierGalaxy:
		return "galaxy"
	case TierUniverse:
		return "universe"
	default:
		return "unknown"
	}
}

// Thresholds holds every distance boundary in display units.
type Thresholds struct {
	GalaxyStart  float64 `mapstructure:"galaxy_start"`
	GalaxyFull   float64 `mapstructure:"galaxy_full"`
	GalaxyMargin float64 `mapstructure:"galaxy_margin"`

	UniverseStart  float64 `mapstructure:"universe_start"`
	UniverseFull   float64 `mapstructure:"universe_full"`
	UniverseMargin float64 `mapstructure:"universe_margin"`

	// Solar detail hides at or beyond SolarHide and returns below SolarShow.
	SolarHide float64 `mapstructure:"solar_hide"`
	SolarShow float64 `mapstructure:"solar_show"`

	// Belts are visible strictly inside (Min, Max).
	BeltMin   float64 `mapstructure:"belt_min"`
	BeltMax   float64 `mapstructure:"belt_max"`
	KuiperMin float64 `mapstructure:"kuiper_min"`
	KuiperMax float64 `mapstructure:"kuiper_max"`

	// Group visibility switches used by the legacy profile.
	LegacyGalaxy   float64 `mapstructure:"legacy_galaxy"`
	LegacyUniverse float64 `mapstructure:"legacy_universe"`
}

// Update filtering.
const (
	// MinDistanceChange is the smallest camera move that triggers an update.
	MinDistanceChange = 0.02
	// MinRevealChange is the smallest reveal-factor move that rewrites fades.
	MinRevealChange = 0.003
)

// DefaultThresholds returns the boundaries tuned for the default scene.
func DefaultThresholds() Thresholds {
	return Thresholds{
		GalaxyStart:    900,
		GalaxyFull:     5200,
		GalaxyMargin:   120,
		UniverseStart:  18000,
		UniverseFull:   2600000,
		UniverseMargin: 4200,
		SolarHide:      1800,
		SolarShow:      1500,
		BeltMin:        5,
		BeltMax:        500,
		KuiperMin:      20,
		KuiperMax:      1000,
		LegacyGalaxy:   270,
		LegacyUniverse: 5400,
	}
}

// ErrThresholds wraps every validation failure.
var ErrThresholds = errors.New("invalid scale thresholds")

// Pair returns the two boundaries of a tier. For the solar detail, galaxy
// and universe tiers they are the show and hide distances; for the belts
// they are the inner and outer edges of the visible band.
func (th Thresholds) Pair(t Tier) (lo, hi float64) {
	switch t {
	case TierSolarDetail:
		return th.SolarShow, th.SolarHide
	case TierAsteroidBelt:
		return th.BeltMin, th.BeltMax
	case TierKuiperBelt:
		return th.KuiperMin, th.KuiperMax
	case TierGalaxy:
		return th.GalaxyVisibleAt(), th.GalaxyStart
	case TierUniverse:
		return th.UniverseVisibleAt(), th.UniverseStart
	}
	return 0, 0
}

// Validate checks that every tier has two distinct, ordered boundaries and
// that the reveal ramps run forward.
func (th Thresholds) Validate() error {
	for _, t := range Tiers {
		lo, hi := th.Pair(t)
		if !(lo < hi) {
			return fmt.Errorf("%w: %s boundaries %v and %v must differ and be ordered", ErrThresholds, t, lo, hi)
		}
		if lo < 0 {
			return fmt.Errorf("%w: %s boundary %v is negative", ErrThresholds, t, lo)
		}
	}
	if th.GalaxyFull <= th.GalaxyStart {
		return fmt.Errorf("%w: galaxy full %v not beyond start %v", ErrThresholds, th.GalaxyFull, th.GalaxyStart)
	}
	if th.UniverseFull <= th.UniverseStart {
		return fmt.Errorf("%w: universe full %v not beyond start %v", ErrThresholds, th.UniverseFull, th.UniverseStart)
	}
	if th.UniverseStart <= th.GalaxyStart {
		return fmt.Errorf("%w: universe must start beyond the galaxy", ErrThresholds)
	}
	return nil
}

// GalaxyVisibleAt is the distance at which the galaxy group is created and
// shown, one margin before its fade begins.
func (th Thresholds) GalaxyVisibleAt() float64 {
	return th.GalaxyStart - th.GalaxyMargin
}

// UniverseVisibleAt is the universe counterpart of GalaxyVisibleAt.
func (th Thresholds) UniverseVisibleAt() float64 {
	return th.UniverseStart - th.UniverseMargin
}

// GalaxyReveal returns the galaxy fade factor in [0, 1].
func (th Thresholds) GalaxyReveal(d float64) float64 {
	return astro.Clamp01((d - th.GalaxyStart) / (th.GalaxyFull - th.GalaxyStart))
}

// UniverseReveal returns the universe fade factor in [0, 1].
func (th Thresholds) UniverseReveal(d float64) float64 {
	return astro.Clamp01((d - th.UniverseStart) / (th.UniverseFull - th.UniverseStart))
}

// Scale bar breakpoints: each distance maps to the percentage beside it.
var pctStops = []float64{0, 18, 32, 55, 78, 100}

func (th Thresholds) distanceStops() []float64 {
	return []float64{0, 50, 200, th.GalaxyStart, th.UniverseStart, th.UniverseFull}
}

// DistanceToScalePct maps a camera distance onto the 0-100 scale bar. The
// bar is piecewise linear so the solar system, the galaxy and the universe
// each get a usable share of it.
func (th Thresholds) DistanceToScalePct(d float64) float64 {
	ds := th.distanceStops()
	for i := 1; i < len(ds); i++ {
		if d < ds[i] {
			pct := pctStops[i-1] + (d-ds[i-1])/(ds[i]-ds[i-1])*(pctStops[i]-pctStops[i-1])
			return astro.Clamp(pct, 0, 100)
		}
	}
	return 100
}

// ScalePctToDistance is the inverse of DistanceToScalePct. The percentage
// is clamped to [0, 100] first.
func (th Thresholds) ScalePctToDistance(pct float64) float64 {
	pct = astro.Clamp(pct, 0, 100)
	ds := th.distanceStops()
	for i := 1; i < len(pctStops); i++ {
		if pct < pctStops[i] {
			return ds[i-1] + (pct-pctStops[i-1])/(pctStops[i]-pctStops[i-1])*(ds[i]-ds[i-1])
		}
	}
	return th.UniverseFull
}
