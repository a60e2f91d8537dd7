package scale

import (
	"fmt"
	"strings"

	"github.com/litescript/ls-orrery/internal/scene"
)

// Strategy decides group, belt and solar-detail visibility after the
// shared fade pass. It is chosen once, at startup.
type Strategy interface {
	Name() string
	gate(m *Manager, d float64, processed bool, sink scene.Sink)
}

// Unified ties group visibility to the fade thresholds and gates only on
// processed distances.
type Unified struct{}

func (Unified) Name() string { return "optimized" }

func (Unified) gate(m *Manager, d float64, processed bool, sink scene.Sink) {
	if !processed {
		return
	}
	m.setGroups(d >= m.th.GalaxyVisibleAt(), d >= m.th.UniverseVisibleAt(), sink)
	m.gateBelts(d, sink)
	m.gateSolar(d, sink)
}

// Legacy switches the galaxy and universe on at fixed, earlier distances
// and gates every tick.
type Legacy struct{}

func (Legacy) Name() string { return "legacy" }

func (Legacy) gate(m *Manager, d float64, _ bool, sink scene.Sink) {
	if showGalaxy := d > m.th.LegacyGalaxy; m.legacyGalaxy.set(showGalaxy) {
		m.setVisible(ObjMilkyWayBand, showGalaxy, sink)
		m.setVisible(ObjGalacticGlow, showGalaxy, sink)
	}
	if showUniverse := d > m.th.LegacyUniverse; m.legacyUniv.set(showUniverse) {
		m.setVisible(ObjUniverseField, showUniverse, sink)
		m.setVisible(ObjClusters, showUniverse, sink)
	}
	m.setGroups(d > m.th.LegacyGalaxy, d > m.th.LegacyUniverse, sink)
	m.gateBelts(d, sink)
	m.gateSolar(d, sink)
}

// NewStrategy returns the strategy for a render profile name.
func NewStrategy(profile string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(profile)) {
	case "", "optimized", "unified":
		return Unified{}, nil
	case "legacy":
		return Legacy{}, nil
	default:
		return nil, fmt.Errorf("unknown render profile %q", profile)
	}
}
