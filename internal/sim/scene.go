package sim

import (
	"math"
	"strings"

	"github.com/litescript/ls-orrery/internal/orbit"
	"github.com/litescript/ls-orrery/internal/scale"
	"github.com/litescript/ls-orrery/internal/scene"
)

// ObjSun is the Sun's scene object. It belongs to solar detail.
const ObjSun = "sun"

// Full point counts of the far-scale layers at quality 1. The renderer
// builds these buffers itself; the engine only budgets them.
var farBases = map[string]int{
	scale.ObjMilkyWayBand:  56000,
	scale.ObjGalacticBar:   6000,
	scale.ObjUniverseField: 160000,
	scale.ObjClusters:      20000,
	scale.ObjNamedPoints:   27000,
}

var nebulae = []string{"Orion Nebula", "Eagle Nebula", "Carina Nebula", "Ring Nebula", "Helix Nebula", "Crab Nebula"}

var namedGalaxies = []string{
	"Andromeda (M31)", "Triangulum (M33)", "Large Magellanic Cloud", "Small Magellanic Cloud",
	"Centaurus A", "Sombrero Galaxy (M104)", "Whirlpool Galaxy (M51)", "Pinwheel Galaxy (M101)",
}

// staticObjects are registered up front so point budgets and fades can
// bind to them before their geometry exists.
var staticObjects = []string{
	ObjSun,
	scale.ObjStarsNear, scale.ObjStarsFar,
	scale.ObjBeltGroup, scale.ObjBeltDust, scale.ObjBeltMedium, scale.ObjBeltLarge, scale.ObjBeltGlow,
	scale.ObjKuiper,
	scale.ObjGalaxyGroup, scale.ObjMilkyWayBand, scale.ObjGalacticBar, scale.ObjGalacticGlow,
	scale.ObjSolarMarker, scale.ObjSolarLabel,
	scale.ObjUniverseGroup, scale.ObjUniverseField, scale.ObjClusters,
	scale.ObjMilkyWayMarker, scale.ObjMilkyWayLabel, scale.ObjUniverseLabel,
	scale.ObjNamedPoints, scale.ObjNamedGlow,
}

// slug turns a display name into a scene object path element.
func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Scene names every object of the default scene and binds the body arena
// to it.
type Scene struct {
	Registry    *scene.Registry
	Arena       *orbit.Arena
	SolarDetail []scene.Handle
}

// NewScene registers the static objects, every body's pivot and mesh, and
// an orbit line per Sun-orbiting body.
func NewScene(arena *orbit.Arena) *Scene {
	reg := scene.NewRegistry()
	for _, name := range staticObjects {
		reg.Register(name)
	}
	arena.BindHandles(reg)

	s := &Scene{Registry: reg, Arena: arena}
	s.SolarDetail = append(s.SolarDetail, reg.Lookup(ObjSun))
	for _, h := range arena.Navigable() {
		b := arena.Body(h)
		s.SolarDetail = append(s.SolarDetail, b.Pivot, reg.Register(OrbitObject(b.Name)))
	}
	return s
}

// OrbitObject returns the scene object name of body's orbit line.
func OrbitObject(body string) string {
	return "orbit/" + slug(body)
}

// registerGalaxy adds the lazily built Milky Way objects.
func (s *Scene) registerGalaxy() {
	for _, n := range nebulae {
		s.Registry.Register("galaxy/nebula/" + slug(n))
	}
}

// registerUniverse adds the lazily built named-galaxy labels.
func (s *Scene) registerUniverse() {
	for _, n := range namedGalaxies {
		s.Registry.Register("universe/named/label/" + slug(n))
	}
}

// farBase returns the full point count of a far-scale layer at quality q.
func farBase(name string, q float64) int {
	return max(1, int(math.Floor(float64(farBases[name])*q)))
}
