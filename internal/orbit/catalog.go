package orbit

import (
	"math"

	"github.com/litescript/ls-orrery/internal/kepler"
)

// planetDef is a heliocentric body row of the default catalog.
type planetDef struct {
	name        string
	kind        Kind
	radius      float64
	orbitRadius float64
	orbitDays   float64
	spinDays    float64
	tilt        float64
	moons       []moonDef
}

// moonDef sizes are relative to the parent radius, like the scene builder.
type moonDef struct {
	name      string
	radiusF   float64
	orbitF    float64
	orbitDays float64
	tilt      float64
}

var planetDefs = []planetDef{
	{"Mercury", KindPlanet, 0.8, 13, 88, 58.6, 0.03, nil},
	{"Venus", KindPlanet, 1.15, 18, 225, -243, 177.4, nil},
	{"Earth", KindPlanet, 1.2, 24, 365, 1, 23.4, []moonDef{
		{"Moon", 0.28, 2.9, 27.32, 5.1},
	}},
	{"Mars", KindPlanet, 0.95, 31, 687, 1.03, 25.2, []moonDef{
		{"Phobos", 0.05, 1.8, 0.32, 0},
		{"Deimos", 0.035, 2.6, 1.26, 0},
	}},
	{"Jupiter", KindPlanet, 3.15, 45, 4331, 0.41, 3.1, []moonDef{
		{"Io", 0.09, 1.65, 1.77, 0},
		{"Europa", 0.08, 2.0, 3.55, 0},
		{"Ganymede", 0.13, 2.6, 7.15, 0},
		{"Callisto", 0.12, 3.4, 16.69, 0},
	}},
	{"Saturn", KindPlanet, 2.7, 59, 10747, 0.44, 26.7, []moonDef{
		{"Titan", 0.15, 4.2, 15.95, 0},
		{"Rhea", 0.06, 3.2, 4.52, 0},
		{"Enceladus", 0.04, 2.5, 1.37, 0},
		{"Dione", 0.05, 2.8, 2.74, 0},
		{"Tethys", 0.05, 2.65, 1.89, 0},
		{"Mimas", 0.03, 2.2, 0.94, 0},
	}},
	{"Uranus", KindPlanet, 1.92, 73, 30589, -0.72, 97.8, []moonDef{
		{"Titania", 0.08, 2.8, 8.71, 0},
		{"Oberon", 0.08, 3.2, 13.46, 0},
		{"Ariel", 0.06, 2.2, 2.52, 0},
		{"Umbriel", 0.06, 2.5, 4.14, 0},
		{"Miranda", 0.04, 1.8, 1.41, 0},
	}},
	{"Neptune", KindPlanet, 1.8, 87, 59800, 0.67, 28.3, []moonDef{
		{"Triton", 0.14, 2.6, -5.88, 0},
		{"Proteus", 0.04, 1.9, 1.12, 0},
	}},
}

var asteroidDefs = []struct {
	name   string
	radius float64
	orbit  float64
}{
	{"Ceres", 0.28, 39.2},
	{"Vesta", 0.16, 37.8},
	{"Pallas", 0.15, 39.8},
	{"Hygiea", 0.12, 40.6},
}

// DefaultArena builds the catalog: eight planets with their moons, the
// four largest asteroids, and Pluto with Charon. rnd supplies initial
// phases in [0,1); pass a seeded source for reproducible scenes.
func DefaultArena(rnd func() float64) *Arena {
	a := NewArena()
	add := func(b Body) Handle {
		h, err := a.Add(b)
		if err != nil {
			// Static table; a failure here is a programming error.
			panic(err)
		}
		return h
	}

	for _, p := range planetDefs {
		el, ok := kepler.Lookup(p.name)
		ph := add(Body{
			Name:        p.name,
			Kind:        p.kind,
			Radius:      p.radius,
			OrbitRadius: p.orbitRadius,
			OrbitDays:   p.orbitDays,
			SpinDays:    p.spinDays,
			Tilt:        p.tilt,
			Phase:       rnd() * 2 * math.Pi,
			Parent:      NoBody,
			Elements:    el,
			HasElements: ok,
		})
		for _, m := range p.moons {
			add(Body{
				Name:        m.name,
				Kind:        KindMoon,
				Radius:      p.radius * m.radiusF,
				OrbitRadius: p.radius * m.orbitF,
				OrbitDays:   m.orbitDays,
				SpinDays:    math.Abs(m.orbitDays),
				Tilt:        m.tilt,
				Phase:       rnd() * 2 * math.Pi,
				Parent:      ph,
			})
		}
	}

	for i, ad := range asteroidDefs {
		add(Body{
			Name:        ad.name,
			Kind:        KindAsteroid,
			Radius:      ad.radius,
			OrbitRadius: ad.orbit,
			OrbitDays:   1600 + float64(i)*400,
			SpinDays:    0.38,
			Height:      (rnd() - 0.5) * 0.6,
			Phase:       rnd() * 2 * math.Pi,
			Parent:      NoBody,
		})
	}

	plutoEl, _ := kepler.Lookup("Pluto")
	pluto := add(Body{
		Name:        "Pluto",
		Kind:        KindDwarf,
		Radius:      0.45,
		OrbitRadius: 105,
		OrbitDays:   90560,
		SpinDays:    -6.39,
		Phase:       rnd() * 2 * math.Pi,
		Parent:      NoBody,
		Elements:    plutoEl,
		HasElements: true,
	})
	add(Body{
		Name:        "Charon",
		Kind:        KindMoon,
		Radius:      0.22,
		OrbitRadius: 0.9,
		OrbitDays:   6.39,
		SpinDays:    6.39,
		Parent:      pluto,
	})

	return a
}
