package orbit

import (
	"errors"
	"fmt"

	"github.com/litescript/ls-orrery/internal/kepler"
	"github.com/litescript/ls-orrery/internal/scene"
)

// Handle indexes a body in an Arena.
type Handle int

// NoBody marks the absence of a body (no selection, no parent).
const NoBody Handle = -1

// Kind classifies a body for navigation and display.
type Kind int

const (
	KindPlanet Kind = iota
	KindDwarf
	KindAsteroid
	KindMoon
)

func (k Kind) String() string {
	switch k {
	case KindPlanet:
		return "planet"
	case KindDwarf:
		return "dwarf"
	case KindAsteroid:
		return "asteroid"
	case KindMoon:
		return "moon"
	default:
		return "unknown"
	}
}

// Body is one celestial body. Distances are display units, periods are
// days. OrbitDays is negative for retrograde orbits; SpinDays is negative
// for retrograde rotation. Neither may be zero.
type Body struct {
	Name        string
	Kind        Kind
	Radius      float64
	OrbitRadius float64
	OrbitDays   float64
	SpinDays    float64
	Tilt        float64 // axial tilt for planets, orbit inclination for moons (degrees)
	Height      float64 // anchor offset above the orbital plane
	Phase       float64 // initial pivot angle (radians)
	Parent      Handle

	Elements    kepler.Elements
	HasElements bool

	Pivot scene.Handle
	Mesh  scene.Handle
}

// Retrograde reports whether the body orbits clockwise seen from +Y.
func (b *Body) Retrograde() bool {
	return b.OrbitDays < 0
}

// ErrZeroPeriod is returned for bodies with a zero orbital or spin period.
var ErrZeroPeriod = errors.New("orbital and spin periods must be non-zero")

// Arena owns every body. Renderer objects and selection state refer to
// bodies by Handle, never by pointer.
type Arena struct {
	bodies []Body
	byName map[string]Handle
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{byName: make(map[string]Handle)}
}

// Add validates b and appends it. Parents must be added before children.
func (a *Arena) Add(b Body) (Handle, error) {
	if b.OrbitDays == 0 || b.SpinDays == 0 {
		return NoBody, fmt.Errorf("body %q: %w", b.Name, ErrZeroPeriod)
	}
	if _, dup := a.byName[b.Name]; dup {
		return NoBody, fmt.Errorf("body %q already registered", b.Name)
	}
	if b.Parent != NoBody && (b.Parent < 0 || int(b.Parent) >= len(a.bodies)) {
		return NoBody, fmt.Errorf("body %q: unknown parent %d", b.Name, b.Parent)
	}
	// Renderer handles are assigned by BindHandles.
	b.Pivot, b.Mesh = scene.NoHandle, scene.NoHandle
	h := Handle(len(a.bodies))
	a.bodies = append(a.bodies, b)
	a.byName[b.Name] = h
	return h, nil
}

// Len returns the number of bodies.
func (a *Arena) Len() int {
	return len(a.bodies)
}

// Body returns the body for h. It panics on an invalid handle, as a slice
// index would.
func (a *Arena) Body(h Handle) *Body {
	return &a.bodies[h]
}

// Valid reports whether h refers to a body.
func (a *Arena) Valid(h Handle) bool {
	return h >= 0 && int(h) < len(a.bodies)
}

// Lookup returns the handle for name.
func (a *Arena) Lookup(name string) (Handle, bool) {
	h, ok := a.byName[name]
	return h, ok
}

// Navigable returns the bodies reachable by next/previous cycling, in
// catalog order: everything that orbits the Sun directly.
func (a *Arena) Navigable() []Handle {
	var out []Handle
	for i := range a.bodies {
		if a.bodies[i].Parent == NoBody {
			out = append(out, Handle(i))
		}
	}
	return out
}

// BindHandles registers pivot and mesh handles for every body.
func (a *Arena) BindHandles(reg *scene.Registry) {
	for i := range a.bodies {
		b := &a.bodies[i]
		b.Pivot = reg.Register(b.Name + "/pivot")
		b.Mesh = reg.Register(b.Name + "/mesh")
	}
}
