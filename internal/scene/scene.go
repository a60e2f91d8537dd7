// Package scene defines the boundary between the engine and whatever draws
// the scene. The engine only ever writes properties through a Sink onto
// opaque handles it was given; it never creates or disposes renderer objects.
package scene

import (
	"strings"

	"github.com/litescript/ls-orrery/internal/astro"
)

// Handle is an opaque renderer object reference.
type Handle int

// NoHandle marks an object the renderer did not provide.
const NoHandle Handle = -1

// Valid reports whether h refers to a renderer object.
func (h Handle) Valid() bool {
	return h >= 0
}

// Sink receives per-frame property writes.
type Sink interface {
	SetRotationY(h Handle, angle float64)
	SetPosition(h Handle, p astro.Vec3)
	SetSpin(h Handle, angle float64)
	SetOpacity(h Handle, opacity float64)
	SetScale(h Handle, scale float64)
	SetEmissive(h Handle, intensity float64)
	SetVisible(h Handle, visible bool)
	SetDrawRange(h Handle, count int)
	SetPositions(h Handle, positions []float32)
	SetPixelRatio(ratio float64)
}

// Registry resolves named scene objects to handles. Names that were never
// registered resolve to NoHandle so callers can skip optional layers.
type Registry struct {
	byName map[string]Handle
	names  []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Handle)}
}

// Register allocates a handle for name, or returns the existing one.
func (r *Registry) Register(name string) Handle {
	if h, ok := r.byName[name]; ok {
		return h
	}
	h := Handle(len(r.names))
	r.byName[name] = h
	r.names = append(r.names, name)
	return h
}

// Lookup returns the handle for name.
func (r *Registry) Lookup(name string) Handle {
	if h, ok := r.byName[name]; ok {
		return h
	}
	return NoHandle
}

// Name returns the name registered for h.
func (r *Registry) Name(h Handle) string {
	if h < 0 || int(h) >= len(r.names) {
		return ""
	}
	return r.names[h]
}

// Match resolves a name pattern to handles in registration order. A
// trailing "*" matches every name with that prefix; any other pattern is an
// exact lookup.
func (r *Registry) Match(pattern string) []Handle {
	prefix, ok := strings.CutSuffix(pattern, "*")
	if !ok {
		if h := r.Lookup(pattern); h.Valid() {
			return []Handle{h}
		}
		return nil
	}
	var out []Handle
	for i, name := range r.names {
		if strings.HasPrefix(name, prefix) {
			out = append(out, Handle(i))
		}
	}
	return out
}

// Len returns the number of registered handles.
func (r *Registry) Len() int {
	return len(r.names)
}

// Discard is a Sink that ignores every write.
type Discard struct{}

func (Discard) SetRotationY(Handle, float64)   {}
func (Discard) SetPosition(Handle, astro.Vec3) {}
func (Discard) SetSpin(Handle, float64)        {}
func (Discard) SetOpacity(Handle, float64)     {}
func (Discard) SetScale(Handle, float64)       {}
func (Discard) SetEmissive(Handle, float64)    {}
func (Discard) SetVisible(Handle, bool)        {}
func (Discard) SetDrawRange(Handle, int)       {}
func (Discard) SetPositions(Handle, []float32) {}
func (Discard) SetPixelRatio(float64)          {}
