package orbit

import (
	"math"

	"github.com/litescript/ls-orrery/internal/scene"
)

// Highlight easing.
const (
	HoverLevel     = 1.0
	SelectedLevel  = 0.7
	HighlightRate  = 10.0
	HighlightScale = 0.085
	BaseEmissive   = 0.05
	HoverEmissive  = 0.3

	// highlightEpsilon is the smallest scale or emissive change written.
	highlightEpsilon = 0.003
)

type glow struct {
	level        float64
	lastScale    float64
	lastEmissive float64
}

// Highlighter eases each body's hover/selection glow and writes mesh
// scale and emissive intensity only when they move noticeably.
type Highlighter struct {
	arena   *Arena
	glows   []glow
	hovered Handle
	sel     Handle
}

// NewHighlighter creates a highlighter with every body at rest.
func NewHighlighter(arena *Arena) *Highlighter {
	h := &Highlighter{arena: arena, hovered: NoBody, sel: NoBody}
	h.glows = make([]glow, arena.Len())
	for i := range h.glows {
		h.glows[i] = glow{lastScale: 1, lastEmissive: BaseEmissive}
	}
	return h
}

// SetHovered marks the body under the pointer, or NoBody.
func (h *Highlighter) SetHovered(b Handle) { h.hovered = b }

// SetSelected marks the focused body, or NoBody.
func (h *Highlighter) SetSelected(b Handle) { h.sel = b }

// Hovered returns the hovered body.
func (h *Highlighter) Hovered() Handle { return h.hovered }

// Level returns the current glow level of b.
func (h *Highlighter) Level(b Handle) float64 {
	if b < 0 || int(b) >= len(h.glows) {
		return 0
	}
	return h.glows[b].level
}

func (h *Highlighter) target(b Handle) float64 {
	switch b {
	case h.hovered:
		return HoverLevel
	case h.sel:
		return SelectedLevel
	}
	return 0
}

// Update eases every glow toward its target over dt seconds and writes the
// resulting mesh changes.
func (h *Highlighter) Update(dt float64, sink scene.Sink) {
	alpha := 1 - math.Exp(-dt*HighlightRate)
	for i := range h.glows {
		b := Handle(i)
		g := &h.glows[i]
		g.level += (h.target(b) - g.level) * alpha

		mesh := h.arena.Body(b).Mesh
		if !mesh.Valid() {
			continue
		}
		if s := 1 + g.level*HighlightScale; math.Abs(s-g.lastScale) > highlightEpsilon {
			sink.SetScale(mesh, s)
			g.lastScale = s
		}
		if e := BaseEmissive + g.level*HoverEmissive; math.Abs(e-g.lastEmissive) > highlightEpsilon {
			sink.SetEmissive(mesh, e)
			g.lastEmissive = e
		}
	}
}
