package orbit

import (
	"math"
	"testing"

	"github.com/litescript/ls-orrery/internal/scene"
)

func TestHighlighterEasing(t *testing.T) {
	a := DefaultArena(fixedRand())
	reg := scene.NewRegistry()
	a.BindHandles(reg)
	rec := scene.NewRecorder()
	h := NewHighlighter(a)

	mars := mustLookup(t, a, "Mars")
	earth := mustLookup(t, a, "Earth")
	venus := mustLookup(t, a, "Venus")
	h.SetHovered(mars)
	h.SetSelected(earth)

	for i := 0; i < 60; i++ {
		h.Update(1.0/60, rec)
	}

	if got := h.Level(mars); math.Abs(got-HoverLevel) > 1e-3 {
		t.Errorf("hovered level = %v, want ~%v", got, HoverLevel)
	}
	if got := h.Level(earth); math.Abs(got-SelectedLevel) > 1e-3 {
		t.Errorf("selected level = %v, want ~%v", got, SelectedLevel)
	}

	m, _ := rec.Object(a.Body(mars).Mesh)
	if math.Abs(m.Scale-1.085) > 0.004 {
		t.Errorf("hovered scale = %v, want ~1.085", m.Scale)
	}
	if math.Abs(m.Emissive-0.35) > 0.004 {
		t.Errorf("hovered emissive = %v, want ~0.35", m.Emissive)
	}
	e, _ := rec.Object(a.Body(earth).Mesh)
	if math.Abs(e.Emissive-0.26) > 0.004 {
		t.Errorf("selected emissive = %v, want ~0.26", e.Emissive)
	}
	if c := rec.Counts(a.Body(venus).Mesh); c.Scale != 0 || c.Emissive != 0 {
		t.Errorf("resting body was written: %+v", c)
	}
}

func TestHighlighterSuppressesTinyChanges(t *testing.T) {
	a := DefaultArena(fixedRand())
	a.BindHandles(scene.NewRegistry())
	rec := scene.NewRecorder()
	h := NewHighlighter(a)
	mars := mustLookup(t, a, "Mars")
	h.SetHovered(mars)

	// One 0.1 ms step moves the level by ~0.001: below the write threshold.
	h.Update(0.0001, rec)
	if c := rec.Counts(a.Body(mars).Mesh); c.Scale != 0 || c.Emissive != 0 {
		t.Errorf("tiny change was written: %+v", c)
	}

	h.Update(0.1, rec)
	if c := rec.Counts(a.Body(mars).Mesh); c.Scale != 1 || c.Emissive != 1 {
		t.Errorf("writes after a real step = %+v, want one each", c)
	}

	h.SetHovered(NoBody)
	for i := 0; i < 120; i++ {
		h.Update(1.0/60, rec)
	}
	if got := h.Level(mars); got > 1e-3 {
		t.Errorf("level after release = %v, want ~0", got)
	}
}
