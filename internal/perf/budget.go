package perf

import (
	"fmt"
	"math"

	"github.com/litescript/ls-orrery/internal/scene"
)

// BudgetSpec describes how a point layer thins out with camera distance.
// Between Start and End the visible fraction moves linearly from Near to Far.
type BudgetSpec struct {
	Name   string
	Handle scene.Handle
	Base   int
	Near   float64
	Far    float64
	Start  float64
	End    float64
}

// Count returns the visible point count at distance d, at least 1.
func (s BudgetSpec) Count(d float64) int {
	t := 0.0
	if s.End > s.Start {
		t = (d - s.Start) / (s.End - s.Start)
	} else if d >= s.End {
		t = 1
	}
	t = math.Max(0, math.Min(1, t))
	frac := s.Near + (s.Far-s.Near)*t
	return max(1, int(math.Floor(float64(s.Base)*frac)))
}

type budgetEntry struct {
	spec BudgetSpec
	last int
}

// BudgetScaler adjusts the draw range of registered point layers each
// frame, writing only when the count changes.
type BudgetScaler struct {
	entries []*budgetEntry
	byName  map[string]*budgetEntry
}

// NewBudgetScaler creates an empty scaler.
func NewBudgetScaler() *BudgetScaler {
	return &BudgetScaler{byName: make(map[string]*budgetEntry)}
}

// Register adds a layer. Re-registering a name replaces its spec.
func (b *BudgetScaler) Register(spec BudgetSpec) error {
	if spec.Base < 0 {
		return fmt.Errorf("budget %q: negative base count", spec.Name)
	}
	if e, ok := b.byName[spec.Name]; ok {
		e.spec = spec
		e.last = -1
		return nil
	}
	e := &budgetEntry{spec: spec, last: -1}
	b.entries = append(b.entries, e)
	b.byName[spec.Name] = e
	return nil
}

// SetBase updates the full point count of a layer once its buffer exists.
func (b *BudgetScaler) SetBase(name string, base int) bool {
	e, ok := b.byName[name]
	if !ok {
		return false
	}
	e.spec.Base = base
	e.last = -1
	return true
}

// Update writes draw ranges for distance d.
func (b *BudgetScaler) Update(d float64, sink scene.Sink) {
	for _, e := range b.entries {
		if !e.spec.Handle.Valid() || e.spec.Base == 0 {
			continue
		}
		n := e.spec.Count(d)
		if n == e.last {
			continue
		}
		e.last = n
		sink.SetDrawRange(e.spec.Handle, n)
	}
}

// Count returns the last written count for name.
func (b *BudgetScaler) Count(name string) (int, bool) {
	e, ok := b.byName[name]
	if !ok || e.last < 0 {
		return 0, false
	}
	return e.last, true
}

// Len returns the number of registered layers.
func (b *BudgetScaler) Len() int {
	return len(b.entries)
}
