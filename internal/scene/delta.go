package scene

import (
	"maps"

	"github.com/litescript/ls-orrery/internal/astro"
)

// Delta is a set of scene property values keyed by object name. A Collector
// produces one per tick holding only what changed; hosts merge deltas into
// their own Delta to keep the current scene.
type Delta struct {
	Rotation   map[string]float64    `json:"rotation,omitempty"`
	Position   map[string]astro.Vec3 `json:"position,omitempty"`
	Spin       map[string]float64    `json:"spin,omitempty"`
	Opacity    map[string]float64    `json:"opacity,omitempty"`
	Scale      map[string]float64    `json:"scale,omitempty"`
	Emissive   map[string]float64    `json:"emissive,omitempty"`
	Visible    map[string]bool       `json:"visible,omitempty"`
	DrawRange  map[string]int        `json:"drawRange,omitempty"`
	Points     map[string][]float32  `json:"points,omitempty"`
	PixelRatio float64               `json:"pixelRatio,omitempty"`
	// Full is set when the delta carries the whole scene, not just changes.
	Full bool `json:"full,omitempty"`
}

// Empty reports whether d carries no values.
func (d *Delta) Empty() bool {
	return d == nil || (len(d.Rotation) == 0 && len(d.Position) == 0 && len(d.Spin) == 0 &&
		len(d.Opacity) == 0 && len(d.Scale) == 0 && len(d.Emissive) == 0 &&
		len(d.Visible) == 0 && len(d.DrawRange) == 0 && len(d.Points) == 0 &&
		d.PixelRatio == 0)
}

// Merge applies newer on top of d. Point buffers are shared, not copied.
func (d *Delta) Merge(newer *Delta) {
	if newer == nil {
		return
	}
	d.Rotation = mergeInto(d.Rotation, newer.Rotation)
	d.Position = mergeInto(d.Position, newer.Position)
	d.Spin = mergeInto(d.Spin, newer.Spin)
	d.Opacity = mergeInto(d.Opacity, newer.Opacity)
	d.Scale = mergeInto(d.Scale, newer.Scale)
	d.Emissive = mergeInto(d.Emissive, newer.Emissive)
	d.Visible = mergeInto(d.Visible, newer.Visible)
	d.DrawRange = mergeInto(d.DrawRange, newer.DrawRange)
	d.Points = mergeInto(d.Points, newer.Points)
	if newer.PixelRatio != 0 {
		d.PixelRatio = newer.PixelRatio
	}
	d.Full = d.Full || newer.Full
}

// Clone returns a copy of d whose maps can be merged into independently.
func (d *Delta) Clone() *Delta {
	if d == nil {
		return &Delta{}
	}
	c := &Delta{PixelRatio: d.PixelRatio, Full: d.Full}
	c.Merge(d)
	return c
}

// PointsDrawn returns the points of name's buffer that are drawn: the
// buffer truncated to its draw range when one was written.
func (d *Delta) PointsDrawn(name string) []float32 {
	pts := d.Points[name]
	if n, ok := d.DrawRange[name]; ok && n*3 < len(pts) {
		pts = pts[:n*3]
	}
	return pts
}

func mergeInto[V any](dst, src map[string]V) map[string]V {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]V, len(src))
	}
	maps.Copy(dst, src)
	return dst
}

// Tracker is a Sink that can report what was written to it by name.
type Tracker interface {
	Sink
	// Flush returns the values that changed since the previous Flush.
	Flush(names *Registry) Delta
	// Snapshot returns every value written so far.
	Snapshot(names *Registry) Delta
}

// track holds the pending and last flushed values of one property.
type track[T comparable] struct {
	pending map[Handle]T
	sent    map[Handle]T
}

func (t *track[T]) set(h Handle, v T) {
	if t.pending == nil {
		t.pending = make(map[Handle]T)
	}
	t.pending[h] = v
}

func (t *track[T]) flush(names *Registry) map[string]T {
	var out map[string]T
	for h, v := range t.pending {
		if old, ok := t.sent[h]; ok && old == v {
			continue
		}
		if t.sent == nil {
			t.sent = make(map[Handle]T)
		}
		t.sent[h] = v
		name := names.Name(h)
		if name == "" {
			continue
		}
		if out == nil {
			out = make(map[string]T)
		}
		out[name] = v
	}
	clear(t.pending)
	return out
}

func (t *track[T]) all(names *Registry) map[string]T {
	var out map[string]T
	for h, v := range t.sent {
		if name := names.Name(h); name != "" {
			if out == nil {
				out = make(map[string]T, len(t.sent))
			}
			out[name] = v
		}
	}
	return out
}

// Collector is a Sink that keeps every write and hands out the changes
// once per tick. Writes and flushes must come from the same goroutine.
type Collector struct {
	rotation  track[float64]
	position  track[astro.Vec3]
	spin      track[float64]
	opacity   track[float64]
	scale     track[float64]
	emissive  track[float64]
	visible   track[bool]
	drawRange track[int]

	points     map[Handle][]float32
	newPoints  map[Handle]bool
	pixelRatio float64
	pixelDirty bool
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		points:    make(map[Handle][]float32),
		newPoints: make(map[Handle]bool),
	}
}

func (c *Collector) SetRotationY(h Handle, angle float64) { c.rotation.set(h, angle) }
func (c *Collector) SetPosition(h Handle, p astro.Vec3) { c.position.set(h, p) }
func (c *Collector) SetSpin(h Handle, angle float64) { c.spin.set(h, angle) }
func (c *Collector) SetOpacity(h Handle, opacity float64) { c.opacity.set(h, opacity) }
func (c *Collector) SetScale(h Handle, scale float64) { c.scale.set(h, scale) }
func (c *Collector) SetEmissive(h Handle, intensity float64) { c.emissive.set(h, intensity) }
func (c *Collector) SetVisible(h Handle, visible bool) { c.visible.set(h, visible) }
func (c *Collector) SetDrawRange(h Handle, count int) { c.drawRange.set(h, count) }

// SetPositions keeps the buffer; it is handed out once by the next Flush.
func (c *Collector) SetPositions(h Handle, positions []float32) {
	c.points[h] = positions
	c.newPoints[h] = true
}

// SetPixelRatio implements Sink.
func (c *Collector) SetPixelRatio(ratio float64) {
	if ratio != c.pixelRatio {
		c.pixelRatio = ratio
		c.pixelDirty = true
	}
}

// Flush implements Tracker.
func (c *Collector) Flush(names *Registry) Delta {
	d := Delta{
		Rotation:  c.rotation.flush(names),
		Position:  c.position.flush(names),
		Spin:      c.spin.flush(names),
		Opacity:   c.opacity.flush(names),
		Scale:     c.scale.flush(names),
		Emissive:  c.emissive.flush(names),
		Visible:   c.visible.flush(names),
		DrawRange: c.drawRange.flush(names),
	}
	for h := range c.newPoints {
		if name := names.Name(h); name != "" {
			if d.Points == nil {
				d.Points = make(map[string][]float32)
			}
			d.Points[name] = c.points[h]
		}
	}
	clear(c.newPoints)
	if c.pixelDirty {
		d.PixelRatio = c.pixelRatio
		c.pixelDirty = false
	}
	return d
}

// Snapshot implements Tracker. Pending writes are flushed first.
func (c *Collector) Snapshot(names *Registry) Delta {
	c.Flush(names)
	d := Delta{
		Rotation:   c.rotation.all(names),
		Position:   c.position.all(names),
		Spin:       c.spin.all(names),
		Opacity:    c.opacity.all(names),
		Scale:      c.scale.all(names),
		Emissive:   c.emissive.all(names),
		Visible:    c.visible.all(names),
		DrawRange:  c.drawRange.all(names),
		PixelRatio: c.pixelRatio,
		Full:       true,
	}
	for h, pts := range c.points {
		if name := names.Name(h); name != "" {
			if d.Points == nil {
				d.Points = make(map[string][]float32, len(c.points))
			}
			d.Points[name] = pts
		}
	}
	return d
}
