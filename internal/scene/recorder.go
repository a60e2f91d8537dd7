package scene

import (
	"sync"

	"github.com/litescript/ls-orrery/internal/astro"
)

// Object is the last written state of one handle.
type Object struct {
	RotationY   float64
	Position    astro.Vec3
	Spin        float64
	Opacity     float64
	Scale       float64
	Emissive    float64
	Visible     bool
	DrawRange   int
	PointCount  int
	HasVisible  bool
	HasOpacity  bool
	HasDrawSize bool
}

// WriteCounts tallies writes by property, used to check that redundant
// writes are suppressed.
type WriteCounts struct {
	Rotation  int
	Position  int
	Spin      int
	Opacity   int
	Scale     int
	Emissive  int
	Visible   int
	DrawRange int
	Positions int
	Pixel     int
}

// Recorder is an in-memory Sink. The terminal view and the WebSocket
// bridge read scene state from it; tests use it to observe writes.
type Recorder struct {
	mu         sync.RWMutex
	objects    map[Handle]*Object
	counts     map[Handle]*WriteCounts
	pixelRatio float64
	pixelCount int
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		objects: make(map[Handle]*Object),
		counts:  make(map[Handle]*WriteCounts),
	}
}

func (r *Recorder) obj(h Handle) (*Object, *WriteCounts) {
	o, ok := r.objects[h]
	if !ok {
		o = &Object{Scale: 1, Opacity: 1}
		r.objects[h] = o
	}
	c, ok := r.counts[h]
	if !ok {
		c = &WriteCounts{}
		r.counts[h] = c
	}
	return o, c
}

// SetRotationY implements Sink.
func (r *Recorder) SetRotationY(h Handle, angle float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, c := r.obj(h)
	o.RotationY = angle
	c.Rotation++
}

// SetPosition implements Sink.
func (r *Recorder) SetPosition(h Handle, p astro.Vec3) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, c := r.obj(h)
	o.Position = p
	c.Position++
}

// SetSpin implements Sink.
func (r *Recorder) SetSpin(h Handle, angle float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, c := r.obj(h)
	o.Spin = angle
	c.Spin++
}

// SetOpacity implements Sink.
func (r *Recorder) SetOpacity(h Handle, opacity float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, c := r.obj(h)
	o.Opacity = opacity
	o.HasOpacity = true
	c.Opacity++
}

// SetScale implements Sink.
func (r *Recorder) SetScale(h Handle, scale float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, c := r.obj(h)
	o.Scale = scale
	c.Scale++
}

// SetEmissive implements Sink.
func (r *Recorder) SetEmissive(h Handle, intensity float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, c := r.obj(h)
	o.Emissive = intensity
	c.Emissive++
}

// SetVisible implements Sink.
func (r *Recorder) SetVisible(h Handle, visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, c := r.obj(h)
	o.Visible = visible
	o.HasVisible = true
	c.Visible++
}

// SetDrawRange implements Sink.
func (r *Recorder) SetDrawRange(h Handle, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, c := r.obj(h)
	o.DrawRange = count
	o.HasDrawSize = true
	c.DrawRange++
}

// SetPositions implements Sink. Only the point count is retained.
func (r *Recorder) SetPositions(h Handle, positions []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, c := r.obj(h)
	o.PointCount = len(positions) / 3
	c.Positions++
}

// SetPixelRatio implements Sink.
func (r *Recorder) SetPixelRatio(ratio float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pixelRatio = ratio
	r.pixelCount++
}

// Object returns a copy of the state written to h.
func (r *Recorder) Object(h Handle) (Object, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.objects[h]
	if !ok {
		return Object{}, false
	}
	return *o, true
}

// Counts returns the write tallies for h.
func (r *Recorder) Counts(h Handle) WriteCounts {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.counts[h]
	if !ok {
		return WriteCounts{}
	}
	return *c
}

// PixelRatio returns the last written pixel ratio and the number of writes.
func (r *Recorder) PixelRatio() (float64, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pixelRatio, r.pixelCount
}

// ResetCounts clears write tallies but keeps object state.
func (r *Recorder) ResetCounts() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts = make(map[Handle]*WriteCounts)
	r.pixelCount = 0
}
