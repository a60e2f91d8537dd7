package perf

import (
	"slices"
	"time"
)

// Panel refresh tuning.
const (
	PanelRefresh   = 360 * time.Millisecond
	PanelMinFrames = 10
)

// PanelValues is one refresh of the on-screen performance readout.
type PanelValues struct {
	FPS         float64
	LastFrameMs float64
	P50         float64
	P90         float64
	P99         float64
	PixelRatio  float64
	Adaptive    bool
	Quality     string
	Distance    float64
	UpdatedAt   time.Time
}

// Panel accumulates frame times between refreshes.
type Panel struct {
	sampler   *Sampler
	elapsedMs float64
	frames    int
	lastMs    float64
	lastAt    time.Time
	values    PanelValues
}

// NewPanel creates a panel reading percentiles from sampler.
func NewPanel(sampler *Sampler) *Panel {
	return &Panel{sampler: sampler}
}

// Sample records one frame and feeds the sampler.
func (p *Panel) Sample(dtMs float64) {
	p.elapsedMs += dtMs
	p.frames++
	p.lastMs = dtMs
	p.sampler.Add(dtMs)
}

// Refresh recomputes the readout when due or forced and reports whether
// it did. fill supplies the fields the panel cannot measure itself.
func (p *Panel) Refresh(now time.Time, force bool, fill func(*PanelValues)) bool {
	if !force && (now.Sub(p.lastAt) < PanelRefresh || p.frames < PanelMinFrames) {
		return false
	}

	fps := 0.0
	if p.elapsedMs > 0 {
		fps = float64(p.frames) * 1000 / p.elapsedMs
	}
	sorted := p.sampler.Values()
	slices.Sort(sorted)

	v := PanelValues{
		FPS:         fps,
		LastFrameMs: p.lastMs,
		P50:         PercentileSorted(sorted, 50),
		P90:         PercentileSorted(sorted, 90),
		P99:         PercentileSorted(sorted, 99),
		UpdatedAt:   now,
	}
	if fill != nil {
		fill(&v)
	}
	p.values = v
	p.elapsedMs, p.frames = 0, 0
	p.lastAt = now
	return true
}

// Values returns the last refreshed readout.
func (p *Panel) Values() PanelValues {
	return p.values
}
