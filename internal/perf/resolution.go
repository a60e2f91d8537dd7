package perf

import (
	"math"
)

// Resolution scaler tuning.
const (
	ResolutionEvalMs     = 1200.0
	ResolutionMinSamples = 24
	slowFrameMs          = 33.0
	sluggishFrameMs      = 23.0
	fastFrameMs          = 14.0
	slowStep             = 0.18
	sluggishStep         = 0.12
	fastStep             = 0.06
	minResolutionChange  = 0.01
)

// ResolutionScaler nudges the render pixel ratio toward a frame-time band.
// The ratio never leaves [Min, Max].
type ResolutionScaler struct {
	min, max float64
	ratio    float64
	enabled  bool

	elapsedMs float64
	sumMs     float64
	count     int
}

// NewResolutionScaler starts at the tier's maximum for devicePixelRatio.
// A zero device ratio is treated as 1.
func NewResolutionScaler(devicePixelRatio float64, p Preset, enabled bool) *ResolutionScaler {
	if devicePixelRatio <= 0 {
		devicePixelRatio = 1
	}
	maxRatio := math.Min(devicePixelRatio, p.PixelRatioCap)
	minRatio := math.Min(maxRatio, p.MinPixelRatio)
	return &ResolutionScaler{
		min:     minRatio,
		max:     maxRatio,
		ratio:   maxRatio,
		enabled: enabled,
	}
}

// Ratio returns the current pixel ratio.
func (r *ResolutionScaler) Ratio() float64 { return r.ratio }

// Min returns the lower bound.
func (r *ResolutionScaler) Min() float64 { return r.min }

// Max returns the upper bound.
func (r *ResolutionScaler) Max() float64 { return r.max }

// Enabled reports whether the scaler adapts at all.
func (r *ResolutionScaler) Enabled() bool { return r.enabled }

// Observe records one frame. Every evaluation window it compares the mean
// frame time against the band and steps the ratio. changed reports whether
// the caller must push the new ratio to the renderer.
func (r *ResolutionScaler) Observe(dtMs float64) (ratio float64, changed bool) {
	if !r.enabled {
		return r.ratio, false
	}
	r.elapsedMs += dtMs
	r.sumMs += dtMs
	r.count++

	if r.elapsedMs < ResolutionEvalMs || r.count < ResolutionMinSamples {
		return r.ratio, false
	}

	avg := r.sumMs / float64(r.count)
	r.elapsedMs, r.sumMs, r.count = 0, 0, 0

	next := r.ratio
	switch {
	case avg > slowFrameMs && r.ratio > r.min:
		next = math.Max(r.min, r.ratio-slowStep)
	case avg > sluggishFrameMs && r.ratio > r.min:
		next = math.Max(r.min, r.ratio-sluggishStep)
	case avg < fastFrameMs && r.ratio < r.max:
		next = math.Min(r.max, r.ratio+fastStep)
	}

	if math.Abs(next-r.ratio) > minResolutionChange {
		r.ratio = next
		return r.ratio, true
	}
	return r.ratio, false
}
