// Package perf measures frame times and adapts rendering cost to them.
package perf

import (
	"math"
	"slices"
	"sync"
)

// DefaultWindow is the number of frame samples kept.
const DefaultWindow = 240

// Sampler is a fixed-size window of frame durations in milliseconds.
// Once full, the oldest sample is overwritten.
type Sampler struct {
	mu      sync.RWMutex
	samples []float64
	max     int
	writeAt int
}

// NewSampler creates a sampler holding up to size samples.
func NewSampler(size int) *Sampler {
	if size <= 0 {
		size = DefaultWindow
	}
	return &Sampler{
		samples: make([]float64, 0, size),
		max:     size,
	}
}

// Add records one frame duration.
func (s *Sampler) Add(ms float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.samples) < s.max {
		s.samples = append(s.samples, ms)
		return
	}
	s.samples[s.writeAt] = ms
	s.writeAt = (s.writeAt + 1) % s.max
}

// Len returns the number of samples held.
func (s *Sampler) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples)
}

// Reset drops every sample.
func (s *Sampler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = s.samples[:0]
	s.writeAt = 0
}

// Values returns the samples oldest first.
func (s *Sampler) Values() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]float64, 0, len(s.samples))
	if len(s.samples) < s.max {
		return append(out, s.samples...)
	}
	out = append(out, s.samples[s.writeAt:]...)
	return append(out, s.samples[:s.writeAt]...)
}

// Mean returns the average sample, or 0 when empty.
func (s *Sampler) Mean() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s.samples {
		sum += v
	}
	return sum / float64(len(s.samples))
}

// Percentile returns the p-th percentile (0-100), or 0 when empty.
func (s *Sampler) Percentile(p float64) float64 {
	s.mu.RLock()
	sorted := slices.Clone(s.samples)
	s.mu.RUnlock()
	slices.Sort(sorted)
	return PercentileSorted(sorted, p)
}

// PercentileSorted returns the nearest-rank percentile of an ascending slice.
func PercentileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(n))) - 1
	idx = max(0, min(n-1, idx))
	return sorted[idx]
}
