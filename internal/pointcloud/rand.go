// Package pointcloud builds the particle buffers of the scene: star shells,
// the asteroid belt layers and the Kuiper belt. Buffers are generated on a
// background goroutine and picked up by the frame loop on a later tick.
package pointcloud

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strings"
)

// Source yields uniform values in [0, 1).
type Source interface {
	Float64() float64
}

// LCG is the 32-bit linear congruential generator used for reproducible
// scenes: state = state·1664525 + 1013904223 (mod 2^32).
type LCG struct {
	state uint32
}

// NewLCG seeds a generator. A zero seed is replaced by 1.
func NewLCG(seed uint32) *LCG {
	if seed == 0 {
		seed = 1
	}
	return &LCG{state: seed}
}

// Float64 advances the generator.
func (l *LCG) Float64() float64 {
	l.state = l.state*1664525 + 1013904223
	return float64(l.state) / 4294967296
}

// NewSource returns an LCG for a positive seed and an unseeded source
// otherwise.
func NewSource(seed uint32) Source {
	if seed > 0 {
		return NewLCG(seed)
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// SeedPresets are named seeds for reproducible screenshots and benchmarks.
var SeedPresets = map[string]uint32{
	"cinematic": 424242,
	"classroom": 987654,
	"benchmark": 123456,
	"sunrise":   777111,
}

// ErrUnknownPreset is returned by ResolveSeed for unknown preset names.
var ErrUnknownPreset = errors.New("unknown seed preset")

// ResolveSeed picks the explicit seed when positive, otherwise the named
// preset. Zero means unseeded.
func ResolveSeed(seed int64, preset string) (uint32, error) {
	if seed > 0 {
		return uint32(seed), nil
	}
	preset = strings.ToLower(strings.TrimSpace(preset))
	if preset == "" {
		return 0, nil
	}
	s, ok := SeedPresets[preset]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPreset, preset)
	}
	return s, nil
}

// derive mixes a base seed with a name so every cloud gets its own stream
// independent of generation order.
func derive(seed uint32, name string) uint32 {
	if seed == 0 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(name))
	s := seed ^ h.Sum32()
	if s == 0 {
		s = seed
	}
	return s
}
