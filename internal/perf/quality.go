package perf

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Tier is a device quality tier.
type Tier int

const (
	UltraLow Tier = iota
	Low
	Medium
	High
)

// ErrUnknownTier is returned by ParseTier for unrecognized names.
var ErrUnknownTier = errors.New("unknown quality tier")

func (t Tier) String() string {
	switch t {
	case UltraLow:
		return "ultraLow"
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

// ParseTier parses a tier name, case-insensitively.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ultralow", "ultra-low", "ultra_low":
		return UltraLow, nil
	case "low":
		return Low, nil
	case "medium":
		return Medium, nil
	case "high":
		return High, nil
	default:
		return UltraLow, fmt.Errorf("%q: %w", s, ErrUnknownTier)
	}
}

// Preset holds the per-tier tuning constants.
type Preset struct {
	Quality       float64 // point-count multiplier
	PixelRatioCap float64
	MinPixelRatio float64
	UIInterval    time.Duration
	HoverInterval time.Duration
	LiveInterval  time.Duration
}

var presets = [...]Preset{
	UltraLow: {0.12, 1, 0.5, 180 * time.Millisecond, 120 * time.Millisecond, 250 * time.Millisecond},
	Low:      {0.28, 1, 0.72, 120 * time.Millisecond, 66 * time.Millisecond, 160 * time.Millisecond},
	Medium:   {0.55, 1.35, 0.8, 90 * time.Millisecond, 50 * time.Millisecond, 100 * time.Millisecond},
	High:     {1, 1.75, 0.95, 60 * time.Millisecond, 33 * time.Millisecond, 50 * time.Millisecond},
}

// Preset returns the tuning for t. Unknown tiers get the UltraLow preset.
func (t Tier) Preset() Preset {
	if t < UltraLow || t > High {
		return presets[UltraLow]
	}
	return presets[t]
}

// DeviceInfo describes the host. Zero values mean unknown.
type DeviceInfo struct {
	MemoryGB   float64
	Cores      int
	Mobile     bool
	PixelRatio float64
}

// InferTier picks a tier from device capabilities.
func InferTier(d DeviceInfo) Tier {
	if d.Mobile {
		return UltraLow
	}
	memAtMost := func(gb float64) bool { return d.MemoryGB > 0 && d.MemoryGB <= gb }
	coresAtMost := func(n int) bool { return d.Cores > 0 && d.Cores <= n }

	switch {
	case memAtMost(6) || coresAtMost(4):
		return UltraLow
	case memAtMost(8) || coresAtMost(6):
		return Low
	case memAtMost(16) || coresAtMost(10):
		return Medium
	default:
		return High
	}
}
