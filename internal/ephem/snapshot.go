// Package ephem loads precomputed heliocentric positions for Accurate data
// mode and builds them from JPL Horizons.
package ephem

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/litescript/ls-orrery/internal/astro"
)

const (
	// SourceHorizons is the provenance of a Horizons snapshot.
	SourceHorizons = "NASA JPL Horizons"

	// SourceAnalytic is the provenance label when positions come from the
	// built-in mean elements.
	SourceAnalytic = "Low-precision analytic elements"

	// FrameHeliocentricAU is the only coordinate frame snapshots use.
	FrameHeliocentricAU = "heliocentric-au"
)

var (
	// ErrNoSnapshot is returned when no snapshot could be obtained.
	ErrNoSnapshot = errors.New("no ephemeris snapshot")

	// ErrBodyMissing is returned when a snapshot lacks a requested body.
	ErrBodyMissing = errors.New("body missing from snapshot")
)

// Point is a heliocentric ecliptic position in AU.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vec3 converts p to a vector.
func (p Point) Vec3() astro.Vec3 {
	return astro.Vec3{X: p.X, Y: p.Y, Z: p.Z}
}

// Snapshot is a set of body positions valid at one instant.
type Snapshot struct {
	Source          string           `json:"source"`
	GeneratedAt     time.Time        `json:"generatedAt"`
	ValidAt         time.Time        `json:"validAt"`
	CoordinateFrame string           `json:"coordinateFrame"`
	Bodies          map[string]Point `json:"bodies"`
}

// Body returns the position of name.
func (s *Snapshot) Body(name string) (Point, error) {
	p, ok := s.Bodies[name]
	if !ok {
		return Point{}, fmt.Errorf("%s: %w", name, ErrBodyMissing)
	}
	return p, nil
}

// Validate checks that the snapshot is usable.
func (s *Snapshot) Validate() error {
	if s.CoordinateFrame != "" && s.CoordinateFrame != FrameHeliocentricAU {
		return fmt.Errorf("unsupported coordinate frame %q", s.CoordinateFrame)
	}
	if len(s.Bodies) == 0 {
		return fmt.Errorf("snapshot has no bodies: %w", ErrNoSnapshot)
	}
	return nil
}

// Decode reads and validates a JSON snapshot.
func Decode(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Encode writes s as indented JSON.
func (s *Snapshot) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}
