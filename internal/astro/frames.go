// Package astro provides vector math, time conversion and the display frame
// shared by the orbital engine, the camera and the terminal views.
package astro

import (
	"math"
)

// Vec3 represents a 3D vector in any reference frame.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Norm returns the magnitude of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalized returns a unit vector in the same direction.
func (v Vec3) Normalized() Vec3 {
	n := v.Norm()
	if n == 0 {
		return Vec3{}
	}
	return Vec3{X: v.X / n, Y: v.Y / n, Z: v.Z / n}
}

// Scale returns the vector scaled by a factor.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Add returns the sum of two vectors.
func (v Vec3) Add(u Vec3) Vec3 {
	return Vec3{X: v.X + u.X, Y: v.Y + u.Y, Z: v.Z + u.Z}
}

// Sub returns the difference of two vectors.
func (v Vec3) Sub(u Vec3) Vec3 {
	return Vec3{X: v.X - u.X, Y: v.Y - u.Y, Z: v.Z - u.Z}
}

// DistanceTo returns the Euclidean distance between two points.
func (v Vec3) DistanceTo(u Vec3) float64 {
	return v.Sub(u).Norm()
}

// Lerp moves v toward u by alpha (0 = v, 1 = u).
func (v Vec3) Lerp(u Vec3, alpha float64) Vec3 {
	return Vec3{
		X: v.X + (u.X-v.X)*alpha,
		Y: v.Y + (u.Y-v.Y)*alpha,
		Z: v.Z + (u.Z-v.Z)*alpha,
	}
}

// RotateY rotates v about the display Y axis by angle radians.
// A positive angle carries +X toward -Z, matching the renderer's
// right-handed, Y-up scene graph.
func (v Vec3) RotateY(angle float64) Vec3 {
	s, c := math.Sincos(angle)
	return Vec3{
		X: v.X*c + v.Z*s,
		Y: v.Y,
		Z: -v.X*s + v.Z*c,
	}
}

// RotateZ rotates v about the display Z axis by angle radians.
func (v Vec3) RotateZ(angle float64) Vec3 {
	s, c := math.Sincos(angle)
	return Vec3{
		X: v.X*c - v.Y*s,
		Y: v.X*s + v.Y*c,
		Z: v.Z,
	}
}

// YAngle returns the RotateY angle that carries +X onto the horizontal
// direction of v. It is the inverse of RotateY for points in the XZ plane.
func (v Vec3) YAngle() float64 {
	return math.Atan2(-v.Z, v.X)
}

// HorizontalRadius returns the distance from the Y axis.
func (v Vec3) HorizontalRadius() float64 {
	return math.Hypot(v.X, v.Z)
}

// EclipticToDisplay maps heliocentric ecliptic coordinates (X toward the
// vernal equinox, Z toward the north ecliptic pole) into the Y-up display
// frame, scaled by s.
func EclipticToDisplay(ecl Vec3, s float64) Vec3 {
	return Vec3{X: ecl.X * s, Y: ecl.Z * s, Z: ecl.Y * s}
}

// ProjectedPoint represents a 2D projected position with metadata.
type ProjectedPoint struct {
	X float64 // Screen X coordinate (display units after scaling)
	Y float64 // Screen Y coordinate (display units after scaling)
	R float64 // Original radial distance in display units
	H float64 // Original height above the orbital plane
}

// ScaleMode defines how radial distances are mapped to screen space.
type ScaleMode int

const (
	// ScaleLogR uses logarithmic scaling: r_display = log10(r + 1)
	ScaleLogR ScaleMode = iota

	// ScaleInner uses linear scaling clamped at the asteroid belt
	ScaleInner

	// ScaleOuter uses square-root compression out to the Kuiper belt
	ScaleOuter
)

// String returns a short label for HUDs.
func (m ScaleMode) String() string {
	switch m {
	case ScaleLogR:
		return "Log"
	case ScaleInner:
		return "Inner"
	case ScaleOuter:
		return "Outer"
	default:
		return "?"
	}
}

// Inner and outer clamps for the linear modes, in display units.
const (
	InnerClamp = 42.0
	OuterClamp = 140.0
)

// ProjectionConfig configures the top-down projection.
type ProjectionConfig struct {
	Scale float64   // Base scale factor
	Mode  ScaleMode // Scaling mode
}

// DefaultProjectionConfig returns a reasonable default configuration.
func DefaultProjectionConfig() ProjectionConfig {
	return ProjectionConfig{
		Scale: 1.0,
		Mode:  ScaleLogR,
	}
}

// ProjectTopDown projects a display-frame point onto the XZ plane as seen
// from above. Screen X follows display X and screen Y follows -Z so that
// prograde orbits run counter-clockwise.
func ProjectTopDown(v Vec3, cfg ProjectionConfig) ProjectedPoint {
	r := v.HorizontalRadius()
	rDisplay := scaleRadius(r, cfg)
	angle := math.Atan2(-v.Z, v.X)

	return ProjectedPoint{
		X: rDisplay * math.Cos(angle) * cfg.Scale,
		Y: rDisplay * math.Sin(angle) * cfg.Scale,
		R: r,
		H: v.Y,
	}
}

// ScaleRadius exposes the radial mapping for ring drawing.
func ScaleRadius(r float64, cfg ProjectionConfig) float64 {
	return scaleRadius(r, cfg) * cfg.Scale
}

func scaleRadius(r float64, cfg ProjectionConfig) float64 {
	switch cfg.Mode {
	case ScaleLogR:
		// log10(r + 1): ~1.4 at Earth, ~2.0 at Neptune, ~3.3 at the galaxy edge
		return math.Log10(r + 1)

	case ScaleInner:
		if r > InnerClamp {
			return 1
		}
		return r / InnerClamp

	case ScaleOuter:
		if r > OuterClamp {
			return 1
		}
		return math.Sqrt(r / OuterClamp)

	default:
		return math.Log10(r + 1)
	}
}

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Clamp01 limits x to [0, 1].
func Clamp01(x float64) float64 {
	return Clamp(x, 0, 1)
}
