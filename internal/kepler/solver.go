// Package kepler evaluates low-precision heliocentric positions from mean
// orbital elements (Schlyter's model) by solving Kepler's equation.
package kepler

import (
	"math"
	"time"

	"github.com/litescript/ls-orrery/internal/astro"
)

// EpochJD is the reference epoch of the element table, 2000-01-00 00:00 UTC.
const EpochJD = 2451545.0 - 1.5

// Iterations is the fixed Newton-Raphson iteration count.
const Iterations = 7

// SolveEccentricAnomaly returns E satisfying E - e*sin(E) = M for mean
// anomaly M (radians) and eccentricity 0 <= e < 1. The cost is fixed; no
// convergence test is performed.
func SolveEccentricAnomaly(M, e float64) float64 {
	E := M + e*math.Sin(M)*(1+e*math.Cos(M))
	for i := 0; i < Iterations; i++ {
		E -= (E - e*math.Sin(E) - M) / (1 - e*math.Cos(E))
	}
	return E
}

// DayNumber returns days elapsed since the element epoch.
func DayNumber(t time.Time) float64 {
	return astro.JulianDay(t) - EpochJD
}

// DayNumberFromUnixMs is DayNumber for a millisecond timestamp.
func DayNumberFromUnixMs(ms float64) float64 {
	return astro.JulianDayFromUnixMs(ms) - EpochJD
}

// Term is a linearly drifting orbital element: Base + Rate*d.
type Term struct {
	Base float64
	Rate float64
}

// At evaluates the term at day number d.
func (t Term) At(d float64) float64 {
	return t.Base + t.Rate*d
}

// Elements are heliocentric ecliptic Keplerian elements. Angles are in
// degrees, the semi-major axis in AU.
type Elements struct {
	N Term // longitude of the ascending node
	I Term // inclination
	W Term // argument of perihelion
	A Term // semi-major axis
	E Term // eccentricity
	M Term // mean anomaly
}

// Evaluated holds elements resolved at a single instant, angles in radians.
type Evaluated struct {
	N, I, W float64
	A, E    float64
	M       float64
}

// At resolves the elements at day number d.
func (el Elements) At(d float64) Evaluated {
	return Evaluated{
		N: astro.DegToRad(astro.NormalizeDeg(el.N.At(d))),
		I: astro.DegToRad(el.I.At(d)),
		W: astro.DegToRad(astro.NormalizeDeg(el.W.At(d))),
		A: el.A.At(d),
		E: el.E.At(d),
		M: astro.DegToRad(astro.NormalizeDeg(el.M.At(d))),
	}
}

// SemiMajorAxis returns the constant term of a, used to map AU onto the
// display orbit radius.
func (el Elements) SemiMajorAxis() float64 {
	return el.A.Base
}

// OrbitalPlane returns the position in the orbital plane (perihelion on +x)
// together with the true anomaly and radius.
func OrbitalPlane(a, e, E float64) (xv, yv, v, r float64) {
	xv = a * (math.Cos(E) - e)
	yv = a * math.Sqrt(1-e*e) * math.Sin(E)
	v = math.Atan2(yv, xv)
	r = math.Hypot(xv, yv)
	return xv, yv, v, r
}

// Heliocentric returns the heliocentric ecliptic position in AU at day
// number d.
func Heliocentric(el Elements, d float64) astro.Vec3 {
	ev := el.At(d)
	E := SolveEccentricAnomaly(ev.M, ev.E)
	_, _, v, r := OrbitalPlane(ev.A, ev.E, E)

	vw := v + ev.W
	sinN, cosN := math.Sincos(ev.N)
	sinVW, cosVW := math.Sincos(vw)
	cosI := math.Cos(ev.I)

	return astro.Vec3{
		X: r * (cosN*cosVW - sinN*sinVW*cosI),
		Y: r * (sinN*cosVW + cosN*sinVW*cosI),
		Z: r * (sinVW * math.Sin(ev.I)),
	}
}

// DisplayPosition places a body on its display orbit: heliocentric AU are
// scaled by orbitRadius/a0 and mapped into the Y-up display frame.
func DisplayPosition(el Elements, d, orbitRadius float64) astro.Vec3 {
	return ScaleToDisplay(Heliocentric(el, d), el.SemiMajorAxis(), orbitRadius)
}

// ScaleToDisplay maps a heliocentric AU vector onto a display orbit.
func ScaleToDisplay(helio astro.Vec3, semiMajorAU, orbitRadius float64) astro.Vec3 {
	return astro.EclipticToDisplay(helio, orbitRadius/semiMajorAU)
}
