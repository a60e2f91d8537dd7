package astro

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

const (
	// UnixEpochJD is the Julian Day of 1970-01-01 00:00 UTC.
	UnixEpochJD = 2440587.5

	// MsPerDay is the number of milliseconds in a day.
	MsPerDay = 86400000.0
)

// julianDate calculates the Julian Date for a given time.
func julianDate(t time.Time) float64 {
	return julian.TimeToJD(t.UTC())
}

// JulianDay returns the Julian Day for t.
func JulianDay(t time.Time) float64 {
	return julianDate(t)
}

// JulianDayFromUnixMs converts milliseconds since the Unix epoch to a Julian Day.
func JulianDayFromUnixMs(ms float64) float64 {
	return ms/MsPerDay + UnixEpochJD
}

// UnixMs returns t as fractional milliseconds since the Unix epoch.
func UnixMs(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e6
}

// DayFraction returns frac(days / period) for a wall-clock instant, the
// fraction of a cycle of |periodDays| completed since the Unix epoch.
func DayFraction(t time.Time, periodDays float64) float64 {
	cycles := (UnixMs(t) / MsPerDay) / math.Abs(periodDays)
	return cycles - math.Floor(cycles)
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// NormalizeDeg wraps an angle into [0, 360).
func NormalizeDeg(d float64) float64 {
	n := math.Mod(d, 360)
	if n < 0 {
		n += 360
	}
	return n
}

// Sign returns -1 for negative values and +1 otherwise, so a zero-valued
// period never flips direction.
func Sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}
