// Package camera drives the viewer camera: eased transitions between poses,
// following a selected body, and user orbit/dolly controls.
package camera

import (
	"math"
	"time"

	"github.com/litescript/ls-orrery/internal/astro"
)

// Transition durations.
const (
	FocusDuration = 1300 * time.Millisecond
	ResetDuration = 1200 * time.Millisecond
	ScrubDuration = 260 * time.Millisecond
)

// Follow and control tuning.
const (
	FollowRate      = 6.0
	MinDistance     = 2.0
	MaxDistance     = 24e6
	AutoRotateSpeed = 0.18
	Damping         = 0.055

	focusDistanceFactor = 6.6
	focusMinDistance    = 9.2
	focusLift           = 0.45
	minPolar            = 1e-3
)

// ViewAngles are the directions a focused body is viewed from, cycled by
// re-selecting the same body.
var ViewAngles = [4]astro.Vec3{
	{X: 1.1, Y: 0.35, Z: 1.2},
	{X: -1.18, Y: 0.56, Z: 0.9},
	{X: 0.26, Y: 1.2, Z: 0.46},
	{X: -0.34, Y: 0.2, Z: -1.24},
}

// DefaultPose is the overview pose used at startup and by Reset.
var DefaultPose = Pose{
	Position: astro.Vec3{X: 0, Y: 40, Z: 170},
	Target:   astro.Vec3{},
}

// Pose is a camera position looking at a target.
type Pose struct {
	Position astro.Vec3
	Target   astro.Vec3
}

// Distance returns the camera-to-target distance.
func (p Pose) Distance() float64 {
	return p.Position.DistanceTo(p.Target)
}

// Lerp interpolates both points of the pose.
func (p Pose) Lerp(q Pose, alpha float64) Pose {
	return Pose{
		Position: p.Position.Lerp(q.Position, alpha),
		Target:   p.Target.Lerp(q.Target, alpha),
	}
}

// EaseInOutQuint maps t in [0,1] onto a quintic ease-in-out curve.
func EaseInOutQuint(t float64) float64 {
	if t < 0.5 {
		return 16 * t * t * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 5)/2
}

// Tween is an eased transition between two poses.
type Tween struct {
	Start     Pose
	End       Pose
	StartedAt time.Time
	Duration  time.Duration
}

// Progress returns the linear progress at now, clamped to [0,1].
func (tw *Tween) Progress(now time.Time) float64 {
	if tw.Duration <= 0 {
		return 1
	}
	return astro.Clamp01(float64(now.Sub(tw.StartedAt)) / float64(tw.Duration))
}

// At returns the eased pose at now.
func (tw *Tween) At(now time.Time) Pose {
	t := tw.Progress(now)
	if t >= 1 {
		return tw.End
	}
	return tw.Start.Lerp(tw.End, EaseInOutQuint(t))
}
