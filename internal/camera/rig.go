package camera

import (
	"math"
	"time"

	"github.com/litescript/ls-orrery/internal/astro"
)

// State is the rig's transition state.
type State int

const (
	Free State = iota
	Tweening
	Following
)

func (s State) String() string {
	switch s {
	case Free:
		return "free"
	case Tweening:
		return "tweening"
	case Following:
		return "following"
	default:
		return "unknown"
	}
}

// NoTarget means nothing is selected.
const NoTarget = -1

// Selection is the followed body and the view angle it is seen from.
type Selection struct {
	Body       int
	AngleIndex int
}

// Selected reports whether a body is selected.
func (s Selection) Selected() bool {
	return s.Body != NoTarget
}

// Config holds rig options.
type Config struct {
	AutoRotate bool
}

// BodyLocator returns the current world position of a body.
type BodyLocator func(body int) (astro.Vec3, bool)

// Rig owns the camera pose. At most one tween runs at a time; starting a
// new one captures the currently displayed pose as its start.
type Rig struct {
	cfg      Config
	pose     Pose
	tween    *Tween
	sel      Selection
	offset   astro.Vec3
	dragging bool

	pendingAzimuth float64
	pendingPolar   float64
}

// NewRig creates a rig at DefaultPose.
func NewRig(cfg Config) *Rig {
	return &Rig{
		cfg:  cfg,
		pose: DefaultPose,
		sel:  Selection{Body: NoTarget},
	}
}

// Pose returns the displayed pose.
func (r *Rig) Pose() Pose { return r.pose }

// Distance returns the camera-to-target distance.
func (r *Rig) Distance() float64 { return r.pose.Distance() }

// Selection returns the current selection.
func (r *Rig) Selection() Selection { return r.sel }

// Tween returns the running tween, or nil.
func (r *Rig) Tween() *Tween { return r.tween }

// State returns the transition state.
func (r *Rig) State() State {
	switch {
	case r.tween != nil:
		return Tweening
	case r.sel.Selected():
		return Following
	default:
		return Free
	}
}

// SetAutoRotate toggles idle auto-rotation.
func (r *Rig) SetAutoRotate(on bool) {
	r.cfg.AutoRotate = on
}

// SetDragging marks whether the user is dragging the view.
func (r *Rig) SetDragging(on bool) {
	r.dragging = on
}

func (r *Rig) startTween(end Pose, d time.Duration, now time.Time) {
	r.tween = &Tween{
		Start:     r.pose,
		End:       end,
		StartedAt: now,
		Duration:  d,
	}
	r.pendingAzimuth, r.pendingPolar = 0, 0
}

// Focus selects body and flies to it. Focusing the selected body again
// advances to the next view angle.
func (r *Rig) Focus(body int, bodyPos astro.Vec3, radius float64, now time.Time) {
	if r.sel.Body == body {
		r.sel.AngleIndex = (r.sel.AngleIndex + 1) % len(ViewAngles)
	} else {
		r.sel = Selection{Body: body}
	}

	dir := ViewAngles[r.sel.AngleIndex].Normalized()
	dist := math.Max(radius*focusDistanceFactor, focusMinDistance)
	pos := bodyPos.Add(dir.Scale(dist))
	pos.Y += radius * focusLift

	r.offset = pos.Sub(bodyPos)
	r.startTween(Pose{Position: pos, Target: bodyPos}, FocusDuration, now)
}

// Reset deselects and flies back to DefaultPose.
func (r *Rig) Reset(now time.Time) {
	r.sel = Selection{Body: NoTarget}
	r.startTween(DefaultPose, ResetDuration, now)
}

// Deselect drops the selection without moving the camera.
func (r *Rig) Deselect() {
	r.sel = Selection{Body: NoTarget}
}

// SetDistance moves the camera along its current view direction to d,
// clamped to [MinDistance, MaxDistance]. Without tween the move is
// immediate and cancels any running tween.
func (r *Rig) SetDistance(d float64, tween bool, now time.Time) {
	target := r.pose.Target
	dir := r.pose.Position.Sub(target)
	if dir.Norm() < 1e-4 {
		dir = astro.Vec3{Z: 1}
	}
	dir = dir.Normalized()
	d = astro.Clamp(d, MinDistance, MaxDistance)
	end := target.Add(dir.Scale(d))
	if r.sel.Selected() {
		r.offset = end.Sub(target)
	}

	if tween {
		r.startTween(Pose{Position: end, Target: target}, ScrubDuration, now)
		return
	}
	r.tween = nil
	r.pose.Position = end
}

// Orbit queues a user rotation about the target, in radians. It is
// applied with damping on subsequent updates.
func (r *Rig) Orbit(dAzimuth, dPolar float64) {
	if r.tween != nil {
		return
	}
	r.pendingAzimuth += dAzimuth
	r.pendingPolar += dPolar
}

// Dolly scales the camera distance by factor (<1 moves closer).
func (r *Rig) Dolly(factor float64) {
	if r.tween != nil || factor <= 0 {
		return
	}
	off := r.pose.Position.Sub(r.pose.Target)
	d := astro.Clamp(off.Norm()*factor, MinDistance, MaxDistance)
	r.pose.Position = r.pose.Target.Add(off.Normalized().Scale(d))
	if r.sel.Selected() {
		r.offset = r.pose.Position.Sub(r.pose.Target)
	}
}

// Update advances the rig by one frame. dt is in seconds; locate resolves
// the followed body's current position.
func (r *Rig) Update(now time.Time, dt float64, locate BodyLocator) {
	if r.tween != nil {
		r.pose = r.tween.At(now)
		if r.tween.Progress(now) >= 1 {
			r.tween = nil
		}
	}

	if r.sel.Selected() && r.tween == nil && locate != nil {
		if body, ok := locate(r.sel.Body); ok {
			alpha := 1 - math.Exp(-dt*FollowRate)
			r.pose.Target = r.pose.Target.Lerp(body, alpha)
			if r.dragging {
				r.offset = r.pose.Position.Sub(r.pose.Target)
			} else {
				r.pose.Position = r.pose.Position.Lerp(body.Add(r.offset), alpha)
			}
		}
	}

	if r.tween == nil {
		r.applyControls(dt)
	}
}

// applyControls applies damped user rotation and idle auto-rotation.
func (r *Rig) applyControls(dt float64) {
	az := r.pendingAzimuth * Damping
	polar := r.pendingPolar * Damping
	r.pendingAzimuth -= az
	r.pendingPolar -= polar

	if r.cfg.AutoRotate && !r.sel.Selected() && !r.dragging {
		az += 2 * math.Pi / 60 * AutoRotateSpeed * dt
	}
	if az == 0 && polar == 0 {
		return
	}

	off := r.pose.Position.Sub(r.pose.Target)
	rad := off.Norm()
	if rad == 0 {
		return
	}
	theta := math.Atan2(off.X, off.Z) + az
	phi := math.Acos(astro.Clamp(off.Y/rad, -1, 1)) + polar
	phi = astro.Clamp(phi, minPolar, math.Pi-minPolar)

	sinPhi := math.Sin(phi)
	off = astro.Vec3{
		X: rad * sinPhi * math.Sin(theta),
		Y: rad * math.Cos(phi),
		Z: rad * sinPhi * math.Cos(theta),
	}
	r.pose.Position = r.pose.Target.Add(off)
	if r.sel.Selected() {
		r.offset = off
	}
}
