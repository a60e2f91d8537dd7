package sim

import (
	"time"

	"github.com/litescript/ls-orrery/internal/orbit"
)

// Input is a user or host request. Inputs are queued by Submit and applied
// at the start of the next tick, in order.
type Input interface {
	apply(o *Orchestrator, now time.Time)
}

// Focus selects a body by name, or by Body when Name is empty, and flies
// to it. Focusing the selected body again cycles the view angle.
type Focus struct {
	Name string
	Body orbit.Handle
}

// FocusNext selects the next Sun-orbiting body in catalog order.
type FocusNext struct{}

// FocusPrev selects the previous Sun-orbiting body in catalog order.
type FocusPrev struct{}

// Reset deselects and flies back to the overview pose.
type Reset struct{}

// SetTimeWarp sets the time slider position (0-100).
type SetTimeWarp struct {
	Percent float64
}

// SetPositionMode switches between Simulated and Live positions.
type SetPositionMode struct {
	Mode orbit.PositionMode
}

// SetDataMode switches between Educational and Accurate data. Accurate
// starts a background snapshot fetch.
type SetDataMode struct {
	Mode orbit.DataMode
}

// ScrubToDistance moves the camera to Distance from its target.
type ScrubToDistance struct {
	Distance float64
	Tween    bool
}

// ScrubToPercent moves the camera to the distance at a scale-bar position.
type ScrubToPercent struct {
	Percent float64
	Tween   bool
}

// GuidedTour flies to a named tour stop.
type GuidedTour struct {
	Key string
}

// SetDragging reports whether the user is dragging the view.
type SetDragging struct {
	On bool
}

// OrbitView rotates the camera about its target, in radians.
type OrbitView struct {
	DAzimuth float64
	DPolar   float64
}

// Dolly scales the camera distance by Factor.
type Dolly struct {
	Factor float64
}

// SetHidden pauses or resumes the simulation.
type SetHidden struct {
	Hidden bool
}

// Hover marks the body under the pointer; an empty name clears it.
type Hover struct {
	Name string
}

// SetAutoRotate toggles idle auto-rotation.
type SetAutoRotate struct {
	On bool
}

// Resync makes the next frame carry the whole scene rather than the
// changes since the previous frame. Hosts send it when a new viewer joins.
type Resync struct{}

// TourStop is a guided tour preset.
type TourStop struct {
	Key      string
	Label    string
	Distance float64
}

// Tours lists the guided tour stops.
var Tours = []TourStop{
	{"inner", "Inner Planets", 60},
	{"outer", "Outer Planets", 220},
	{"galaxy", "Milky Way", 9000},
	{"universe", "Observable Universe", 2800000},
}

func (in Focus) apply(o *Orchestrator, now time.Time) {
	h := in.Body
	if in.Name != "" {
		var ok bool
		if h, ok = o.state.Engine.Arena().Lookup(in.Name); !ok {
			o.log.Warn("focus: unknown body %q", in.Name)
			return
		}
	}
	o.focus(h, now)
}

func (FocusNext) apply(o *Orchestrator, now time.Time) { o.cycle(1, now) }

func (FocusPrev) apply(o *Orchestrator, now time.Time) { o.cycle(-1, now) }

func (Reset) apply(o *Orchestrator, now time.Time) {
	o.state.Rig.Reset(now)
	o.state.Highlight.SetSelected(orbit.NoBody)
}

func (in SetTimeWarp) apply(o *Orchestrator, _ time.Time) {
	o.state.Engine.SetTimeWarpTarget(orbit.SliderToTimeWarp(in.Percent))
}

func (in SetPositionMode) apply(o *Orchestrator, now time.Time) {
	o.setPositionMode(in.Mode, now)
}

func (in SetDataMode) apply(o *Orchestrator, now time.Time) {
	o.setDataMode(in.Mode, now)
}

func (in ScrubToDistance) apply(o *Orchestrator, now time.Time) {
	o.state.Rig.SetDistance(in.Distance, in.Tween, now)
}

func (in ScrubToPercent) apply(o *Orchestrator, now time.Time) {
	d := o.state.Scale.Thresholds().ScalePctToDistance(in.Percent)
	o.state.Rig.SetDistance(d, in.Tween, now)
}

func (in GuidedTour) apply(o *Orchestrator, now time.Time) {
	for _, stop := range Tours {
		if stop.Key == in.Key {
			o.state.Rig.SetDistance(stop.Distance, true, now)
			return
		}
	}
	o.log.Warn("unknown tour stop %q", in.Key)
}

func (in SetDragging) apply(o *Orchestrator, _ time.Time) {
	o.state.Rig.SetDragging(in.On)
}

func (in OrbitView) apply(o *Orchestrator, _ time.Time) {
	o.state.Rig.Orbit(in.DAzimuth, in.DPolar)
}

func (in Dolly) apply(o *Orchestrator, _ time.Time) {
	o.state.Rig.Dolly(in.Factor)
}

func (in SetHidden) apply(o *Orchestrator, _ time.Time) {
	o.state.Hidden = in.Hidden
}

func (in Hover) apply(o *Orchestrator, _ time.Time) {
	h := orbit.NoBody
	if in.Name != "" {
		if found, ok := o.state.Engine.Arena().Lookup(in.Name); ok {
			h = found
		}
	}
	o.state.Highlight.SetHovered(h)
}

func (in SetAutoRotate) apply(o *Orchestrator, _ time.Time) {
	o.state.Rig.SetAutoRotate(in.On && !o.cfg.StaticFrame)
}

func (Resync) apply(o *Orchestrator, _ time.Time) {
	o.resync = true
}
