// Package orbit places bodies in the display frame, either by an
// accelerated virtual clock (Simulated) or by wall-clock time (Live).
package orbit

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/litescript/ls-orrery/internal/astro"
	"github.com/litescript/ls-orrery/internal/ephem"
	"github.com/litescript/ls-orrery/internal/kepler"
	"github.com/litescript/ls-orrery/internal/scene"
)

// PositionMode selects the position model.
type PositionMode int

const (
	Simulated PositionMode = iota
	Live
)

func (m PositionMode) String() string {
	switch m {
	case Simulated:
		return "sim"
	case Live:
		return "live"
	default:
		return "unknown"
	}
}

// ParsePositionMode parses "sim"/"simulated" or "live".
func ParsePositionMode(s string) (PositionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sim", "simulated":
		return Simulated, nil
	case "live":
		return Live, nil
	default:
		return Simulated, fmt.Errorf("unknown position mode: %q", s)
	}
}

// DataMode selects where Live positions come from.
type DataMode int

const (
	Educational DataMode = iota
	Accurate
)

func (m DataMode) String() string {
	switch m {
	case Educational:
		return "educational"
	case Accurate:
		return "accurate"
	default:
		return "unknown"
	}
}

// ParseDataMode parses "educational" or "accurate".
func ParseDataMode(s string) (DataMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "educational":
		return Educational, nil
	case "accurate":
		return Accurate, nil
	default:
		return Educational, fmt.Errorf("unknown data mode: %q", s)
	}
}

const (
	// WarpSmoothing is the exponential rate at which the time warp follows
	// its target, per second.
	WarpSmoothing = 8.0

	// MinTimeWarp is the slowest warp (days per second) the slider maps to.
	MinTimeWarp = 0.01

	// MaxTimeWarpFactor is the ratio between the fastest and slowest warp.
	MaxTimeWarpFactor = 36500.0

	// RelaxRate is the exponential rate at which a displaced anchor returns
	// to its circular orbit after leaving Live mode, per second.
	RelaxRate = 2.0

	// DefaultSlider is the initial time slider position (percent).
	DefaultSlider = 50.0
)

// SliderToTimeWarp maps a 0-100 slider position onto a logarithmic time
// warp in simulated days per real second.
func SliderToTimeWarp(v float64) float64 {
	if v <= 0 {
		return MinTimeWarp
	}
	return MinTimeWarp * math.Pow(MaxTimeWarpFactor, v/100)
}

// Config holds engine settings fixed for the session.
type Config struct {
	// LiveInterval is the minimum time between Live position refreshes.
	LiveInterval time.Duration
	// StaticFrame freezes all motion.
	StaticFrame bool
	// InitialWarp is the starting warp; zero uses the default slider.
	InitialWarp float64
}

type bodyState struct {
	pivot  float64    // rotation of the orbit pivot about +Y
	anchor astro.Vec3 // position under the pivot
	spin   float64

	// live is set while anchor holds an absolute Live position (pivot zero).
	live bool
	// displaced is set after a Live->Simulated switch until the anchor has
	// relaxed back onto its canonical circular orbit.
	displaced bool
}

// Engine owns per-body orbital state. It is not safe for concurrent use;
// the frame orchestrator is its only caller.
type Engine struct {
	arena  *Arena
	bodies []bodyState
	cfg    Config

	mode       PositionMode
	data       DataMode
	warp       float64
	warpTarget float64
	lastLive   time.Time
	snapshot   *ephem.Snapshot
}

// NewEngine creates an engine in Simulated/Educational mode with every body
// on its canonical orbit at its catalog phase.
func NewEngine(arena *Arena, cfg Config) *Engine {
	warp := cfg.InitialWarp
	if warp <= 0 {
		warp = SliderToTimeWarp(DefaultSlider)
	}
	e := &Engine{
		arena:      arena,
		bodies:     make([]bodyState, arena.Len()),
		cfg:        cfg,
		warp:       warp,
		warpTarget: warp,
	}
	for i := range e.bodies {
		b := arena.Body(Handle(i))
		e.bodies[i] = bodyState{
			pivot:  b.Phase,
			anchor: canonicalAnchor(b),
		}
	}
	return e
}

func canonicalAnchor(b *Body) astro.Vec3 {
	return astro.Vec3{X: b.OrbitRadius, Y: b.Height}
}

// Arena returns the body arena.
func (e *Engine) Arena() *Arena {
	return e.arena
}

// Mode returns the position mode.
func (e *Engine) Mode() PositionMode {
	return e.mode
}

// DataMode returns the data mode.
func (e *Engine) DataMode() DataMode {
	return e.data
}

// Warp returns the current smoothed time warp (days per second).
func (e *Engine) Warp() float64 {
	return e.warp
}

// WarpTarget returns the time warp the engine is converging on.
func (e *Engine) WarpTarget() float64 {
	return e.warpTarget
}

// SetTimeWarpTarget sets the warp that the smoothed warp decays toward.
func (e *Engine) SetTimeWarpTarget(w float64) {
	if w < 0 {
		w = 0
	}
	e.warpTarget = w
}

// Snapshot returns the loaded ephemeris snapshot, if any.
func (e *Engine) Snapshot() *ephem.Snapshot {
	return e.snapshot
}

// LastLiveUpdate returns when Live positions were last refreshed.
func (e *Engine) LastLiveUpdate() time.Time {
	return e.lastLive
}

// Advance moves the engine forward by one frame of length dt and returns
// the simulated days elapsed.
func (e *Engine) Advance(dt time.Duration, now time.Time) float64 {
	if e.cfg.StaticFrame {
		return 0
	}
	sec := dt.Seconds()

	if e.mode == Simulated {
		e.warp += (e.warpTarget - e.warp) * (1 - math.Exp(-sec*WarpSmoothing))
		simDays := sec * e.warp
		for i := range e.bodies {
			e.advanceSimulated(Handle(i), simDays, sec)
		}
		return simDays
	}

	if e.lastLive.IsZero() || now.Sub(e.lastLive) >= e.cfg.LiveInterval {
		e.refreshLive(now)
	}
	e.applyLiveRotations(now)
	// The simulated clock is stopped in Live mode, so bodies without
	// elements hold their last simulated pivot and spin.
	return 0
}

// liveDriven reports whether Live mode positions h from wall-clock time.
func (e *Engine) liveDriven(h Handle) bool {
	b := e.arena.Body(h)
	return b.HasElements || (b.Kind == KindMoon && b.Parent != NoBody)
}

// LiveHeld reports whether h is held at its last simulated placement
// because Live mode has no elements to evaluate for it.
func (e *Engine) LiveHeld(h Handle) bool {
	return e.mode == Live && !e.liveDriven(h)
}

func (e *Engine) advanceSimulated(h Handle, simDays, sec float64) {
	b := e.arena.Body(h)
	st := &e.bodies[h]

	st.pivot += 2 * math.Pi * simDays / b.OrbitDays
	st.spin += 2 * math.Pi * simDays / math.Abs(b.SpinDays) * astro.Sign(b.SpinDays)

	if st.displaced {
		home := canonicalAnchor(b)
		st.anchor = st.anchor.Lerp(home, 1-math.Exp(-sec*RelaxRate))
		if st.anchor.DistanceTo(home) < 1e-6 {
			st.anchor = home
			st.displaced = false
		}
	}
}

// SyncToWallClock refreshes Live positions and rotations immediately,
// regardless of the refresh interval.
func (e *Engine) SyncToWallClock(now time.Time) {
	e.refreshLive(now)
	e.applyLiveRotations(now)
}

// refreshLive places every element-driven heliocentric body at its absolute
// position for now, from the snapshot in Accurate mode or the analytic
// elements otherwise. Bodies missing from the snapshot use the elements.
func (e *Engine) refreshLive(now time.Time) {
	d := kepler.DayNumber(now)
	for i := range e.bodies {
		b := e.arena.Body(Handle(i))
		if !b.HasElements || b.Parent != NoBody {
			continue
		}
		pos := kepler.DisplayPosition(b.Elements, d, b.OrbitRadius)
		if e.data == Accurate && e.snapshot != nil {
			if p, ok := e.snapshot.Bodies[b.Name]; ok {
				pos = kepler.ScaleToDisplay(p.Vec3(), b.Elements.SemiMajorAxis(), b.OrbitRadius)
			}
		}
		st := &e.bodies[i]
		st.anchor = pos
		st.pivot = 0
		st.live = true
		st.displaced = false
	}
	e.lastLive = now
}

// applyLiveRotations sets spin for element-driven bodies and pivot and spin
// for moons as pure functions of wall-clock time.
func (e *Engine) applyLiveRotations(now time.Time) {
	for i := range e.bodies {
		h := Handle(i)
		b := e.arena.Body(h)
		st := &e.bodies[i]
		switch {
		case b.Kind == KindMoon && b.Parent != NoBody:
			st.pivot = astro.Sign(b.OrbitDays) * astro.DayFraction(now, b.OrbitDays) * 2 * math.Pi
			st.spin = astro.DayFraction(now, b.SpinDays) * 2 * math.Pi
		case b.HasElements:
			st.spin = astro.DayFraction(now, b.SpinDays) * 2 * math.Pi * astro.Sign(b.SpinDays)
		}
	}
}

// SetPositionMode switches position model. Entering Live places bodies at
// once. Leaving Live re-derives each pivot from the body's last absolute
// position so the first simulated frame continues from where it was drawn.
func (e *Engine) SetPositionMode(mode PositionMode, now time.Time) {
	prev := e.mode
	e.mode = mode

	if mode == Live {
		e.SyncToWallClock(now)
		return
	}
	if prev != Live {
		return
	}

	e.lastLive = time.Time{}
	for i := range e.bodies {
		st := &e.bodies[i]
		if !st.live {
			continue
		}
		p := st.anchor
		st.pivot = p.YAngle()
		st.anchor = astro.Vec3{X: p.HorizontalRadius(), Y: p.Y}
		st.live = false
		st.displaced = true
	}
}

// SetDataMode selects the Live position source. Leaving Accurate discards
// the snapshot.
func (e *Engine) SetDataMode(mode DataMode) {
	e.data = mode
	if mode == Educational {
		e.snapshot = nil
	}
}

// ApplySnapshot installs an ephemeris snapshot and switches to Accurate.
// In Live mode positions are refreshed at once; in Simulated mode the
// snapshot is used on the next switch to Live.
func (e *Engine) ApplySnapshot(s *ephem.Snapshot, now time.Time) {
	e.snapshot = s
	e.data = Accurate
	if e.mode == Live {
		e.refreshLive(now)
	}
}

// ClearSnapshot drops the snapshot and returns to Educational data.
func (e *Engine) ClearSnapshot() {
	e.SetDataMode(Educational)
}

// PivotAngle returns the orbit pivot rotation for h.
func (e *Engine) PivotAngle(h Handle) float64 {
	return e.bodies[h].pivot
}

// SpinAngle returns the axial spin for h.
func (e *Engine) SpinAngle(h Handle) float64 {
	return e.bodies[h].spin
}

// Anchor returns the position of h under its pivot.
func (e *Engine) Anchor(h Handle) astro.Vec3 {
	return e.bodies[h].anchor
}

// LocalPosition returns h relative to its parent's anchor (or the Sun).
func (e *Engine) LocalPosition(h Handle) astro.Vec3 {
	b := e.arena.Body(h)
	st := &e.bodies[h]
	p := st.anchor.RotateY(st.pivot)
	if b.Kind == KindMoon && b.Tilt != 0 {
		p = p.RotateZ(astro.DegToRad(b.Tilt))
	}
	return p
}

// WorldPosition returns the display-frame position of h.
func (e *Engine) WorldPosition(h Handle) astro.Vec3 {
	b := e.arena.Body(h)
	p := e.LocalPosition(h)
	if b.Parent != NoBody {
		p = p.Add(e.WorldPosition(b.Parent))
	}
	return p
}

// Write pushes pivot rotation, world position and spin for every body.
func (e *Engine) Write(sink scene.Sink) {
	for i := range e.bodies {
		h := Handle(i)
		b := e.arena.Body(h)
		st := &e.bodies[i]
		if b.Pivot.Valid() {
			sink.SetRotationY(b.Pivot, st.pivot)
		}
		if b.Mesh.Valid() {
			sink.SetPosition(b.Mesh, e.WorldPosition(h))
			sink.SetSpin(b.Mesh, st.spin)
		}
	}
}
