package orbit

import (
	"math"
	"testing"
	"time"

	"github.com/litescript/ls-orrery/internal/astro"
	"github.com/litescript/ls-orrery/internal/ephem"
	"github.com/litescript/ls-orrery/internal/kepler"
	"github.com/litescript/ls-orrery/internal/scene"
)

const frame = 16 * time.Millisecond

var testNow = time.Date(2024, 3, 20, 3, 6, 0, 0, time.UTC)

// fixedRand returns a deterministic phase source.
func fixedRand() func() float64 {
	v := 0.0
	return func() float64 {
		v += 0.137
		return v - math.Floor(v)
	}
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *Arena) {
	t.Helper()
	if cfg.LiveInterval == 0 {
		cfg.LiveInterval = 100 * time.Millisecond
	}
	a := DefaultArena(fixedRand())
	return NewEngine(a, cfg), a
}

func mustLookup(t *testing.T, a *Arena, name string) Handle {
	t.Helper()
	h, ok := a.Lookup(name)
	if !ok {
		t.Fatalf("body %q not in arena", name)
	}
	return h
}

func TestSliderToTimeWarp(t *testing.T) {
	tests := []struct {
		v    float64
		want float64
	}{
		{-10, 0.01},
		{0, 0.01},
		{50, 0.01 * math.Sqrt(36500)},
		{100, 365},
	}
	for _, tt := range tests {
		got := SliderToTimeWarp(tt.v)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("SliderToTimeWarp(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestParseModes(t *testing.T) {
	if m, err := ParsePositionMode("live"); err != nil || m != Live {
		t.Errorf("ParsePositionMode(live) = %v, %v", m, err)
	}
	if m, err := ParsePositionMode("SIM"); err != nil || m != Simulated {
		t.Errorf("ParsePositionMode(SIM) = %v, %v", m, err)
	}
	if _, err := ParsePositionMode("warp"); err == nil {
		t.Error("expected error for unknown position mode")
	}
	if m, err := ParseDataMode("accurate"); err != nil || m != Accurate {
		t.Errorf("ParseDataMode(accurate) = %v, %v", m, err)
	}
	if _, err := ParseDataMode("precise"); err == nil {
		t.Error("expected error for unknown data mode")
	}
	if Live.String() != "live" || Accurate.String() != "accurate" {
		t.Error("unexpected mode strings")
	}
}

func TestWarpConvergesToTarget(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	target := SliderToTimeWarp(100)
	e.SetTimeWarpTarget(target)

	now := testNow
	for i := 0; i < 100; i++ { // one second
		now = now.Add(10 * time.Millisecond)
		e.Advance(10*time.Millisecond, now)
	}
	if rel := math.Abs(e.Warp()-target) / target; rel > 0.01 {
		t.Errorf("warp after 1s = %v, want within 1%% of %v", e.Warp(), target)
	}
}

func TestSimulatedAdvance(t *testing.T) {
	e, a := newTestEngine(t, Config{InitialWarp: 10})
	mars := mustLookup(t, a, "Mars")
	venus := mustLookup(t, a, "Venus")
	triton := mustLookup(t, a, "Triton")

	p0 := e.PivotAngle(mars)
	t0 := e.PivotAngle(triton)
	s0 := e.SpinAngle(venus)

	simDays := e.Advance(time.Second, testNow)
	if math.Abs(simDays-10) > 1e-9 {
		t.Fatalf("simDays = %v, want 10", simDays)
	}

	if got, want := e.PivotAngle(mars)-p0, 2*math.Pi*10/687; math.Abs(got-want) > 1e-9 {
		t.Errorf("Mars pivot delta = %v, want %v", got, want)
	}
	if d := e.PivotAngle(triton) - t0; d >= 0 {
		t.Errorf("Triton pivot delta = %v, want negative (retrograde)", d)
	}
	if got, want := e.SpinAngle(venus)-s0, -2*math.Pi*10/243; math.Abs(got-want) > 1e-9 {
		t.Errorf("Venus spin delta = %v, want %v", got, want)
	}
}

func TestStaticFrameFreezesMotion(t *testing.T) {
	e, a := newTestEngine(t, Config{StaticFrame: true})
	earth := mustLookup(t, a, "Earth")
	before := e.WorldPosition(earth)

	for i := 0; i < 50; i++ {
		if d := e.Advance(frame, testNow); d != 0 {
			t.Fatalf("Advance returned %v sim days in static mode", d)
		}
	}
	if e.WorldPosition(earth) != before {
		t.Error("body moved in static frame mode")
	}
}

func TestLivePositionsFollowElements(t *testing.T) {
	e, a := newTestEngine(t, Config{})
	e.SetPositionMode(Live, testNow)

	mars := mustLookup(t, a, "Mars")
	b := a.Body(mars)
	want := kepler.DisplayPosition(b.Elements, kepler.DayNumber(testNow), b.OrbitRadius)
	if got := e.WorldPosition(mars); got.DistanceTo(want) > 1e-9 {
		t.Errorf("Mars live position = %+v, want %+v", got, want)
	}
	if e.PivotAngle(mars) != 0 {
		t.Errorf("Mars pivot = %v, want 0 in live mode", e.PivotAngle(mars))
	}
	if !e.LastLiveUpdate().Equal(testNow) {
		t.Errorf("LastLiveUpdate = %v, want %v", e.LastLiveUpdate(), testNow)
	}
}

func TestLiveRefreshInterval(t *testing.T) {
	e, _ := newTestEngine(t, Config{LiveInterval: 100 * time.Millisecond})
	e.SetPositionMode(Live, testNow)

	e.Advance(frame, testNow.Add(50*time.Millisecond))
	if !e.LastLiveUpdate().Equal(testNow) {
		t.Error("live positions refreshed before the interval elapsed")
	}

	later := testNow.Add(150 * time.Millisecond)
	e.Advance(frame, later)
	if !e.LastLiveUpdate().Equal(later) {
		t.Errorf("LastLiveUpdate = %v, want %v", e.LastLiveUpdate(), later)
	}
}

func TestLiveRotationsAreWallClock(t *testing.T) {
	e, a := newTestEngine(t, Config{})
	e.SetPositionMode(Live, testNow)

	moon := mustLookup(t, a, "Moon")
	triton := mustLookup(t, a, "Triton")
	venus := mustLookup(t, a, "Venus")

	if got, want := e.PivotAngle(moon), astro.DayFraction(testNow, 27.32)*2*math.Pi; math.Abs(got-want) > 1e-9 {
		t.Errorf("Moon pivot = %v, want %v", got, want)
	}
	if got, want := e.PivotAngle(triton), -astro.DayFraction(testNow, 5.88)*2*math.Pi; math.Abs(got-want) > 1e-9 {
		t.Errorf("Triton pivot = %v, want %v", got, want)
	}
	if got, want := e.SpinAngle(venus), -astro.DayFraction(testNow, 243)*2*math.Pi; math.Abs(got-want) > 1e-9 {
		t.Errorf("Venus spin = %v, want %v", got, want)
	}
}

func TestLiveHoldsBodiesWithoutElements(t *testing.T) {
	e, a := newTestEngine(t, Config{})
	ceres := mustLookup(t, a, "Ceres")
	if a.Body(ceres).HasElements {
		t.Fatal("Ceres unexpectedly has elements")
	}
	now := testNow
	for i := 0; i < 10; i++ {
		now = now.Add(frame)
		e.Advance(frame, now)
	}

	e.SetPositionMode(Live, now)
	pivot, spin, pos := e.PivotAngle(ceres), e.SpinAngle(ceres), e.WorldPosition(ceres)
	for i := 0; i < 120; i++ {
		now = now.Add(frame)
		if d := e.Advance(frame, now); d != 0 {
			t.Fatalf("Live Advance returned %v simulated days, want 0", d)
		}
	}
	if e.PivotAngle(ceres) != pivot || e.SpinAngle(ceres) != spin {
		t.Errorf("Ceres moved in Live mode: pivot %v -> %v, spin %v -> %v",
			pivot, e.PivotAngle(ceres), spin, e.SpinAngle(ceres))
	}
	if got := e.WorldPosition(ceres); got.DistanceTo(pos) > 1e-12 {
		t.Errorf("Ceres position %+v -> %+v", pos, got)
	}

	if !e.LiveHeld(ceres) {
		t.Error("Ceres should be reported as held in Live mode")
	}
	if e.LiveHeld(mustLookup(t, a, "Earth")) || e.LiveHeld(mustLookup(t, a, "Moon")) {
		t.Error("element-driven bodies and moons are not held")
	}

	e.SetPositionMode(Simulated, now)
	if e.LiveHeld(ceres) {
		t.Error("nothing is held outside Live mode")
	}
	now = now.Add(time.Second)
	e.Advance(time.Second, now)
	if e.PivotAngle(ceres) == pivot {
		t.Error("Ceres should resume orbiting in Simulated mode")
	}
}

func TestLiveToSimulatedKeepsPositions(t *testing.T) {
	e, a := newTestEngine(t, Config{})

	now := testNow
	for i := 0; i < 30; i++ {
		now = now.Add(frame)
		e.Advance(frame, now)
	}
	e.SetPositionMode(Live, now)
	for i := 0; i < 30; i++ {
		now = now.Add(frame)
		e.Advance(frame, now)
	}

	before := make([]astro.Vec3, a.Len())
	for i := range before {
		before[i] = e.WorldPosition(Handle(i))
	}

	e.SetPositionMode(Simulated, now)
	for i := range before {
		if got := e.WorldPosition(Handle(i)); got.DistanceTo(before[i]) > 1e-9 {
			t.Errorf("%s jumped on switch: %+v -> %+v", a.Body(Handle(i)).Name, before[i], got)
		}
	}

	now = now.Add(frame)
	e.Advance(frame, now)
	for _, h := range a.Navigable() {
		if d := e.WorldPosition(h).DistanceTo(before[h]); d > 1 {
			t.Errorf("%s moved %v units on the first simulated frame", a.Body(h).Name, d)
		}
	}
}

func TestDisplacedAnchorRelaxes(t *testing.T) {
	e, a := newTestEngine(t, Config{})
	e.SetPositionMode(Live, testNow)
	e.SetPositionMode(Simulated, testNow)

	pluto := mustLookup(t, a, "Pluto")
	home := astro.Vec3{X: a.Body(pluto).OrbitRadius}
	if e.Anchor(pluto).DistanceTo(home) < 1e-3 {
		t.Fatal("expected Pluto's anchor to start off its circular orbit")
	}

	now := testNow
	for i := 0; i < 20*60; i++ { // twenty seconds
		now = now.Add(frame)
		e.Advance(frame, now)
	}
	if got := e.Anchor(pluto); got != home {
		t.Errorf("Pluto anchor = %+v, want %+v", got, home)
	}
}

func TestAccurateSnapshot(t *testing.T) {
	e, a := newTestEngine(t, Config{})
	snap := &ephem.Snapshot{
		Source: ephem.SourceHorizons,
		Bodies: map[string]ephem.Point{
			"Mars": {X: 1.5, Y: 0, Z: 0},
		},
	}
	e.ApplySnapshot(snap, testNow)
	if e.DataMode() != Accurate {
		t.Fatalf("DataMode = %v, want accurate", e.DataMode())
	}
	e.SetPositionMode(Live, testNow)

	mars := mustLookup(t, a, "Mars")
	s := a.Body(mars).OrbitRadius / a.Body(mars).Elements.SemiMajorAxis()
	want := astro.Vec3{X: 1.5 * s}
	if got := e.WorldPosition(mars); got.DistanceTo(want) > 1e-9 {
		t.Errorf("Mars position = %+v, want %+v", got, want)
	}

	// Bodies missing from the snapshot use the analytic elements.
	earth := mustLookup(t, a, "Earth")
	b := a.Body(earth)
	wantEarth := kepler.DisplayPosition(b.Elements, kepler.DayNumber(testNow), b.OrbitRadius)
	if got := e.WorldPosition(earth); got.DistanceTo(wantEarth) > 1e-9 {
		t.Errorf("Earth position = %+v, want %+v", got, wantEarth)
	}

	e.ClearSnapshot()
	if e.Snapshot() != nil || e.DataMode() != Educational {
		t.Error("ClearSnapshot should drop the snapshot and return to educational")
	}
}

func TestMoonFollowsParent(t *testing.T) {
	e, a := newTestEngine(t, Config{})
	earth := mustLookup(t, a, "Earth")
	moon := mustLookup(t, a, "Moon")

	rel := e.WorldPosition(moon).Sub(e.WorldPosition(earth))
	if got, want := rel.Norm(), a.Body(moon).OrbitRadius; math.Abs(got-want) > 1e-9 {
		t.Errorf("Moon distance from Earth = %v, want %v", got, want)
	}
}

func TestWriteUsesHandles(t *testing.T) {
	e, a := newTestEngine(t, Config{})
	reg := scene.NewRegistry()
	a.BindHandles(reg)
	rec := scene.NewRecorder()

	e.Advance(frame, testNow)
	e.Write(rec)

	jupiter := mustLookup(t, a, "Jupiter")
	obj, ok := rec.Object(a.Body(jupiter).Mesh)
	if !ok {
		t.Fatal("no writes recorded for Jupiter's mesh")
	}
	if obj.Position.DistanceTo(e.WorldPosition(jupiter)) > 1e-12 {
		t.Errorf("mesh position = %+v, want %+v", obj.Position, e.WorldPosition(jupiter))
	}
	piv, _ := rec.Object(a.Body(jupiter).Pivot)
	if piv.RotationY != e.PivotAngle(jupiter) {
		t.Errorf("pivot rotation = %v, want %v", piv.RotationY, e.PivotAngle(jupiter))
	}
}
