// Package sim runs one frame of the viewer: it owns every piece of mutable
// simulation state and advances each subsystem exactly once per tick, in
// dependency order.
package sim

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/litescript/ls-orrery/internal/astro"
	"github.com/litescript/ls-orrery/internal/camera"
	"github.com/litescript/ls-orrery/internal/config"
	"github.com/litescript/ls-orrery/internal/ephem"
	"github.com/litescript/ls-orrery/internal/logging"
	"github.com/litescript/ls-orrery/internal/orbit"
	"github.com/litescript/ls-orrery/internal/perf"
	"github.com/litescript/ls-orrery/internal/pointcloud"
	"github.com/litescript/ls-orrery/internal/scale"
	"github.com/litescript/ls-orrery/internal/scene"
	"github.com/litescript/ls-orrery/internal/telemetry"
)

const (
	// MaxFrameDelta bounds a single tick's time step so a stalled host does
	// not cause a catch-up jump.
	MaxFrameDelta = 50 * time.Millisecond

	// HoverMaxDistance is the camera distance beyond which hovering is
	// ignored.
	HoverMaxDistance = 500.0

	// InputQueueSize bounds inputs waiting for the next tick.
	InputQueueSize = 256
)

// Provenance sources.
const (
	SourceAnalytic = "Low-precision analytic elements"
	SourceHorizons = "NASA JPL Horizons"
)

// Provenance describes where the Live positions come from.
type Provenance struct {
	Mode      string    `json:"mode"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Label is the short user-facing name of the data mode.
func (p Provenance) Label() string {
	if p.Mode == orbit.Accurate.String() {
		return "High Accuracy"
	}
	return "Educational"
}

func analytic(now time.Time) Provenance {
	return Provenance{Mode: orbit.Educational.String(), Source: SourceAnalytic, UpdatedAt: now.UTC()}
}

// Config is fixed for the session.
type Config struct {
	Tier               perf.Tier
	DevicePixelRatio   float64
	Profile            config.RenderProfile
	Seed               uint32
	StaticFrame        bool
	AutoRotate         bool
	AdaptiveResolution bool
	PositionMode       orbit.PositionMode
	DataMode           orbit.DataMode
	Thresholds         scale.Thresholds
	Layers             []scale.Layer

	Benchmark     bool
	BenchWarmup   time.Duration
	BenchDuration time.Duration
}

// ConfigFrom resolves the startup configuration.
func ConfigFrom(c *config.Config) (Config, error) {
	tier, err := c.Tier()
	if err != nil {
		return Config{}, err
	}
	profile, err := c.RenderProfile()
	if err != nil {
		return Config{}, err
	}
	seed, err := c.ResolveSeed()
	if err != nil {
		return Config{}, err
	}
	layers, err := c.Layers()
	if err != nil {
		return Config{}, err
	}
	pm, dm := c.Modes()
	return Config{
		Tier:               tier,
		DevicePixelRatio:   c.Device.PixelRatio,
		Profile:            profile,
		Seed:               seed,
		StaticFrame:        c.StaticFrame,
		AutoRotate:         c.AutoRotate,
		AdaptiveResolution: c.AdaptiveResolution,
		PositionMode:       pm,
		DataMode:           dm,
		Thresholds:         c.Thresholds,
		Layers:             layers,
		Benchmark:          c.Benchmark.Enabled,
		BenchWarmup:        c.Benchmark.Warmup,
		BenchDuration:      c.Benchmark.Duration,
	}, nil
}

// Deps are the collaborators of an Orchestrator. Every field is optional.
type Deps struct {
	Sink      scene.Sink
	Store     *ephem.Store
	Telemetry *telemetry.Emitter
	Metrics   *perf.Metrics
	Clouds    *pointcloud.Generator
	Logger    *logging.Logger
}

// SimulationState is every piece of mutable state of a session. It is
// owned by one Orchestrator and only changed inside Tick.
type SimulationState struct {
	Scene      *Scene
	Engine     *orbit.Engine
	Rig        *camera.Rig
	Scale      *scale.Manager
	Highlight  *orbit.Highlighter
	Resolution *perf.ResolutionScaler
	Sampler    *perf.Sampler
	Panel      *perf.Panel
	Benchmark  *perf.Benchmark

	Tier       perf.Tier
	Profile    config.RenderProfile
	Provenance Provenance
	Hidden     bool
	LastTick   time.Time
	Frame      uint64

	fetch       <-chan ephem.Result
	cancelFetch context.CancelFunc
}

// Orchestrator advances a SimulationState once per tick. Tick must be
// called from a single goroutine; Submit may be called from any.
type Orchestrator struct {
	ctx     context.Context
	cfg     Config
	state   *SimulationState
	inputs  chan Input
	sink    scene.Sink
	store   *ephem.Store
	events  *telemetry.Emitter
	metrics *perf.Metrics
	clouds  *pointcloud.Generator
	log     *logging.Logger
	budgets []string
	last    FrameOutput

	// tracker is sink when it can report its writes; resync asks the next
	// tick for the full scene instead of the changes.
	tracker scene.Tracker
	resync  bool
}

// New builds the default scene and every subsystem. Background work
// (ephemeris fetches) is bound to ctx.
func New(ctx context.Context, cfg Config, deps Deps, now time.Time) (*Orchestrator, error) {
	if deps.Sink == nil {
		deps.Sink = scene.Discard{}
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.Clouds == nil {
		deps.Clouds = pointcloud.NewGenerator(pointcloud.Config{Seed: cfg.Seed, Logger: deps.Logger})
	}
	preset := cfg.Tier.Preset()

	phases := pointcloud.NewSource(cfg.Seed)
	arena := orbit.DefaultArena(phases.Float64)
	sc := NewScene(arena)

	st := &SimulationState{
		Scene: sc,
		Engine: orbit.NewEngine(arena, orbit.Config{
			LiveInterval: preset.LiveInterval,
			StaticFrame:  cfg.StaticFrame,
		}),
		Rig:        camera.NewRig(camera.Config{AutoRotate: cfg.AutoRotate && !cfg.StaticFrame}),
		Highlight:  orbit.NewHighlighter(arena),
		Resolution: perf.NewResolutionScaler(cfg.DevicePixelRatio, preset, cfg.AdaptiveResolution && !cfg.StaticFrame),
		Sampler:    perf.NewSampler(perf.DefaultWindow),
		Tier:       cfg.Tier,
		Profile:    cfg.Profile,
		Provenance: analytic(now),
		LastTick:   now,
	}
	st.Panel = perf.NewPanel(st.Sampler)
	if cfg.Benchmark {
		st.Benchmark = perf.NewBenchmark(now, cfg.Profile.Name, cfg.Tier.String(), cfg.BenchWarmup, cfg.BenchDuration)
	}

	var mgr *scale.Manager
	setBases := func(names ...string) {
		for _, name := range names {
			mgr.Budgets().SetBase(name, farBase(name, preset.Quality))
		}
	}
	mgr, err := scale.NewManager(sc.Registry, scale.Config{
		Thresholds:  cfg.Thresholds,
		Layers:      cfg.Layers,
		Strategy:    cfg.Profile.Strategy,
		SolarDetail: sc.SolarDetail,
		InitGalaxy: func() {
			sc.registerGalaxy()
			setBases(scale.ObjMilkyWayBand, scale.ObjGalacticBar)
		},
		InitUniverse: func() {
			sc.registerUniverse()
			setBases(scale.ObjUniverseField, scale.ObjClusters, scale.ObjNamedPoints)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("scale manager: %w", err)
	}
	curves := scale.DefaultBudgetCurves(mgr.Thresholds())
	if err := mgr.RegisterBudgets(curves, nil); err != nil {
		return nil, err
	}
	st.Scale = mgr

	o := &Orchestrator{
		ctx:     ctx,
		cfg:     cfg,
		state:   st,
		inputs:  make(chan Input, InputQueueSize),
		sink:    deps.Sink,
		store:   deps.Store,
		events:  deps.Telemetry,
		metrics: deps.Metrics,
		clouds:  deps.Clouds,
		log:     deps.Logger,
	}
	o.tracker, _ = deps.Sink.(scene.Tracker)
	for _, c := range curves {
		o.budgets = append(o.budgets, c.Object)
	}

	for _, spec := range pointcloud.DefaultClouds(preset.Quality) {
		if _, err := o.clouds.Submit(spec); err != nil {
			return nil, fmt.Errorf("point cloud %s: %w", spec.Object, err)
		}
	}

	o.sink.SetPixelRatio(st.Resolution.Ratio())
	if cfg.PositionMode == orbit.Live {
		st.Engine.SetPositionMode(orbit.Live, now)
	}
	if cfg.DataMode == orbit.Accurate {
		o.setDataMode(orbit.Accurate, now)
	}
	o.emit(telemetry.EventQualityTier, telemetry.Payload{
		"tier":    cfg.Tier.String(),
		"profile": cfg.Profile.Name,
	})
	o.log.Info("simulation ready: %d bodies, tier %s, profile %s", arena.Len(), cfg.Tier, cfg.Profile.Name)
	return o, nil
}

// State returns the simulation state. Callers must not mutate it outside
// the tick goroutine.
func (o *Orchestrator) State() *SimulationState {
	return o.state
}

// Last returns the output of the most recent tick.
func (o *Orchestrator) Last() FrameOutput {
	return o.last
}

// Submit queues an input for the next tick. It never blocks; when the
// queue is full the input is dropped and false is returned.
func (o *Orchestrator) Submit(in Input) bool {
	select {
	case o.inputs <- in:
		return true
	default:
		o.log.Warn("input queue full, dropping %T", in)
		return false
	}
}

// Close cancels a pending ephemeris fetch.
func (o *Orchestrator) Close() {
	o.stopFetch()
}

// Tick advances the simulation to now. It returns false without doing any
// work while the session is hidden.
func (o *Orchestrator) Tick(now time.Time) (FrameOutput, bool) {
	st := o.state
	o.drainInputs(now)
	if st.Hidden {
		// Hidden time is drained, not accumulated.
		st.LastTick = now
		return o.last, false
	}

	dt := min(max(now.Sub(st.LastTick), 0), MaxFrameDelta)
	st.LastTick = now
	dtSec := dt.Seconds()
	dtMs := dtSec * 1000

	o.drainEphemeris(now)
	o.drainClouds()

	st.Engine.Advance(dt, now)
	// Bodies keep moving while hidden by distance; only the writes stop.
	if st.Scale.Snapshot().SolarDetailVisible {
		st.Engine.Write(o.sink)
		st.Highlight.Update(dtSec, o.sink)
	}

	st.Rig.Update(now, dtSec, o.locate)
	dist := st.Rig.Distance()
	if dist > HoverMaxDistance {
		st.Highlight.SetHovered(orbit.NoBody)
	}

	st.Scale.Update(dist, o.sink)

	ratio, changed := st.Resolution.Observe(dtMs)
	if changed {
		o.sink.SetPixelRatio(ratio)
		o.log.Debug("pixel ratio -> %.2f", ratio)
	}

	st.Panel.Sample(dtMs)
	refreshed := st.Panel.Refresh(now, false, func(v *perf.PanelValues) {
		v.PixelRatio = ratio
		v.Adaptive = st.Resolution.Enabled()
		v.Quality = st.Tier.String()
		v.Distance = dist
	})
	o.observe(dtMs, dist, ratio)

	out := o.output(now, dt, dist, ratio)
	if refreshed {
		v := st.Panel.Values()
		out.Panel = &v
	}
	if st.Benchmark != nil && st.Benchmark.Tick(now, ratio) {
		o.finishBenchmark(&out)
	}
	out.Scene = o.sceneDelta()

	st.Frame++
	o.last = out
	return out, true
}

// sceneDelta returns this tick's scene writes, or the whole scene after a
// resync request. It is nil without a tracking sink or when nothing changed.
func (o *Orchestrator) sceneDelta() *scene.Delta {
	if o.tracker == nil {
		return nil
	}
	reg := o.state.Scene.Registry
	var d scene.Delta
	if o.resync {
		d = o.tracker.Snapshot(reg)
		o.resync = false
	} else {
		d = o.tracker.Flush(reg)
	}
	if d.Empty() && !d.Full {
		return nil
	}
	return &d
}

// finishBenchmark attaches and reports the benchmark result. Nothing is
// reported until the run is complete.
func (o *Orchestrator) finishBenchmark(out *FrameOutput) {
	res, ok := o.state.Benchmark.Result()
	if !ok {
		return
	}
	out.Benchmark = &res
	o.emit(telemetry.EventBenchmarkResult, telemetry.Payload{
		"profile":    res.Profile,
		"quality":    res.Quality,
		"fpsAvg":     res.FPSAvg,
		"frameMsAvg": res.FrameMsAvg,
		"frameMsP95": res.FrameMsP95,
		"pixelRatio": res.PixelRatio,
	})
	o.log.Info("benchmark: %s", res.Summary())
}

func (o *Orchestrator) drainInputs(now time.Time) {
	for {
		select {
		case in := <-o.inputs:
			in.apply(o, now)
		default:
			return
		}
	}
}

// drainEphemeris applies a finished snapshot fetch, if any.
func (o *Orchestrator) drainEphemeris(now time.Time) {
	st := o.state
	if st.fetch == nil {
		return
	}
	var res ephem.Result
	select {
	case r, ok := <-st.fetch:
		if !ok {
			r.Err = errors.New("ephemeris fetch ended without a result")
		}
		res = r
	default:
		return
	}
	o.stopFetch()

	if res.Err != nil {
		o.fallback(now, res.Err)
		return
	}
	snap := res.Snapshot
	st.Engine.ApplySnapshot(snap, now)
	source := snap.Source
	if source == "" {
		source = SourceHorizons
	}
	st.Provenance = Provenance{Mode: orbit.Accurate.String(), Source: source, UpdatedAt: snap.GeneratedAt}
	o.emit(telemetry.EventEphemerisMode, telemetry.Payload{
		"mode":    orbit.Accurate.String(),
		"source":  source,
		"validAt": snap.ValidAt.Format(time.RFC3339),
	})
	if o.metrics != nil {
		o.metrics.EphemerisFetch("ok")
	}
	o.log.Info("ephemeris snapshot applied: %s, valid at %s", source, snap.ValidAt.Format(time.RFC3339))
}

// fallback returns to analytic positions after a failed fetch.
func (o *Orchestrator) fallback(now time.Time, err error) {
	o.state.Engine.SetDataMode(orbit.Educational)
	o.state.Provenance = analytic(now)
	o.log.Warn("ephemeris unavailable, using analytic elements: %v", err)
	if o.events != nil {
		o.events.Error("ephemeris.load", err)
	}
	o.emit(telemetry.EventEphemerisFallback, telemetry.Payload{"reason": err.Error()})
	if o.metrics != nil {
		o.metrics.EphemerisFetch("fallback")
	}
}

func (o *Orchestrator) stopFetch() {
	st := o.state
	if st.cancelFetch != nil {
		st.cancelFetch()
	}
	st.fetch, st.cancelFetch = nil, nil
}

// drainClouds hands finished point buffers to the renderer and sizes
// their budgets.
func (o *Orchestrator) drainClouds() {
	results := o.clouds.Drain()
	if len(results) == 0 {
		return
	}
	reg := o.state.Scene.Registry
	budgets := o.state.Scale.Budgets()
	for _, r := range results {
		h := reg.Lookup(r.Object)
		if !h.Valid() {
			o.log.Warn("point cloud for unknown object %q", r.Object)
			continue
		}
		o.sink.SetPositions(h, r.Positions)
		budgets.SetBase(r.Object, len(r.Positions)/3)
	}
	budgets.Update(o.state.Rig.Distance(), o.sink)
}

func (o *Orchestrator) locate(body int) (astro.Vec3, bool) {
	h := orbit.Handle(body)
	if !o.state.Engine.Arena().Valid(h) {
		return astro.Vec3{}, false
	}
	return o.state.Engine.WorldPosition(h), true
}

func (o *Orchestrator) focus(h orbit.Handle, now time.Time) {
	st := o.state
	arena := st.Engine.Arena()
	if !arena.Valid(h) {
		o.log.Warn("focus: invalid body handle %d", h)
		return
	}
	st.Rig.Focus(int(h), st.Engine.WorldPosition(h), arena.Body(h).Radius, now)
	st.Highlight.SetSelected(h)
}

// cycle focuses the next (step 1) or previous (step -1) navigable body.
func (o *Orchestrator) cycle(step int, now time.Time) {
	nav := o.state.Engine.Arena().Navigable()
	if len(nav) == 0 {
		return
	}
	i := slices.Index(nav, orbit.Handle(o.state.Rig.Selection().Body))
	switch {
	case i < 0 && step > 0:
		i = 0
	case i < 0:
		i = len(nav) - 1
	default:
		i = (i + step + len(nav)) % len(nav)
	}
	o.focus(nav[i], now)
}

func (o *Orchestrator) setPositionMode(mode orbit.PositionMode, now time.Time) {
	eng := o.state.Engine
	if eng.Mode() == mode {
		return
	}
	eng.SetPositionMode(mode, now)
	o.emit(telemetry.EventPositionMode, telemetry.Payload{"mode": mode.String()})
	o.log.Info("position mode -> %s", mode)
}

// setDataMode starts a snapshot fetch for Accurate; the result is applied
// by a later tick. Educational drops the snapshot and any pending fetch.
func (o *Orchestrator) setDataMode(mode orbit.DataMode, now time.Time) {
	st := o.state
	if mode != orbit.Accurate {
		o.stopFetch()
		st.Engine.SetDataMode(orbit.Educational)
		st.Provenance = analytic(now)
		return
	}
	if st.fetch != nil || st.Engine.DataMode() == orbit.Accurate {
		return
	}
	if o.store == nil {
		o.fallback(now, errors.New("no ephemeris source configured"))
		return
	}
	ctx, cancel := context.WithCancel(o.ctx)
	st.fetch = o.store.FetchAsync(ctx)
	st.cancelFetch = cancel
	o.log.Debug("ephemeris fetch started")
}

func (o *Orchestrator) emit(t telemetry.EventType, p telemetry.Payload) {
	if o.events != nil {
		o.events.Emit(t, p)
	}
}

func (o *Orchestrator) observe(dtMs, dist, ratio float64) {
	m := o.metrics
	if m == nil {
		return
	}
	m.ObserveFrame(dtMs)
	m.SetPixelRatio(ratio)
	m.SetCameraDistance(dist)
	snap := o.state.Scale.Snapshot()
	m.SetReveal(snap.GalaxyReveal, snap.UniverseReveal)
	budgets := o.state.Scale.Budgets()
	for _, name := range o.budgets {
		if n, ok := budgets.Count(name); ok {
			m.SetPointBudget(name, n)
		}
	}
}
