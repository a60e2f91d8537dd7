package scale

import (
	"fmt"
	"math"

	"github.com/litescript/ls-orrery/internal/perf"
	"github.com/litescript/ls-orrery/internal/scene"
)

// Initializer builds a lazily created part of the scene. It runs at most
// once per Manager.
type Initializer func()

// tristate is an edge-trigger latch that starts out unknown so the first
// observation always writes.
type tristate int8

const (
	unknown tristate = iota
	off
	on
)

// set records v and reports whether it differs from the previous value.
func (t *tristate) set(v bool) bool {
	next := off
	if v {
		next = on
	}
	if *t == next {
		return false
	}
	*t = next
	return true
}

// Config assembles a Manager.
type Config struct {
	Thresholds Thresholds
	Layers     []Layer
	Strategy   Strategy

	// SolarDetail lists the planet meshes and orbit lines hidden when the
	// camera leaves the solar system.
	SolarDetail []scene.Handle

	InitGalaxy   Initializer
	InitUniverse Initializer
}

type boundLayer struct {
	Layer
	handles []scene.Handle
}

// Manager tracks the camera distance and writes visibility, opacity, scale
// and draw-range changes for every distance-tiered layer.
type Manager struct {
	th       Thresholds
	reg      *scene.Registry
	specs    []Layer
	layers   []boundLayer
	strategy Strategy
	budgets  *perf.BudgetScaler

	solarDetail []scene.Handle

	initGalaxy    Initializer
	initUniverse  Initializer
	galaxyReady   bool
	universeReady bool

	lastDist float64
	lastGA   float64
	lastUA   float64
	gA, uA   float64

	galaxyGroup   tristate
	universeGroup tristate
	legacyGalaxy  tristate
	legacyUniv    tristate
	belt          tristate
	kuiper        tristate
	solar         tristate
}

// NewManager validates cfg and binds its layers to the registry. Zero
// thresholds, a nil layer list and a nil strategy select the defaults.
func NewManager(reg *scene.Registry, cfg Config) (*Manager, error) {
	th := cfg.Thresholds
	if th == (Thresholds{}) {
		th = DefaultThresholds()
	}
	if err := th.Validate(); err != nil {
		return nil, err
	}
	specs := cfg.Layers
	if specs == nil {
		specs = DefaultLayers()
	}
	if err := ValidateLayers(specs); err != nil {
		return nil, err
	}
	strategy := cfg.Strategy
	if strategy == nil {
		strategy = Unified{}
	}
	m := &Manager{
		th:           th,
		reg:          reg,
		specs:        specs,
		strategy:     strategy,
		budgets:      perf.NewBudgetScaler(),
		solarDetail:  cfg.SolarDetail,
		initGalaxy:   cfg.InitGalaxy,
		initUniverse: cfg.InitUniverse,
		lastDist:     -1,
		lastGA:       -1,
		lastUA:       -1,
	}
	m.bind()
	return m, nil
}

// bind resolves layer objects to handles. It runs again after each lazy
// initializer since those register new objects.
func (m *Manager) bind() {
	m.layers = m.layers[:0]
	for _, l := range m.specs {
		b := boundLayer{Layer: l}
		for _, pattern := range l.Objects {
			b.handles = append(b.handles, m.reg.Match(pattern)...)
		}
		m.layers = append(m.layers, b)
	}
}

// Thresholds returns the active boundaries.
func (m *Manager) Thresholds() Thresholds {
	return m.th
}

// Strategy returns the active visibility strategy.
func (m *Manager) Strategy() Strategy {
	return m.strategy
}

// Budgets returns the point-budget scaler driven by Update.
func (m *Manager) Budgets() *perf.BudgetScaler {
	return m.budgets
}

// SetSolarDetail replaces the solar detail handles. The next gating pass
// rewrites their visibility.
func (m *Manager) SetSolarDetail(handles []scene.Handle) {
	m.solarDetail = handles
	m.solar = unknown
}

// Update processes one camera distance. Distances that moved less than
// MinDistanceChange since the last processed one only run the strategy's
// per-tick gating.
func (m *Manager) Update(d float64, sink scene.Sink) {
	processed := m.pass(d, sink)
	m.strategy.gate(m, d, processed, sink)
}

func (m *Manager) pass(d float64, sink scene.Sink) bool {
	if m.lastDist >= 0 && math.Abs(d-m.lastDist) < MinDistanceChange {
		return false
	}
	m.lastDist = d

	if d >= m.th.GalaxyVisibleAt() {
		m.ensureGalaxy()
	}
	if d >= m.th.UniverseVisibleAt() {
		m.ensureGalaxy()
		m.ensureUniverse()
	}

	m.budgets.Update(d, sink)

	m.gA = m.th.GalaxyReveal(d)
	m.uA = m.th.UniverseReveal(d)
	gaChanged := math.Abs(m.gA-m.lastGA) > MinRevealChange
	uaChanged := math.Abs(m.uA-m.lastUA) > MinRevealChange
	if !gaChanged && !uaChanged {
		return true
	}
	m.lastGA = m.gA
	m.lastUA = m.uA

	galaxyVisible := d >= m.th.GalaxyVisibleAt()
	universeVisible := d >= m.th.UniverseVisibleAt()
	for _, l := range m.layers {
		switch l.Context {
		case ContextGalaxy:
			if !galaxyVisible {
				continue
			}
		case ContextBelt:
			if !gaChanged {
				continue
			}
		case ContextUniverse:
			if !universeVisible || !uaChanged {
				continue
			}
		}
		m.writeLayer(l, sink)
	}
	return true
}

func (m *Manager) writeLayer(l boundLayer, sink scene.Sink) {
	op := l.Opacity(m.gA, m.uA)
	for _, h := range l.handles {
		sink.SetOpacity(h, op)
	}
	if !l.Scales() {
		return
	}
	s := l.Scale(m.gA, m.uA)
	for _, h := range l.handles {
		sink.SetScale(h, s)
	}
}

func (m *Manager) ensureGalaxy() {
	if m.galaxyReady {
		return
	}
	m.galaxyReady = true
	if m.initGalaxy != nil {
		m.initGalaxy()
	}
	m.bind()
	m.forceFade()
}

func (m *Manager) ensureUniverse() {
	if m.universeReady {
		return
	}
	m.universeReady = true
	if m.initUniverse != nil {
		m.initUniverse()
	}
	m.bind()
	m.forceFade()
}

// forceFade makes the next fade pass write every layer, so objects created
// by an initializer start at the right opacity.
func (m *Manager) forceFade() {
	m.lastGA = -1
	m.lastUA = -1
}

// setGroups writes the galaxy and universe group flags on change, once
// each group exists.
func (m *Manager) setGroups(galaxy, universe bool, sink scene.Sink) {
	if m.galaxyReady && m.galaxyGroup.set(galaxy) {
		m.setVisible(ObjGalaxyGroup, galaxy, sink)
	}
	if m.universeReady && m.universeGroup.set(universe) {
		m.setVisible(ObjUniverseGroup, universe, sink)
	}
}

func (m *Manager) setVisible(name string, v bool, sink scene.Sink) {
	for _, h := range m.reg.Match(name) {
		sink.SetVisible(h, v)
	}
}

// gateBelts shows each belt only inside its distance band.
func (m *Manager) gateBelts(d float64, sink scene.Sink) {
	if m.belt.set(d > m.th.BeltMin && d < m.th.BeltMax) {
		m.setVisible(ObjBeltGroup, m.belt == on, sink)
	}
	if m.kuiper.set(d > m.th.KuiperMin && d < m.th.KuiperMax) {
		m.setVisible(ObjKuiper, m.kuiper == on, sink)
	}
}

// gateSolar hides solar detail at SolarHide and restores it only once the
// camera is back inside SolarShow. Between the two the last state holds.
func (m *Manager) gateSolar(d float64, sink scene.Sink) {
	var v bool
	switch {
	case d >= m.th.SolarHide:
		v = false
	case d < m.th.SolarShow:
		v = true
	default:
		return
	}
	if !m.solar.set(v) {
		return
	}
	for _, h := range m.solarDetail {
		sink.SetVisible(h, v)
	}
}

// Snapshot is a read-only view of the manager's last decisions.
type Snapshot struct {
	Distance            float64
	ScalePct            float64
	GalaxyReveal        float64
	UniverseReveal      float64
	GalaxyVisible       bool
	UniverseVisible     bool
	AsteroidBeltVisible bool
	KuiperBeltVisible   bool
	SolarDetailVisible  bool
	GalaxyReady         bool
	UniverseReady       bool
}

// Snapshot returns the state as of the last processed distance.
func (m *Manager) Snapshot() Snapshot {
	d := math.Max(m.lastDist, 0)
	return Snapshot{
		Distance:            d,
		ScalePct:            m.th.DistanceToScalePct(d),
		GalaxyReveal:        m.gA,
		UniverseReveal:      m.uA,
		GalaxyVisible:       m.galaxyGroup == on,
		UniverseVisible:     m.universeGroup == on,
		AsteroidBeltVisible: m.belt == on,
		KuiperBeltVisible:   m.kuiper == on,
		SolarDetailVisible:  m.solar != off,
		GalaxyReady:         m.galaxyReady,
		UniverseReady:       m.universeReady,
	}
}

// Visible reports whether a tier is currently drawn.
func (s Snapshot) Visible(t Tier) bool {
	switch t {
	case TierSolarDetail:
		return s.SolarDetailVisible
	case TierAsteroidBelt:
		return s.AsteroidBeltVisible
	case TierKuiperBelt:
		return s.KuiperBeltVisible
	case TierGalaxy:
		return s.GalaxyVisible
	case TierUniverse:
		return s.UniverseVisible
	}
	return false
}

// BudgetCurve is a distance-thinning rule for one point layer.
type BudgetCurve struct {
	Object string
	Near   float64
	Far    float64
	Start  float64
	End    float64
}

// DefaultBudgetCurves returns the thinning rules of the default scene.
func DefaultBudgetCurves(th Thresholds) []BudgetCurve {
	return []BudgetCurve{
		{ObjStarsNear, 1, 0.7, 0, 24e6},
		{ObjStarsFar, 1, 0.75, 0, 24e6},
		{ObjBeltDust, 1, 0.5, 50, 2000},
		{ObjBeltMedium, 1, 0.45, 50, 2200},
		{ObjBeltLarge, 1, 0.4, 50, 2600},
		{ObjBeltGlow, 1, 0.35, 50, 2600},
		{ObjKuiper, 1, 0.35, 90, 3400},
		{ObjMilkyWayBand, 1, 0.55, th.GalaxyStart, th.UniverseStart},
		{ObjGalacticBar, 1, 0.55, th.GalaxyStart, th.UniverseStart},
		{ObjUniverseField, 1, 0.6, th.UniverseStart, th.UniverseFull},
		{ObjClusters, 1, 0.55, th.UniverseStart, th.UniverseFull},
		{ObjNamedPoints, 1, 0.6, th.UniverseStart, th.UniverseFull},
	}
}

// RegisterBudgets binds each curve to its scene object. Objects missing
// from bases start with a zero base and are skipped until SetBase.
func (m *Manager) RegisterBudgets(curves []BudgetCurve, bases map[string]int) error {
	for _, c := range curves {
		spec := perf.BudgetSpec{
			Name:   c.Object,
			Handle: m.reg.Lookup(c.Object),
			Base:   bases[c.Object],
			Near:   c.Near,
			Far:    c.Far,
			Start:  c.Start,
			End:    c.End,
		}
		if err := m.budgets.Register(spec); err != nil {
			return fmt.Errorf("failed to register point budget: %w", err)
		}
	}
	return nil
}
