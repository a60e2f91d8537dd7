package sim

import (
	"time"

	"github.com/litescript/ls-orrery/internal/astro"
	"github.com/litescript/ls-orrery/internal/camera"
	"github.com/litescript/ls-orrery/internal/orbit"
	"github.com/litescript/ls-orrery/internal/perf"
	"github.com/litescript/ls-orrery/internal/scale"
	"github.com/litescript/ls-orrery/internal/scene"
)

// BodyFrame is one body's display-frame position. Held marks a body frozen
// in Live mode for lack of live data.
type BodyFrame struct {
	Name     string     `json:"name"`
	Kind     string     `json:"kind"`
	Radius   float64    `json:"radius"`
	Position astro.Vec3 `json:"position"`
	Held     bool       `json:"held,omitempty"`
}

// FrameOutput is what one tick produced, for hosts that do not read the
// scene sink directly (the terminal view, the bridge, headless summaries).
type FrameOutput struct {
	Frame        uint64         `json:"frame"`
	Time         time.Time      `json:"time"`
	DtMs         float64        `json:"dtMs"`
	Camera       camera.Pose    `json:"camera"`
	CameraState  string         `json:"cameraState"`
	Distance     float64        `json:"distance"`
	ScalePct     float64        `json:"scalePct"`
	Visibility   scale.Snapshot `json:"visibility"`
	PixelRatio   float64        `json:"pixelRatio"`
	PositionMode string         `json:"positionMode"`
	DataMode     string         `json:"dataMode"`
	Warp         float64        `json:"warp"`
	Selected     string         `json:"selected,omitempty"`
	Hovered      string         `json:"hovered,omitempty"`
	Provenance   Provenance     `json:"provenance"`
	Bodies       []BodyFrame    `json:"bodies"`

	// Panel is set on ticks that refreshed the performance readout.
	Panel *perf.PanelValues `json:"panel,omitempty"`
	// Benchmark is set on the tick that finished the benchmark.
	Benchmark *perf.BenchmarkResult `json:"benchmark,omitempty"`
	// Scene holds the scene writes of this tick when the sink tracks them.
	Scene *scene.Delta `json:"scene,omitempty"`
}

// Body returns the named body's frame.
func (f FrameOutput) Body(name string) (BodyFrame, bool) {
	for _, b := range f.Bodies {
		if b.Name == name {
			return b, true
		}
	}
	return BodyFrame{}, false
}

func (o *Orchestrator) output(now time.Time, dt time.Duration, dist, ratio float64) FrameOutput {
	st := o.state
	arena := st.Engine.Arena()

	out := FrameOutput{
		Frame:        st.Frame,
		Time:         now,
		DtMs:         float64(dt) / float64(time.Millisecond),
		Camera:       st.Rig.Pose(),
		CameraState:  st.Rig.State().String(),
		Distance:     dist,
		ScalePct:     st.Scale.Thresholds().DistanceToScalePct(dist),
		Visibility:   st.Scale.Snapshot(),
		PixelRatio:   ratio,
		PositionMode: st.Engine.Mode().String(),
		DataMode:     st.Engine.DataMode().String(),
		Warp:         st.Engine.Warp(),
		Provenance:   st.Provenance,
		Bodies:       make([]BodyFrame, arena.Len()),
	}
	if sel := st.Rig.Selection(); sel.Selected() {
		out.Selected = arena.Body(orbit.Handle(sel.Body)).Name
	}
	if h := st.Highlight.Hovered(); arena.Valid(h) {
		out.Hovered = arena.Body(h).Name
	}
	for i := range out.Bodies {
		h := orbit.Handle(i)
		b := arena.Body(h)
		out.Bodies[i] = BodyFrame{
			Name:     b.Name,
			Kind:     b.Kind.String(),
			Radius:   b.Radius,
			Position: st.Engine.WorldPosition(h),
			Held:     st.Engine.LiveHeld(h),
		}
	}
	return out
}
