package perf

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exports engine health to Prometheus. Each instance owns its
// registry so several engines (or tests) can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	frameDuration  prometheus.Histogram
	ticksTotal     prometheus.Counter
	pixelRatio     prometheus.Gauge
	cameraDistance prometheus.Gauge
	pointBudget    *prometheus.GaugeVec
	reveal         *prometheus.GaugeVec
	ephemeris      *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		frameDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "orrery_frame_duration_seconds",
				Help:    "Time between consecutive ticks",
				Buckets: []float64{0.004, 0.008, 0.012, 0.014, 0.017, 0.023, 0.033, 0.05},
			},
		),
		ticksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "orrery_ticks_total",
				Help: "Total number of processed ticks",
			},
		),
		pixelRatio: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "orrery_pixel_ratio",
				Help: "Current render pixel ratio",
			},
		),
		cameraDistance: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "orrery_camera_distance",
				Help: "Camera distance to its target in display units",
			},
		),
		pointBudget: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "orrery_point_budget",
				Help: "Visible point count per layer",
			},
			[]string{"layer"},
		),
		reveal: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "orrery_reveal_factor",
				Help: "Scale-context reveal factor (0-1)",
			},
			[]string{"context"},
		),
		ephemeris: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orrery_ephemeris_fetches_total",
				Help: "Ephemeris snapshot fetches by outcome",
			},
			[]string{"outcome"},
		),
	}

	m.registry.MustRegister(
		m.frameDuration,
		m.ticksTotal,
		m.pixelRatio,
		m.cameraDistance,
		m.pointBudget,
		m.reveal,
		m.ephemeris,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveFrame records one tick of dtMs milliseconds.
func (m *Metrics) ObserveFrame(dtMs float64) {
	m.frameDuration.Observe(dtMs / 1000)
	m.ticksTotal.Inc()
}

// SetPixelRatio records the render pixel ratio.
func (m *Metrics) SetPixelRatio(r float64) {
	m.pixelRatio.Set(r)
}

// SetCameraDistance records the camera distance.
func (m *Metrics) SetCameraDistance(d float64) {
	m.cameraDistance.Set(d)
}

// SetPointBudget records a layer's visible point count.
func (m *Metrics) SetPointBudget(layer string, n int) {
	m.pointBudget.WithLabelValues(layer).Set(float64(n))
}

// SetReveal records the galaxy and universe reveal factors.
func (m *Metrics) SetReveal(galaxy, universe float64) {
	m.reveal.WithLabelValues("galaxy").Set(galaxy)
	m.reveal.WithLabelValues("universe").Set(universe)
}

// EphemerisFetch counts a fetch outcome ("ok" or "fallback").
func (m *Metrics) EphemerisFetch(outcome string) {
	m.ephemeris.WithLabelValues(outcome).Inc()
}
