package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/globeview/model"
)

// SceneCollector exposes scene and frame-loop Prometheus metrics.
type SceneCollector struct {
	gatherer prometheus.Gatherer

	Entities         prometheus.Gauge
	PacketsProcessed *prometheus.CounterVec
	FramesTotal      prometheus.Counter
	FrameDuration    prometheus.Histogram
	Primitives       *prometheus.GaugeVec
	NavigationOps    *prometheus.CounterVec
}

// NewSceneCollector registers scene metrics against the provided registerer.
func NewSceneCollector(reg prometheus.Registerer) (*SceneCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	entities, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scene_entities",
		Help: "Current number of entities in the scene collection.",
	}), "scene_entities")
	if err != nil {
		return nil, err
	}

	packets := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scene_packets_processed_total",
		Help: "Scene packets processed, labeled by result (ok, deleted, error).",
	}, []string{"result"})
	packets, err = register(reg, packets, "scene_packets_processed_total")
	if err != nil {
		return nil, err
	}

	frames, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scene_frames_total",
		Help: "Cumulative number of rendered frames.",
	}), "scene_frames_total")
	if err != nil {
		return nil, err
	}

	frameHistogram, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scene_frame_duration_seconds",
		Help:    "Time spent merging packets, updating navigation and visualizers for one frame.",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.016, 0.033, 0.05, 0.1, 0.25},
	}), "scene_frame_duration_seconds")
	if err != nil {
		return nil, err
	}

	primitives := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scene_primitives",
		Help: "Primitives owned by each visualizer, labeled by state (total, shown).",
	}, []string{"visualizer", "state"})
	primitives, err = register(reg, primitives, "scene_primitives")
	if err != nil {
		return nil, err
	}

	navOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "navigation_operations_total",
		Help: "Camera operations applied by the navigation view-model, labeled by scene mode and operation.",
	}, []string{"mode", "operation"})
	navOps, err = register(reg, navOps, "navigation_operations_total")
	if err != nil {
		return nil, err
	}

	return &SceneCollector{
		gatherer:         gathererFor(reg),
		Entities:         entities,
		PacketsProcessed: packets,
		FramesTotal:      frames,
		FrameDuration:    frameHistogram,
		Primitives:       primitives,
		NavigationOps:    navOps,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SceneCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SceneCollector) Handler() http.Handler {
	return handlerFor(c.Gatherer())
}

// SetEntityCount updates the entity gauge.
func (c *SceneCollector) SetEntityCount(n int) {
	if c == nil || c.Entities == nil {
		return
	}
	c.Entities.Set(float64(n))
}

// PacketProcessed counts one packet outcome.
func (c *SceneCollector) PacketProcessed(result string) {
	if c == nil || c.PacketsProcessed == nil {
		return
	}
	c.PacketsProcessed.WithLabelValues(result).Inc()
}

// ObserveFrame records a frame duration measurement.
func (c *SceneCollector) ObserveFrame(d time.Duration) {
	if c == nil {
		return
	}
	if c.FramesTotal != nil {
		c.FramesTotal.Inc()
	}
	if c.FrameDuration != nil {
		c.FrameDuration.Observe(d.Seconds())
	}
}

// SetPrimitiveCounts updates the primitive gauges of one visualizer.
func (c *SceneCollector) SetPrimitiveCounts(visualizer string, total, shown int) {
	if c == nil || c.Primitives == nil {
		return
	}
	c.Primitives.WithLabelValues(visualizer, "total").Set(float64(total))
	c.Primitives.WithLabelValues(visualizer, "shown").Set(float64(shown))
}

// NavigationOperation counts a camera operation.
func (c *SceneCollector) NavigationOperation(mode model.SceneMode, operation string) {
	if c == nil || c.NavigationOps == nil {
		return
	}
	c.NavigationOps.WithLabelValues(mode.String(), operation).Inc()
}

