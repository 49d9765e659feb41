package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// FrameCollector bundles the Prometheus metrics of the frame loop and its
// external inputs, and exposes them over HTTP.
type FrameCollector struct {
	gatherer prometheus.Gatherer

	Frames            prometheus.Counter
	FrameDuration     prometheus.Histogram
	OrbitProgress     prometheus.Gauge
	InputEvents       *prometheus.CounterVec
	DegradedFeatures  *prometheus.CounterVec
	OrientationSensor prometheus.Gauge
	StreamClients     prometheus.Gauge
}

// NewFrameCollector registers the metrics against reg, defaulting to the
// global Prometheus registry when nil. Collectors that are already
// registered are reused.
func NewFrameCollector(reg prometheus.Registerer) (*FrameCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	frames, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orrery_frames_total",
		Help: "Total number of frames produced by the frame loop.",
	}), "orrery_frames_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orrery_frame_duration_seconds",
		Help:    "Time spent composing a frame and delivering it to every sink.",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.016, 0.033, 0.1},
	}), "orrery_frame_duration_seconds")
	if err != nil {
		return nil, err
	}

	progress, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orrery_orbit_progress",
		Help: "Current normalised progress of the Earth along its orbit.",
	}), "orrery_orbit_progress")
	if err != nil {
		return nil, err
	}

	inputs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orrery_input_events_total",
		Help: "External input events applied to the scene, labeled by kind.",
	}, []string{"kind"}), "orrery_input_events_total")
	if err != nil {
		return nil, err
	}

	degraded, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orrery_degraded_features_total",
		Help: "Optional features that were disabled at runtime, labeled by feature and reason.",
	}, []string{"feature", "reason"}), "orrery_degraded_features_total")
	if err != nil {
		return nil, err
	}

	sensor, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orrery_orientation_sensor_available",
		Help: "1 when orientation readings are being applied, 0 otherwise.",
	}), "orrery_orientation_sensor_available")
	if err != nil {
		return nil, err
	}

	clients, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orrery_stream_clients",
		Help: "Number of connected WebSocket stream clients.",
	}), "orrery_stream_clients")
	if err != nil {
		return nil, err
	}

	return &FrameCollector{
		gatherer:          gatherer,
		Frames:            frames,
		FrameDuration:     duration,
		OrbitProgress:     progress,
		InputEvents:       inputs,
		DegradedFeatures:  degraded,
		OrientationSensor: sensor,
		StreamClients:     clients,
	}, nil
}

// ObserveFrame records one produced frame. Safe on a nil collector.
func (c *FrameCollector) ObserveFrame(progress float64, took time.Duration) {
	if c == nil {
		return
	}
	c.Frames.Inc()
	c.FrameDuration.Observe(took.Seconds())
	c.OrbitProgress.Set(progress)
}

// ObserveInput counts an applied input event.
func (c *FrameCollector) ObserveInput(kind string) {
	if c == nil {
		return
	}
	c.InputEvents.WithLabelValues(kind).Inc()
}

// ObserveDegraded counts a feature that fell back to "absent".
func (c *FrameCollector) ObserveDegraded(feature, reason string) {
	if c == nil {
		return
	}
	c.DegradedFeatures.WithLabelValues(feature, reason).Inc()
}

// SetOrientationAvailable flips the orientation capability gauge.
func (c *FrameCollector) SetOrientationAvailable(available bool) {
	if c == nil {
		return
	}
	if available {
		c.OrientationSensor.Set(1)
	} else {
		c.OrientationSensor.Set(0)
	}
}

// SetStreamClients satisfies the stream hub's client-count recorder.
func (c *FrameCollector) SetStreamClients(n int) {
	if c == nil {
		return
	}
	c.StreamClients.Set(float64(n))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *FrameCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
