// Package metrics holds the prometheus instruments of the tracker. A nil *Metrics is valid and
// records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the tracking loop and publisher.
type Metrics struct {
	// Frames by pipeline outcome
	Frames *prometheus.CounterVec

	// Per-frame pipeline latency
	FrameLatency prometheus.Histogram

	// Frame source failures by kind
	AcquireErrors *prometheus.CounterVec

	// Detection errors and recovered panics
	DetectErrors prometheus.Counter
	Panics       prometheus.Counter

	// Datagrams by result
	Publishes *prometheus.CounterVec

	// Loop state, one gauge per state name set to 1 for the current state
	LoopState *prometheus.GaugeVec

	// Latest smoothed position per axis
	Position *prometheus.GaugeVec
}

// New creates the tracker instruments and registers them with reg. A nil registerer creates
// unregistered instruments.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Frames: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "headtrack_frames_total",
			Help: "Total frames processed by pipeline outcome",
		}, []string{"outcome"}), // outcome: "valid", "no_face", "invalid_depth", "no_reference"

		FrameLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "headtrack_frame_duration_seconds",
			Help:    "Duration of one pipeline iteration excluding frame acquisition",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.02, 0.033, 0.05, 0.1, 0.25},
		}),

		AcquireErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "headtrack_acquire_errors_total",
			Help: "Total frame acquisition failures by kind",
		}, []string{"kind"}), // kind: "transient", "fatal"

		DetectErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "headtrack_detect_errors_total",
			Help: "Total landmark detection failures",
		}),

		Panics: factory.NewCounter(prometheus.CounterOpts{
			Name: "headtrack_frame_panics_total",
			Help: "Total panics recovered while processing a frame",
		}),

		Publishes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "headtrack_publishes_total",
			Help: "Total publish attempts by result",
		}, []string{"result"}), // result: "sent", "skipped", "failed"

		LoopState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "headtrack_loop_state",
			Help: "Current tracking loop state",
		}, []string{"state"}),

		Position: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "headtrack_position_meters",
			Help: "Latest smoothed head position in camera space",
		}, []string{"axis"}),
	}
}

// IncrementFrame records the outcome of one frame.
func (m *Metrics) IncrementFrame(outcome string) {
	if m != nil {
		m.Frames.WithLabelValues(outcome).Inc()
	}
}

// ObserveFrameLatency records how long a frame took to process.
func (m *Metrics) ObserveFrameLatency(d time.Duration) {
	if m != nil {
		m.FrameLatency.Observe(d.Seconds())
	}
}

// IncrementAcquireError records a frame source failure.
func (m *Metrics) IncrementAcquireError(fatal bool) {
	if m == nil {
		return
	}
	kind := "transient"
	if fatal {
		kind = "fatal"
	}
	m.AcquireErrors.WithLabelValues(kind).Inc()
}

// IncrementDetectError records a landmark detection failure.
func (m *Metrics) IncrementDetectError() {
	if m != nil {
		m.DetectErrors.Inc()
	}
}

// IncrementPanic records a recovered panic.
func (m *Metrics) IncrementPanic() {
	if m != nil {
		m.Panics.Inc()
	}
}

// IncrementPublish records a publish attempt.
func (m *Metrics) IncrementPublish(result string) {
	if m != nil {
		m.Publishes.WithLabelValues(result).Inc()
	}
}

// SetLoopState marks state as current among all states.
func (m *Metrics) SetLoopState(state string, all []string) {
	if m == nil {
		return
	}
	for _, s := range all {
		value := 0.0
		if s == state {
			value = 1
		}
		m.LoopState.WithLabelValues(s).Set(value)
	}
}

// SetPosition records the latest smoothed position.
func (m *Metrics) SetPosition(x, y, z float64) {
	if m == nil {
		return
	}
	m.Position.WithLabelValues("x").Set(x)
	m.Position.WithLabelValues("y").Set(y)
	m.Position.WithLabelValues("z").Set(z)
}
