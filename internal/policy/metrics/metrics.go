package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"relaypolicyd/internal/policy/models"
)

// Metrics bundles the daemon's prometheus instruments. Construct it once in
// main; every helper is nil-safe so unit tests can pass nil instead of
// re-registering collectors.
type Metrics struct {
	DecisionsTotal   *prometheus.CounterVec
	DecisionDuration prometheus.Histogram
	OpenConnections  prometheus.Gauge
	IncompleteFrames prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		DecisionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "relaypolicyd_decisions_total",
			Help: "Total policy decisions by terminal action",
		}, []string{"action"}),
		DecisionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "relaypolicyd_decision_duration_seconds",
			Help:    "Latency of one policy decision, gates plus store round trips",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}),
		OpenConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "relaypolicyd_open_connections",
			Help: "Currently open policy connections",
		}),
		IncompleteFrames: promauto.NewCounter(prometheus.CounterOpts{
			Name: "relaypolicyd_incomplete_frames_total",
			Help: "Connections closed by the peer mid-frame",
		}),
	}
}

func (m *Metrics) ObserveDecision(action models.Action, d time.Duration) {
	if m == nil {
		return
	}
	m.DecisionsTotal.WithLabelValues(string(action)).Inc()
	m.DecisionDuration.Observe(d.Seconds())
}

func (m *Metrics) ConnOpened() {
	if m == nil {
		return
	}
	m.OpenConnections.Inc()
}

func (m *Metrics) ConnClosed() {
	if m == nil {
		return
	}
	m.OpenConnections.Dec()
}

func (m *Metrics) IncIncompleteFrames() {
	if m == nil {
		return
	}
	m.IncompleteFrames.Inc()
}
