package dialogue

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the dialogue controller. All
// recording methods are nil-safe so the controller can run unmetered.
type Metrics struct {
	registry *prometheus.Registry

	TurnsTotal   *prometheus.CounterVec
	TurnDuration prometheus.Histogram

	StageFaultsTotal *prometheus.CounterVec

	CrisisLevelsTotal *prometheus.CounterVec

	BargeInsTotal *prometheus.CounterVec

	SessionsActive prometheus.Gauge
	SessionsSwept  prometheus.Counter
}

// NewMetrics creates a Metrics instance with its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "sonara"
	}

	registry := prometheus.NewRegistry()

	turnsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total dialogue turns processed",
		},
		[]string{"action", "emotion"},
	)

	turnDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Turn pipeline duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	stageFaultsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_faults_total",
			Help:      "Pipeline stage faults recovered with fallbacks",
		},
		[]string{"stage"},
	)

	crisisLevelsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crisis_levels_total",
			Help:      "Crisis assessments by categorical level",
		},
		[]string{"level"},
	)

	bargeInsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "barge_ins_total",
			Help:      "Barge-in evaluations that yielded the floor",
		},
		[]string{"resume"},
	)

	sessionsActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of live sessions in the store",
		},
	)

	sessionsSwept := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_swept_total",
			Help:      "Sessions removed by the inactivity sweeper",
		},
	)

	registry.MustRegister(
		turnsTotal,
		turnDuration,
		stageFaultsTotal,
		crisisLevelsTotal,
		bargeInsTotal,
		sessionsActive,
		sessionsSwept,
	)

	return &Metrics{
		registry:          registry,
		TurnsTotal:        turnsTotal,
		TurnDuration:      turnDuration,
		StageFaultsTotal:  stageFaultsTotal,
		CrisisLevelsTotal: crisisLevelsTotal,
		BargeInsTotal:     bargeInsTotal,
		SessionsActive:    sessionsActive,
		SessionsSwept:     sessionsSwept,
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordTurn records a completed turn.
func (m *Metrics) RecordTurn(action FlowAction, emotion Emotion, duration time.Duration) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(string(action), string(emotion)).Inc()
	m.TurnDuration.Observe(duration.Seconds())
}

// RecordStageFault records a recovered pipeline stage fault.
func (m *Metrics) RecordStageFault(stage string) {
	if m == nil {
		return
	}
	m.StageFaultsTotal.WithLabelValues(stage).Inc()
}

// RecordCrisisLevel records one assessment's categorical level.
func (m *Metrics) RecordCrisisLevel(level CrisisLevel) {
	if m == nil {
		return
	}
	m.CrisisLevelsTotal.WithLabelValues(string(level)).Inc()
}

// RecordBargeIn records a yield decision.
func (m *Metrics) RecordBargeIn(resume ResumeStrategy) {
	if m == nil {
		return
	}
	m.BargeInsTotal.WithLabelValues(string(resume)).Inc()
}

// SetActiveSessions updates the live session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(n))
}

// RecordSweep records sessions removed by the inactivity sweeper.
func (m *Metrics) RecordSweep(removed int) {
	if m == nil || removed <= 0 {
		return
	}
	m.SessionsSwept.Add(float64(removed))
}
