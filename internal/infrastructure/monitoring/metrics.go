package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the content host. All record
// methods are safe to call on a nil *Metrics.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Navigation metrics
	LoadAttempts        *prometheus.CounterVec
	LoadOutcomes        *prometheus.CounterVec
	RetriesScheduled    prometheus.Counter
	RetryBudgetExhausts prometheus.Counter
	NavigationDecisions *prometheus.CounterVec
	FetchDuration       prometheus.Histogram

	// Bridge metrics
	BridgeMessages *prometheus.CounterVec
	BridgeDropped  *prometheus.CounterVec

	// Presentation metrics
	PhaseTransitions *prometheus.CounterVec

	// Audio metrics
	AudioHandles prometheus.Gauge
	AudioResumes *prometheus.CounterVec

	// Session and WebSocket metrics
	SessionsActive prometheus.Gauge
	WSConnections  prometheus.Gauge
	WSMessages     *prometheus.CounterVec

	registry prometheus.Registerer
}

// NewMetrics registers metrics with the default Prometheus registerer.
// Call it once per process.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry registers metrics with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhost_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webhost_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		LoadAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhost_load_attempts_total",
				Help: "Content load requests issued, by trigger",
			},
			[]string{"trigger"},
		),
		LoadOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhost_load_outcomes_total",
				Help: "Content load outcomes by result and failure kind",
			},
			[]string{"result", "kind"},
		),
		RetriesScheduled: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "webhost_retries_scheduled_total",
				Help: "Provisional failure retries scheduled",
			},
		),
		RetryBudgetExhausts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "webhost_retry_budget_exhausted_total",
				Help: "Sessions that spent their whole retry budget",
			},
		),
		NavigationDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhost_navigation_decisions_total",
				Help: "Navigation policy decisions",
			},
			[]string{"decision"},
		),
		FetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "webhost_fetch_duration_seconds",
				Help:    "Headless document fetch duration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15, 30},
			},
		),

		BridgeMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhost_bridge_messages_total",
				Help: "Bridge messages accepted, by type",
			},
			[]string{"type"},
		),
		BridgeDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhost_bridge_messages_dropped_total",
				Help: "Malformed bridge messages dropped, by reason",
			},
			[]string{"reason"},
		),

		PhaseTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhost_loading_phase_transitions_total",
				Help: "Loading surface phase transitions",
			},
			[]string{"to"},
		),

		AudioHandles: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "webhost_audio_handles",
				Help: "Audio contexts tracked for the current document",
			},
		),
		AudioResumes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhost_audio_resumes_total",
				Help: "Audio resume passes, by trigger",
			},
			[]string{"trigger"},
		),

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "webhost_sessions_active",
				Help: "Number of live controller sessions",
			},
		),
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "webhost_ws_connections",
				Help: "Number of active shell WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhost_ws_messages_total",
				Help: "Total number of shell WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}
}

// Gatherer returns the registry metrics were registered with when it can be
// scraped, or the default gatherer.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m != nil {
		if g, ok := m.registry.(prometheus.Gatherer); ok {
			return g
		}
	}
	return prometheus.DefaultGatherer
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordLoadAttempt records a load request; trigger is "start", "retry",
// "reconnect" or "subordinate".
func (m *Metrics) RecordLoadAttempt(trigger string) {
	if m == nil {
		return
	}
	m.LoadAttempts.WithLabelValues(trigger).Inc()
}

// RecordLoadOutcome records how a load attempt ended.
func (m *Metrics) RecordLoadOutcome(result, kind string) {
	if m == nil {
		return
	}
	m.LoadOutcomes.WithLabelValues(result, kind).Inc()
}

// IncRetriesScheduled counts a scheduled retry.
func (m *Metrics) IncRetriesScheduled() {
	if m == nil {
		return
	}
	m.RetriesScheduled.Inc()
}

// IncRetryBudgetExhausted counts a spent retry budget.
func (m *Metrics) IncRetryBudgetExhausted() {
	if m == nil {
		return
	}
	m.RetryBudgetExhausts.Inc()
}

// RecordNavigationDecision records an allow-list decision.
func (m *Metrics) RecordNavigationDecision(decision string) {
	if m == nil {
		return
	}
	m.NavigationDecisions.WithLabelValues(decision).Inc()
}

// ObserveFetch records a headless document fetch duration.
func (m *Metrics) ObserveFetch(duration time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(duration.Seconds())
}

// RecordBridgeMessage records an accepted bridge message.
func (m *Metrics) RecordBridgeMessage(msgType string) {
	if m == nil {
		return
	}
	m.BridgeMessages.WithLabelValues(msgType).Inc()
}

// RecordBridgeDropped records a dropped bridge message.
func (m *Metrics) RecordBridgeDropped(reason string) {
	if m == nil {
		return
	}
	m.BridgeDropped.WithLabelValues(reason).Inc()
}

// RecordPhaseTransition records a loading phase change.
func (m *Metrics) RecordPhaseTransition(to string) {
	if m == nil {
		return
	}
	m.PhaseTransitions.WithLabelValues(to).Inc()
}

// SetAudioHandles sets the number of tracked audio contexts.
func (m *Metrics) SetAudioHandles(count int) {
	if m == nil {
		return
	}
	m.AudioHandles.Set(float64(count))
}

// RecordAudioResume records a resume pass.
func (m *Metrics) RecordAudioResume(trigger string) {
	if m == nil {
		return
	}
	m.AudioResumes.WithLabelValues(trigger).Inc()
}

// SetSessionsActive sets the number of live sessions.
func (m *Metrics) SetSessionsActive(count int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(count))
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}
