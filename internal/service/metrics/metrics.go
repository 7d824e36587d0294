package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the certificate authentication
// service.
type Metrics struct {
	// Decision metrics
	DecisionsTotal   *prometheus.CounterVec
	DecisionDuration *prometheus.HistogramVec

	// Chain validation metrics
	ChainValidationsTotal *prometheus.CounterVec
	ChainStatusTotal      *prometheus.CounterVec

	// Revocation metrics
	RevocationChecksTotal *prometheus.CounterVec

	// Hook metrics
	HookInvocationsTotal *prometheus.CounterVec

	// Config metrics
	ConfigReloadsTotal *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics *Metrics

func init() {
	DefaultMetrics = NewMetrics()
}

// NewMetrics creates and registers all metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		// Decision metrics
		DecisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "certauth",
				Name:      "decisions_total",
				Help:      "Total number of authentication decisions",
			},
			[]string{"status", "certificate_type"},
		),
		DecisionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "certauth",
				Name:      "decision_duration_seconds",
				Help:      "Authentication decision duration in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"status"},
		),

		// Chain validation metrics
		ChainValidationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "certauth",
				Subsystem: "chain",
				Name:      "validations_total",
				Help:      "Total number of chain validation attempts",
			},
			[]string{"result"},
		),
		ChainStatusTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "certauth",
				Subsystem: "chain",
				Name:      "status_total",
				Help:      "Chain validation step failures by status code",
			},
			[]string{"status"},
		),

		// Revocation metrics
		RevocationChecksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "certauth",
				Subsystem: "revocation",
				Name:      "checks_total",
				Help:      "Total number of revocation lookups",
			},
			[]string{"mode", "result"},
		),

		// Hook metrics
		HookInvocationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "certauth",
				Subsystem: "hook",
				Name:      "invocations_total",
				Help:      "Total number of hook invocations",
			},
			[]string{"hook", "result"},
		),

		// Config metrics
		ConfigReloadsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "certauth",
				Subsystem: "config",
				Name:      "reloads_total",
				Help:      "Total number of configuration reload attempts",
			},
			[]string{"result"},
		),

		// HTTP metrics
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "certauth",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "certauth",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// RecordDecision records one authentication decision.
func (m *Metrics) RecordDecision(status string, selfSigned bool, duration time.Duration) {
	certType := "chained"
	if selfSigned {
		certType = "self_signed"
	}
	m.DecisionsTotal.WithLabelValues(status, certType).Inc()
	m.DecisionDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordChainValidation records one chain validation attempt and its
// per-step failures.
func (m *Metrics) RecordChainValidation(valid bool, statusCodes []string) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.ChainValidationsTotal.WithLabelValues(result).Inc()
	for _, code := range statusCodes {
		m.ChainStatusTotal.WithLabelValues(code).Inc()
	}
}

// RecordRevocationCheck records one revocation lookup.
func (m *Metrics) RecordRevocationCheck(mode, result string) {
	m.RevocationChecksTotal.WithLabelValues(mode, result).Inc()
}

// RecordHookInvocation records one hook invocation.
func (m *Metrics) RecordHookInvocation(hook, result string) {
	m.HookInvocationsTotal.WithLabelValues(hook, result).Inc()
}

// RecordConfigReload records one configuration reload attempt.
func (m *Metrics) RecordConfigReload(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	m.ConfigReloadsTotal.WithLabelValues(result).Inc()
}
