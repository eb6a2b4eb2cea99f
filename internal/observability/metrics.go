// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/songzhibin97/prospector/internal/models"
)

const defaultNamespace = "prospector"

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	registry *prometheus.Registry

	// Chain data metrics
	ProviderCalls   *prometheus.CounterVec
	ProviderLatency *prometheus.HistogramVec

	// Price metrics
	PriceLookups *prometheus.CounterVec

	// Scoring metrics
	OverallScores prometheus.Histogram
	TierTotal     *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics registers every metric on its own registry, so several
// instances can coexist in one process.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = defaultNamespace
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ProviderCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "provider_calls_total",
			Help:      "Chain data provider calls by provider, operation and outcome",
		}, []string{"provider", "operation", "outcome"}),
		ProviderLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "provider_call_duration_seconds",
			Help:      "Chain data provider call latency",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"provider", "operation"}),

		PriceLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "price",
			Name:      "lookups_total",
			Help:      "ETH price lookups by outcome (hit, shared_hit, refresh, fallback)",
		}, []string{"outcome"}),

		OverallScores: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "overall_score",
			Help:      "Distribution of overall qualification scores",
			Buckets:   prometheus.LinearBuckets(10, 10, 9),
		}),
		TierTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "risk_tier_total",
			Help:      "Scored wallets by risk tier",
		}, []string{"tier"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveProviderCall records one chain data provider call.
func (m *Metrics) ObserveProviderCall(provider, operation, outcome string, elapsed time.Duration) {
	m.ProviderCalls.WithLabelValues(provider, operation, outcome).Inc()
	m.ProviderLatency.WithLabelValues(provider, operation).Observe(elapsed.Seconds())
}

// ObservePriceLookup records one price cache lookup.
func (m *Metrics) ObservePriceLookup(outcome string) {
	m.PriceLookups.WithLabelValues(outcome).Inc()
}

// ObserveScore records a produced qualification score.
func (m *Metrics) ObserveScore(tier models.RiskTier, overallScore float64) {
	m.OverallScores.Observe(overallScore)
	m.TierTotal.WithLabelValues(string(tier)).Inc()
}

// ObserveHTTPRequest records a served request.
func (m *Metrics) ObserveHTTPRequest(route, method string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
