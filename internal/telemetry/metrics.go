// Package telemetry exposes Prometheus metrics for analysis runs and the
// HTTP surface.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sawpanic/hedgehub/internal/backtest"
)

// MetricsRegistry holds all Prometheus metrics for HedgeHub
type MetricsRegistry struct {
	registry *prometheus.Registry

	// Analysis run metrics
	AnalysesTotal *prometheus.CounterVec
	RunDuration   *prometheus.HistogramVec
	PairEligible  *prometheus.GaugeVec

	// Simulated trade metrics
	TradesTotal  *prometheus.CounterVec
	TradeHolding prometheus.Histogram

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewMetricsRegistry creates and registers every HedgeHub metric on a
// private registry, plus the Go runtime and process collectors
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		registry: prometheus.NewRegistry(),

		AnalysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hedgehub_analyses_total",
				Help: "Total number of analysis runs by outcome",
			},
			[]string{"outcome"},
		),

		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hedgehub_analysis_duration_seconds",
				Help:    "Duration of analysis runs in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"outcome"},
		),

		PairEligible: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hedgehub_pair_eligible",
				Help: "Last eligibility verdict per pair (1=eligible, 0=not)",
			},
			[]string{"pair"},
		),

		TradesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hedgehub_simulated_trades_total",
				Help: "Total number of simulated trades by exit reason",
			},
			[]string{"reason"},
		),

		TradeHolding: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hedgehub_trade_holding_periods",
				Help:    "Holding period of simulated trades in bars",
				Buckets: []float64{1, 2, 5, 10, 20, 40, 60, 120, 250},
			},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hedgehub_http_requests_total",
				Help: "Total number of HTTP requests by route, method and status",
			},
			[]string{"route", "method", "code"},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hedgehub_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.AnalysesTotal,
		m.RunDuration,
		m.PairEligible,
		m.TradesTotal,
		m.TradeHolding,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// Registry returns the underlying registry, for tests and extra collectors
func (m *MetricsRegistry) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records one analysis run
func (m *MetricsRegistry) ObserveRun(outcome string, elapsed time.Duration) {
	m.AnalysesTotal.WithLabelValues(outcome).Inc()
	m.RunDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveEligibility records the latest verdict for a pair
func (m *MetricsRegistry) ObserveEligibility(pair string, eligible bool) {
	v := 0.0
	if eligible {
		v = 1
	}
	m.PairEligible.WithLabelValues(pair).Set(v)
}

// ObserveTrades records each closed trade of a run
func (m *MetricsRegistry) ObserveTrades(blotter []backtest.BlotterRow) {
	for _, tr := range blotter {
		m.TradesTotal.WithLabelValues(tr.Reason.String()).Inc()
		m.TradeHolding.Observe(float64(tr.HoldingPeriods))
	}
}

// ObserveHTTP records one served request
func (m *MetricsRegistry) ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// MetricsHandler returns an HTTP handler for Prometheus metrics
func (m *MetricsRegistry) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
