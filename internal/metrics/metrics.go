// Package metrics exposes Prometheus counters for report runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "trahn_pnl"

type Metrics struct {
	registry *prometheus.Registry

	// Normalization
	RecordsNormalized *prometheus.CounterVec
	RecordsMalformed  *prometheus.CounterVec
	RecordsSkipped    *prometheus.CounterVec

	// Ledger
	SellsMatched   prometheus.Counter
	Shortfalls     prometheus.Counter
	OpenLots       prometheus.Gauge
	ReplayDuration *prometheus.HistogramVec

	// Reports
	ReportsGenerated *prometheus.CounterVec
	ReportErrors     *prometheus.CounterVec
}

// New registers every metric on a fresh registry, plus the Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RecordsNormalized: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalize",
			Name:      "records_total",
			Help:      "Trade records normalized, by source",
		}, []string{"source"}),
		RecordsMalformed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalize",
			Name:      "malformed_total",
			Help:      "Trade records rejected as malformed, by source",
		}, []string{"source"}),
		RecordsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalize",
			Name:      "skipped_total",
			Help:      "Non-trade entries skipped, by source",
		}, []string{"source"}),

		SellsMatched: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "sells_matched_total",
			Help:      "Sells depleted against the ledger",
		}),
		Shortfalls: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "shortfalls_total",
			Help:      "Sells that exceeded the known cost basis",
		}),
		OpenLots: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "open_lots",
			Help:      "Open lots after the most recent replay",
		}),
		ReplayDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "replay_duration_seconds",
			Help:      "Ledger replay duration, by mode",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"mode"}),

		ReportsGenerated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "generated_total",
			Help:      "Reports generated, by kind",
		}, []string{"kind"}),
		ReportErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "errors_total",
			Help:      "Reports that failed, by kind",
		}, []string{"kind"}),
	}
}

// Handler serves this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
