package pipeline

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/insiderperf/internal/contracts"
)

// Metrics holds all Prometheus metrics of attribution runs
type Metrics struct {
	Registry *prometheus.Registry

	StageDuration *prometheus.HistogramVec
	Runs          *prometheus.CounterVec
	Transactions  prometheus.Counter
	Investors     prometheus.Counter
	Diagnostics   *prometheus.CounterVec
}

// NewMetrics creates the metrics on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "insiderperf_stage_duration_seconds",
				Help:    "Duration of each pipeline stage in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),

		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insiderperf_runs_total",
				Help: "Attribution runs by result",
			},
			[]string{"result"},
		),

		Transactions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "insiderperf_transactions_total",
				Help: "Transactions processed",
			},
		),

		Investors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "insiderperf_investors_total",
				Help: "Investor profiles produced",
			},
		),

		Diagnostics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insiderperf_diagnostics_total",
				Help: "Diagnostics emitted by code",
			},
			[]string{"code"},
		),
	}

	m.Registry.MustRegister(
		m.StageDuration,
		m.Runs,
		m.Transactions,
		m.Investors,
		m.Diagnostics,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler exposes the registry for scraping
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeDiagnostics(counts map[contracts.DiagnosticCode]int) {
	for code, n := range counts {
		m.Diagnostics.WithLabelValues(string(code)).Add(float64(n))
	}
}
