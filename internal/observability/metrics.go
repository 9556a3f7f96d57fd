package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for radar polling.
type Metrics struct {
	Updates         *prometheus.CounterVec   // labels: radar, outcome={success,network,schema,empty_catalog}
	ResolveDuration *prometheus.HistogramVec // labels: radar
	LastSuccess     *prometheus.GaugeVec     // labels: radar
	ScanAge         *prometheus.GaugeVec     // labels: radar
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Updates,
		m.ResolveDuration,
		m.LastSuccess,
		m.ScanAge,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meteoradar",
			Name:      "updates_total",
			Help:      "Sensor updates by radar and outcome.",
		}, []string{"radar", "outcome"}),
		ResolveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "meteoradar",
			Name:      "resolve_duration_seconds",
			Help:      "Duration of a catalog fetch and scan resolution.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"radar"}),
		LastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "meteoradar",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful resolution.",
		}, []string{"radar"}),
		ScanAge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "meteoradar",
			Name:      "scan_age_seconds",
			Help:      "Age of the latest resolved scan at poll time.",
		}, []string{"radar"}),
	}
}
