package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects pipeline counters. All counters are safe for
// concurrent use.
type Metrics struct {
	ParseOutcomes *prometheus.CounterVec // terminal status per attempt
	ParseFailures *prometheus.CounterVec // failure reason breakdown
	Alerts        *prometheus.CounterVec // alerts raised by type and severity
	ParseDuration prometheus.Histogram
}

// New registers the pipeline metrics on reg. Pass
// prometheus.DefaultRegisterer outside tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ParseOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "invoicescan",
			Name:      "parse_outcomes_total",
			Help:      "Terminal pipeline outcomes by status.",
		}, []string{"status"}),
		ParseFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "invoicescan",
			Name:      "parse_failures_total",
			Help:      "Failed parse attempts by reason.",
		}, []string{"reason"}),
		Alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "invoicescan",
			Name:      "alerts_total",
			Help:      "Validation alerts raised by type and severity.",
		}, []string{"type", "severity"}),
		ParseDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "invoicescan",
			Name:      "parse_duration_seconds",
			Help:      "Wall time of one parse attempt.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.ParseOutcomes, m.ParseFailures, m.Alerts, m.ParseDuration)
	}
	return m
}
