package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and gauges for the watcher.
type Metrics struct {
	FetchAttempts       *prometheus.CounterVec // labels: source, outcome={success,network,protocol,malformed}
	ConsecutiveFailures *prometheus.GaugeVec   // labels: source
	SamplesIngested     *prometheus.CounterVec // labels: source

	CurrentLIS      prometheus.Gauge
	ShortFuseActive prometheus.Gauge
	StaleSource     *prometheus.GaugeVec // labels: source; 1 when the latest sample is stale

	AlertsDecided    *prometheus.CounterVec // labels: kind, trigger
	DispatchAttempts *prometheus.CounterVec // labels: channel, outcome={success,error}

	SchedulerRunning prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solarwatch",
			Name:      "fetch_attempts_total",
			Help:      "Telemetry fetch attempts by source and outcome.",
		}, []string{"source", "outcome"}),
		ConsecutiveFailures: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "solarwatch",
			Name:      "fetch_consecutive_failures",
			Help:      "Current consecutive fetch failures per source.",
		}, []string{"source"}),
		SamplesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solarwatch",
			Name:      "samples_ingested_total",
			Help:      "Samples accepted by the score engine, by source.",
		}, []string{"source"}),
		CurrentLIS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "solarwatch",
			Name:      "lis_current",
			Help:      "Current Local Impact Score (0-100).",
		}),
		ShortFuseActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "solarwatch",
			Name:      "short_fuse_active",
			Help:      "1 when the solar-wind short-fuse trip-wire is active.",
		}),
		StaleSource: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "solarwatch",
			Name:      "source_stale",
			Help:      "1 when a source's latest sample is older than its staleness bound.",
		}, []string{"source"}),
		AlertsDecided: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solarwatch",
			Name:      "alerts_decided_total",
			Help:      "Alert records produced by the state machine, by kind and trigger.",
		}, []string{"kind", "trigger"}),
		DispatchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solarwatch",
			Name:      "dispatch_attempts_total",
			Help:      "Notification delivery attempts by channel and outcome.",
		}, []string{"channel", "outcome"}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "solarwatch",
			Name:      "scheduler_running",
			Help:      "1 while the cadence scheduler is active.",
		}),
	}
}

// NewMetrics creates the watcher metrics and registers them with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchAttempts,
		m.ConsecutiveFailures,
		m.SamplesIngested,
		m.CurrentLIS,
		m.ShortFuseActive,
		m.StaleSource,
		m.AlertsDecided,
		m.DispatchAttempts,
		m.SchedulerRunning,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so parallel
// tests do not panic with "already registered".
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
