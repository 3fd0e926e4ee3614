package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config controls metric registration.
type Config struct {
	Enabled bool
	Prefix  string
}

// Collector exposes operational metrics for the telemetry pipeline.
type Collector struct {
	config Config

	recordsCollected *prometheus.CounterVec
	alertsTotal      *prometheus.CounterVec
	sessionsStarted  prometheus.Counter
	sessionsEnded    prometheus.Counter
	sessionDuration  prometheus.Histogram
	writeFailures    *prometheus.CounterVec
}

// NewCollector creates a Prometheus metrics collector
func NewCollector(config Config) *Collector {
	if config.Prefix == "" {
		config.Prefix = "scantrace"
	}
	prefix := config.Prefix

	return &Collector{
		config: config,

		recordsCollected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_records_collected_total",
				Help: "Total number of telemetry records collected",
			},
			[]string{"kind"},
		),
		alertsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_alerts_total",
				Help: "Total number of threshold alerts raised",
			},
			[]string{"type"},
		),
		sessionsStarted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_sessions_started_total",
				Help: "Total number of test sessions started",
			},
		),
		sessionsEnded: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_sessions_ended_total",
				Help: "Total number of test sessions ended",
			},
		),
		sessionDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    prefix + "_session_duration_seconds",
				Help:    "Test session duration in seconds",
				Buckets: []float64{10, 30, 60, 120, 300, 600, 1800, 3600},
			},
		),
		writeFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_store_write_failures_total",
				Help: "Total number of store writes that failed after retry",
			},
			[]string{"table"},
		),
	}
}

// RecordCollected counts a collected record by kind (result/metric/event)
func (c *Collector) RecordCollected(kind string) {
	if !c.config.Enabled {
		return
	}
	c.recordsCollected.WithLabelValues(kind).Inc()
}

// RecordAlert counts a raised threshold alert
func (c *Collector) RecordAlert(alertType string) {
	if !c.config.Enabled {
		return
	}
	c.alertsTotal.WithLabelValues(alertType).Inc()
}

// RecordSessionStarted counts a session start
func (c *Collector) RecordSessionStarted() {
	if !c.config.Enabled {
		return
	}
	c.sessionsStarted.Inc()
}

// RecordSessionEnded counts a session end and observes its duration
func (c *Collector) RecordSessionEnded(duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.sessionsEnded.Inc()
	c.sessionDuration.Observe(duration.Seconds())
}

// RecordWriteFailure counts a store write that failed after retry
func (c *Collector) RecordWriteFailure(table string) {
	if !c.config.Enabled {
		return
	}
	c.writeFailures.WithLabelValues(table).Inc()
}
