// Package metrics provides prometheus instrumentation for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Drop reasons recorded on the candidates counter.
const (
	DropReasonInvalid   = "invalid"
	DropReasonDuplicate = "duplicate"
	DropReasonThreshold = "below_threshold"
)

// Metrics holds the pipeline's prometheus collectors.
type Metrics struct {
	ScanCycles        prometheus.Counter
	CandidatesTotal   prometheus.Counter
	CandidatesDropped *prometheus.CounterVec
	NotificationsSent prometheus.Counter
	NotifyFailures    prometheus.Counter
	PluginRuns        *prometheus.CounterVec
	PluginFailures    *prometheus.CounterVec
	ScrapeDuration    *prometheus.HistogramVec
}

// New creates the collectors and registers them with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScanCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "milesbot_scan_cycles_total",
			Help: "Completed full pipeline runs.",
		}),
		CandidatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "milesbot_candidates_total",
			Help: "Raw promotion candidates entering the pipeline.",
		}),
		CandidatesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "milesbot_candidates_dropped_total",
			Help: "Candidates dropped by the pipeline, by reason.",
		}, []string{"reason"}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "milesbot_notifications_sent_total",
			Help: "Alerts successfully delivered to the chat transport.",
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "milesbot_notify_failures_total",
			Help: "Alert deliveries that failed.",
		}),
		PluginRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "milesbot_plugin_runs_total",
			Help: "Plugin scrape invocations, by plugin and outcome.",
		}, []string{"plugin", "outcome"}),
		PluginFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "milesbot_plugin_failures_total",
			Help: "Plugin scrape failures, by plugin.",
		}, []string{"plugin"}),
		ScrapeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "milesbot_scrape_duration_seconds",
			Help:    "Duration of a single plugin scrape.",
			Buckets: prometheus.DefBuckets,
		}, []string{"plugin"}),
	}

	reg.MustRegister(
		m.ScanCycles,
		m.CandidatesTotal,
		m.CandidatesDropped,
		m.NotificationsSent,
		m.NotifyFailures,
		m.PluginRuns,
		m.PluginFailures,
		m.ScrapeDuration,
	)
	return m
}

// NewUnregistered creates collectors without registering them. Useful in
// tests that construct multiple pipelines.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
