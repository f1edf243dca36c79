// Package metrics exposes capture counters in the Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Proposal outcomes.
const (
	OutcomeDetected = "detected"
	OutcomeNoHand   = "no_hand"
	OutcomeError    = "error"
)

// Metrics holds the capture collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	proposals       *prometheus.CounterVec
	commits         *prometheus.CounterVec
	videos          prometheus.Counter
	proposeDuration prometheus.Histogram
}

// New creates and registers the capture collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		proposals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signcapture_proposals_total",
			Help: "Capture proposals by outcome.",
		}, []string{"outcome"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signcapture_commits_total",
			Help: "Sample commits by result.",
		}, []string{"result"}),
		videos: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signcapture_videos_total",
			Help: "Video clips stored.",
		}),
		proposeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signcapture_propose_duration_seconds",
			Help:    "Time spent decoding, detecting and rendering a proposal.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(m.proposals, m.commits, m.videos, m.proposeDuration)
	return m
}

// ObserveProposal records one proposal and how long it took.
func (m *Metrics) ObserveProposal(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.proposals.WithLabelValues(outcome).Inc()
	m.proposeDuration.Observe(elapsed.Seconds())
}

// ObserveCommit records one commit attempt.
func (m *Metrics) ObserveCommit(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.commits.WithLabelValues(result).Inc()
}

// ObserveVideo records one stored clip.
func (m *Metrics) ObserveVideo() {
	if m == nil {
		return
	}
	m.videos.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
