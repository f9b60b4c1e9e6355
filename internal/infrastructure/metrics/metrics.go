// Package metrics exports engine events as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Observer implements ports.Observer on a Prometheus registry.
type Observer struct {
	matches    *prometheus.CounterVec
	rejected   *prometheus.CounterVec
	delivery   prometheus.Histogram
	segments   prometheus.Counter
	resets     prometheus.Counter
	entries    prometheus.Gauge
	bestScores prometheus.Histogram
}

// New registers the keyreply metrics on reg.
func New(reg prometheus.Registerer) *Observer {
	f := promauto.With(reg)
	return &Observer{
		matches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "keyreply_match_total",
			Help: "Replies selected, by entry and kind (match or fallback)",
		}, []string{"entry", "kind"}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "keyreply_rejected_total",
			Help: "Inputs ignored, by reason",
		}, []string{"reason"}),
		delivery: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "keyreply_delivery_seconds",
			Help:    "Time from first to last segment of a reply",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}),
		segments: f.NewCounter(prometheus.CounterOpts{
			Name: "keyreply_segments_total",
			Help: "Reply segments delivered",
		}),
		resets: f.NewCounter(prometheus.CounterOpts{
			Name: "keyreply_resets_total",
			Help: "Destructive resets scheduled",
		}),
		entries: f.NewGauge(prometheus.GaugeOpts{
			Name: "keyreply_knowledge_entries",
			Help: "Entries in the current knowledge base",
		}),
		bestScores: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "keyreply_match_score",
			Help:    "Best keyword score of each handled input",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32},
		}),
	}
}

// Matched implements ports.Observer.
func (o *Observer) Matched(entryID string, score int, fallback bool) {
	kind := "match"
	if fallback {
		kind = "fallback"
	}
	o.matches.WithLabelValues(entryID, kind).Inc()
	o.bestScores.Observe(float64(score))
}

// Rejected implements ports.Observer.
func (o *Observer) Rejected(reason string) {
	o.rejected.WithLabelValues(reason).Inc()
}

// Delivered implements ports.Observer.
func (o *Observer) Delivered(segments int, elapsed time.Duration) {
	o.segments.Add(float64(segments))
	o.delivery.Observe(elapsed.Seconds())
}

// ResetScheduled implements ports.Observer.
func (o *Observer) ResetScheduled() {
	o.resets.Inc()
}

// KnowledgeLoaded implements ports.Observer.
func (o *Observer) KnowledgeLoaded(entries int) {
	o.entries.Set(float64(entries))
}
