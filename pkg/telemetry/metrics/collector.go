package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"scopehq/meridian/pkg/scoping"
	"scopehq/meridian/pkg/workflow"
)

const namespace = "meridian"

// Collector registers and records all Prometheus metrics. It implements
// workflow.Observer so the engine can report stage timings and decision
// outcomes without depending on this package.
type Collector struct {
	registry *prometheus.Registry

	decisionsTotal   *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	retrievalResults *prometheus.CounterVec
	feedbackTotal    *prometheus.CounterVec
	ingestedTotal    prometheus.Counter
	chunksIndexed    prometheus.Counter
	prunedTotal      prometheus.Counter
}

var _ workflow.Observer = (*Collector)(nil)

// NewCollector creates a collector and registers its metrics with the
// given registry. A nil registry gets a fresh private registry, which
// keeps tests isolated from each other.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		decisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Scoping decisions persisted, by outcome and confidence band.",
		}, []string{"outcome", "band"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Workflow stage execution time in seconds.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{"stage"}),
		retrievalResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_results_total",
			Help:      "Results returned by retrieval stages, by corpus.",
		}, []string{"corpus"}),
		feedbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_submitted_total",
			Help:      "Feedback submissions accepted, by rating.",
		}, []string{"rating"}),
		ingestedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commitments_ingested_total",
			Help:      "Commitment documents ingested, including re-ingestions.",
		}),
		chunksIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_indexed_total",
			Help:      "Policy chunks embedded and written to the vector index.",
		}),
		prunedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoints_pruned_total",
			Help:      "Checkpoints removed by the retention pruner.",
		}),
	}

	registry.MustRegister(
		c.decisionsTotal,
		c.stageDuration,
		c.retrievalResults,
		c.feedbackTotal,
		c.ingestedTotal,
		c.chunksIndexed,
		c.prunedTotal,
	)
	return c
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveStage records one workflow stage's execution time.
func (c *Collector) ObserveStage(stage workflow.Stage, d time.Duration) {
	c.stageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
}

// ObserveRetrieval records how many results a retrieval stage returned.
func (c *Collector) ObserveRetrieval(corpus string, results int) {
	c.retrievalResults.WithLabelValues(corpus).Add(float64(results))
}

// RecordDecision counts one persisted decision.
func (c *Collector) RecordDecision(outcome scoping.Outcome, band scoping.Band) {
	c.decisionsTotal.WithLabelValues(string(outcome), string(band)).Inc()
}

// RecordFeedback counts one accepted feedback submission.
func (c *Collector) RecordFeedback(rating scoping.Rating) {
	c.feedbackTotal.WithLabelValues(string(rating)).Inc()
}

// RecordIngestion counts one ingested commitment and its indexed chunks.
func (c *Collector) RecordIngestion(chunks int) {
	c.ingestedTotal.Inc()
	c.chunksIndexed.Add(float64(chunks))
}

// RecordPruned counts checkpoints removed by the retention pruner.
func (c *Collector) RecordPruned(n int64) {
	c.prunedTotal.Add(float64(n))
}
