// Package metrics registers and records Prometheus metrics for the
// decision workflow, feedback collection, ingestion, and checkpoint
// retention.
package metrics
