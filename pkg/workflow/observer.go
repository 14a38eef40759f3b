package workflow

import (
	"time"

	"scopehq/meridian/pkg/scoping"
)

// Observer receives workflow telemetry. The metrics collector implements
// it; tests and minimal setups use NopObserver.
type Observer interface {
	// ObserveStage records one stage's execution time.
	ObserveStage(stage Stage, d time.Duration)

	// ObserveRetrieval records how many results a retrieval stage
	// returned from one corpus.
	ObserveRetrieval(corpus string, results int)

	// RecordDecision counts one persisted decision.
	RecordDecision(outcome scoping.Outcome, band scoping.Band)
}

// NopObserver discards all telemetry.
type NopObserver struct{}

func (NopObserver) ObserveStage(Stage, time.Duration)            {}
func (NopObserver) ObserveRetrieval(string, int)                 {}
func (NopObserver) RecordDecision(scoping.Outcome, scoping.Band) {}
