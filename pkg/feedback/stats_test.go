package feedback

import (
	"context"
	"testing"

	"scopehq/meridian/pkg/scoping"
	"scopehq/meridian/pkg/store"
)

// TestComputeStats tests per-commitment tallies and the accuracy ratio.
func TestComputeStats(t *testing.T) {
	st := store.NewMemoryStore()
	seedFeedback(t, st, "f1", scoping.RatingUp, 1)
	seedFeedback(t, st, "f2", scoping.RatingUp, 2)
	seedFeedback(t, st, "f3", scoping.RatingDown, 3)

	stats, err := ComputeStats(context.Background(), st, "c1")
	if err != nil {
		t.Fatalf("ComputeStats failed: %v", err)
	}
	if stats.Total != 3 || stats.Up != 2 || stats.Down != 1 {
		t.Errorf("stats = %+v, want 3/2/1", stats)
	}
	if want := 2.0 / 3.0; stats.Accuracy != want {
		t.Errorf("accuracy = %v, want %v", stats.Accuracy, want)
	}

	empty, err := ComputeStats(context.Background(), st, "other")
	if err != nil {
		t.Fatalf("ComputeStats failed: %v", err)
	}
	if empty.Total != 0 || empty.Accuracy != 0 {
		t.Errorf("empty stats = %+v, want zeros", empty)
	}
}
