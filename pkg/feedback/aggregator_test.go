package feedback

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"scopehq/meridian/pkg/scoping"
	"scopehq/meridian/pkg/store"
	"scopehq/meridian/pkg/vectorindex"
)

// stubIndex returns canned matches, letting tests pin exact similarities.
type stubIndex struct {
	matches []vectorindex.Match
	err     error
	calls   int
}

func (s *stubIndex) Search(ctx context.Context, query []float32, opts vectorindex.SearchOptions) ([]vectorindex.Match, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.matches, nil
}

func (s *stubIndex) Upsert(ctx context.Context, docs ...vectorindex.Document) error { return nil }
func (s *stubIndex) DeleteByID(ctx context.Context, id string) error                { return nil }
func (s *stubIndex) Count(ctx context.Context, filter map[string]string) (int, error) {
	return len(s.matches), nil
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seedFeedback(t *testing.T, s store.Store, id string, rating scoping.Rating, ageDays float64) {
	t.Helper()
	f := &scoping.Feedback{
		ID:           id,
		DecisionID:   "dec-" + id,
		CommitmentID: "c1",
		AssetURI:     "asset://database.orders.payments",
		Outcome:      scoping.OutcomeInScope,
		Rating:       rating,
		Reason:       "reviewed against retention policy",
		CreatedAt:    testNow.Add(-time.Duration(ageDays*24) * time.Hour),
	}
	if rating == scoping.RatingDown {
		f.Correction = "should be out of scope"
	}
	if err := s.PutFeedback(context.Background(), f); err != nil {
		t.Fatalf("PutFeedback(%s) failed: %v", id, err)
	}
}

func newTestAggregator(idx vectorindex.Index, s store.Store, cfg *Config) *Aggregator {
	a := NewAggregator(idx, s, cfg)
	a.now = func() time.Time { return testNow }
	return a
}

// TestAggregator_ColdStart tests that no prior feedback yields a valid
// empty aggregate rather than an error.
func TestAggregator_ColdStart(t *testing.T) {
	a := newTestAggregator(&stubIndex{}, store.NewMemoryStore(), nil)

	agg, err := a.Aggregate(context.Background(), []float32{1, 0}, "c1")
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if agg.Count() != 0 {
		t.Errorf("count = %d, want 0", agg.Count())
	}
	if agg.TotalWeight != 0 || agg.AgreementScore != 0 || agg.Conflicting {
		t.Errorf("cold-start aggregate not zero: %+v", agg)
	}
}

// TestAggregator_CompositeWeight tests similarity times recency decay for
// a single candidate.
func TestAggregator_CompositeWeight(t *testing.T) {
	st := store.NewMemoryStore()
	seedFeedback(t, st, "f1", scoping.RatingUp, 30)
	idx := &stubIndex{matches: []vectorindex.Match{{ID: "f1", Score: 0.8}}}
	a := newTestAggregator(idx, st, nil)

	agg, err := a.Aggregate(context.Background(), []float32{1, 0}, "c1")
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if agg.Count() != 1 {
		t.Fatalf("count = %d, want 1", agg.Count())
	}

	want := 0.8 * math.Exp(-1) // 30 days at a 30-day half-life
	if got := agg.Citations[0].Weight; math.Abs(got-want) > 1e-9 {
		t.Errorf("weight = %v, want %v", got, want)
	}
	if agg.AgreementScore != 1 {
		t.Errorf("agreement = %v, want 1", agg.AgreementScore)
	}
	if agg.Conflicting {
		t.Error("single-direction aggregate flagged conflicting")
	}
}

// TestAggregator_FrequencyBoost tests that a pattern repeated often enough
// gets boosted, and that boosted weights are capped at 1.
func TestAggregator_FrequencyBoost(t *testing.T) {
	st := store.NewMemoryStore()
	var matches []vectorindex.Match
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("f%d", i)
		seedFeedback(t, st, id, scoping.RatingUp, 0)
		matches = append(matches, vectorindex.Match{ID: id, Score: 0.95})
	}
	idx := &stubIndex{matches: matches}
	a := newTestAggregator(idx, st, nil)

	agg, err := a.Aggregate(context.Background(), []float32{1, 0}, "c1")
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	for _, c := range agg.Citations {
		// 0.95 * 1.5 boost, capped at 1.
		if c.Weight != 1 {
			t.Errorf("boosted weight for %s = %v, want 1", c.FeedbackID, c.Weight)
		}
	}
}

// TestAggregator_NoBoostBelowClusterSize tests that two same-pattern
// candidates do not trigger the boost.
func TestAggregator_NoBoostBelowClusterSize(t *testing.T) {
	st := store.NewMemoryStore()
	seedFeedback(t, st, "f1", scoping.RatingUp, 0)
	seedFeedback(t, st, "f2", scoping.RatingUp, 0)
	idx := &stubIndex{matches: []vectorindex.Match{
		{ID: "f1", Score: 0.95},
		{ID: "f2", Score: 0.95},
	}}
	a := newTestAggregator(idx, st, nil)

	agg, err := a.Aggregate(context.Background(), []float32{1, 0}, "c1")
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	for _, c := range agg.Citations {
		if math.Abs(c.Weight-0.95) > 1e-9 {
			t.Errorf("weight for %s = %v, want 0.95", c.FeedbackID, c.Weight)
		}
	}
}

// TestAggregator_ConflictDetection tests the signed agreement score and
// the conflict flag.
func TestAggregator_ConflictDetection(t *testing.T) {
	st := store.NewMemoryStore()
	seedFeedback(t, st, "up1", scoping.RatingUp, 0)
	seedFeedback(t, st, "down1", scoping.RatingDown, 0)
	idx := &stubIndex{matches: []vectorindex.Match{
		{ID: "up1", Score: 0.9},
		{ID: "down1", Score: 0.9},
	}}
	a := newTestAggregator(idx, st, nil)

	agg, err := a.Aggregate(context.Background(), []float32{1, 0}, "c1")
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if math.Abs(agg.AgreementScore) > 1e-9 {
		t.Errorf("agreement = %v, want 0 for balanced feedback", agg.AgreementScore)
	}
	if !agg.Conflicting {
		t.Error("balanced up/down feedback not flagged conflicting")
	}
}

// TestAggregator_MinorityBelowFractionNotConflicting tests that a small
// dissenting share does not trip the conflict flag.
func TestAggregator_MinorityBelowFractionNotConflicting(t *testing.T) {
	st := store.NewMemoryStore()
	for i := 0; i < 5; i++ {
		seedFeedback(t, st, fmt.Sprintf("up%d", i), scoping.RatingUp, 0)
	}
	seedFeedback(t, st, "down1", scoping.RatingDown, 0)

	matches := []vectorindex.Match{{ID: "down1", Score: 0.6}}
	for i := 0; i < 5; i++ {
		matches = append(matches, vectorindex.Match{ID: fmt.Sprintf("up%d", i), Score: 0.8})
	}
	a := newTestAggregator(&stubIndex{matches: matches}, st, nil)

	agg, err := a.Aggregate(context.Background(), []float32{1, 0}, "c1")
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if agg.Conflicting {
		t.Error("minority dissent flagged conflicting")
	}
	if agg.AgreementScore <= 0 {
		t.Errorf("agreement = %v, want positive", agg.AgreementScore)
	}
}

// TestAggregator_DegradesOnIndexFailure tests that a persistently failing
// index yields the cold-start aggregate instead of an error.
func TestAggregator_DegradesOnIndexFailure(t *testing.T) {
	idx := &stubIndex{err: fmt.Errorf("index unavailable")}
	cfg := DefaultConfig()
	cfg.RetryBackoff = time.Millisecond
	a := newTestAggregator(idx, store.NewMemoryStore(), cfg)

	agg, err := a.Aggregate(context.Background(), []float32{1, 0}, "c1")
	if err != nil {
		t.Fatalf("Aggregate returned error instead of degrading: %v", err)
	}
	if agg.Count() != 0 {
		t.Errorf("degraded aggregate count = %d, want 0", agg.Count())
	}
	if idx.calls != cfg.MaxRetries+1 {
		t.Errorf("search attempts = %d, want %d", idx.calls, cfg.MaxRetries+1)
	}
}

// TestAggregator_SkipsGhostRecords tests that index entries without a
// backing store record are dropped.
func TestAggregator_SkipsGhostRecords(t *testing.T) {
	st := store.NewMemoryStore()
	seedFeedback(t, st, "f1", scoping.RatingUp, 0)
	idx := &stubIndex{matches: []vectorindex.Match{
		{ID: "f1", Score: 0.9},
		{ID: "ghost", Score: 0.95},
	}}
	a := newTestAggregator(idx, st, nil)

	agg, err := a.Aggregate(context.Background(), []float32{1, 0}, "c1")
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if agg.Count() != 1 || agg.Citations[0].FeedbackID != "f1" {
		t.Errorf("citations = %+v, want only f1", agg.Citations)
	}
}

// TestAggregate_TopForPrompt tests ordering and truncation of prompt
// citations.
func TestAggregate_TopForPrompt(t *testing.T) {
	st := store.NewMemoryStore()
	seedFeedback(t, st, "f1", scoping.RatingUp, 10)
	seedFeedback(t, st, "f2", scoping.RatingUp, 0)
	seedFeedback(t, st, "f3", scoping.RatingUp, 60)
	idx := &stubIndex{matches: []vectorindex.Match{
		{ID: "f1", Score: 0.8},
		{ID: "f2", Score: 0.8},
		{ID: "f3", Score: 0.8},
	}}
	a := newTestAggregator(idx, st, nil)

	agg, err := a.Aggregate(context.Background(), []float32{1, 0}, "c1")
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	top := agg.TopForPrompt(2)
	if len(top) != 2 {
		t.Fatalf("len(top) = %d, want 2", len(top))
	}
	// Freshest feedback carries the most weight.
	if top[0].FeedbackID != "f2" || top[1].FeedbackID != "f1" {
		t.Errorf("top = [%s %s], want [f2 f1]", top[0].FeedbackID, top[1].FeedbackID)
	}
	if got := agg.TopForPrompt(10); len(got) != 3 {
		t.Errorf("oversized k returned %d citations, want all 3", len(got))
	}
}
