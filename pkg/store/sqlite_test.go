package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"scopehq/meridian/pkg/scoping"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	cfg := DefaultSQLiteConfig()
	cfg.Path = filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(cfg)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestSQLiteStore_DecisionRoundTrip tests that a decision with embedded
// evidence survives a write/read cycle intact.
func TestSQLiteStore_DecisionRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	d := &scoping.Decision{
		ID:              "d1",
		SessionID:       "sess-1",
		AssetURI:        "asset://database.customer_data.production",
		CommitmentID:    "c1",
		CommitmentName:  "SOC 2 CC6.1",
		Outcome:         scoping.OutcomeInScope,
		ConfidenceScore: 0.89,
		ConfidenceBand:  scoping.BandHigh,
		Reasoning:       "The commitment covers systems storing customer data.",
		Evidence: scoping.EvidencePackage{
			PolicyChunks: []scoping.ChunkCitation{
				{ChunkID: "ch1", CommitmentID: "c1", Text: "covers systems storing customer data", ChunkIndex: 0, Score: 0.9},
			},
			SimilarFeedback: []scoping.FeedbackCitation{
				{FeedbackID: "f1", Rating: scoping.RatingUp, Reason: "correct call", Similarity: 0.89, Weight: 0.83},
			},
		},
		QueryEmbedding: []float32{0.1, 0.2, 0.3},
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.PutDecision(ctx, d); err != nil {
		t.Fatalf("PutDecision failed: %v", err)
	}

	got, err := s.GetDecision(ctx, "d1")
	if err != nil {
		t.Fatalf("GetDecision failed: %v", err)
	}
	if got.Outcome != scoping.OutcomeInScope || got.ConfidenceBand != scoping.BandHigh {
		t.Errorf("outcome/band = %s/%s, want in-scope/high", got.Outcome, got.ConfidenceBand)
	}
	if len(got.Evidence.PolicyChunks) != 1 || got.Evidence.PolicyChunks[0].Score != 0.9 {
		t.Errorf("evidence not preserved: %+v", got.Evidence)
	}
	if len(got.QueryEmbedding) != 3 {
		t.Errorf("query embedding not preserved: %v", got.QueryEmbedding)
	}

	bySession, err := s.GetDecisionBySession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetDecisionBySession failed: %v", err)
	}
	if bySession.ID != "d1" {
		t.Errorf("ID = %q, want d1", bySession.ID)
	}

	// Write-once per session.
	dup := *d
	dup.ID = "d2"
	if err := s.PutDecision(ctx, &dup); !errors.Is(err, ErrDecisionExists) {
		t.Errorf("expected ErrDecisionExists, got %v", err)
	}
}

// TestSQLiteStore_ChunkReplace tests re-ingestion chunk replacement.
func TestSQLiteStore_ChunkReplace(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	c := &scoping.Commitment{ID: "c1", Name: "GDPR Art. 5", FullText: "text", CreatedAt: time.Now().UTC()}
	if err := s.PutCommitment(ctx, c); err != nil {
		t.Fatalf("PutCommitment failed: %v", err)
	}

	first := []*scoping.PolicyChunk{
		{ID: "ch1", CommitmentID: "c1", Text: "a", Embedding: []float32{1, 0}, ChunkIndex: 0},
		{ID: "ch2", CommitmentID: "c1", Text: "b", Embedding: []float32{0, 1}, ChunkIndex: 1},
	}
	if err := s.ReplaceChunks(ctx, "c1", first); err != nil {
		t.Fatalf("ReplaceChunks failed: %v", err)
	}

	second := []*scoping.PolicyChunk{
		{ID: "ch3", CommitmentID: "c1", Text: "c", Embedding: []float32{1, 1}, ChunkIndex: 0},
	}
	if err := s.ReplaceChunks(ctx, "c1", second); err != nil {
		t.Fatalf("ReplaceChunks failed: %v", err)
	}

	got, err := s.GetChunks(ctx, "c1")
	if err != nil {
		t.Fatalf("GetChunks failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "ch3" {
		t.Errorf("expected replaced chunk set, got %+v", got)
	}
	if len(got[0].Embedding) != 2 {
		t.Errorf("embedding not preserved: %v", got[0].Embedding)
	}
}

// TestSQLiteStore_CheckpointSequenceEnforced tests the append-only log
// constraints at the SQL layer.
func TestSQLiteStore_CheckpointSequenceEnforced(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	state, _ := json.Marshal(map[string]int{"n": 1})
	for seq := int64(1); seq <= 2; seq++ {
		err := s.AppendCheckpoint(ctx, &Checkpoint{
			SessionID: "sess-1",
			Stage:     "RetrievePolicy",
			Seq:       seq,
			State:     state,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("AppendCheckpoint failed: %v", err)
		}
	}

	err := s.AppendCheckpoint(ctx, &Checkpoint{
		SessionID: "sess-1", Stage: "x", Seq: 5, State: state, CreatedAt: time.Now().UTC(),
	})
	if !errors.Is(err, ErrSequenceConflict) {
		t.Errorf("expected ErrSequenceConflict, got %v", err)
	}

	cps, err := s.ListCheckpoints(ctx, "sess-1")
	if err != nil {
		t.Fatalf("ListCheckpoints failed: %v", err)
	}
	if len(cps) != 2 {
		t.Fatalf("expected 2 checkpoints, got %d", len(cps))
	}
	if cps[0].Seq != 1 || cps[1].Seq != 2 {
		t.Errorf("checkpoints out of order: %d, %d", cps[0].Seq, cps[1].Seq)
	}
	var decoded map[string]int
	if err := json.Unmarshal(cps[0].State, &decoded); err != nil {
		t.Errorf("state not preserved: %v", err)
	}
}

// TestSQLiteStore_FeedbackRoundTrip tests feedback persistence.
func TestSQLiteStore_FeedbackRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	f := &scoping.Feedback{
		ID:             "f1",
		DecisionID:     "d1",
		CommitmentID:   "c1",
		AssetURI:       "asset://database.customer_data.production",
		Outcome:        scoping.OutcomeInScope,
		Rating:         scoping.RatingDown,
		Reason:         "asset was decommissioned",
		Correction:     "out-of-scope: system retired in Q2",
		QueryEmbedding: []float32{0.5, 0.5},
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.PutFeedback(ctx, f); err != nil {
		t.Fatalf("PutFeedback failed: %v", err)
	}

	got, err := s.GetFeedbackByDecision(ctx, "d1")
	if err != nil {
		t.Fatalf("GetFeedbackByDecision failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 feedback record, got %d", len(got))
	}
	if got[0].Rating != scoping.RatingDown || got[0].Correction == "" {
		t.Errorf("feedback not preserved: %+v", got[0])
	}
}

// TestSQLiteStore_CommitmentEmbeddingRoundTrip tests that the commitment
// summary embedding survives persistence for index rebuilds and search.
func TestSQLiteStore_CommitmentEmbeddingRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	c := &scoping.Commitment{
		ID:          "c1",
		Name:        "gdpr-retention",
		Description: "retention limits for personal data",
		Domain:      "privacy",
		FullText:    "text",
		Embedding:   []float32{0.25, 0.5, 0.75},
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.PutCommitment(ctx, c); err != nil {
		t.Fatalf("PutCommitment failed: %v", err)
	}

	got, err := s.GetCommitmentByName(ctx, "gdpr-retention")
	if err != nil {
		t.Fatalf("GetCommitmentByName failed: %v", err)
	}
	if len(got.Embedding) != 3 || got.Embedding[1] != 0.5 {
		t.Errorf("embedding = %v, want [0.25 0.5 0.75]", got.Embedding)
	}

	list, err := s.ListCommitments(ctx)
	if err != nil {
		t.Fatalf("ListCommitments failed: %v", err)
	}
	if len(list) != 1 || len(list[0].Embedding) != 3 {
		t.Errorf("listed embedding = %v, want 3 values", list[0].Embedding)
	}
}

// TestSQLiteStore_ConcurrentDecisionWrites tests that racing writers for
// one session resolve through the UNIQUE constraint: exactly one write
// lands, the rest see ErrDecisionExists.
func TestSQLiteStore_ConcurrentDecisionWrites(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	const writers = 8
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		go func(n int) {
			errs <- s.PutDecision(ctx, &scoping.Decision{
				ID:              fmt.Sprintf("d%d", n),
				SessionID:       "sess-race",
				AssetURI:        "asset://database.customer_data.production",
				CommitmentID:    "c1",
				CommitmentName:  "gdpr-retention",
				Outcome:         scoping.OutcomeInScope,
				ConfidenceScore: 0.8,
				ConfidenceBand:  scoping.BandHigh,
				Reasoning:       "covered",
				QueryEmbedding:  []float32{1, 0},
				CreatedAt:       time.Now().UTC(),
			})
		}(i)
	}

	var ok, dup int
	for i := 0; i < writers; i++ {
		switch err := <-errs; {
		case err == nil:
			ok++
		case errors.Is(err, ErrDecisionExists):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != writers-1 {
		t.Errorf("writes ok=%d dup=%d, want 1/%d", ok, dup, writers-1)
	}
}
