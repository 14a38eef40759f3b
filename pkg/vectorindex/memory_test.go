package vectorindex

import (
	"context"
	"math"
	"testing"
)

// TestCosineSimilarity tests the similarity primitive on known vectors.
func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0.0},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0.0},
		{"scaled", []float32{2, 0}, []float32{5, 0}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestMemoryIndex_SearchOrdering tests descending score ordering with
// metadata filtering and threshold.
func TestMemoryIndex_SearchOrdering(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	err := idx.Upsert(ctx,
		Document{ID: "a", Text: "close", Embedding: []float32{1, 0.1}, Metadata: map[string]string{MetaType: CorpusChunk, MetaCommitmentID: "c1"}},
		Document{ID: "b", Text: "closer", Embedding: []float32{1, 0.01}, Metadata: map[string]string{MetaType: CorpusChunk, MetaCommitmentID: "c1"}},
		Document{ID: "c", Text: "far", Embedding: []float32{0, 1}, Metadata: map[string]string{MetaType: CorpusChunk, MetaCommitmentID: "c1"}},
		Document{ID: "d", Text: "other commitment", Embedding: []float32{1, 0}, Metadata: map[string]string{MetaType: CorpusChunk, MetaCommitmentID: "c2"}},
		Document{ID: "e", Text: "other corpus", Embedding: []float32{1, 0}, Metadata: map[string]string{MetaType: CorpusFeedback, MetaCommitmentID: "c1"}},
	)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	matches, err := idx.Search(ctx, []float32{1, 0}, SearchOptions{
		TopK:     10,
		MinScore: 0.5,
		Filter:   map[string]string{MetaType: CorpusChunk, MetaCommitmentID: "c1"},
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != "b" || matches[1].ID != "a" {
		t.Errorf("unexpected order: %s, %s", matches[0].ID, matches[1].ID)
	}
	if matches[0].Score < matches[1].Score {
		t.Errorf("scores not descending: %v < %v", matches[0].Score, matches[1].Score)
	}
}

// TestMemoryIndex_TopK tests result truncation.
func TestMemoryIndex_TopK(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3", "4", "5"} {
		if err := idx.Upsert(ctx, Document{ID: id, Embedding: []float32{1, 0}}); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	matches, err := idx.Search(ctx, []float32{1, 0}, SearchOptions{TopK: 3})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 3 {
		t.Errorf("expected 3 matches, got %d", len(matches))
	}
}

// TestMemoryIndex_UpsertReplacesAndDelete tests replace-by-ID and deletion.
func TestMemoryIndex_UpsertReplacesAndDelete(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	if err := idx.Upsert(ctx, Document{ID: "x", Text: "old", Embedding: []float32{1, 0}}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := idx.Upsert(ctx, Document{ID: "x", Text: "new", Embedding: []float32{1, 0}}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	n, err := idx.Count(ctx, nil)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 document after replace, got %d", n)
	}

	matches, err := idx.Search(ctx, []float32{1, 0}, SearchOptions{TopK: 1})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if matches[0].Text != "new" {
		t.Errorf("expected replaced text, got %q", matches[0].Text)
	}

	if err := idx.DeleteByID(ctx, "x"); err != nil {
		t.Fatalf("DeleteByID failed: %v", err)
	}
	// Deleting an absent ID is a no-op.
	if err := idx.DeleteByID(ctx, "x"); err != nil {
		t.Fatalf("DeleteByID on absent ID failed: %v", err)
	}

	n, _ = idx.Count(ctx, nil)
	if n != 0 {
		t.Errorf("expected empty index, got %d documents", n)
	}
}

// TestMemoryIndex_CallerCannotMutateStored verifies that mutating a slice
// passed to Upsert does not corrupt the stored document.
func TestMemoryIndex_CallerCannotMutateStored(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	emb := []float32{1, 0}
	if err := idx.Upsert(ctx, Document{ID: "x", Embedding: emb}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	emb[0] = 0
	emb[1] = 1

	matches, err := idx.Search(ctx, []float32{1, 0}, SearchOptions{TopK: 1})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 1 || matches[0].Score < 0.99 {
		t.Errorf("stored embedding was mutated by caller")
	}
}
