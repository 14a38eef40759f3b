package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"scopehq/meridian/pkg/scoping"
	"scopehq/meridian/pkg/store"
	"scopehq/meridian/pkg/vectorindex"
)

func seedCommitmentDoc(t *testing.T, st *store.MemoryStore, idx *vectorindex.MemoryIndex, id, name string, embedding []float32) {
	t.Helper()
	ctx := context.Background()
	err := st.PutCommitment(ctx, &scoping.Commitment{
		ID:        id,
		Name:      name,
		FullText:  "policy text",
		Embedding: embedding,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("PutCommitment failed: %v", err)
	}
	err = idx.Upsert(ctx, vectorindex.Document{
		ID:        id,
		Text:      name,
		Embedding: embedding,
		Metadata:  map[string]string{vectorindex.MetaType: vectorindex.CorpusCommitment},
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
}

// TestCommitmentRetriever_Search tests free-text resolution ordering and
// the similarity floor.
func TestCommitmentRetriever_Search(t *testing.T) {
	st := store.NewMemoryStore()
	idx := vectorindex.NewMemoryIndex()
	ctx := context.Background()

	seedCommitmentDoc(t, st, idx, "c1", "gdpr-retention", []float32{1, 0.05})
	seedCommitmentDoc(t, st, idx, "c2", "soc2-access-control", []float32{0.6, 0.8})
	seedCommitmentDoc(t, st, idx, "c3", "unrelated", []float32{0, 1})

	r := NewCommitmentRetriever(idx, st, nil)
	results, err := r.Search(ctx, []float32{1, 0})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("results = %d, want 2 (floor drops the unrelated one)", len(results))
	}
	if results[0].Commitment.Name != "gdpr-retention" {
		t.Errorf("best match = %q, want gdpr-retention", results[0].Commitment.Name)
	}
	if results[1].Score > results[0].Score {
		t.Error("scores not descending")
	}
}

// TestCommitmentRetriever_Resolve tests single-best resolution and the
// not-found case.
func TestCommitmentRetriever_Resolve(t *testing.T) {
	st := store.NewMemoryStore()
	idx := vectorindex.NewMemoryIndex()
	ctx := context.Background()

	seedCommitmentDoc(t, st, idx, "c1", "gdpr-retention", []float32{1, 0})

	r := NewCommitmentRetriever(idx, st, nil)
	c, err := r.Resolve(ctx, []float32{1, 0.1})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if c.Name != "gdpr-retention" {
		t.Errorf("resolved = %q, want gdpr-retention", c.Name)
	}

	if _, err := r.Resolve(ctx, []float32{0, 1}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for query below the floor, got %v", err)
	}
}

// TestCommitmentRetriever_SkipsStaleIndexEntry tests that a commitment
// left in the index after its store record is gone does not surface.
func TestCommitmentRetriever_SkipsStaleIndexEntry(t *testing.T) {
	st := store.NewMemoryStore()
	idx := vectorindex.NewMemoryIndex()
	ctx := context.Background()

	seedCommitmentDoc(t, st, idx, "c1", "gdpr-retention", []float32{1, 0})
	// Index-only entry with no store record behind it.
	err := idx.Upsert(ctx, vectorindex.Document{
		ID:        "ghost",
		Embedding: []float32{1, 0.01},
		Metadata:  map[string]string{vectorindex.MetaType: vectorindex.CorpusCommitment},
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	r := NewCommitmentRetriever(idx, st, nil)
	results, err := r.Search(ctx, []float32{1, 0})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0].Commitment.ID != "c1" {
		t.Errorf("results = %+v, want only c1", results)
	}
}
