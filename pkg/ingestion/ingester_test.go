package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scopehq/meridian/pkg/embedding"
	"scopehq/meridian/pkg/store"
	"scopehq/meridian/pkg/vectorindex"
)

func newTestIngester() (*Ingester, *store.MemoryStore, *vectorindex.MemoryIndex) {
	st := store.NewMemoryStore()
	idx := vectorindex.NewMemoryIndex()
	return NewIngester(st, idx, embedding.NewFake(32), nil), st, idx
}

const policyText = `# GDPR Retention

Personal data must not be kept longer than necessary for the purposes for
which it is processed. Systems storing customer data must implement
retention schedules and deletion procedures. Backup copies and archives
are subject to the same retention limits as primary stores, and access to
retained data must be restricted to the purposes declared at collection
time. Derived datasets that still identify individuals remain personal
data and inherit these obligations in full.`

// TestIngester_Ingest tests first ingestion: commitment, chunks and
// vectors all land.
func TestIngester_Ingest(t *testing.T) {
	ing, st, idx := newTestIngester()
	ctx := context.Background()

	c, err := ing.Ingest(ctx, "gdpr-retention", "retention limits", "privacy", policyText)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	got, err := st.GetCommitmentByName(ctx, "gdpr-retention")
	if err != nil {
		t.Fatalf("GetCommitmentByName failed: %v", err)
	}
	if got.ID != c.ID || got.FullText != policyText {
		t.Errorf("stored commitment = %+v, want %+v", got, c)
	}

	chunks, err := st.GetChunks(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetChunks failed: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("no chunks stored")
	}
	for i, ch := range chunks {
		if ch.ChunkIndex != i {
			t.Errorf("chunk %d has index %d", i, ch.ChunkIndex)
		}
		if len(ch.Embedding) != 32 {
			t.Errorf("chunk %d embedding width = %d, want 32", i, len(ch.Embedding))
		}
	}

	n, err := idx.Count(ctx, map[string]string{
		vectorindex.MetaType:         vectorindex.CorpusChunk,
		vectorindex.MetaCommitmentID: c.ID,
	})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != len(chunks) {
		t.Errorf("indexed chunks = %d, want %d", n, len(chunks))
	}

	// The commitment itself is searchable by description.
	if len(got.Embedding) != 32 {
		t.Errorf("commitment embedding width = %d, want 32", len(got.Embedding))
	}
	n, err = idx.Count(ctx, map[string]string{vectorindex.MetaType: vectorindex.CorpusCommitment})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("commitment corpus size = %d, want 1", n)
	}
}

// TestIngester_Reingest tests that ingesting the same name again keeps the
// commitment identity and replaces chunks and vectors.
func TestIngester_Reingest(t *testing.T) {
	ing, st, idx := newTestIngester()
	ctx := context.Background()

	first, err := ing.Ingest(ctx, "gdpr-retention", "v1", "privacy", policyText)
	if err != nil {
		t.Fatalf("first Ingest failed: %v", err)
	}
	firstChunks, _ := st.GetChunks(ctx, first.ID)

	second, err := ing.Ingest(ctx, "gdpr-retention", "v2", "privacy", policyText+"\n\nAmendment: pseudonymized data is also covered by this commitment when re-identification is feasible.")
	if err != nil {
		t.Fatalf("second Ingest failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("re-ingestion changed id %q -> %q", first.ID, second.ID)
	}

	secondChunks, _ := st.GetChunks(ctx, first.ID)
	for _, old := range firstChunks {
		for _, cur := range secondChunks {
			if old.ID == cur.ID {
				t.Errorf("old chunk %s survived re-ingestion", old.ID)
			}
		}
	}

	n, _ := idx.Count(ctx, map[string]string{
		vectorindex.MetaType:         vectorindex.CorpusChunk,
		vectorindex.MetaCommitmentID: first.ID,
	})
	if n != len(secondChunks) {
		t.Errorf("indexed chunks = %d, want %d (stale vectors left behind?)", n, len(secondChunks))
	}

	n, _ = idx.Count(ctx, map[string]string{vectorindex.MetaType: vectorindex.CorpusCommitment})
	if n != 1 {
		t.Errorf("commitment corpus size = %d after re-ingestion, want 1", n)
	}
}

// TestIngester_IngestFile tests name and description derivation from a
// markdown file.
func TestIngester_IngestFile(t *testing.T) {
	ing, _, _ := newTestIngester()

	dir := t.TempDir()
	path := filepath.Join(dir, "soc2-access-control.md")
	if err := os.WriteFile(path, []byte(policyText), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	c, err := ing.IngestFile(context.Background(), path)
	if err != nil {
		t.Fatalf("IngestFile failed: %v", err)
	}
	if c.Name != "soc2-access-control" {
		t.Errorf("name = %q, want soc2-access-control", c.Name)
	}
	if c.Description != "GDPR Retention" {
		t.Errorf("description = %q, want first heading", c.Description)
	}
}

// TestIngester_RejectsEmpty tests input validation.
func TestIngester_RejectsEmpty(t *testing.T) {
	ing, _, _ := newTestIngester()
	ctx := context.Background()

	if _, err := ing.Ingest(ctx, "", "d", "", policyText); err == nil {
		t.Error("accepted empty name")
	}
	if _, err := ing.Ingest(ctx, "name", "d", "", "   \n"); err == nil {
		t.Error("accepted empty text")
	}
}

// TestChunker_Split tests overlap and tail handling.
func TestChunker_Split(t *testing.T) {
	c := NewChunker(100, 20)

	text := strings.Repeat("retention policy clause. ", 20) // 500 runes
	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("chunks = %d, want several", len(chunks))
	}
	for i, ch := range chunks {
		if len([]rune(ch)) > 100 {
			t.Errorf("chunk %d longer than size: %d", i, len([]rune(ch)))
		}
	}
	// Consecutive chunks share the overlap region.
	first := []rune(chunks[0])
	second := []rune(chunks[1])
	if string(first[len(first)-20:]) != string(second[:20]) {
		t.Error("chunks do not overlap by the configured amount")
	}

	if got := c.Split("short"); len(got) != 1 || got[0] != "short" {
		t.Errorf("short text = %v, want single chunk", got)
	}
	if got := c.Split(""); got != nil {
		t.Errorf("empty text = %v, want nil", got)
	}
}
