package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is an exact in-memory Index using cosine similarity. It holds
// every embedding in a map and scans linearly on search, which is adequate
// for the corpus sizes a single engine instance handles.
type MemoryIndex struct {
	docs map[string]Document
	mu   sync.RWMutex
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{docs: make(map[string]Document)}
}

// Search returns matches ordered by descending cosine similarity.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, opts SearchOptions) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]Match, 0, opts.TopK)
	for _, doc := range m.docs {
		if !matchesFilter(doc.Metadata, opts.Filter) {
			continue
		}
		score := CosineSimilarity(query, doc.Embedding)
		if opts.MinScore > 0 && score < opts.MinScore {
			continue
		}
		matches = append(matches, Match{
			ID:       doc.ID,
			Score:    score,
			Text:     doc.Text,
			Metadata: copyMetadata(doc.Metadata),
		})
	}

	// Descending score; ties broken by ID for reproducible ordering.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})

	if opts.TopK > 0 && len(matches) > opts.TopK {
		matches = matches[:opts.TopK]
	}
	return matches, nil
}

// Upsert inserts or replaces documents by ID.
func (m *MemoryIndex) Upsert(ctx context.Context, docs ...Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, doc := range docs {
		stored := doc
		stored.Embedding = append([]float32(nil), doc.Embedding...)
		stored.Metadata = copyMetadata(doc.Metadata)
		m.docs[doc.ID] = stored
	}
	return nil
}

// DeleteByID removes a document. Deleting an absent ID is a no-op.
func (m *MemoryIndex) DeleteByID(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

// Count reports how many documents match the metadata filter.
func (m *MemoryIndex) Count(ctx context.Context, filter map[string]string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, doc := range m.docs {
		if matchesFilter(doc.Metadata, filter) {
			n++
		}
	}
	return n, nil
}

// CosineSimilarity computes the cosine similarity of two vectors. Vectors
// of mismatched length or zero magnitude score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func matchesFilter(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

func copyMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
