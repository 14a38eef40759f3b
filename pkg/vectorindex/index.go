package vectorindex

import "context"

// Corpus values used in the "type" metadata key to partition the index.
const (
	CorpusChunk      = "chunk"
	CorpusFeedback   = "feedback"
	CorpusDecision   = "decision"
	CorpusCommitment = "commitment"
)

// MetaType is the metadata key that selects the logical corpus.
const MetaType = "type"

// MetaCommitmentID is the metadata key that scopes a document to a commitment.
const MetaCommitmentID = "commitment_id"

// Document is an embedded text stored in the index.
type Document struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	Embedding []float32         `json:"embedding"`
	Metadata  map[string]string `json:"metadata"`
}

// Match is a single similarity-search result.
type Match struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

// SearchOptions controls a similarity search.
type SearchOptions struct {
	// TopK is the maximum number of matches to return.
	TopK int

	// MinScore drops matches scoring below this threshold. Zero means no
	// threshold.
	MinScore float64

	// Filter restricts the search to documents whose metadata contains
	// every key/value pair.
	Filter map[string]string
}

// Index is the similarity-search contract consumed by the engine.
// Implementations must be safe for concurrent use.
type Index interface {
	// Search returns matches ordered by descending score. An empty result
	// is not an error.
	Search(ctx context.Context, query []float32, opts SearchOptions) ([]Match, error)

	// Upsert inserts or replaces documents by ID.
	Upsert(ctx context.Context, docs ...Document) error

	// DeleteByID removes a document. Deleting an absent ID is a no-op.
	DeleteByID(ctx context.Context, id string) error

	// Count reports how many documents match the metadata filter. A nil
	// filter counts everything.
	Count(ctx context.Context, filter map[string]string) (int, error)
}
