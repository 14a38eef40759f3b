package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"scopehq/meridian/pkg/scoping"
	"scopehq/meridian/pkg/vectorindex"
)

// Config contains retrieval tuning shared by both retrievers.
type Config struct {
	// TopK is the maximum number of results to return.
	// Default: 5
	TopK int `yaml:"top_k"`

	// MinScore is the similarity floor below which matches are dropped.
	// Default: 0.5
	MinScore float64 `yaml:"min_score"`

	// MaxRetries is how many times a failed index call is retried before
	// the retriever degrades to empty results.
	// Default: 2
	MaxRetries int `yaml:"max_retries"`

	// RetryBackoff is the base delay between retries; it doubles per
	// attempt.
	// Default: 200ms
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// DefaultConfig returns the default retrieval configuration.
func DefaultConfig() *Config {
	return &Config{
		TopK:         5,
		MinScore:     0.5,
		MaxRetries:   2,
		RetryBackoff: 200 * time.Millisecond,
	}
}

// MetaChunkIndex carries a chunk's position within its commitment through
// index metadata, for stable citation ordering.
const MetaChunkIndex = "chunk_index"

// ScoredChunk is one policy chunk with its retrieval score.
type ScoredChunk struct {
	Chunk scoping.PolicyChunk
	Score float64
}

// PolicyRetriever retrieves the policy chunks of one commitment most
// relevant to a query embedding.
type PolicyRetriever struct {
	index  vectorindex.Index
	config *Config
	logger *slog.Logger
}

// NewPolicyRetriever creates a policy retriever over the given index.
func NewPolicyRetriever(index vectorindex.Index, config *Config) *PolicyRetriever {
	if config == nil {
		config = DefaultConfig()
	}
	return &PolicyRetriever{
		index:  index,
		config: config,
		logger: slog.Default().With("component", "retrieval.policy"),
	}
}

// Retrieve returns the top chunks for a commitment ordered by descending
// score, ties broken by ascending chunk index for reproducible citations.
// An empty result is not an error: it means no chunks exist or none
// cleared the threshold.
func (r *PolicyRetriever) Retrieve(ctx context.Context, query []float32, commitmentID string) ([]ScoredChunk, error) {
	matches, err := searchWithRetry(ctx, r.index, r.logger, query, vectorindex.SearchOptions{
		TopK:     r.config.TopK,
		MinScore: r.config.MinScore,
		Filter: map[string]string{
			vectorindex.MetaType:         vectorindex.CorpusChunk,
			vectorindex.MetaCommitmentID: commitmentID,
		},
	}, r.config)
	if err != nil {
		// Degraded: absence of evidence is itself a signal downstream.
		r.logger.Warn("policy retrieval degraded to empty results",
			"commitment_id", commitmentID,
			"error", err,
		)
		return nil, nil
	}

	chunks := make([]ScoredChunk, 0, len(matches))
	for _, m := range matches {
		idx, _ := strconv.Atoi(m.Metadata[MetaChunkIndex])
		chunks = append(chunks, ScoredChunk{
			Chunk: scoping.PolicyChunk{
				ID:           m.ID,
				CommitmentID: m.Metadata[vectorindex.MetaCommitmentID],
				Text:         m.Text,
				ChunkIndex:   idx,
			},
			Score: m.Score,
		})
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Score != chunks[j].Score {
			return chunks[i].Score > chunks[j].Score
		}
		return chunks[i].Chunk.ChunkIndex < chunks[j].Chunk.ChunkIndex
	})

	return chunks, nil
}

// searchWithRetry runs an index search with bounded exponential backoff.
// It returns a RetrievalError only after retries are exhausted; callers
// decide whether to degrade or propagate.
func searchWithRetry(ctx context.Context, index vectorindex.Index, logger *slog.Logger, query []float32, opts vectorindex.SearchOptions, cfg *Config) ([]vectorindex.Match, error) {
	var lastErr error
	backoff := cfg.RetryBackoff

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, scoping.NewRetrievalError("index", "search", ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
			logger.Debug("retrying index search", "attempt", attempt)
		}

		matches, err := index.Search(ctx, query, opts)
		if err == nil {
			return matches, nil
		}
		lastErr = err
	}

	return nil, scoping.NewRetrievalError("index", "search", lastErr)
}
