package retrieval

import (
	"context"
	"errors"
	"log/slog"

	"scopehq/meridian/pkg/scoping"
	"scopehq/meridian/pkg/store"
	"scopehq/meridian/pkg/vectorindex"
)

// ScoredCommitment pairs a commitment with its similarity to a free-text
// query.
type ScoredCommitment struct {
	Commitment *scoping.Commitment `json:"commitment"`
	Score      float64             `json:"score"`
}

// CommitmentRetriever resolves commitments from free-text descriptions,
// so a caller who does not know the exact name can still find the right
// one. Matches come from the commitment corpus of the index; the full
// records come from the store.
type CommitmentRetriever struct {
	index  vectorindex.Index
	store  store.Store
	config *Config
	logger *slog.Logger
}

// NewCommitmentRetriever creates a commitment retriever.
func NewCommitmentRetriever(index vectorindex.Index, s store.Store, config *Config) *CommitmentRetriever {
	if config == nil {
		config = DefaultConfig()
	}
	return &CommitmentRetriever{
		index:  index,
		store:  s,
		config: config,
		logger: slog.Default().With("component", "retrieval.commitments"),
	}
}

// Search returns commitments ordered by descending similarity to the
// query embedding. Unlike policy retrieval this does not degrade on index
// failure: the caller asked a direct question and deserves the error. A
// commitment present in the index but missing from the store is skipped.
func (r *CommitmentRetriever) Search(ctx context.Context, query []float32) ([]ScoredCommitment, error) {
	matches, err := searchWithRetry(ctx, r.index, r.logger, query, vectorindex.SearchOptions{
		TopK:     r.config.TopK,
		MinScore: r.config.MinScore,
		Filter: map[string]string{
			vectorindex.MetaType: vectorindex.CorpusCommitment,
		},
	}, r.config)
	if err != nil {
		return nil, err
	}

	results := make([]ScoredCommitment, 0, len(matches))
	for _, m := range matches {
		commitment, err := r.store.GetCommitment(ctx, m.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				r.logger.Debug("indexed commitment missing from store", "commitment_id", m.ID)
				continue
			}
			return nil, err
		}
		results = append(results, ScoredCommitment{Commitment: commitment, Score: m.Score})
	}
	return results, nil
}

// Resolve returns the single best match for the query embedding, or
// ErrNotFound when nothing clears the similarity floor.
func (r *CommitmentRetriever) Resolve(ctx context.Context, query []float32) (*scoping.Commitment, error) {
	results, err := r.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, store.ErrNotFound
	}
	return results[0].Commitment, nil
}
