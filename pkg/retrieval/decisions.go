package retrieval

import (
	"context"
	"errors"
	"log/slog"

	"scopehq/meridian/pkg/scoping"
	"scopehq/meridian/pkg/store"
	"scopehq/meridian/pkg/vectorindex"
)

// DecisionRetriever finds prior decisions on similar queries for the same
// commitment, to keep decisions consistent over time. Matches come from
// the decision corpus of the index; the full records come from the store.
type DecisionRetriever struct {
	index  vectorindex.Index
	store  store.Store
	config *Config
	logger *slog.Logger
}

// NewDecisionRetriever creates a decision retriever.
func NewDecisionRetriever(index vectorindex.Index, s store.Store, config *Config) *DecisionRetriever {
	if config == nil {
		config = DefaultConfig()
	}
	return &DecisionRetriever{
		index:  index,
		store:  s,
		config: config,
		logger: slog.Default().With("component", "retrieval.decisions"),
	}
}

// Retrieve returns citations for similar prior decisions, ordered by
// descending similarity. Index failures degrade to empty results; a
// decision present in the index but missing from the store is skipped.
func (r *DecisionRetriever) Retrieve(ctx context.Context, query []float32, commitmentID string) ([]scoping.DecisionCitation, error) {
	matches, err := searchWithRetry(ctx, r.index, r.logger, query, vectorindex.SearchOptions{
		TopK:     r.config.TopK,
		MinScore: r.config.MinScore,
		Filter: map[string]string{
			vectorindex.MetaType:         vectorindex.CorpusDecision,
			vectorindex.MetaCommitmentID: commitmentID,
		},
	}, r.config)
	if err != nil {
		r.logger.Warn("decision retrieval degraded to empty results",
			"commitment_id", commitmentID,
			"error", err,
		)
		return nil, nil
	}

	citations := make([]scoping.DecisionCitation, 0, len(matches))
	for _, m := range matches {
		decision, err := r.store.GetDecision(ctx, m.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				r.logger.Debug("indexed decision missing from store", "decision_id", m.ID)
				continue
			}
			r.logger.Warn("decision lookup degraded", "decision_id", m.ID, "error", err)
			continue
		}
		citations = append(citations, scoping.DecisionCitation{
			DecisionID: decision.ID,
			AssetURI:   decision.AssetURI,
			Outcome:    decision.Outcome,
			Band:       decision.ConfidenceBand,
			Reasoning:  decision.Reasoning,
			Similarity: m.Score,
		})
	}

	return citations, nil
}
