package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"scopehq/meridian/pkg/scoping"
	"scopehq/meridian/pkg/store"
	"scopehq/meridian/pkg/vectorindex"
)

// MetaRating carries a feedback record's rating through index metadata.
const MetaRating = "rating"

// Submission is a new piece of feedback on a persisted decision. Reason is
// always required; Correction is required for down ratings.
type Submission struct {
	DecisionID string
	Rating     scoping.Rating
	Reason     string
	Correction string
}

// Collector accepts feedback on persisted decisions. It writes the record
// and publishes the rated decision's query embedding to the feedback
// corpus, so future similar queries retrieve it. The rated decision itself
// is never re-opened.
type Collector struct {
	store  store.Store
	index  vectorindex.Index
	logger *slog.Logger
	now    func() time.Time
}

// NewCollector creates a feedback collector.
func NewCollector(s store.Store, index vectorindex.Index) *Collector {
	return &Collector{
		store:  s,
		index:  index,
		logger: slog.Default().With("component", "feedback.collector"),
		now:    time.Now,
	}
}

// Submit validates and persists one feedback record, returning it with its
// assigned id. The referenced decision must exist; its query embedding,
// commitment, asset and outcome are inherited by the feedback record.
func (c *Collector) Submit(ctx context.Context, sub Submission) (*scoping.Feedback, error) {
	decision, err := c.store.GetDecision(ctx, sub.DecisionID)
	if err != nil {
		return nil, fmt.Errorf("looking up decision %q: %w", sub.DecisionID, err)
	}

	f := &scoping.Feedback{
		ID:             uuid.NewString(),
		DecisionID:     decision.ID,
		CommitmentID:   decision.CommitmentID,
		AssetURI:       decision.AssetURI,
		Outcome:        decision.Outcome,
		Rating:         sub.Rating,
		Reason:         sub.Reason,
		Correction:     sub.Correction,
		QueryEmbedding: decision.QueryEmbedding,
		CreatedAt:      c.now().UTC(),
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	if err := c.store.PutFeedback(ctx, f); err != nil {
		return nil, err
	}

	err = c.index.Upsert(ctx, vectorindex.Document{
		ID:        f.ID,
		Embedding: f.QueryEmbedding,
		Metadata: map[string]string{
			vectorindex.MetaType:         vectorindex.CorpusFeedback,
			vectorindex.MetaCommitmentID: f.CommitmentID,
			MetaRating:                   string(f.Rating),
		},
	})
	if err != nil {
		// The record is durable; only retrieval of it is impaired until
		// the index catches up.
		c.logger.Warn("feedback indexed lookup unavailable",
			"feedback_id", f.ID,
			"error", err,
		)
	}

	c.logger.Info("feedback recorded",
		"feedback_id", f.ID,
		"decision_id", f.DecisionID,
		"rating", f.Rating,
	)
	return f, nil
}
