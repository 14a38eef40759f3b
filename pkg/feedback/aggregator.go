package feedback

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"time"

	"scopehq/meridian/pkg/scoping"
	"scopehq/meridian/pkg/store"
	"scopehq/meridian/pkg/vectorindex"
)

// Config contains feedback aggregation tuning.
type Config struct {
	// TopK is the maximum number of feedback candidates retrieved from
	// the index.
	// Default: 10
	TopK int `yaml:"top_k"`

	// MinScore is the similarity floor below which candidates are dropped.
	// Default: 0.7
	MinScore float64 `yaml:"min_score"`

	// HalfLifeDays controls recency decay: a candidate's weight is scaled
	// by exp(-ageDays/HalfLifeDays).
	// Default: 30
	HalfLifeDays float64 `yaml:"half_life_days"`

	// ClusterSimilarity is the floor above which candidates are treated
	// as repetitions of the same pattern.
	// Default: 0.9
	ClusterSimilarity float64 `yaml:"cluster_similarity"`

	// ClusterMinSize is how many same-pattern candidates it takes before
	// the frequency boost applies.
	// Default: 3
	ClusterMinSize int `yaml:"cluster_min_size"`

	// FrequencyBoost multiplies the weight of candidates in a large
	// enough cluster. Weights are clamped to 1.0 after boosting.
	// Default: 1.5
	FrequencyBoost float64 `yaml:"frequency_boost"`

	// ConflictFraction is the share of total weight each rating direction
	// must carry before the aggregate is flagged conflicting.
	// Default: 0.2
	ConflictFraction float64 `yaml:"conflict_fraction"`

	// PromptTopK is how many citations TopForPrompt keeps.
	// Default: 3
	PromptTopK int `yaml:"prompt_top_k"`

	// MaxRetries and RetryBackoff bound the index retry loop.
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// DefaultConfig returns the default aggregation configuration.
func DefaultConfig() *Config {
	return &Config{
		TopK:              10,
		MinScore:          0.7,
		HalfLifeDays:      30,
		ClusterSimilarity: 0.9,
		ClusterMinSize:    3,
		FrequencyBoost:    1.5,
		ConflictFraction:  0.2,
		PromptTopK:        3,
		MaxRetries:        2,
		RetryBackoff:      200 * time.Millisecond,
	}
}

// Aggregate is the weighted summary of prior feedback relevant to one
// query. The zero value is the cold-start aggregate: no feedback is a
// valid state, not an error.
type Aggregate struct {
	// Citations are the weighted candidates, ordered by descending weight.
	Citations []scoping.FeedbackCitation

	// TotalWeight is the sum of all composite weights.
	TotalWeight float64

	// AgreementScore is (upWeight - downWeight) / TotalWeight, in
	// [-1, 1]. Zero when no feedback exists.
	AgreementScore float64

	// Conflicting is set when both rating directions each carry more than
	// the configured fraction of TotalWeight.
	Conflicting bool
}

// Count returns the number of contributing feedback records.
func (a *Aggregate) Count() int {
	return len(a.Citations)
}

// TopForPrompt returns the highest-weighted citations for inclusion in a
// generation prompt.
func (a *Aggregate) TopForPrompt(k int) []scoping.FeedbackCitation {
	if k <= 0 || k >= len(a.Citations) {
		return a.Citations
	}
	return a.Citations[:k]
}

// Aggregator retrieves prior feedback similar to a query and folds it into
// a weighted Aggregate for the confidence scorer and the prompt builder.
type Aggregator struct {
	index  vectorindex.Index
	store  store.Store
	config *Config
	logger *slog.Logger
	now    func() time.Time
}

// NewAggregator creates a feedback aggregator.
func NewAggregator(index vectorindex.Index, s store.Store, config *Config) *Aggregator {
	if config == nil {
		config = DefaultConfig()
	}
	return &Aggregator{
		index:  index,
		store:  s,
		config: config,
		logger: slog.Default().With("component", "feedback.aggregator"),
		now:    time.Now,
	}
}

// Aggregate searches the feedback corpus for queries similar to the given
// embedding within one commitment and returns the weighted aggregate.
// Index failures degrade to the cold-start aggregate; a candidate present
// in the index but missing from the store is skipped.
func (a *Aggregator) Aggregate(ctx context.Context, query []float32, commitmentID string) (*Aggregate, error) {
	matches, err := a.searchWithRetry(ctx, query, vectorindex.SearchOptions{
		TopK:     a.config.TopK,
		MinScore: a.config.MinScore,
		Filter: map[string]string{
			vectorindex.MetaType:         vectorindex.CorpusFeedback,
			vectorindex.MetaCommitmentID: commitmentID,
		},
	})
	if err != nil {
		a.logger.Warn("feedback retrieval degraded to empty aggregate",
			"commitment_id", commitmentID,
			"error", err,
		)
		return &Aggregate{}, nil
	}

	now := a.now()
	var candidates []scoping.FeedbackCitation
	for _, m := range matches {
		f, err := a.store.GetFeedback(ctx, m.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				a.logger.Debug("indexed feedback missing from store", "feedback_id", m.ID)
				continue
			}
			a.logger.Warn("feedback lookup degraded", "feedback_id", m.ID, "error", err)
			continue
		}
		ageDays := now.Sub(f.CreatedAt).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		candidates = append(candidates, scoping.FeedbackCitation{
			FeedbackID: f.ID,
			DecisionID: f.DecisionID,
			AssetURI:   f.AssetURI,
			Outcome:    f.Outcome,
			Rating:     f.Rating,
			Reason:     f.Reason,
			Correction: f.Correction,
			Similarity: m.Score,
			AgeDays:    ageDays,
		})
	}

	return a.weigh(candidates), nil
}

// weigh assigns composite weights and derives the aggregate signals.
func (a *Aggregator) weigh(candidates []scoping.FeedbackCitation) *Aggregate {
	agg := &Aggregate{}
	if len(candidates) == 0 {
		return agg
	}

	// Candidates above the cluster floor count as repetitions of one
	// pattern; enough of them and each earns the frequency boost.
	clusterSize := 0
	for _, c := range candidates {
		if c.Similarity >= a.config.ClusterSimilarity {
			clusterSize++
		}
	}
	boosted := clusterSize >= a.config.ClusterMinSize

	var upWeight, downWeight float64
	for i := range candidates {
		c := &candidates[i]
		w := c.Similarity * math.Exp(-c.AgeDays/a.config.HalfLifeDays)
		if boosted && c.Similarity >= a.config.ClusterSimilarity {
			w *= a.config.FrequencyBoost
		}
		c.Weight = clamp01(w)
		if c.Rating == scoping.RatingUp {
			upWeight += c.Weight
		} else {
			downWeight += c.Weight
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Weight != candidates[j].Weight {
			return candidates[i].Weight > candidates[j].Weight
		}
		return candidates[i].FeedbackID < candidates[j].FeedbackID
	})

	agg.Citations = candidates
	agg.TotalWeight = upWeight + downWeight
	if agg.TotalWeight > 0 {
		agg.AgreementScore = (upWeight - downWeight) / agg.TotalWeight
		upFrac := upWeight / agg.TotalWeight
		downFrac := downWeight / agg.TotalWeight
		agg.Conflicting = upFrac > a.config.ConflictFraction && downFrac > a.config.ConflictFraction
	}
	return agg
}

func (a *Aggregator) searchWithRetry(ctx context.Context, query []float32, opts vectorindex.SearchOptions) ([]vectorindex.Match, error) {
	var lastErr error
	backoff := a.config.RetryBackoff

	for attempt := 0; attempt <= a.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, scoping.NewRetrievalError("index", "search", ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
			a.logger.Debug("retrying feedback search", "attempt", attempt)
		}

		matches, err := a.index.Search(ctx, query, opts)
		if err == nil {
			return matches, nil
		}
		lastErr = err
	}

	return nil, scoping.NewRetrievalError("index", "search", lastErr)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
