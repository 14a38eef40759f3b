// Package feedback implements the human-in-the-loop side of the engine:
// aggregating prior feedback into weighted signals for the confidence
// scorer, and collecting new feedback on persisted decisions.
//
// # Aggregation
//
// The aggregator searches the feedback corpus for prior queries similar to
// the current one and combines them into a small set of signals. Each
// candidate's composite weight is
//
//	clamp(similarity * recency * boost, 0, 1)
//
// where recency decays exponentially with age (old feedback contributes a
// diminishing signal, never zero) and boost rewards reinforced patterns:
// candidates similar enough to be "the same pattern" whose cluster has
// enough members. Signed agreement sums up-weights against down-weights;
// when both directions carry a meaningful fraction of the total weight the
// aggregate is flagged conflicting, which dampens its contribution to
// confidence instead of being silently averaged away.
//
// # Collection
//
// The collector writes a Feedback record and upserts the original decision
// query's embedding into the feedback corpus. It never re-opens or mutates
// the decision being rated; its only coupling to the engine is that future
// workflow runs observe the new record.
package feedback
