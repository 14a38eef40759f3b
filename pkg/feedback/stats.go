package feedback

import (
	"context"

	"scopehq/meridian/pkg/scoping"
	"scopehq/meridian/pkg/store"
)

// Stats summarizes the feedback history for one commitment. Accuracy is
// the fraction of rated decisions humans validated.
type Stats struct {
	CommitmentID string  `json:"commitment_id,omitempty"`
	Total        int     `json:"total"`
	Up           int     `json:"up"`
	Down         int     `json:"down"`
	Accuracy     float64 `json:"accuracy"`
}

// ComputeStats tallies feedback for a commitment; an empty commitmentID
// tallies everything.
func ComputeStats(ctx context.Context, s store.Store, commitmentID string) (*Stats, error) {
	records, err := s.ListFeedback(ctx, commitmentID, 0)
	if err != nil {
		return nil, err
	}

	stats := &Stats{CommitmentID: commitmentID}
	for _, f := range records {
		stats.Total++
		if f.Rating == scoping.RatingUp {
			stats.Up++
		} else {
			stats.Down++
		}
	}
	if stats.Total > 0 {
		stats.Accuracy = float64(stats.Up) / float64(stats.Total)
	}
	return stats, nil
}
