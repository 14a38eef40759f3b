package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"scopehq/meridian/pkg/checkpoint"
	"scopehq/meridian/pkg/confidence"
	"scopehq/meridian/pkg/scoping"
)

// ReplayReport is the result of verifying one session's checkpoint trace
// against its persisted decision.
type ReplayReport struct {
	SessionID   string          `json:"session_id"`
	Stages      []string        `json:"stages"`
	Checkpoints int             `json:"checkpoints"`
	DecisionID  string          `json:"decision_id"`
	Outcome     scoping.Outcome `json:"outcome"`
	Score       float64         `json:"score"`
	Band        scoping.Band    `json:"band"`
}

// Replay reads a session's checkpoint log, verifies the trace is well
// formed, recomputes the confidence score from the recorded retrieval
// snapshots and checks it matches the persisted decision exactly. Any
// divergence is an error: a decision whose trace does not reproduce it
// cannot be trusted in an audit.
func (e *Engine) Replay(ctx context.Context, sessionID string) (*ReplayReport, error) {
	records, err := e.log.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := checkpoint.Verify(records, string(StageParseAsset)); err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}

	var assessed *State
	stages := make([]string, 0, len(records))
	for _, rec := range records {
		stages = append(stages, rec.Stage)
		if rec.Stage == string(StageAssessConfidence) {
			var s State
			if err := json.Unmarshal(rec.State, &s); err != nil {
				return nil, fmt.Errorf("session %s: decoding %s checkpoint: %w", sessionID, rec.Stage, err)
			}
			assessed = &s
		}
	}
	if assessed == nil {
		return nil, fmt.Errorf("session %s: no %s checkpoint in trace", sessionID, StageAssessConfidence)
	}

	recomputed := confidence.Score(assessed.policySignal(), assessed.feedbackSignal(), e.cutoffs)

	decision, err := e.store.GetDecisionBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: loading decision: %w", sessionID, err)
	}

	if recomputed.Score != decision.ConfidenceScore {
		return nil, fmt.Errorf("session %s: recomputed score %v does not match persisted %v",
			sessionID, recomputed.Score, decision.ConfidenceScore)
	}
	if recomputed.Band != decision.ConfidenceBand {
		return nil, fmt.Errorf("session %s: recomputed band %q does not match persisted %q",
			sessionID, recomputed.Band, decision.ConfidenceBand)
	}
	if recomputed.Band == scoping.BandInsufficient && decision.Outcome != scoping.OutcomeInsufficientData {
		return nil, fmt.Errorf("session %s: insufficient band persisted outcome %q",
			sessionID, decision.Outcome)
	}

	return &ReplayReport{
		SessionID:   sessionID,
		Stages:      stages,
		Checkpoints: len(records),
		DecisionID:  decision.ID,
		Outcome:     decision.Outcome,
		Score:       decision.ConfidenceScore,
		Band:        decision.ConfidenceBand,
	}, nil
}
