package workflow

import (
	"time"

	"scopehq/meridian/pkg/asset"
	"scopehq/meridian/pkg/confidence"
	"scopehq/meridian/pkg/retrieval"
	"scopehq/meridian/pkg/scoping"
)

// Stage identifies one step of the decision workflow. The order is fixed;
// every completed stage appends one checkpoint under its name.
type Stage string

const (
	StageParseAsset       Stage = "parse_asset"
	StageRetrievePolicy   Stage = "retrieve_policy"
	StageRetrieveFeedback Stage = "retrieve_feedback"
	StageAssessConfidence Stage = "assess_confidence"
	StageBuildEvidence    Stage = "build_evidence"
	StageGenerateDecision Stage = "generate_decision"
	StagePersistDecision  Stage = "persist_decision"
	StageDone             Stage = "done"
)

// Stages is the canonical execution order.
var Stages = []Stage{
	StageParseAsset,
	StageRetrievePolicy,
	StageRetrieveFeedback,
	StageAssessConfidence,
	StageBuildEvidence,
	StageGenerateDecision,
	StagePersistDecision,
	StageDone,
}

// stageIndex returns a stage's position in the canonical order, or -1
// for an unknown stage.
func stageIndex(stage Stage) int {
	for i, s := range Stages {
		if s == stage {
			return i
		}
	}
	return -1
}

// FeedbackSnapshot is the serializable form of the feedback aggregate,
// kept in checkpoints so replay can recompute the score without
// re-querying the index.
type FeedbackSnapshot struct {
	Citations      []scoping.FeedbackCitation `json:"citations"`
	TotalWeight    float64                    `json:"total_weight"`
	AgreementScore float64                    `json:"agreement_score"`
	Conflicting    bool                       `json:"conflicting"`
}

// State is the full workflow state carried between stages. Each stage
// returns a complete next state; checkpoints serialize it verbatim.
type State struct {
	SessionID      string    `json:"session_id"`
	AssetURI       string    `json:"asset_uri"`
	CommitmentName string    `json:"commitment_name"`
	StartedAt      time.Time `json:"started_at"`

	// Set by ParseAsset.
	Asset *asset.Reference `json:"asset,omitempty"`

	// Set by RetrievePolicy.
	Commitment     *scoping.Commitment     `json:"commitment,omitempty"`
	QueryEmbedding []float32               `json:"query_embedding,omitempty"`
	PolicyChunks   []retrieval.ScoredChunk `json:"policy_chunks,omitempty"`

	// Set by RetrieveFeedback.
	Feedback *FeedbackSnapshot `json:"feedback,omitempty"`

	// Set by AssessConfidence.
	Assessment *confidence.Assessment `json:"assessment,omitempty"`

	// Set by BuildEvidence (or by the gate, for insufficient-data runs).
	Evidence *scoping.EvidencePackage `json:"evidence,omitempty"`

	// Set by GenerateDecision or the gate.
	Outcome             scoping.Outcome `json:"outcome,omitempty"`
	Reasoning           string          `json:"reasoning,omitempty"`
	MissingInformation  []string        `json:"missing_information,omitempty"`
	ClarifyingQuestions []string        `json:"clarifying_questions,omitempty"`

	// Set by PersistDecision.
	DecisionID string `json:"decision_id,omitempty"`
}

// policySignal derives the scorer input from the retrieved chunks.
func (s *State) policySignal() confidence.PolicySignal {
	sig := confidence.PolicySignal{ChunkCount: len(s.PolicyChunks)}
	for _, c := range s.PolicyChunks {
		if c.Score > sig.BestScore {
			sig.BestScore = c.Score
		}
	}
	return sig
}

// feedbackSignal derives the scorer input from the feedback snapshot.
func (s *State) feedbackSignal() confidence.FeedbackSignal {
	if s.Feedback == nil {
		return confidence.FeedbackSignal{}
	}
	return confidence.FeedbackSignal{
		TotalWeight:    s.Feedback.TotalWeight,
		Count:          len(s.Feedback.Citations),
		AgreementScore: s.Feedback.AgreementScore,
		Conflicting:    s.Feedback.Conflicting,
	}
}
