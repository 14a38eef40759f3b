package generation

import (
	"context"
	"fmt"

	"scopehq/meridian/pkg/asset"
	"scopehq/meridian/pkg/scoping"
)

// Request carries everything the generator needs to decide one asset
// against one commitment.
type Request struct {
	Asset      asset.Reference
	Commitment scoping.Commitment
	Evidence   scoping.EvidencePackage

	// ConfidenceScore, ConfidenceBand and ConfidenceReasoning are the
	// precomputed assessment. The generator receives them as context but
	// never overrides them.
	ConfidenceScore     float64
	ConfidenceBand      scoping.Band
	ConfidenceReasoning []string
}

// Response is the structured decision produced by the generator.
type Response struct {
	Outcome   scoping.Outcome `json:"decision"`
	Reasoning string          `json:"reasoning"`

	// CitedChunkIDs and CitedDecisionIDs trace which evidence the
	// generator actually leaned on.
	CitedChunkIDs    []string `json:"cited_chunk_ids"`
	CitedDecisionIDs []string `json:"cited_decision_ids"`

	// MissingInformation and ClarifyingQuestions are populated for
	// insufficient-data outcomes.
	MissingInformation  []string `json:"missing_information,omitempty"`
	ClarifyingQuestions []string `json:"clarifying_questions,omitempty"`
}

// Validate checks the structural contract of a generated response.
func (r *Response) Validate() error {
	if !r.Outcome.Valid() {
		return fmt.Errorf("invalid outcome %q", r.Outcome)
	}
	if r.Reasoning == "" {
		return fmt.Errorf("response has no reasoning")
	}
	if r.Outcome == scoping.OutcomeInsufficientData && len(r.MissingInformation) == 0 {
		return fmt.Errorf("insufficient-data response names no missing information")
	}
	return nil
}

// Generator turns an evidence package into a decision. Implementations
// must be safe for concurrent use.
type Generator interface {
	Generate(ctx context.Context, req *Request) (*Response, error)
}
