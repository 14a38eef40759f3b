package scoping

import (
	"fmt"
	"time"
)

// Outcome is the result of a scoping decision.
type Outcome string

const (
	// OutcomeInScope indicates the asset falls inside the commitment.
	OutcomeInScope Outcome = "in-scope"
	// OutcomeOutOfScope indicates the asset falls outside the commitment.
	OutcomeOutOfScope Outcome = "out-of-scope"
	// OutcomeInsufficientData indicates the engine lacked enough evidence
	// to decide. This is a normal, successful outcome of the confidence
	// gate, not an error.
	OutcomeInsufficientData Outcome = "insufficient-data"
)

// Valid reports whether o is a recognized outcome value.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeInScope, OutcomeOutOfScope, OutcomeInsufficientData:
		return true
	}
	return false
}

// Band is the discrete confidence bucket derived from the confidence score.
type Band string

const (
	BandHigh         Band = "high"
	BandMedium       Band = "medium"
	BandLow          Band = "low"
	BandInsufficient Band = "insufficient"
)

// Valid reports whether b is a recognized band value.
func (b Band) Valid() bool {
	switch b {
	case BandHigh, BandMedium, BandLow, BandInsufficient:
		return true
	}
	return false
}

// Rating is a human thumbs-up/thumbs-down judgment on a decision.
type Rating string

const (
	RatingUp   Rating = "up"
	RatingDown Rating = "down"
)

// Valid reports whether r is a recognized rating value.
func (r Rating) Valid() bool {
	return r == RatingUp || r == RatingDown
}

// Commitment is a compliance obligation with associated policy text.
// Commitments are immutable once ingested except for explicit re-ingestion;
// the engine treats them as read-only.
type Commitment struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Domain      string    `json:"domain"`
	FullText    string    `json:"full_text"`
	Embedding   []float32 `json:"embedding,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PolicyChunk is a retrievable segment of a commitment's policy text.
// Chunk order within a commitment is meaningful for citation but not for
// retrieval ranking.
type PolicyChunk struct {
	ID           string    `json:"id"`
	CommitmentID string    `json:"commitment_id"`
	Text         string    `json:"text"`
	Embedding    []float32 `json:"embedding"`
	ChunkIndex   int       `json:"chunk_index"`
}

// ChunkCitation is a policy chunk as cited inside a decision's evidence,
// with the similarity score it carried at retrieval time.
type ChunkCitation struct {
	ChunkID      string  `json:"chunk_id"`
	CommitmentID string  `json:"commitment_id"`
	Text         string  `json:"text"`
	ChunkIndex   int     `json:"chunk_index"`
	Score        float64 `json:"score"`
}

// FeedbackCitation is a prior feedback record as cited inside a decision's
// evidence, carrying the human-written reason and correction verbatim plus
// the composite weight assigned by the aggregator.
type FeedbackCitation struct {
	FeedbackID string  `json:"feedback_id"`
	DecisionID string  `json:"decision_id"`
	AssetURI   string  `json:"asset_uri"`
	Outcome    Outcome `json:"outcome"`
	Rating     Rating  `json:"rating"`
	Reason     string  `json:"reason"`
	Correction string  `json:"correction,omitempty"`
	Similarity float64 `json:"similarity"`
	Weight     float64 `json:"weight"`
	AgeDays    float64 `json:"age_days"`
}

// DecisionCitation is a similar prior decision as cited inside a decision's
// evidence.
type DecisionCitation struct {
	DecisionID string  `json:"decision_id"`
	AssetURI   string  `json:"asset_uri"`
	Outcome    Outcome `json:"outcome"`
	Band       Band    `json:"band"`
	Reasoning  string  `json:"reasoning"`
	Similarity float64 `json:"similarity"`
}

// EvidencePackage is the bundle of retrieved evidence assembled before a
// decision is generated. It is transient: never persisted independently,
// only embedded inside a Decision at save time.
type EvidencePackage struct {
	PolicyChunks     []ChunkCitation    `json:"policy_chunks"`
	SimilarFeedback  []FeedbackCitation `json:"similar_feedback"`
	SimilarDecisions []DecisionCitation `json:"similar_decisions"`
}

// Decision is the immutable record of one completed workflow run.
type Decision struct {
	ID              string          `json:"id"`
	SessionID       string          `json:"session_id"`
	AssetURI        string          `json:"asset_uri"`
	CommitmentID    string          `json:"commitment_id"`
	CommitmentName  string          `json:"commitment_name"`
	Outcome         Outcome         `json:"outcome"`
	ConfidenceScore float64         `json:"confidence_score"`
	ConfidenceBand  Band            `json:"confidence_band"`
	Reasoning       string          `json:"reasoning"`
	Evidence        EvidencePackage `json:"evidence"`

	// MissingInformation and ClarifyingQuestions are populated only for
	// insufficient-data outcomes. They are derived mechanically from which
	// evidence components scored near zero.
	MissingInformation  []string `json:"missing_information,omitempty"`
	ClarifyingQuestions []string `json:"clarifying_questions,omitempty"`

	// QueryEmbedding is the embedding of the asset+commitment query that
	// produced this decision. Feedback on this decision inherits it so
	// future similar queries can retrieve the feedback.
	QueryEmbedding []float32 `json:"query_embedding"`

	CreatedAt time.Time `json:"created_at"`
}

// Feedback is a human correction or confirmation of a persisted Decision.
// It never re-opens the decision; it only influences future workflow runs.
type Feedback struct {
	ID           string    `json:"id"`
	DecisionID   string    `json:"decision_id"`
	CommitmentID string    `json:"commitment_id"`
	AssetURI     string    `json:"asset_uri"`
	Outcome      Outcome   `json:"outcome"`
	Rating       Rating    `json:"rating"`
	Reason       string    `json:"reason"`
	Correction   string    `json:"correction,omitempty"`

	// QueryEmbedding is the embedding of the original query that produced
	// the rated decision, not an embedding of the feedback text itself.
	QueryEmbedding []float32 `json:"query_embedding"`

	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the fields a Feedback record must carry before persistence.
func (f *Feedback) Validate() error {
	if f.DecisionID == "" {
		return fmt.Errorf("feedback requires a decision id")
	}
	if !f.Rating.Valid() {
		return fmt.Errorf("invalid rating %q", f.Rating)
	}
	if f.Reason == "" {
		return fmt.Errorf("feedback requires a reason")
	}
	if f.Rating == RatingDown && f.Correction == "" {
		return fmt.Errorf("down feedback requires a correction")
	}
	return nil
}
