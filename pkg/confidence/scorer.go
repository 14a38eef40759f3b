package confidence

import (
	"fmt"

	"scopehq/meridian/pkg/scoping"
)

// Component weights. They sum to 1 so the score lands in [0, 1] without
// rescaling.
const (
	policyWeight    = 0.4
	feedbackWeight  = 0.4
	agreementWeight = 0.2
)

// Cutoffs are the band boundaries, applied as closed lower bounds in
// descending order.
type Cutoffs struct {
	High   float64 `yaml:"high"`
	Medium float64 `yaml:"medium"`
	Low    float64 `yaml:"low"`
}

// DefaultCutoffs returns the default band boundaries.
func DefaultCutoffs() Cutoffs {
	return Cutoffs{High: 0.85, Medium: 0.70, Low: 0.50}
}

// Validate checks that the cutoffs are ordered and inside (0, 1].
func (c Cutoffs) Validate() error {
	if c.High <= c.Medium || c.Medium <= c.Low {
		return fmt.Errorf("cutoffs must descend: high=%v medium=%v low=%v", c.High, c.Medium, c.Low)
	}
	if c.Low <= 0 || c.High > 1 {
		return fmt.Errorf("cutoffs must lie in (0, 1]: high=%v low=%v", c.High, c.Low)
	}
	return nil
}

// PolicySignal summarizes the retrieved policy evidence.
type PolicySignal struct {
	// BestScore is the highest retrieval similarity among the chunks.
	BestScore float64

	// ChunkCount is how many chunks cleared the retrieval threshold.
	ChunkCount int
}

// FeedbackSignal summarizes the aggregated feedback evidence.
type FeedbackSignal struct {
	TotalWeight    float64
	Count          int
	AgreementScore float64
	Conflicting    bool
}

// Assessment is the scored result with its derivation spelled out.
type Assessment struct {
	Score float64      `json:"score"`
	Band  scoping.Band `json:"band"`

	// Components are the three weighted contributions, keyed "policy",
	// "feedback" and "agreement".
	Components map[string]float64 `json:"components"`

	// Reasoning is a mechanical, human-readable derivation.
	Reasoning []string `json:"reasoning"`
}

// Score computes the confidence assessment for one decision.
//
// The policy component saturates on the best chunk's similarity, lifted
// slightly per additional supporting chunk. The feedback component
// saturates on total aggregate weight, lifted per additional record. The
// agreement component carries the signed agreement score, halved when the
// feedback conflicts. Empty evidence contributes exactly zero, so a cold
// start scores on policy evidence alone.
func Score(policy PolicySignal, feedback FeedbackSignal, cutoffs Cutoffs) Assessment {
	var reasoning []string

	var policyComponent float64
	if policy.ChunkCount > 0 {
		strength := policy.BestScore * (1 + 0.1*float64(policy.ChunkCount-1))
		if strength > 1 {
			strength = 1
		}
		policyComponent = policyWeight * strength
		reasoning = append(reasoning, fmt.Sprintf(
			"policy evidence: %d chunk(s), best similarity %.2f, contributes %.3f",
			policy.ChunkCount, policy.BestScore, policyComponent))
	} else {
		reasoning = append(reasoning, "policy evidence: no chunks cleared the threshold, contributes 0")
	}

	var feedbackComponent float64
	if feedback.Count > 0 {
		strength := feedback.TotalWeight * (1 + 0.15*float64(feedback.Count-1))
		if strength > 1 {
			strength = 1
		}
		feedbackComponent = feedbackWeight * strength
		reasoning = append(reasoning, fmt.Sprintf(
			"feedback evidence: %d record(s), total weight %.2f, contributes %.3f",
			feedback.Count, feedback.TotalWeight, feedbackComponent))
	} else {
		reasoning = append(reasoning, "feedback evidence: none, contributes 0")
	}

	var agreementComponent float64
	if feedback.Count > 0 {
		agreementComponent = agreementWeight * feedback.AgreementScore
		if feedback.Conflicting {
			agreementComponent /= 2
			reasoning = append(reasoning, fmt.Sprintf(
				"feedback conflicts: agreement %.2f halved, contributes %.3f",
				feedback.AgreementScore, agreementComponent))
		} else {
			reasoning = append(reasoning, fmt.Sprintf(
				"feedback agreement %.2f contributes %.3f",
				feedback.AgreementScore, agreementComponent))
		}
	}

	score := policyComponent + feedbackComponent + agreementComponent
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	band := bandFor(score, cutoffs)
	reasoning = append(reasoning, fmt.Sprintf("score %.3f falls in band %q", score, band))

	return Assessment{
		Score: score,
		Band:  band,
		Components: map[string]float64{
			"policy":    policyComponent,
			"feedback":  feedbackComponent,
			"agreement": agreementComponent,
		},
		Reasoning: reasoning,
	}
}

func bandFor(score float64, c Cutoffs) scoping.Band {
	switch {
	case score >= c.High:
		return scoping.BandHigh
	case score >= c.Medium:
		return scoping.BandMedium
	case score >= c.Low:
		return scoping.BandLow
	default:
		return scoping.BandInsufficient
	}
}
