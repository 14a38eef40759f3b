package generation

import (
	"fmt"
	"strings"

	"scopehq/meridian/pkg/scoping"
)

// systemPrompt defines the generator's role, output contract and rules.
// The output schema mirrors the Response type exactly.
const systemPrompt = `You are an expert in purpose limitation and data governance. Your role is to determine whether a specific asset is IN-SCOPE or OUT-OF-SCOPE for a given compliance commitment.

## Your Responsibilities

1. Analyze the commitment language: read the provided policy sections carefully to understand what data is protected and for what purpose.
2. Learn from prior decisions: review similar past decisions to keep decisions consistent over time.
3. Weight human feedback most heavily: when human experts have validated or corrected decisions on similar assets, their judgment takes precedence over your own analysis.
4. Cite all sources: reference the policy chunks and prior decisions that influenced your reasoning by their IDs.
5. Admit uncertainty: if you lack sufficient information for a confident decision, respond with "insufficient-data" and say what is missing. Never guess.

## Output Format

Respond with a single JSON object following this exact schema:

{
  "decision": "in-scope" | "out-of-scope" | "insufficient-data",
  "reasoning": "your detailed reasoning",
  "cited_chunk_ids": ["chunk ids you relied on"],
  "cited_decision_ids": ["prior decision ids that influenced you"],
  "missing_information": ["what is needed, only for insufficient-data"],
  "clarifying_questions": ["questions for a human expert, only for insufficient-data"]
}

## Rules

1. If the decision is "insufficient-data", populate missing_information and clarifying_questions. Do not guess.
2. If the decision is "in-scope" or "out-of-scope", the reasoning must cite specific policy language and explain how it applies to this asset.
3. Use only chunk and decision IDs that appear in the request.
4. If human feedback contradicts your analysis, follow the human feedback unless you have strong policy evidence otherwise, and say so in the reasoning.
5. Respond with the JSON object only, no surrounding text.`

// BuildPrompts renders the request's evidence into system and user
// prompts. The rendering is deterministic: the same request produces the
// same prompts.
func BuildPrompts(req *Request) (system, user string) {
	var b strings.Builder

	fmt.Fprintf(&b, "# ASSET SCOPING DECISION REQUEST\n\n")
	fmt.Fprintf(&b, "Asset URI: %s\n", req.Asset.String())
	fmt.Fprintf(&b, "Asset Kind: %s\n", req.Asset.Kind)
	fmt.Fprintf(&b, "Asset Descriptor: %s\n", req.Asset.Descriptor)
	fmt.Fprintf(&b, "Asset Domain: %s\n", req.Asset.Domain)
	fmt.Fprintf(&b, "Commitment: %s\n\n", req.Commitment.Name)

	b.WriteString("## THE COMMITMENT LANGUAGE\n\n")
	if req.Commitment.Description != "" {
		fmt.Fprintf(&b, "Purpose: %s\n\n", req.Commitment.Description)
	}
	if len(req.Evidence.PolicyChunks) > 0 {
		b.WriteString("Relevant sections retrieved via semantic search:\n\n")
		for i, c := range req.Evidence.PolicyChunks {
			fmt.Fprintf(&b, "### Chunk %d (id: %s, similarity %.3f)\n%s\n\n", i+1, c.ChunkID, c.Score, c.Text)
		}
	} else {
		b.WriteString("No relevant commitment documentation was retrieved. Without policy language you likely have insufficient data to decide.\n\n")
	}

	b.WriteString("## PRIOR DECISIONS\n\n")
	if len(req.Evidence.SimilarDecisions) > 0 {
		b.WriteString("Similar scoping decisions made previously. Keep decisions consistent with these patterns.\n\n")
		for i, d := range req.Evidence.SimilarDecisions {
			fmt.Fprintf(&b, "### Prior Decision %d (id: %s, similarity %.3f)\n", i+1, d.DecisionID, d.Similarity)
			fmt.Fprintf(&b, "Asset: %s\nDecision: %s (band %s)\nReasoning: %s\n\n", d.AssetURI, d.Outcome, d.Band, truncateText(d.Reasoning, 500))
		}
	} else {
		b.WriteString("No similar prior decisions found. This may be the first decision for this commitment.\n\n")
	}

	b.WriteString("## HUMAN FEEDBACK\n\n")
	if len(req.Evidence.SimilarFeedback) > 0 {
		b.WriteString("Human feedback is the most authoritative signal. Corrections on similar assets should heavily influence your decision.\n\n")
		for i, f := range req.Evidence.SimilarFeedback {
			verdict := "VALIDATED"
			if f.Rating == scoping.RatingDown {
				verdict = "CORRECTED"
			}
			fmt.Fprintf(&b, "### Feedback %d - %s (similarity %.3f, weight %.2f)\n", i+1, verdict, f.Similarity, f.Weight)
			fmt.Fprintf(&b, "Asset: %s\nEngine said: %s\nHuman reason: %s\n", f.AssetURI, f.Outcome, f.Reason)
			if f.Correction != "" {
				fmt.Fprintf(&b, "Human correction: %s\n", f.Correction)
			}
			b.WriteString("\n")
		}
	} else {
		b.WriteString("No human feedback available for similar assets.\n\n")
	}

	b.WriteString("## CONFIDENCE CONTEXT\n\n")
	fmt.Fprintf(&b, "Precomputed confidence: %.2f (band %s)\n", req.ConfidenceScore, req.ConfidenceBand)
	for _, r := range req.ConfidenceReasoning {
		fmt.Fprintf(&b, "- %s\n", r)
	}
	b.WriteString("\n")

	b.WriteString("## YOUR TASK\n\n")
	fmt.Fprintf(&b, "Determine whether the asset %s is in-scope, out-of-scope, or insufficient-data for the commitment %q. ", req.Asset.String(), req.Commitment.Name)
	b.WriteString("Cite specific chunk IDs, explain how prior decisions and human feedback influenced you, and respond in the JSON format from the system prompt.\n")

	return systemPrompt, b.String()
}

func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "... [truncated]"
}
