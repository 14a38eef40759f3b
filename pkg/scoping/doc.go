// Package scoping defines the core domain types for Meridian's compliance
// scoping engine: commitments, policy chunks, decisions, feedback, and the
// evidence package assembled before a decision is generated.
//
// # Data Model
//
// A Commitment is a compliance obligation (e.g., a clause of SOC 2 or GDPR)
// with associated policy text. Its text is split into PolicyChunks, each
// carrying an embedding so the engine can retrieve the most relevant
// passages for a given asset query.
//
// A Decision is the immutable outcome of one workflow run: it records the
// asset, the commitment, the outcome (in-scope, out-of-scope, or
// insufficient-data), the confidence score and band, the reasoning, and the
// full EvidencePackage that backed the decision. Decisions are never
// mutated after persistence; corrections arrive as separate Feedback
// records.
//
// Feedback links a human rating (up or down) to exactly one Decision. Its
// QueryEmbedding is the embedding of the original asset+commitment query
// that produced the decision, so future similar queries can retrieve it.
package scoping
