// Package embedding abstracts the text-embedding capability behind a
// narrow Service interface. The production client speaks the
// OpenAI-compatible /v1/embeddings protocol; the deterministic fake
// supports tests and offline runs without a model endpoint.
package embedding
