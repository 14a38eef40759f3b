// Package retrieval wraps the similarity index for the engine's two
// read-side corpora: policy chunks and prior decisions.
//
// Retrievers never fail a workflow. Index errors are retried with bounded
// backoff, and after exhaustion the retriever degrades to empty results —
// "no evidence found" is a legitimate state that feeds the confidence gate,
// not a crash. An empty result from a fresh commitment is the normal cold
// start.
package retrieval
