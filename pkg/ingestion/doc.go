// Package ingestion loads commitment documents into the engine: chunking
// the policy text into overlapping segments, embedding each chunk, and
// persisting the commitment, its chunks and their vectors. Re-ingesting a
// commitment replaces its chunk set and vectors atomically from the
// engine's point of view.
//
// The directory watcher keeps a commitments directory in sync: markdown
// file changes are debounced and re-ingested automatically.
package ingestion
