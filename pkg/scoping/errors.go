package scoping

import "fmt"

// RetrievalError represents a Similarity Index or Evidence Store read that
// failed or timed out. Retrieval errors are retryable at the stage level;
// after retries are exhausted the stage degrades to empty results rather
// than failing the workflow.
type RetrievalError struct {
	Source string // "index" or "store"
	Op     string // operation that failed
	Cause  error
}

// Error implements the error interface.
func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval unavailable [source=%s, op=%s]: %v", e.Source, e.Op, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RetrievalError) Unwrap() error {
	return e.Cause
}

// NewRetrievalError creates a new RetrievalError.
func NewRetrievalError(source, op string, cause error) *RetrievalError {
	return &RetrievalError{Source: source, Op: op, Cause: cause}
}

// GenerationError represents a failed or unparsable decision-generation
// call. It reflects a tooling failure, not an evidential gap, and is
// surfaced as a terminal workflow error distinct from insufficient-data.
type GenerationError struct {
	Model string
	Cause error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("decision generation failed [model=%s]: %v", e.Model, e.Cause)
	}
	return fmt.Sprintf("decision generation failed: %v", e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// NewGenerationError creates a new GenerationError.
func NewGenerationError(model string, cause error) *GenerationError {
	return &GenerationError{Model: model, Cause: cause}
}

// PersistenceError represents a failed store write. It is fatal for the
// request: the caller must be told the decision was computed but not
// durably recorded. LastSeq is the sequence number of the last checkpoint
// known durable, to support manual retry and resume.
type PersistenceError struct {
	SessionID string
	LastSeq   int64
	Cause     error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed [session=%s, last_checkpoint_seq=%d]: %v",
		e.SessionID, e.LastSeq, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// NewPersistenceError creates a new PersistenceError.
func NewPersistenceError(sessionID string, lastSeq int64, cause error) *PersistenceError {
	return &PersistenceError{SessionID: sessionID, LastSeq: lastSeq, Cause: cause}
}
