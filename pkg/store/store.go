package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"scopehq/meridian/pkg/scoping"
)

// ErrNotFound is returned by keyed reads when no record exists.
var ErrNotFound = errors.New("record not found")

// ErrDecisionExists is returned when storing a decision for a session that
// already has one. Decisions are write-once per session.
var ErrDecisionExists = errors.New("decision already exists for session")

// ErrSequenceConflict is returned when a checkpoint append does not extend
// the session's sequence by exactly one.
var ErrSequenceConflict = errors.New("checkpoint sequence conflict")

// Checkpoint is one durable snapshot of workflow state, taken at a stage
// boundary. The sequence of checkpoints for a session reconstructs the
// entire decision trace.
type Checkpoint struct {
	SessionID string          `json:"session_id"`
	Stage     string          `json:"stage"`
	Seq       int64           `json:"seq"`
	State     json.RawMessage `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store is the durability contract for the scoping engine.
// Implementations must be safe for concurrent use.
type Store interface {
	// Commitments.
	PutCommitment(ctx context.Context, c *scoping.Commitment) error
	GetCommitment(ctx context.Context, id string) (*scoping.Commitment, error)
	GetCommitmentByName(ctx context.Context, name string) (*scoping.Commitment, error)
	ListCommitments(ctx context.Context) ([]*scoping.Commitment, error)

	// Policy chunks. ReplaceChunks swaps a commitment's chunk set
	// atomically, supporting re-ingestion.
	ReplaceChunks(ctx context.Context, commitmentID string, chunks []*scoping.PolicyChunk) error
	GetChunks(ctx context.Context, commitmentID string) ([]*scoping.PolicyChunk, error)

	// Decisions. PutDecision fails with ErrDecisionExists when the session
	// already has one; decisions are never mutated after persistence.
	PutDecision(ctx context.Context, d *scoping.Decision) error
	GetDecision(ctx context.Context, id string) (*scoping.Decision, error)
	GetDecisionBySession(ctx context.Context, sessionID string) (*scoping.Decision, error)
	ListDecisions(ctx context.Context, commitmentID string, limit int) ([]*scoping.Decision, error)

	// Feedback.
	PutFeedback(ctx context.Context, f *scoping.Feedback) error
	GetFeedback(ctx context.Context, id string) (*scoping.Feedback, error)
	GetFeedbackByDecision(ctx context.Context, decisionID string) ([]*scoping.Feedback, error)
	ListFeedback(ctx context.Context, commitmentID string, limit int) ([]*scoping.Feedback, error)

	// Checkpoints. Appends are strictly ordered per session; read-back is
	// ordered by sequence number ascending.
	AppendCheckpoint(ctx context.Context, cp *Checkpoint) error
	ListCheckpoints(ctx context.Context, sessionID string) ([]*Checkpoint, error)
	DeleteCheckpointsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases resources held by the backend.
	Close() error
}

// StorageError represents an error from a storage backend.
type StorageError struct {
	Backend   string // backend type ("sqlite", "memory")
	Operation string // operation that failed
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}
