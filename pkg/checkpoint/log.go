package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"scopehq/meridian/pkg/store"
)

// Record is one durable snapshot of workflow state. Seq is monotonically
// increasing and scoped to the session, starting at 1.
type Record struct {
	SessionID string          `json:"session_id"`
	Stage     string          `json:"stage"`
	Seq       int64           `json:"seq"`
	State     json.RawMessage `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
}

// Log is the append-only checkpoint contract.
type Log interface {
	// Append durably records a checkpoint. The record's Seq must extend
	// the session's log by exactly one.
	Append(ctx context.Context, rec *Record) error

	// ListBySession returns a session's checkpoints ordered by sequence.
	ListBySession(ctx context.Context, sessionID string) ([]*Record, error)
}

// StoreLog implements Log on top of the evidence store.
type StoreLog struct {
	store store.Store
}

// NewStoreLog creates a checkpoint log backed by the given store.
func NewStoreLog(s store.Store) *StoreLog {
	return &StoreLog{store: s}
}

// Append durably records a checkpoint.
func (l *StoreLog) Append(ctx context.Context, rec *Record) error {
	return l.store.AppendCheckpoint(ctx, &store.Checkpoint{
		SessionID: rec.SessionID,
		Stage:     rec.Stage,
		Seq:       rec.Seq,
		State:     rec.State,
		CreatedAt: rec.CreatedAt,
	})
}

// ListBySession returns a session's checkpoints ordered by sequence.
func (l *StoreLog) ListBySession(ctx context.Context, sessionID string) ([]*Record, error) {
	cps, err := l.store.ListCheckpoints(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]*Record, len(cps))
	for i, cp := range cps {
		out[i] = &Record{
			SessionID: cp.SessionID,
			Stage:     cp.Stage,
			Seq:       cp.Seq,
			State:     cp.State,
			CreatedAt: cp.CreatedAt,
		}
	}
	return out, nil
}

// Verify checks that a session's checkpoint trace is well formed: non-empty,
// strictly increasing from 1, and starting at the expected first stage.
func Verify(records []*Record, firstStage string) error {
	if len(records) == 0 {
		return fmt.Errorf("no checkpoints recorded")
	}
	if records[0].Stage != firstStage {
		return fmt.Errorf("trace starts at %q, expected %q", records[0].Stage, firstStage)
	}
	for i, rec := range records {
		if rec.Seq != int64(i+1) {
			return fmt.Errorf("checkpoint %d has seq %d, expected %d", i, rec.Seq, i+1)
		}
	}
	return nil
}
