package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"scopehq/meridian/pkg/scoping"
)

// MemoryStore implements the Store interface using in-memory maps.
// This implementation is intended for testing only.
type MemoryStore struct {
	commitments map[string]*scoping.Commitment
	chunks      map[string][]*scoping.PolicyChunk // by commitment ID
	decisions   map[string]*scoping.Decision      // by decision ID
	bySession   map[string]string                 // session ID -> decision ID
	feedback    map[string]*scoping.Feedback      // by feedback ID
	checkpoints map[string][]*Checkpoint          // by session ID
	mu          sync.RWMutex
}

// NewMemoryStore creates a new in-memory storage backend.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		commitments: make(map[string]*scoping.Commitment),
		chunks:      make(map[string][]*scoping.PolicyChunk),
		decisions:   make(map[string]*scoping.Decision),
		bySession:   make(map[string]string),
		feedback:    make(map[string]*scoping.Feedback),
		checkpoints: make(map[string][]*Checkpoint),
	}
}

// PutCommitment inserts or replaces a commitment.
func (s *MemoryStore) PutCommitment(ctx context.Context, c *scoping.Commitment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.commitments[c.ID] = &cp
	return nil
}

// GetCommitment retrieves a commitment by ID.
func (s *MemoryStore) GetCommitment(ctx context.Context, id string) (*scoping.Commitment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.commitments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// GetCommitmentByName retrieves a commitment by name.
func (s *MemoryStore) GetCommitmentByName(ctx context.Context, name string) (*scoping.Commitment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.commitments {
		if c.Name == name {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// ListCommitments returns all commitments ordered by name.
func (s *MemoryStore) ListCommitments(ctx context.Context) ([]*scoping.Commitment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*scoping.Commitment, 0, len(s.commitments))
	for _, c := range s.commitments {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ReplaceChunks swaps a commitment's chunk set.
func (s *MemoryStore) ReplaceChunks(ctx context.Context, commitmentID string, chunks []*scoping.PolicyChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copies := make([]*scoping.PolicyChunk, len(chunks))
	for i, chunk := range chunks {
		cp := *chunk
		copies[i] = &cp
	}
	s.chunks[commitmentID] = copies
	return nil
}

// GetChunks returns a commitment's chunks ordered by chunk index.
func (s *MemoryStore) GetChunks(ctx context.Context, commitmentID string) ([]*scoping.PolicyChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := s.chunks[commitmentID]
	out := make([]*scoping.PolicyChunk, len(chunks))
	for i, chunk := range chunks {
		cp := *chunk
		out[i] = &cp
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out, nil
}

// PutDecision persists a decision, write-once per session.
func (s *MemoryStore) PutDecision(ctx context.Context, d *scoping.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bySession[d.SessionID]; exists {
		return ErrDecisionExists
	}
	cp := *d
	s.decisions[d.ID] = &cp
	s.bySession[d.SessionID] = d.ID
	return nil
}

// GetDecision retrieves a decision by ID.
func (s *MemoryStore) GetDecision(ctx context.Context, id string) (*scoping.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.decisions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

// GetDecisionBySession retrieves the decision persisted for a session.
func (s *MemoryStore) GetDecisionBySession(ctx context.Context, sessionID string) (*scoping.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.bySession[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.decisions[id]
	return &cp, nil
}

// ListDecisions returns decisions newest first.
func (s *MemoryStore) ListDecisions(ctx context.Context, commitmentID string, limit int) ([]*scoping.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*scoping.Decision
	for _, d := range s.decisions {
		if commitmentID != "" && d.CommitmentID != commitmentID {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PutFeedback appends a feedback record.
func (s *MemoryStore) PutFeedback(ctx context.Context, f *scoping.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *f
	s.feedback[f.ID] = &cp
	return nil
}

// GetFeedback returns one feedback record by id.
func (s *MemoryStore) GetFeedback(ctx context.Context, id string) (*scoping.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.feedback[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *f
	return &cp, nil
}

// GetFeedbackByDecision returns all feedback for one decision, oldest first.
func (s *MemoryStore) GetFeedbackByDecision(ctx context.Context, decisionID string) ([]*scoping.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*scoping.Feedback
	for _, f := range s.feedback {
		if f.DecisionID == decisionID {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListFeedback returns feedback newest first.
func (s *MemoryStore) ListFeedback(ctx context.Context, commitmentID string, limit int) ([]*scoping.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*scoping.Feedback
	for _, f := range s.feedback {
		if commitmentID != "" && f.CommitmentID != commitmentID {
			continue
		}
		cp := *f
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// AppendCheckpoint appends a checkpoint, enforcing the per-session sequence.
func (s *MemoryStore) AppendCheckpoint(ctx context.Context, cp *Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.checkpoints[cp.SessionID]
	expected := int64(1)
	if len(existing) > 0 {
		expected = existing[len(existing)-1].Seq + 1
	}
	if cp.Seq != expected {
		return fmt.Errorf("%w: session %s expected seq %d, got %d",
			ErrSequenceConflict, cp.SessionID, expected, cp.Seq)
	}

	stored := *cp
	stored.State = append([]byte(nil), cp.State...)
	s.checkpoints[cp.SessionID] = append(existing, &stored)
	return nil
}

// ListCheckpoints returns a session's checkpoints ordered by sequence.
func (s *MemoryStore) ListCheckpoints(ctx context.Context, sessionID string) ([]*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	existing := s.checkpoints[sessionID]
	out := make([]*Checkpoint, len(existing))
	for i, cp := range existing {
		c := *cp
		c.State = append([]byte(nil), cp.State...)
		out[i] = &c
	}
	return out, nil
}

// DeleteCheckpointsBefore removes checkpoints created before the cutoff.
func (s *MemoryStore) DeleteCheckpointsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for session, cps := range s.checkpoints {
		kept := cps[:0]
		for _, cp := range cps {
			if cp.CreatedAt.Before(cutoff) {
				deleted++
				continue
			}
			kept = append(kept, cp)
		}
		if len(kept) == 0 {
			delete(s.checkpoints, session)
		} else {
			s.checkpoints[session] = kept
		}
	}
	return deleted, nil
}

// Close is a no-op for the memory backend.
func (s *MemoryStore) Close() error {
	return nil
}
