package checkpoint

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"scopehq/meridian/pkg/store"
)

// TestStoreLog_AppendAndList tests basic log round-trips.
func TestStoreLog_AppendAndList(t *testing.T) {
	log := NewStoreLog(store.NewMemoryStore())
	ctx := context.Background()

	stages := []string{"ParseAsset", "RetrievePolicy", "RetrieveFeedback"}
	for i, stage := range stages {
		state, _ := json.Marshal(map[string]string{"stage": stage})
		err := log.Append(ctx, &Record{
			SessionID: "sess-1",
			Stage:     stage,
			Seq:       int64(i + 1),
			State:     state,
			CreatedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("Append(%s) failed: %v", stage, err)
		}
	}

	records, err := log.ListBySession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("ListBySession failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, rec := range records {
		if rec.Stage != stages[i] {
			t.Errorf("record %d stage = %q, want %q", i, rec.Stage, stages[i])
		}
	}
}

// TestVerify tests trace validation.
func TestVerify(t *testing.T) {
	mk := func(seqs []int64, stages []string) []*Record {
		out := make([]*Record, len(seqs))
		for i := range seqs {
			out[i] = &Record{Seq: seqs[i], Stage: stages[i]}
		}
		return out
	}

	tests := []struct {
		name    string
		records []*Record
		wantErr bool
	}{
		{"valid", mk([]int64{1, 2, 3}, []string{"ParseAsset", "RetrievePolicy", "RetrieveFeedback"}), false},
		{"empty", nil, true},
		{"wrong first stage", mk([]int64{1}, []string{"RetrievePolicy"}), true},
		{"gap", mk([]int64{1, 3}, []string{"ParseAsset", "RetrievePolicy"}), true},
		{"starts at zero", mk([]int64{0, 1}, []string{"ParseAsset", "RetrievePolicy"}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify(tt.records, "ParseAsset")
			if (err != nil) != tt.wantErr {
				t.Errorf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestPruner_RetentionDisabled verifies zero retention keeps everything.
func TestPruner_RetentionDisabled(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	s.AppendCheckpoint(ctx, &store.Checkpoint{
		SessionID: "s1", Stage: "ParseAsset", Seq: 1,
		State: json.RawMessage(`{}`), CreatedAt: time.Now().Add(-365 * 24 * time.Hour),
	})

	pruner := NewPruner(s, &PrunerConfig{RetentionDays: 0})
	deleted, err := pruner.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0 with retention disabled", deleted)
	}
}

// TestPruner_PrunesOldCheckpoints verifies aged checkpoints are removed.
func TestPruner_PrunesOldCheckpoints(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	s.AppendCheckpoint(ctx, &store.Checkpoint{
		SessionID: "s1", Stage: "ParseAsset", Seq: 1,
		State: json.RawMessage(`{}`), CreatedAt: time.Now().Add(-40 * 24 * time.Hour),
	})
	s.AppendCheckpoint(ctx, &store.Checkpoint{
		SessionID: "s2", Stage: "ParseAsset", Seq: 1,
		State: json.RawMessage(`{}`), CreatedAt: time.Now(),
	})

	pruner := NewPruner(s, &PrunerConfig{RetentionDays: 30})
	deleted, err := pruner.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	kept, _ := s.ListCheckpoints(ctx, "s2")
	if len(kept) != 1 {
		t.Errorf("recent checkpoint was pruned")
	}
}
