package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meridian.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefault_IsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: memory
retrieval:
  top_k: 8
feedback:
  half_life_days: 14
workflow:
  prompt_top_k: 5
telemetry:
  logging:
    level: debug
    format: text
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("storage backend = %q, want memory", cfg.Storage.Backend)
	}
	if cfg.Retrieval.TopK != 8 {
		t.Errorf("retrieval top_k = %d, want 8", cfg.Retrieval.TopK)
	}
	if cfg.Feedback.HalfLifeDays != 14 {
		t.Errorf("feedback half_life_days = %v, want 14", cfg.Feedback.HalfLifeDays)
	}
	if cfg.Workflow.PromptTopK != 5 {
		t.Errorf("workflow prompt_top_k = %d, want 5", cfg.Workflow.PromptTopK)
	}
	if cfg.Telemetry.Logging.Level != "debug" || cfg.Telemetry.Logging.Format != "text" {
		t.Errorf("logging = %+v, want debug/text", cfg.Telemetry.Logging)
	}

	// Untouched sections keep their defaults.
	if cfg.Retrieval.MinScore != 0.5 {
		t.Errorf("retrieval min_score = %v, want default 0.5", cfg.Retrieval.MinScore)
	}
	if cfg.Feedback.ClusterMinSize != 3 {
		t.Errorf("feedback cluster_min_size = %d, want default 3", cfg.Feedback.ClusterMinSize)
	}
	if cfg.Confidence.High != 0.85 {
		t.Errorf("confidence high = %v, want default 0.85", cfg.Confidence.High)
	}
	if !cfg.Storage.SQLite.WALMode {
		t.Error("sqlite wal_mode should default to true")
	}
}

func TestLoad_ExplicitFalseSurvivesDefaults(t *testing.T) {
	path := writeConfig(t, `
storage:
  sqlite:
    wal_mode: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.SQLite.WALMode {
		t.Error("explicit wal_mode: false was overridden by defaults")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "storage: [not: a: mapping")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate_CollectsFieldErrors(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = "postgres"
	cfg.Retrieval.TopK = 0
	cfg.Telemetry.Logging.Level = "loud"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error type = %T, want ValidationError", err)
	}

	fields := make(map[string]bool, len(verr.Errors))
	for _, fe := range verr.Errors {
		fields[fe.Field] = true
	}
	for _, want := range []string{"storage.backend", "retrieval.top_k", "telemetry.logging.level"} {
		if !fields[want] {
			t.Errorf("missing field error for %s in %v", want, verr.Errors)
		}
	}
}

func TestValidate_RemoteEmbeddingRequiresModel(t *testing.T) {
	cfg := Default()
	cfg.Embedding.BaseURL = "https://api.example.com/v1"
	cfg.Embedding.Model = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for remote embedding without model")
	}

	// No base URL means the local embedder is used and the section is
	// not validated.
	cfg.Embedding.BaseURL = ""
	if err := Validate(cfg); err != nil {
		t.Fatalf("local embedder config should validate: %v", err)
	}
}

func TestLoadWithEnvOverrides_Precedence(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: sqlite
  sqlite:
    path: data/from-file.db
retention:
  retention_days: 30
`)

	t.Setenv("MERIDIAN_STORAGE_SQLITE_PATH", "data/from-env.db")
	t.Setenv("MERIDIAN_RETENTION_DAYS", "7")
	t.Setenv("MERIDIAN_INGESTION_WATCH_DEBOUNCE", "250ms")

	cfg, err := LoadWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadWithEnvOverrides: %v", err)
	}
	if cfg.Storage.SQLite.Path != "data/from-env.db" {
		t.Errorf("sqlite path = %q, want env override", cfg.Storage.SQLite.Path)
	}
	if cfg.Retention.RetentionDays != 7 {
		t.Errorf("retention_days = %d, want 7", cfg.Retention.RetentionDays)
	}
	if cfg.Ingestion.Watch.DebounceInterval != 250*time.Millisecond {
		t.Errorf("debounce = %v, want 250ms", cfg.Ingestion.Watch.DebounceInterval)
	}
}
