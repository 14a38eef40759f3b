package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("decision recorded", "outcome", "in-scope")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if entry["msg"] != "decision recorded" {
		t.Errorf("msg = %v, want decision recorded", entry["msg"])
	}
	if entry["outcome"] != "in-scope" {
		t.Errorf("outcome = %v, want in-scope", entry["outcome"])
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "debug", Format: "text", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Debug("chunk indexed", "commitment", "gdpr-retention")

	out := buf.String()
	if !strings.Contains(out, "chunk indexed") || !strings.Contains(out, "commitment=gdpr-retention") {
		t.Errorf("unexpected text output: %s", out)
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("below threshold")
	if buf.Len() != 0 {
		t.Errorf("info log emitted at warn level: %s", buf.String())
	}
	logger.Warn("at threshold")
	if buf.Len() == 0 {
		t.Error("warn log suppressed at warn level")
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"WARN", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
