package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

type stringerValue struct{}

func (stringerValue) String() string { return "rendered" }

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(FormatText)

	if err := f.FormatTo(&buf, stringerValue{}); err != nil {
		t.Fatalf("FormatTo: %v", err)
	}
	if got := buf.String(); got != "rendered\n" {
		t.Errorf("stringer output = %q, want rendered", got)
	}

	buf.Reset()
	if err := f.FormatTo(&buf, 42); err != nil {
		t.Fatalf("FormatTo: %v", err)
	}
	if got := buf.String(); got != "42\n" {
		t.Errorf("fallback output = %q, want 42", got)
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(FormatJSON)

	data := map[string]any{"outcome": "in-scope", "score": 0.9}
	if err := f.FormatTo(&buf, data); err != nil {
		t.Fatalf("FormatTo: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded["outcome"] != "in-scope" {
		t.Errorf("outcome = %v, want in-scope", decoded["outcome"])
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("JSON output should be indented")
	}
}

func TestNewFormatter_UnknownFallsBackToText(t *testing.T) {
	if _, ok := NewFormatter("yaml").(*TextFormatter); !ok {
		t.Error("unknown format should fall back to text")
	}
}
