package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestProgress_StepAndFinish(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 3)

	p.Step("gdpr-retention.md")
	p.Step("soc2-access.md")
	p.Fail("broken.md", errors.New("empty document"))

	if failed := p.Finish(); failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}

	out := buf.String()
	for _, want := range []string{"[1/3] gdpr-retention.md", "[3/3] broken.md: empty document", "2 of 3 succeeded"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestProgress_CleanRun(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 2)
	p.Step("a.md")
	p.Step("b.md")

	if failed := p.Finish(); failed != 0 {
		t.Errorf("failed = %d, want 0", failed)
	}
	if !strings.Contains(buf.String(), "done: 2 in") {
		t.Errorf("missing summary line:\n%s", buf.String())
	}
}
