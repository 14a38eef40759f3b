package cli

import (
	"errors"
	"strings"
	"testing"
)

func TestCommandError(t *testing.T) {
	cause := errors.New("commitment not found")
	err := NewCommandError("decide", cause)

	if !strings.Contains(err.Error(), "decide") || !strings.Contains(err.Error(), "commitment not found") {
		t.Errorf("unexpected message: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("CommandError should unwrap to its cause")
	}
}
