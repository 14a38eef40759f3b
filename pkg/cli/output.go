package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is plain text output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output.
	FormatJSON OutputFormat = "json"
)

// Formatter formats command output.
type Formatter interface {
	FormatTo(w io.Writer, data any) error
}

// TextFormatter formats output as plain text. Types implementing
// fmt.Stringer render through String; everything else falls back to the
// default verb.
type TextFormatter struct{}

// FormatTo writes data to writer in text format.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	if s, ok := data.(fmt.Stringer); ok {
		_, err := fmt.Fprintln(w, s.String())
		return err
	}
	_, err := fmt.Fprintf(w, "%v\n", data)
	return err
}

// JSONFormatter formats output as indented JSON.
type JSONFormatter struct{}

// FormatTo writes data to writer in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// NewFormatter creates a formatter for the specified format. Unknown
// formats fall back to text.
func NewFormatter(format OutputFormat) Formatter {
	if format == FormatJSON {
		return &JSONFormatter{}
	}
	return &TextFormatter{}
}
