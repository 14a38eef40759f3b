// Package cli provides shared helpers for the meridian command line:
// output formatting, command errors, signal-aware contexts, and progress
// reporting.
package cli
