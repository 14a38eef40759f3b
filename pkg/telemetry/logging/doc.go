// Package logging configures structured logging on top of log/slog with
// selectable level and output format.
package logging
