package config

import (
	"fmt"
	"strings"
)

// FieldError is a validation error for one configuration field.
type FieldError struct {
	// Field is the dotted path to the field (e.g., "storage.backend").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects all field errors found in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"json": true, "text": true}
)

// Validate checks the whole configuration and returns a ValidationError
// listing every violation, or nil when the configuration is valid.
func Validate(cfg *Config) error {
	var errs []FieldError

	switch cfg.Storage.Backend {
	case "sqlite":
		if cfg.Storage.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.path",
				Message: "path is required for the sqlite backend",
			})
		}
	case "memory":
	default:
		errs = append(errs, FieldError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("unknown backend %q (want sqlite or memory)", cfg.Storage.Backend),
		})
	}

	if cfg.Index.Backend != "memory" {
		errs = append(errs, FieldError{
			Field:   "index.backend",
			Message: fmt.Sprintf("unknown backend %q (only memory is supported)", cfg.Index.Backend),
		})
	}

	// Empty base URLs select the deterministic local backends, so the
	// client configs are only validated when a remote endpoint is set.
	if cfg.Embedding.BaseURL != "" {
		if err := cfg.Embedding.Validate(); err != nil {
			errs = append(errs, FieldError{Field: "embedding", Message: err.Error()})
		}
	}
	if cfg.Generation.BaseURL != "" {
		if err := cfg.Generation.Validate(); err != nil {
			errs = append(errs, FieldError{Field: "generation", Message: err.Error()})
		}
	}

	if cfg.Retrieval.TopK <= 0 {
		errs = append(errs, FieldError{
			Field:   "retrieval.top_k",
			Message: "top_k must be positive",
		})
	}
	if cfg.Retrieval.MinScore < 0 || cfg.Retrieval.MinScore > 1 {
		errs = append(errs, FieldError{
			Field:   "retrieval.min_score",
			Message: "min_score must lie in [0, 1]",
		})
	}

	if cfg.Feedback.TopK <= 0 {
		errs = append(errs, FieldError{
			Field:   "feedback.top_k",
			Message: "top_k must be positive",
		})
	}
	if cfg.Feedback.MinScore < 0 || cfg.Feedback.MinScore > 1 {
		errs = append(errs, FieldError{
			Field:   "feedback.min_score",
			Message: "min_score must lie in [0, 1]",
		})
	}
	if cfg.Feedback.HalfLifeDays <= 0 {
		errs = append(errs, FieldError{
			Field:   "feedback.half_life_days",
			Message: "half_life_days must be positive",
		})
	}
	if cfg.Feedback.ConflictFraction <= 0 || cfg.Feedback.ConflictFraction >= 0.5 {
		errs = append(errs, FieldError{
			Field:   "feedback.conflict_fraction",
			Message: "conflict_fraction must lie in (0, 0.5)",
		})
	}

	if err := cfg.Confidence.Validate(); err != nil {
		errs = append(errs, FieldError{Field: "confidence", Message: err.Error()})
	}

	if cfg.Workflow.PromptTopK <= 0 {
		errs = append(errs, FieldError{
			Field:   "workflow.prompt_top_k",
			Message: "prompt_top_k must be positive",
		})
	}

	if cfg.Ingestion.Chunking.ChunkSize <= 0 {
		errs = append(errs, FieldError{
			Field:   "ingestion.chunking.chunk_size",
			Message: "chunk_size must be positive",
		})
	}
	if cfg.Ingestion.Chunking.ChunkOverlap < 0 {
		errs = append(errs, FieldError{
			Field:   "ingestion.chunking.chunk_overlap",
			Message: "chunk_overlap must be non-negative",
		})
	}

	if cfg.Retention.RetentionDays < 0 {
		errs = append(errs, FieldError{
			Field:   "retention.retention_days",
			Message: "retention_days must be non-negative (zero disables pruning)",
		})
	}

	if !validLogLevels[cfg.Telemetry.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("unknown level %q (want debug, info, warn, or error)", cfg.Telemetry.Logging.Level),
		})
	}
	if !validLogFormats[cfg.Telemetry.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("unknown format %q (want json or text)", cfg.Telemetry.Logging.Format),
		})
	}
	if cfg.Telemetry.Metrics.Enabled && cfg.Telemetry.Metrics.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.listen_address",
			Message: "listen_address is required when metrics are enabled",
		})
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}
