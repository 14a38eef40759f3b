package config

import (
	"scopehq/meridian/pkg/checkpoint"
	"scopehq/meridian/pkg/confidence"
	"scopehq/meridian/pkg/embedding"
	"scopehq/meridian/pkg/feedback"
	"scopehq/meridian/pkg/generation"
	"scopehq/meridian/pkg/ingestion"
	"scopehq/meridian/pkg/retrieval"
	"scopehq/meridian/pkg/store"
)

// Config is the root configuration structure for Meridian. It aggregates
// the per-component configurations for storage, the vector index, the
// embedding and generation backends, retrieval, feedback aggregation,
// confidence scoring, the decision workflow, policy ingestion, checkpoint
// retention, and telemetry.
type Config struct {
	// Storage selects and configures the persistence backend for
	// commitments, decisions, feedback, and checkpoints.
	Storage StorageConfig `yaml:"storage"`

	// Index configures the vector similarity index.
	Index IndexConfig `yaml:"index"`

	// Embedding configures the embedding service. When BaseURL is empty
	// a deterministic local embedder is used instead of a remote service.
	Embedding embedding.ClientConfig `yaml:"embedding"`

	// Generation configures the LLM used for decision generation. When
	// BaseURL is empty a deterministic local generator is used.
	Generation generation.ClientConfig `yaml:"generation"`

	// Retrieval configures policy chunk retrieval.
	Retrieval retrieval.Config `yaml:"retrieval"`

	// Feedback configures feedback retrieval and aggregation.
	Feedback feedback.Config `yaml:"feedback"`

	// Confidence holds the score cutoffs for the confidence bands.
	Confidence confidence.Cutoffs `yaml:"confidence"`

	// Workflow configures the decision workflow engine.
	Workflow WorkflowConfig `yaml:"workflow"`

	// Ingestion configures commitment document chunking and the
	// directory watcher.
	Ingestion IngestionConfig `yaml:"ingestion"`

	// Retention configures checkpoint pruning. Decisions are never
	// pruned.
	Retention checkpoint.PrunerConfig `yaml:"retention"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Backend is "sqlite" or "memory".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite configures the SQLite backend. Ignored when Backend is
	// "memory".
	SQLite store.SQLiteConfig `yaml:"sqlite"`
}

// IndexConfig configures the vector similarity index.
type IndexConfig struct {
	// Backend is the index implementation. Only "memory" is supported;
	// the index is rebuilt from the store on startup.
	// Default: "memory"
	Backend string `yaml:"backend"`
}

// WorkflowConfig configures the decision workflow engine.
type WorkflowConfig struct {
	// PromptTopK caps how many feedback citations reach the generator
	// prompt.
	// Default: 3
	PromptTopK int `yaml:"prompt_top_k"`
}

// IngestionConfig configures commitment document ingestion.
type IngestionConfig struct {
	// Chunking controls how documents are split before embedding.
	Chunking ingestion.Config `yaml:"chunking"`

	// Watch configures the directory watcher used by `meridian ingest
	// --watch`.
	Watch ingestion.WatcherConfig `yaml:"watch"`
}

// TelemetryConfig configures observability.
type TelemetryConfig struct {
	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus scrape endpoint.
type MetricsConfig struct {
	// Enabled turns the metrics listener on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address the metrics endpoint binds to.
	// Default: "127.0.0.1:9464"
	ListenAddress string `yaml:"listen_address"`
}
