package config

import (
	"scopehq/meridian/pkg/checkpoint"
	"scopehq/meridian/pkg/confidence"
	"scopehq/meridian/pkg/feedback"
	"scopehq/meridian/pkg/ingestion"
	"scopehq/meridian/pkg/retrieval"
	"scopehq/meridian/pkg/store"
)

// Default configuration values.
const (
	DefaultStorageBackend     = "sqlite"
	DefaultIndexBackend       = "memory"
	DefaultPromptTopK         = 3
	DefaultRetentionDays      = 90
	DefaultRetentionSchedule  = "0 3 * * *"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
	DefaultMetricsAddress     = "127.0.0.1:9464"
	DefaultEmbeddingDimension = 1536
)

// Default returns a fully populated configuration. Load unmarshals the
// YAML file over this value, so fields absent from the file keep their
// defaults, including booleans such as storage.sqlite.wal_mode.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: DefaultStorageBackend,
			SQLite:  *store.DefaultSQLiteConfig(),
		},
		Index: IndexConfig{
			Backend: DefaultIndexBackend,
		},
		Retrieval:  *retrieval.DefaultConfig(),
		Feedback:   *feedback.DefaultConfig(),
		Confidence: confidence.DefaultCutoffs(),
		Workflow: WorkflowConfig{
			PromptTopK: DefaultPromptTopK,
		},
		Ingestion: IngestionConfig{
			Chunking: *ingestion.DefaultConfig(),
			Watch:    *ingestion.DefaultWatcherConfig(),
		},
		Retention: checkpoint.PrunerConfig{
			RetentionDays: DefaultRetentionDays,
			Schedule:      DefaultRetentionSchedule,
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{
				Level:  DefaultLogLevel,
				Format: DefaultLogFormat,
			},
			Metrics: MetricsConfig{
				ListenAddress: DefaultMetricsAddress,
			},
		},
	}
}

// ApplyDefaults fills zero-valued fields. It is idempotent and is applied
// by Load after unmarshalling; it is exported for programmatic
// construction of configs that bypass Load.
func ApplyDefaults(cfg *Config) {
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	sq := store.DefaultSQLiteConfig()
	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = sq.Path
	}
	if cfg.Storage.SQLite.MaxOpenConns == 0 {
		cfg.Storage.SQLite.MaxOpenConns = sq.MaxOpenConns
	}
	if cfg.Storage.SQLite.MaxIdleConns == 0 {
		cfg.Storage.SQLite.MaxIdleConns = sq.MaxIdleConns
	}
	if cfg.Storage.SQLite.BusyTimeout == 0 {
		cfg.Storage.SQLite.BusyTimeout = sq.BusyTimeout
	}
	if cfg.Index.Backend == "" {
		cfg.Index.Backend = DefaultIndexBackend
	}

	cfg.Embedding.ApplyDefaults()
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = DefaultEmbeddingDimension
	}
	cfg.Generation.ApplyDefaults()

	rd := retrieval.DefaultConfig()
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = rd.TopK
	}
	if cfg.Retrieval.MinScore == 0 {
		cfg.Retrieval.MinScore = rd.MinScore
	}
	if cfg.Retrieval.MaxRetries == 0 {
		cfg.Retrieval.MaxRetries = rd.MaxRetries
	}
	if cfg.Retrieval.RetryBackoff == 0 {
		cfg.Retrieval.RetryBackoff = rd.RetryBackoff
	}

	fd := feedback.DefaultConfig()
	if cfg.Feedback.TopK == 0 {
		cfg.Feedback.TopK = fd.TopK
	}
	if cfg.Feedback.MinScore == 0 {
		cfg.Feedback.MinScore = fd.MinScore
	}
	if cfg.Feedback.HalfLifeDays == 0 {
		cfg.Feedback.HalfLifeDays = fd.HalfLifeDays
	}
	if cfg.Feedback.ClusterSimilarity == 0 {
		cfg.Feedback.ClusterSimilarity = fd.ClusterSimilarity
	}
	if cfg.Feedback.ClusterMinSize == 0 {
		cfg.Feedback.ClusterMinSize = fd.ClusterMinSize
	}
	if cfg.Feedback.FrequencyBoost == 0 {
		cfg.Feedback.FrequencyBoost = fd.FrequencyBoost
	}
	if cfg.Feedback.ConflictFraction == 0 {
		cfg.Feedback.ConflictFraction = fd.ConflictFraction
	}
	if cfg.Feedback.PromptTopK == 0 {
		cfg.Feedback.PromptTopK = fd.PromptTopK
	}
	if cfg.Feedback.MaxRetries == 0 {
		cfg.Feedback.MaxRetries = fd.MaxRetries
	}
	if cfg.Feedback.RetryBackoff == 0 {
		cfg.Feedback.RetryBackoff = fd.RetryBackoff
	}

	if cfg.Confidence == (confidence.Cutoffs{}) {
		cfg.Confidence = confidence.DefaultCutoffs()
	}
	if cfg.Workflow.PromptTopK == 0 {
		cfg.Workflow.PromptTopK = DefaultPromptTopK
	}

	cd := ingestion.DefaultConfig()
	if cfg.Ingestion.Chunking.ChunkSize == 0 {
		cfg.Ingestion.Chunking.ChunkSize = cd.ChunkSize
	}
	if cfg.Ingestion.Chunking.ChunkOverlap == 0 {
		cfg.Ingestion.Chunking.ChunkOverlap = cd.ChunkOverlap
	}
	wd := ingestion.DefaultWatcherConfig()
	if cfg.Ingestion.Watch.DebounceInterval == 0 {
		cfg.Ingestion.Watch.DebounceInterval = wd.DebounceInterval
	}
	if len(cfg.Ingestion.Watch.Extensions) == 0 {
		cfg.Ingestion.Watch.Extensions = wd.Extensions
	}

	if cfg.Retention.Schedule == "" {
		cfg.Retention.Schedule = DefaultRetentionSchedule
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsAddress
	}
}
