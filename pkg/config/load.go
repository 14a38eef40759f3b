package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file, applies defaults, and
// validates the result. The file is unmarshalled over Default(), so
// fields absent from the file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow the naming convention
// MERIDIAN_SECTION_FIELD (e.g., MERIDIAN_STORAGE_BACKEND) and always take
// precedence over file-based configuration.
func LoadWithEnvOverrides(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	ApplyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("MERIDIAN_STORAGE_BACKEND"); val != "" {
		cfg.Storage.Backend = val
	}
	if val := os.Getenv("MERIDIAN_STORAGE_SQLITE_PATH"); val != "" {
		cfg.Storage.SQLite.Path = val
	}

	if val := os.Getenv("MERIDIAN_EMBEDDING_BASE_URL"); val != "" {
		cfg.Embedding.BaseURL = val
	}
	if val := os.Getenv("MERIDIAN_EMBEDDING_API_KEY"); val != "" {
		cfg.Embedding.APIKey = val
	}
	if val := os.Getenv("MERIDIAN_EMBEDDING_MODEL"); val != "" {
		cfg.Embedding.Model = val
	}
	if val := os.Getenv("MERIDIAN_EMBEDDING_DIMENSION"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Embedding.Dimension = n
		}
	}

	if val := os.Getenv("MERIDIAN_GENERATION_BASE_URL"); val != "" {
		cfg.Generation.BaseURL = val
	}
	if val := os.Getenv("MERIDIAN_GENERATION_API_KEY"); val != "" {
		cfg.Generation.APIKey = val
	}
	if val := os.Getenv("MERIDIAN_GENERATION_MODEL"); val != "" {
		cfg.Generation.Model = val
	}

	if val := os.Getenv("MERIDIAN_RETRIEVAL_TOP_K"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Retrieval.TopK = n
		}
	}
	if val := os.Getenv("MERIDIAN_RETRIEVAL_MIN_SCORE"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Retrieval.MinScore = f
		}
	}
	if val := os.Getenv("MERIDIAN_FEEDBACK_TOP_K"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Feedback.TopK = n
		}
	}
	if val := os.Getenv("MERIDIAN_WORKFLOW_PROMPT_TOP_K"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Workflow.PromptTopK = n
		}
	}

	if val := os.Getenv("MERIDIAN_INGESTION_WATCH_DIR"); val != "" {
		cfg.Ingestion.Watch.Dir = val
	}
	if val := os.Getenv("MERIDIAN_INGESTION_WATCH_DEBOUNCE"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Ingestion.Watch.DebounceInterval = d
		}
	}

	if val := os.Getenv("MERIDIAN_RETENTION_DAYS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Retention.RetentionDays = n
		}
	}
	if val := os.Getenv("MERIDIAN_RETENTION_SCHEDULE"); val != "" {
		cfg.Retention.Schedule = val
	}

	if val := os.Getenv("MERIDIAN_TELEMETRY_LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("MERIDIAN_TELEMETRY_LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("MERIDIAN_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("MERIDIAN_TELEMETRY_METRICS_ADDRESS"); val != "" {
		cfg.Telemetry.Metrics.ListenAddress = val
	}
}
