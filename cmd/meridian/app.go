package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"scopehq/meridian/pkg/config"
	"scopehq/meridian/pkg/embedding"
	"scopehq/meridian/pkg/feedback"
	"scopehq/meridian/pkg/generation"
	"scopehq/meridian/pkg/ingestion"
	"scopehq/meridian/pkg/retrieval"
	"scopehq/meridian/pkg/store"
	"scopehq/meridian/pkg/telemetry/logging"
	"scopehq/meridian/pkg/telemetry/metrics"
	"scopehq/meridian/pkg/vectorindex"
	"scopehq/meridian/pkg/workflow"
)

// app wires the configured backends together for one command invocation.
// The vector index is in-memory and rebuilt from the store on every
// startup.
type app struct {
	cfg       *config.Config
	store     store.Store
	index     vectorindex.Index
	embedder  embedding.Service
	generator generation.Generator
	metrics   *metrics.Collector
	logger    *slog.Logger
}

// loadConfig reads the configured file. A missing file at the default
// path is not an error; the built-in defaults apply.
func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		if cfgFile != rootCmd.PersistentFlags().Lookup("config").DefValue {
			return nil, fmt.Errorf("config file %q does not exist", cfgFile)
		}
		cfg := config.Default()
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return config.LoadWithEnvOverrides(cfgFile)
}

// newApp loads configuration, installs the logger, opens the store, and
// rebuilds the vector index. Callers must Close it.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	level := cfg.Telemetry.Logging.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.Install(logging.Config{
		Level:  level,
		Format: cfg.Telemetry.Logging.Format,
	})
	if err != nil {
		return nil, err
	}

	var st store.Store
	switch cfg.Storage.Backend {
	case "memory":
		st = store.NewMemoryStore()
	default:
		sqliteCfg := cfg.Storage.SQLite
		st, err = store.NewSQLiteStore(&sqliteCfg)
		if err != nil {
			return nil, err
		}
	}

	index := vectorindex.NewMemoryIndex()
	if _, err := workflow.Reindex(ctx, st, index, logger.With("component", "reindex")); err != nil {
		st.Close()
		return nil, fmt.Errorf("rebuilding vector index: %w", err)
	}

	var embedder embedding.Service
	if cfg.Embedding.BaseURL == "" {
		embedder = embedding.NewFake(cfg.Embedding.Dimension)
	} else {
		embedder, err = embedding.NewClient(cfg.Embedding)
		if err != nil {
			st.Close()
			return nil, err
		}
	}

	var generator generation.Generator
	if cfg.Generation.BaseURL == "" {
		generator = &generation.Fake{}
	} else {
		generator, err = generation.NewClient(cfg.Generation)
		if err != nil {
			st.Close()
			return nil, err
		}
	}

	return &app{
		cfg:       cfg,
		store:     st,
		index:     index,
		embedder:  embedder,
		generator: generator,
		metrics:   metrics.NewCollector(nil),
		logger:    logger,
	}, nil
}

// engine builds a workflow engine over the app's backends.
func (a *app) engine() (*workflow.Engine, error) {
	retrievalCfg := a.cfg.Retrieval
	feedbackCfg := a.cfg.Feedback
	return workflow.NewEngine(workflow.Options{
		Store:      a.store,
		Index:      a.index,
		Embedder:   a.embedder,
		Generator:  a.generator,
		Retrieval:  &retrievalCfg,
		Feedback:   &feedbackCfg,
		Cutoffs:    a.cfg.Confidence,
		PromptTopK: a.cfg.Workflow.PromptTopK,
		Observer:   a.metrics,
	})
}

// ingester builds a commitment ingester over the app's backends.
func (a *app) ingester() *ingestion.Ingester {
	chunking := a.cfg.Ingestion.Chunking
	return ingestion.NewIngester(a.store, a.index, a.embedder, &chunking)
}

// commitmentSearch builds a free-text commitment retriever over the
// app's backends.
func (a *app) commitmentSearch() *retrieval.CommitmentRetriever {
	retrievalCfg := a.cfg.Retrieval
	return retrieval.NewCommitmentRetriever(a.index, a.store, &retrievalCfg)
}

// collector builds a feedback collector over the app's backends.
func (a *app) collector() *feedback.Collector {
	return feedback.NewCollector(a.store, a.index)
}

// serveMetrics exposes the Prometheus endpoint when enabled, for
// long-running commands such as ingest --watch. The listener stops when
// the context is canceled.
func (a *app) serveMetrics(ctx context.Context) {
	if !a.cfg.Telemetry.Metrics.Enabled {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Addr: a.cfg.Telemetry.Metrics.ListenAddress, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	go func() {
		a.logger.Info("metrics endpoint listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics endpoint failed", "error", err)
		}
	}()
}

// Close releases the app's resources.
func (a *app) Close() error {
	return a.store.Close()
}
