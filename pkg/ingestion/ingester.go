package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"scopehq/meridian/pkg/embedding"
	"scopehq/meridian/pkg/retrieval"
	"scopehq/meridian/pkg/scoping"
	"scopehq/meridian/pkg/store"
	"scopehq/meridian/pkg/vectorindex"
)

// Config contains ingestion tuning.
type Config struct {
	// ChunkSize is the chunk length in runes.
	// Default: 512
	ChunkSize int `yaml:"chunk_size"`

	// ChunkOverlap is how many runes consecutive chunks share.
	// Default: 50
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// DefaultConfig returns the default ingestion configuration.
func DefaultConfig() *Config {
	return &Config{ChunkSize: 512, ChunkOverlap: 50}
}

// Ingester loads commitments into the store and the chunk corpus.
type Ingester struct {
	store    store.Store
	index    vectorindex.Index
	embedder embedding.Service
	chunker  *Chunker
	logger   *slog.Logger
	now      func() time.Time
}

// NewIngester creates an ingester.
func NewIngester(s store.Store, index vectorindex.Index, embedder embedding.Service, config *Config) *Ingester {
	if config == nil {
		config = DefaultConfig()
	}
	return &Ingester{
		store:    s,
		index:    index,
		embedder: embedder,
		chunker:  NewChunker(config.ChunkSize, config.ChunkOverlap),
		logger:   slog.Default().With("component", "ingestion.ingester"),
		now:      time.Now,
	}
}

// Ingest stores a commitment and its chunked, embedded policy text. A
// commitment with the same name is re-ingested: its identity is kept and
// its chunks and vectors are replaced.
func (i *Ingester) Ingest(ctx context.Context, name, description, domain, text string) (*scoping.Commitment, error) {
	if name == "" {
		return nil, fmt.Errorf("commitment name is required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("commitment %q has no policy text", name)
	}

	commitment := &scoping.Commitment{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Domain:      domain,
		FullText:    text,
		CreatedAt:   i.now().UTC(),
	}

	// The commitment itself is searchable by free text, so embed a short
	// summary of it alongside the chunk embeddings.
	summary := name
	if description != "" {
		summary = name + ": " + description
	}
	commitmentVec, err := i.embedder.Embed(ctx, summary)
	if err != nil {
		return nil, fmt.Errorf("embedding commitment %q: %w", name, err)
	}
	commitment.Embedding = commitmentVec

	existing, err := i.store.GetCommitmentByName(ctx, name)
	switch {
	case err == nil:
		commitment.ID = existing.ID
		commitment.CreatedAt = existing.CreatedAt
		if err := i.dropChunkVectors(ctx, existing.ID); err != nil {
			return nil, err
		}
		i.logger.Info("re-ingesting commitment", "name", name, "commitment_id", existing.ID)
	case errors.Is(err, store.ErrNotFound):
		// first ingestion
	default:
		return nil, err
	}

	if err := i.store.PutCommitment(ctx, commitment); err != nil {
		return nil, err
	}

	texts := i.chunker.Split(text)
	chunks := make([]*scoping.PolicyChunk, 0, len(texts))
	docs := make([]vectorindex.Document, 0, len(texts))
	for idx, t := range texts {
		vec, err := i.embedder.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("embedding chunk %d of %q: %w", idx, name, err)
		}
		chunk := &scoping.PolicyChunk{
			ID:           uuid.NewString(),
			CommitmentID: commitment.ID,
			Text:         t,
			Embedding:    vec,
			ChunkIndex:   idx,
		}
		chunks = append(chunks, chunk)
		docs = append(docs, vectorindex.Document{
			ID:        chunk.ID,
			Text:      t,
			Embedding: vec,
			Metadata: map[string]string{
				vectorindex.MetaType:         vectorindex.CorpusChunk,
				vectorindex.MetaCommitmentID: commitment.ID,
				retrieval.MetaChunkIndex:     strconv.Itoa(idx),
			},
		})
	}

	docs = append(docs, vectorindex.Document{
		ID:        commitment.ID,
		Text:      summary,
		Embedding: commitment.Embedding,
		Metadata: map[string]string{
			vectorindex.MetaType: vectorindex.CorpusCommitment,
		},
	})

	if err := i.store.ReplaceChunks(ctx, commitment.ID, chunks); err != nil {
		return nil, err
	}
	if err := i.index.Upsert(ctx, docs...); err != nil {
		return nil, fmt.Errorf("indexing chunks of %q: %w", name, err)
	}

	i.logger.Info("commitment ingested",
		"name", name,
		"commitment_id", commitment.ID,
		"chunks", len(chunks),
	)
	return commitment, nil
}

// IngestFile ingests a markdown file. The commitment name is the file
// stem; the description is the first heading or non-empty line.
func (i *Ingester) IngestFile(ctx context.Context, path string) (*scoping.Commitment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	text := string(data)

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return i.Ingest(ctx, name, deriveDescription(text), "", text)
}

// dropChunkVectors removes a commitment's previous chunk documents from
// the index before re-ingestion.
func (i *Ingester) dropChunkVectors(ctx context.Context, commitmentID string) error {
	old, err := i.store.GetChunks(ctx, commitmentID)
	if err != nil {
		return err
	}
	for _, c := range old {
		if err := i.index.DeleteByID(ctx, c.ID); err != nil {
			return fmt.Errorf("removing stale chunk vector %s: %w", c.ID, err)
		}
	}
	return nil
}

// deriveDescription returns the first markdown heading, or the first
// non-empty line, truncated to a summary length.
func deriveDescription(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimSpace(strings.TrimLeft(line, "#"))
		if len(line) > 200 {
			line = line[:200]
		}
		return line
	}
	return ""
}
