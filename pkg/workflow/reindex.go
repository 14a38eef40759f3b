package workflow

import (
	"context"
	"log/slog"
	"strconv"

	"scopehq/meridian/pkg/feedback"
	"scopehq/meridian/pkg/retrieval"
	"scopehq/meridian/pkg/store"
	"scopehq/meridian/pkg/vectorindex"
)

// Reindex rebuilds the vector index from the store: every commitment,
// policy chunk, feedback record, and decision with an embedding is
// upserted into its corpus. The in-memory index starts empty on each process start, so this
// runs during startup before the engine serves decisions.
//
// Records without an embedding are skipped; they were persisted before
// indexing failed and will be picked up on their next write.
func Reindex(ctx context.Context, s store.Store, index vectorindex.Index, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default().With("component", "reindex")
	}

	commitments, err := s.ListCommitments(ctx)
	if err != nil {
		return 0, err
	}

	var docs []vectorindex.Document
	for _, c := range commitments {
		if len(c.Embedding) > 0 {
			docs = append(docs, vectorindex.Document{
				ID:        c.ID,
				Text:      c.Name,
				Embedding: c.Embedding,
				Metadata: map[string]string{
					vectorindex.MetaType: vectorindex.CorpusCommitment,
				},
			})
		}

		chunks, err := s.GetChunks(ctx, c.ID)
		if err != nil {
			return 0, err
		}
		for _, chunk := range chunks {
			if len(chunk.Embedding) == 0 {
				continue
			}
			docs = append(docs, vectorindex.Document{
				ID:        chunk.ID,
				Text:      chunk.Text,
				Embedding: chunk.Embedding,
				Metadata: map[string]string{
					vectorindex.MetaType:         vectorindex.CorpusChunk,
					vectorindex.MetaCommitmentID: chunk.CommitmentID,
					retrieval.MetaChunkIndex:     strconv.Itoa(chunk.ChunkIndex),
				},
			})
		}

		fbs, err := s.ListFeedback(ctx, c.ID, 0)
		if err != nil {
			return 0, err
		}
		for _, f := range fbs {
			if len(f.QueryEmbedding) == 0 {
				continue
			}
			docs = append(docs, vectorindex.Document{
				ID:        f.ID,
				Embedding: f.QueryEmbedding,
				Metadata: map[string]string{
					vectorindex.MetaType:         vectorindex.CorpusFeedback,
					vectorindex.MetaCommitmentID: f.CommitmentID,
					feedback.MetaRating:          string(f.Rating),
				},
			})
		}

		decisions, err := s.ListDecisions(ctx, c.ID, 0)
		if err != nil {
			return 0, err
		}
		for _, d := range decisions {
			if len(d.QueryEmbedding) == 0 {
				continue
			}
			docs = append(docs, vectorindex.Document{
				ID:        d.ID,
				Embedding: d.QueryEmbedding,
				Metadata: map[string]string{
					vectorindex.MetaType:         vectorindex.CorpusDecision,
					vectorindex.MetaCommitmentID: d.CommitmentID,
				},
			})
		}
	}

	if len(docs) > 0 {
		if err := index.Upsert(ctx, docs...); err != nil {
			return 0, err
		}
	}
	logger.Info("vector index rebuilt",
		"commitments", len(commitments),
		"documents", len(docs),
	)
	return len(docs), nil
}
