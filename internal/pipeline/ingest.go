// Package pipeline orchestrates the ingestion and query flows over the
// chunker, embedder, index, gate, and generator contracts.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"newsrag/internal/chunker"
	"newsrag/internal/domain"
)

const (
	// flushEveryDocuments bounds how many documents' chunks accumulate
	// before the pending buffer is upserted in one batch.
	flushEveryDocuments = 10

	// DefaultThrottle spaces per-chunk embedding calls to stay under
	// provider rate limits. Deliberately sequential, not concurrent.
	DefaultThrottle = 50 * time.Millisecond
)

// IngestSummary reports what one ingestion run accomplished.
type IngestSummary struct {
	DocumentCount int
	ChunkCount    int
	IndexStats    domain.IndexStats
}

// Ingestor populates the vector index from documents. Collaborators are
// injected so tests can substitute fakes.
type Ingestor struct {
	chunker  *chunker.Chunker
	embedder domain.Embedder
	index    domain.VectorIndex
	logger   *zap.Logger
	throttle time.Duration
}

// NewIngestor wires an ingestion pipeline. logger may be nil.
func NewIngestor(ch *chunker.Chunker, embedder domain.Embedder, index domain.VectorIndex, throttle time.Duration, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		chunker:  ch,
		embedder: embedder,
		index:    index,
		logger:   logger,
		throttle: throttle,
	}
}

// Ingest chunks and embeds every document and upserts the vectors in
// batches. Chunks are embedded one call at a time so a single failure is
// isolated: it is logged and skipped without aborting the document or the
// run. The pending buffer is flushed every ten documents and at the end.
func (in *Ingestor) Ingest(ctx context.Context, docs []domain.Document) (*IngestSummary, error) {
	if err := in.index.EnsureCollection(ctx, in.embedder.Dimension()); err != nil {
		return nil, fmt.Errorf("ingest: ensure collection: %w", err)
	}

	var pending []domain.IndexEntry
	docsSinceFlush := 0
	indexed := 0

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunks := in.chunker.ChunkDocument(doc)
		in.logger.Debug("chunked document",
			zap.String("document_id", doc.ID),
			zap.Int("chunks", len(chunks)),
		)
		for _, chunk := range chunks {
			entry, err := in.embedChunk(ctx, doc, chunk)
			if err != nil {
				in.logger.Warn("skipping chunk, embedding failed",
					zap.String("chunk_id", chunk.ChunkID),
					zap.Error(err),
				)
				continue
			}
			pending = append(pending, entry)
			indexed++
			if in.throttle > 0 {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(in.throttle):
				}
			}
		}
		docsSinceFlush++
		if docsSinceFlush >= flushEveryDocuments {
			if err := in.flush(ctx, &pending); err != nil {
				return nil, err
			}
			docsSinceFlush = 0
		}
	}
	if err := in.flush(ctx, &pending); err != nil {
		return nil, err
	}

	stats, err := in.index.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("ingest: index stats: %w", err)
	}
	in.logger.Info("ingestion finished",
		zap.Int("documents", len(docs)),
		zap.Int("chunks_indexed", indexed),
		zap.Uint64("index_entries", stats.EntryCount),
	)
	return &IngestSummary{
		DocumentCount: len(docs),
		ChunkCount:    indexed,
		IndexStats:    stats,
	}, nil
}

// embedChunk embeds a single chunk. One call per chunk, never batched, so a
// failure stays scoped to the chunk.
func (in *Ingestor) embedChunk(ctx context.Context, doc domain.Document, chunk domain.Chunk) (domain.IndexEntry, error) {
	batch, err := in.embedder.Embed(ctx, []string{chunk.Text})
	if err != nil {
		return domain.IndexEntry{}, err
	}
	if len(batch.Vectors) != 1 {
		return domain.IndexEntry{}, fmt.Errorf("got %d vectors for one chunk", len(batch.Vectors))
	}
	return domain.IndexEntry{
		Vector: batch.Vectors[0],
		Payload: domain.ChunkPayload{
			ChunkID:       chunk.ChunkID,
			DocumentID:    chunk.DocumentID,
			Ordinal:       chunk.Ordinal,
			TotalChunks:   chunk.TotalChunks,
			Text:          chunk.Text,
			DocumentTitle: doc.Title,
			DocumentURL:   doc.URL,
			PublishedAt:   doc.PublishedAt,
			SourceTag:     doc.SourceTag,
		},
	}, nil
}

func (in *Ingestor) flush(ctx context.Context, pending *[]domain.IndexEntry) error {
	if len(*pending) == 0 {
		return nil
	}
	if _, err := in.index.Upsert(ctx, *pending); err != nil {
		return fmt.Errorf("ingest: upsert batch of %d: %w", len(*pending), err)
	}
	in.logger.Debug("flushed batch", zap.Int("entries", len(*pending)))
	*pending = (*pending)[:0]
	return nil
}
