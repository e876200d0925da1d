// Package domain holds the shared types and component contracts of the
// retrieval pipeline. Implementations live in their own packages and are
// wired together by cmd/newsrag.
package domain

import (
	"context"
	"time"
)

// EmbeddingDimension is the fixed dimensionality of every vector produced
// by an Embedder and stored in a VectorIndex.
const EmbeddingDimension = 768

// Document is a source text unit supplied by the document-source boundary.
// Immutable once handed to the ingestion pipeline.
type Document struct {
	ID          string
	Title       string
	Body        string
	URL         string
	PublishedAt time.Time
	SourceTag   string
}

// FullText returns the text the chunker operates on.
func (d Document) FullText() string {
	if d.Title == "" {
		return d.Body
	}
	return d.Title + "\n\n" + d.Body
}

// Chunk is a contiguous slice of a document's full text. Chunks from one
// document carry increasing ordinals and overlap by the chunker's window.
type Chunk struct {
	ChunkID     string
	DocumentID  string
	Ordinal     int
	TotalChunks int
	Text        string
	Length      int
}

// ChunkPayload travels with a vector into the index. It retains the chunk's
// fields plus document metadata for building answer sources; the chunk id is
// traceability only and never the index's primary key.
type ChunkPayload struct {
	ChunkID       string
	DocumentID    string
	Ordinal       int
	TotalChunks   int
	Text          string
	DocumentTitle string
	DocumentURL   string
	PublishedAt   time.Time
	SourceTag     string
}

// IndexEntry is a (vector, payload) pair to be persisted. Entry identity is
// assigned by the index on upsert.
type IndexEntry struct {
	Vector  []float32
	Payload ChunkPayload
}

// RetrievalResult is one scored hit from a similarity search. Higher score
// means more similar. Ephemeral, produced per query.
type RetrievalResult struct {
	EntryID string
	Score   float32
	Payload ChunkPayload
}

// Source describes one grounding citation attached to an answer.
type Source struct {
	Title       string
	URL         string
	Snippet     string
	Score       float32
	PublishedAt time.Time
}

// QueryOutcome is the complete, always well-formed result of a query.
type QueryOutcome struct {
	AnswerText     string
	Sources        []Source
	IsInDomain     bool
	RetrievedCount int
}

// IndexStats reports the size of the backing collection.
type IndexStats struct {
	EntryCount uint64
}

// EmbedBatch carries one vector per input text, order-preserving. Degraded is
// set when the deterministic local fallback produced the vectors instead of
// the remote provider; the degrade path is a first-class result, not an error.
type EmbedBatch struct {
	Vectors  [][]float32
	Degraded bool
}

// Embedder converts text into fixed-dimension vectors. Transport failures on
// the remote path never surface as errors; implementations degrade silently
// and tag the batch instead. Errors are reserved for programmer misuse.
type Embedder interface {
	Embed(ctx context.Context, texts []string) (*EmbedBatch, error)
	Dimension() int
}

// VectorIndex persists (vector, payload) pairs and answers top-K cosine
// similarity queries. The index exclusively owns entry identity.
type VectorIndex interface {
	// EnsureCollection creates the backing collection if absent; no-op if present.
	EnsureCollection(ctx context.Context, dimension int) error
	// Upsert persists all entries or none, returning assigned ids in input order.
	Upsert(ctx context.Context, entries []IndexEntry) ([]string, error)
	// Search returns results sorted by descending score with stable ties.
	Search(ctx context.Context, vector []float32, topK int) ([]RetrievalResult, error)
	Stats(ctx context.Context) (IndexStats, error)
	// Clear destroys and recreates the collection. Destructive; used for reindex.
	Clear(ctx context.Context) error
}

// Generator produces a grounded answer from accepted retrieval results.
type Generator interface {
	Generate(ctx context.Context, query string, accepted []RetrievalResult) (string, error)
	TestConnection(ctx context.Context) (string, error)
}
