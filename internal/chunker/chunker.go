// Package chunker splits document text into overlapping, sentence-boundary-aware
// segments sized for embedding.
package chunker

import (
	"fmt"
	"strings"

	"newsrag/internal/domain"
)

const (
	// DefaultMaxLength is the hard upper bound on a chunk's character length.
	DefaultMaxLength = 500
	// DefaultOverlap is the number of characters consecutive chunks share.
	DefaultOverlap = 50

	// minChunkLength: shorter tails are dropped as noise.
	minChunkLength = 50
	// minSnapOffset: a sentence terminator closer than this to the chunk start
	// is ignored and the hard cut is kept.
	minSnapOffset = 100
)

// Chunker produces overlapping text chunks. The zero value is not usable;
// construct with New.
type Chunker struct {
	maxLength int
	overlap   int
}

// New validates the window parameters. overlap must be strictly smaller than
// maxLength or the scan position could stall or move backward.
func New(maxLength, overlap int) (*Chunker, error) {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= maxLength {
		return nil, fmt.Errorf("chunker: overlap %d must be smaller than max length %d", overlap, maxLength)
	}
	return &Chunker{maxLength: maxLength, overlap: overlap}, nil
}

// Split scans the text front to back and emits trimmed chunk texts in order.
// Candidate ends are snapped back to the nearest sentence terminator when one
// sits far enough past the chunk start, so cuts land between sentences where
// possible. Chunks of 50 characters or fewer are dropped.
func (c *Chunker) Split(text string) []string {
	var chunks []string
	n := len(text)
	start := 0
	for start < n {
		end := start + c.maxLength
		if end > n {
			end = n
		}
		if end < n {
			if snap := lastTerminator(text, start, end); snap >= start+minSnapOffset {
				end = snap + 1
			}
		}
		piece := strings.TrimSpace(text[start:end])
		if len(piece) > minChunkLength {
			chunks = append(chunks, piece)
		}
		if end >= n {
			break
		}
		// A snapped end can land within overlap of start; never move backward.
		if next := end - c.overlap; next > start {
			start = next
		} else {
			start = end
		}
	}
	return chunks
}

// ChunkDocument splits the document's full text and wraps each piece in a
// domain.Chunk with its ordinal and the final chunk count.
func (c *Chunker) ChunkDocument(doc domain.Document) []domain.Chunk {
	pieces := c.Split(doc.FullText())
	chunks := make([]domain.Chunk, 0, len(pieces))
	for i, text := range pieces {
		chunks = append(chunks, domain.Chunk{
			ChunkID:     fmt.Sprintf("%s-%d", doc.ID, i),
			DocumentID:  doc.ID,
			Ordinal:     i,
			TotalChunks: len(pieces),
			Text:        text,
			Length:      len(text),
		})
	}
	return chunks
}

// lastTerminator returns the byte offset of the last sentence terminator in
// text[start:end], or -1 when there is none.
func lastTerminator(text string, start, end int) int {
	for i := end - 1; i > start; i-- {
		switch text[i] {
		case '.', '!', '?':
			return i
		}
	}
	return -1
}
