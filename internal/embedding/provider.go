// Package embedding provides the pipeline's embedding provider: a remote
// client fronted by an LRU cache, with a deterministic local fallback that
// takes over silently whenever the remote path fails or is not configured.
package embedding

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"newsrag/internal/domain"
	"newsrag/internal/embedding/fallback"
)

// DefaultCacheSize bounds the remote-embedding cache.
const DefaultCacheSize = 512

// RemoteEmbedder is the upstream embedding API boundary. Implementations
// return one vector per input text, order-aligned.
type RemoteEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Provider implements domain.Embedder. Remote failures degrade the whole
// batch to the fallback algorithm; the caller sees a tagged result, never a
// transport error.
type Provider struct {
	remote   RemoteEmbedder
	fallback *fallback.Embedder
	cache    *lru.Cache[string, []float32]
	logger   *zap.Logger
}

// NewProvider builds a provider. remote may be nil, in which case every
// batch takes the degraded path.
func NewProvider(remote RemoteEmbedder, cacheSize int, logger *zap.Logger) (*Provider, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, []float32](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("embedding: create cache: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		remote:   remote,
		fallback: fallback.New(),
		cache:    cache,
		logger:   logger,
	}, nil
}

// Dimension reports the fixed vector dimensionality of both paths.
func (p *Provider) Dimension() int { return domain.EmbeddingDimension }

// Embed returns one 768-dimension vector per text, order-preserving. Cached
// remote vectors are reused; the remaining texts go upstream in one call. On
// any remote failure the entire batch is recomputed with the deterministic
// fallback so all vectors of a batch share one embedding space.
func (p *Provider) Embed(ctx context.Context, texts []string) (*domain.EmbedBatch, error) {
	if len(texts) == 0 {
		return &domain.EmbedBatch{}, nil
	}
	if p.remote == nil {
		return &domain.EmbedBatch{Vectors: p.fallback.Batch(texts), Degraded: true}, nil
	}

	vectors := make([][]float32, len(texts))
	var missing []int
	for i, t := range texts {
		if v, ok := p.cache.Get(t); ok {
			vectors[i] = v
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return &domain.EmbedBatch{Vectors: vectors}, nil
	}

	batch := make([]string, len(missing))
	for j, i := range missing {
		batch[j] = texts[i]
	}
	fetched, err := p.remote.Embed(ctx, batch)
	if err != nil || len(fetched) != len(batch) {
		if err == nil {
			err = fmt.Errorf("embedding: remote returned %d vectors for %d inputs", len(fetched), len(batch))
		}
		p.logger.Warn("remote embedding failed, degrading to local fallback",
			zap.Int("batch_size", len(texts)),
			zap.Error(err),
		)
		return &domain.EmbedBatch{Vectors: p.fallback.Batch(texts), Degraded: true}, nil
	}
	for j, i := range missing {
		vectors[i] = fetched[j]
		p.cache.Add(texts[i], fetched[j])
	}
	return &domain.EmbedBatch{Vectors: vectors}, nil
}
