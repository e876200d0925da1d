package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsrag/internal/domain"
)

func vec(dim int, fill float32) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = fill
	}
	return v
}

func entry(dim int, fill float32, chunkID string) domain.IndexEntry {
	return domain.IndexEntry{
		Vector:  vec(dim, fill),
		Payload: domain.ChunkPayload{ChunkID: chunkID},
	}
}

func TestEnsureCollectionFixesDimension(t *testing.T) {
	ix := New()
	ctx := context.Background()
	require.NoError(t, ix.EnsureCollection(ctx, 4))
	require.NoError(t, ix.EnsureCollection(ctx, 4), "repeat call is a no-op")
	require.Error(t, ix.EnsureCollection(ctx, 8), "conflicting dimension must fail")
	require.Error(t, ix.EnsureCollection(ctx, 0))
}

func TestUpsertRequiresCollection(t *testing.T) {
	ix := New()
	_, err := ix.Upsert(context.Background(), []domain.IndexEntry{entry(4, 1, "c1")})
	require.Error(t, err)
}

func TestUpsertAssignsOpaqueIDs(t *testing.T) {
	ix := New()
	ctx := context.Background()
	require.NoError(t, ix.EnsureCollection(ctx, 4))

	ids, err := ix.Upsert(ctx, []domain.IndexEntry{entry(4, 1, "c1"), entry(4, 2, "c2")})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
	assert.NotEqual(t, "c1", ids[0], "entry id is never the chunk id")
}

func TestUpsertRejectsDimensionMismatch(t *testing.T) {
	ix := New()
	ctx := context.Background()
	require.NoError(t, ix.EnsureCollection(ctx, 4))
	_, err := ix.Upsert(ctx, []domain.IndexEntry{entry(3, 1, "bad")})
	require.Error(t, err)

	stats, err := ix.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.EntryCount, "a rejected batch stores nothing")
}

func TestSearchOrdersByDescendingScore(t *testing.T) {
	ix := New()
	ctx := context.Background()
	require.NoError(t, ix.EnsureCollection(ctx, 2))

	_, err := ix.Upsert(ctx, []domain.IndexEntry{
		{Vector: []float32{0.1, 0}, Payload: domain.ChunkPayload{ChunkID: "low"}},
		{Vector: []float32{0.9, 0}, Payload: domain.ChunkPayload{ChunkID: "high"}},
		{Vector: []float32{0.5, 0}, Payload: domain.ChunkPayload{ChunkID: "mid"}},
	})
	require.NoError(t, err)

	results, err := ix.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "high", results[0].Payload.ChunkID)
	assert.Equal(t, "mid", results[1].Payload.ChunkID)
	assert.Equal(t, "low", results[2].Payload.ChunkID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	ix := New()
	ctx := context.Background()
	require.NoError(t, ix.EnsureCollection(ctx, 2))

	_, err := ix.Upsert(ctx, []domain.IndexEntry{
		{Vector: []float32{0.5, 0}, Payload: domain.ChunkPayload{ChunkID: "first"}},
		{Vector: []float32{0.5, 0}, Payload: domain.ChunkPayload{ChunkID: "second"}},
	})
	require.NoError(t, err)

	results, err := ix.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].Payload.ChunkID)
	assert.Equal(t, "second", results[1].Payload.ChunkID)
}

func TestSearchClampsTopK(t *testing.T) {
	ix := New()
	ctx := context.Background()
	require.NoError(t, ix.EnsureCollection(ctx, 2))
	_, err := ix.Upsert(ctx, []domain.IndexEntry{
		{Vector: []float32{1, 0}, Payload: domain.ChunkPayload{ChunkID: "only"}},
	})
	require.NoError(t, err)

	results, err := ix.Search(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = ix.Search(ctx, []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Len(t, results, 1, "non-positive topK falls back to the default")
}

func TestSearchEmptyIndex(t *testing.T) {
	ix := New()
	require.NoError(t, ix.EnsureCollection(context.Background(), 2))
	results, err := ix.Search(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestClearKeepsDimension(t *testing.T) {
	ix := New()
	ctx := context.Background()
	require.NoError(t, ix.EnsureCollection(ctx, 2))
	_, err := ix.Upsert(ctx, []domain.IndexEntry{
		{Vector: []float32{1, 0}, Payload: domain.ChunkPayload{ChunkID: "c"}},
	})
	require.NoError(t, err)

	require.NoError(t, ix.Clear(ctx))
	stats, err := ix.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.EntryCount)

	_, err = ix.Upsert(ctx, []domain.IndexEntry{
		{Vector: []float32{0, 1}, Payload: domain.ChunkPayload{ChunkID: "c2"}},
	})
	require.NoError(t, err, "cleared index keeps accepting the same dimension")
}
