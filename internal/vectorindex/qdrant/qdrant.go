// Package qdrant implements the vector index over a Qdrant server's gRPC API.
package qdrant

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	qdrantclient "github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"newsrag/internal/domain"
)

// Config holds connection details for a Qdrant instance.
type Config struct {
	Host       string
	Port       int
	Collection string
}

// Index implements domain.VectorIndex against a single Qdrant collection.
type Index struct {
	conn        *grpc.ClientConn
	collections qdrantclient.CollectionsClient
	points      qdrantclient.PointsClient
	collection  string
	dimension   int
	logger      *zap.Logger
}

// New dials the Qdrant gRPC endpoint. The connection is lazy; errors surface
// on the first RPC.
func New(cfg Config, logger *zap.Logger) (*Index, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant: collection name is required")
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant: connect to %s: %w", addr, err)
	}
	return &Index{
		conn:        conn,
		collections: qdrantclient.NewCollectionsClient(conn),
		points:      qdrantclient.NewPointsClient(conn),
		collection:  cfg.Collection,
		logger:      logger,
	}, nil
}

// Close releases the gRPC connection.
func (ix *Index) Close() error { return ix.conn.Close() }

// EnsureCollection creates the collection with cosine distance if it does not
// exist yet. Safe to call on every startup.
func (ix *Index) EnsureCollection(ctx context.Context, dimension int) error {
	ix.dimension = dimension
	exists, err := ix.collectionExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return ix.createCollection(ctx, dimension)
}

func (ix *Index) collectionExists(ctx context.Context) (bool, error) {
	resp, err := ix.collections.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return false, fmt.Errorf("qdrant: list collections: %w", err)
	}
	for _, col := range resp.GetCollections() {
		if col.GetName() == ix.collection {
			return true, nil
		}
	}
	return false, nil
}

func (ix *Index) createCollection(ctx context.Context, dimension int) error {
	_, err := ix.collections.Create(ctx, &qdrantclient.CreateCollection{
		CollectionName: ix.collection,
		VectorsConfig: &qdrantclient.VectorsConfig{
			Config: &qdrantclient.VectorsConfig_Params{
				Params: &qdrantclient.VectorParams{
					Size:     uint64(dimension),
					Distance: qdrantclient.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant: create collection %q: %w", ix.collection, err)
	}
	ix.logger.Info("created collection",
		zap.String("collection", ix.collection),
		zap.Int("dimension", dimension),
	)
	return nil
}

// Upsert writes the whole batch with wait=true so either every point lands or
// the call errors. Each entry receives a fresh UUID as its point id.
func (ix *Index) Upsert(ctx context.Context, entries []domain.IndexEntry) ([]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	ids := make([]string, len(entries))
	points := make([]*qdrantclient.PointStruct, len(entries))
	for i, e := range entries {
		ids[i] = uuid.NewString()
		points[i] = &qdrantclient.PointStruct{
			Id: &qdrantclient.PointId{
				PointIdOptions: &qdrantclient.PointId_Uuid{Uuid: ids[i]},
			},
			Vectors: &qdrantclient.Vectors{
				VectorsOptions: &qdrantclient.Vectors_Vector{
					Vector: &qdrantclient.Vector{Data: e.Vector},
				},
			},
			Payload: payloadToValues(e.Payload),
		}
	}
	wait := true
	_, err := ix.points.Upsert(ctx, &qdrantclient.UpsertPoints{
		CollectionName: ix.collection,
		Points:         points,
		Wait:           &wait,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: upsert %d points: %w", len(points), err)
	}
	return ids, nil
}

// Search runs a similarity query and maps scored points back onto domain
// results. Qdrant returns hits in descending score order.
func (ix *Index) Search(ctx context.Context, vector []float32, topK int) ([]domain.RetrievalResult, error) {
	if topK <= 0 {
		topK = 5
	}
	resp, err := ix.points.Search(ctx, &qdrantclient.SearchPoints{
		CollectionName: ix.collection,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search: %w", err)
	}
	results := make([]domain.RetrievalResult, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		results = append(results, domain.RetrievalResult{
			EntryID: point.GetId().GetUuid(),
			Score:   point.GetScore(),
			Payload: payloadFromValues(point.GetPayload()),
		})
	}
	return results, nil
}

// Stats reports the number of points in the collection.
func (ix *Index) Stats(ctx context.Context) (domain.IndexStats, error) {
	resp, err := ix.collections.Get(ctx, &qdrantclient.GetCollectionInfoRequest{
		CollectionName: ix.collection,
	})
	if err != nil {
		return domain.IndexStats{}, fmt.Errorf("qdrant: collection info: %w", err)
	}
	return domain.IndexStats{EntryCount: resp.GetResult().GetPointsCount()}, nil
}

// Clear drops and recreates the collection. Requires a prior EnsureCollection
// so the dimension is known.
func (ix *Index) Clear(ctx context.Context) error {
	if ix.dimension == 0 {
		return fmt.Errorf("qdrant: clear before EnsureCollection")
	}
	_, err := ix.collections.Delete(ctx, &qdrantclient.DeleteCollection{
		CollectionName: ix.collection,
	})
	if err != nil {
		return fmt.Errorf("qdrant: delete collection %q: %w", ix.collection, err)
	}
	return ix.createCollection(ctx, ix.dimension)
}

// Payload field keys used inside the collection.
const (
	fieldChunkID     = "chunk_id"
	fieldDocumentID  = "document_id"
	fieldOrdinal     = "ordinal"
	fieldTotalChunks = "total_chunks"
	fieldText        = "text"
	fieldTitle       = "document_title"
	fieldURL         = "document_url"
	fieldPublishedAt = "published_at"
	fieldSourceTag   = "source_tag"
)

func payloadToValues(p domain.ChunkPayload) map[string]*qdrantclient.Value {
	return map[string]*qdrantclient.Value{
		fieldChunkID:     stringValue(p.ChunkID),
		fieldDocumentID:  stringValue(p.DocumentID),
		fieldOrdinal:     integerValue(int64(p.Ordinal)),
		fieldTotalChunks: integerValue(int64(p.TotalChunks)),
		fieldText:        stringValue(p.Text),
		fieldTitle:       stringValue(p.DocumentTitle),
		fieldURL:         stringValue(p.DocumentURL),
		fieldPublishedAt: stringValue(p.PublishedAt.UTC().Format(time.RFC3339)),
		fieldSourceTag:   stringValue(p.SourceTag),
	}
}

func payloadFromValues(values map[string]*qdrantclient.Value) domain.ChunkPayload {
	p := domain.ChunkPayload{
		ChunkID:       values[fieldChunkID].GetStringValue(),
		DocumentID:    values[fieldDocumentID].GetStringValue(),
		Ordinal:       int(values[fieldOrdinal].GetIntegerValue()),
		TotalChunks:   int(values[fieldTotalChunks].GetIntegerValue()),
		Text:          values[fieldText].GetStringValue(),
		DocumentTitle: values[fieldTitle].GetStringValue(),
		DocumentURL:   values[fieldURL].GetStringValue(),
		SourceTag:     values[fieldSourceTag].GetStringValue(),
	}
	if raw := values[fieldPublishedAt].GetStringValue(); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			p.PublishedAt = ts
		}
	}
	return p
}

func stringValue(s string) *qdrantclient.Value {
	return &qdrantclient.Value{Kind: &qdrantclient.Value_StringValue{StringValue: s}}
}

func integerValue(n int64) *qdrantclient.Value {
	return &qdrantclient.Value{Kind: &qdrantclient.Value_IntegerValue{IntegerValue: n}}
}
