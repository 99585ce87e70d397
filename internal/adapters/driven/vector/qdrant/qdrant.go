// Package qdrant provides a driven.VectorIndex backed by a Qdrant collection
// over gRPC. Points carry the owning document, chunk position and text as
// payload; the collection uses Euclidean distance so scores are L2
// distances and results arrive nearest first.
package qdrant

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/logger"
)

// Payload keys.
const (
	fieldDocumentID = "document_id"
	fieldPosition   = "position"
	fieldContent    = "content"
	fieldCreatedAt  = "created_at"
)

var _ driven.VectorIndex = (*Index)(nil)

// Config addresses a Qdrant collection.
type Config struct {
	Host       string
	Port       int
	Collection string
	Dimensions int
}

// Index is a Qdrant-backed vector index.
type Index struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	dims        int
}

// New connects to Qdrant and creates the collection when it is missing.
// An existing collection with a different vector size is rejected.
func New(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: qdrant index needs positive dimensions", domain.ErrConfig)
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("%w: qdrant connect: %w", domain.ErrIndex, err)
	}

	idx := &Index{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  cfg.Collection,
		dims:        cfg.Dimensions,
	}
	if err := idx.ensureCollection(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return idx, nil
}

func (x *Index) ensureCollection(ctx context.Context) error {
	info, err := x.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: x.collection})
	if err == nil {
		size := info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
		if size != 0 && int(size) != x.dims {
			return fmt.Errorf("%w: collection %s has size %d, want %d",
				domain.ErrDimensionMismatch, x.collection, size, x.dims)
		}
		return nil
	}

	logger.Info("Creating qdrant collection %s (%d dims)", x.collection, x.dims)
	_, err = x.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: x.collection,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{Params: &pb.VectorParams{
			Size:     uint64(x.dims),
			Distance: pb.Distance_Euclid,
		}}},
	})
	if err != nil {
		return fmt.Errorf("%w: create collection %s: %w", domain.ErrIndex, x.collection, err)
	}
	return nil
}

// Upsert writes one point and waits for it to be applied.
func (x *Index) Upsert(ctx context.Context, emb *domain.Embedding) error {
	if emb == nil {
		return domain.ErrInvalidInput
	}
	if len(emb.Vector) != x.dims {
		return fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(emb.Vector), x.dims)
	}
	if emb.ID == "" {
		emb.ID = uuid.New().String()
	}
	if emb.CreatedAt.IsZero() {
		emb.CreatedAt = time.Now()
	}

	wait := true
	_, err := x.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: x.collection,
		Wait:           &wait,
		Points:         []*pb.PointStruct{toPoint(emb)},
	})
	if err != nil {
		return fmt.Errorf("%w: qdrant upsert: %w", domain.ErrIndex, err)
	}
	return nil
}

// Query searches the collection. Qdrant returns Euclid results nearest first.
// The search is exact so top-k matches the in-memory index rather than the
// HNSW approximation.
func (x *Index) Query(ctx context.Context, vector []float32, k int, filter driven.VectorFilter) ([]driven.VectorHit, error) {
	if len(vector) != x.dims {
		return nil, fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(vector), x.dims)
	}
	if k <= 0 {
		return nil, nil
	}

	exact := true
	resp, err := x.points.Search(ctx, &pb.SearchPoints{
		CollectionName: x.collection,
		Vector:         vector,
		Limit:          uint64(k),
		Filter:         documentFilter(filter.DocumentIDs),
		Params:         &pb.SearchParams{Exact: &exact},
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: qdrant search: %w", domain.ErrIndex, err)
	}

	hits := make([]driven.VectorHit, 0, len(resp.GetResult()))
	for _, pt := range resp.GetResult() {
		hits = append(hits, toHit(pt))
	}
	return hits, nil
}

// DeleteDocument removes all points whose payload names the document.
func (x *Index) DeleteDocument(ctx context.Context, documentID string) error {
	wait := true
	_, err := x.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: x.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{PointsSelectorOneOf: &pb.PointsSelector_Filter{
			Filter: documentFilter([]string{documentID}),
		}},
	})
	if err != nil {
		return fmt.Errorf("%w: qdrant delete: %w", domain.ErrIndex, err)
	}
	return nil
}

// Count returns the exact number of points for the document.
func (x *Index) Count(ctx context.Context, documentID string) (int, error) {
	exact := true
	resp, err := x.points.Count(ctx, &pb.CountPoints{
		CollectionName: x.collection,
		Filter:         documentFilter([]string{documentID}),
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: qdrant count: %w", domain.ErrIndex, err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// Close closes the gRPC connection.
func (x *Index) Close() error {
	return x.conn.Close()
}

// documentFilter matches any of ids on the document_id payload key.
// Nil means unrestricted.
func documentFilter(ids []string) *pb.Filter {
	if len(ids) == 0 {
		return nil
	}
	return &pb.Filter{Must: []*pb.Condition{{
		ConditionOneOf: &pb.Condition_Field{Field: &pb.FieldCondition{
			Key: fieldDocumentID,
			Match: &pb.Match{MatchValue: &pb.Match_Keywords{
				Keywords: &pb.RepeatedStrings{Strings: ids},
			}},
		}},
	}}}
}

func toPoint(emb *domain.Embedding) *pb.PointStruct {
	return &pb.PointStruct{
		Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: emb.ID}},
		Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: emb.Vector}}},
		Payload: map[string]*pb.Value{
			fieldDocumentID: {Kind: &pb.Value_StringValue{StringValue: emb.DocumentID}},
			fieldPosition:   {Kind: &pb.Value_IntegerValue{IntegerValue: int64(emb.Position)}},
			fieldContent:    {Kind: &pb.Value_StringValue{StringValue: emb.Content}},
			fieldCreatedAt:  {Kind: &pb.Value_StringValue{StringValue: emb.CreatedAt.UTC().Format(time.RFC3339Nano)}},
		},
	}
}

func toHit(pt *pb.ScoredPoint) driven.VectorHit {
	payload := pt.GetPayload()
	return driven.VectorHit{
		EmbeddingID: pt.GetId().GetUuid(),
		DocumentID:  payload[fieldDocumentID].GetStringValue(),
		Position:    int(payload[fieldPosition].GetIntegerValue()),
		Content:     payload[fieldContent].GetStringValue(),
		Distance:    float64(pt.GetScore()),
	}
}
