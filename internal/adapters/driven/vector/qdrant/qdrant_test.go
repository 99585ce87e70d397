package qdrant

import (
	"context"
	"testing"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
)

func TestDocumentFilter(t *testing.T) {
	assert.Nil(t, documentFilter(nil), "no ids means unrestricted")

	f := documentFilter([]string{"a", "b"})
	require.Len(t, f.GetMust(), 1)
	field := f.GetMust()[0].GetField()
	assert.Equal(t, fieldDocumentID, field.GetKey())
	assert.Equal(t, []string{"a", "b"}, field.GetMatch().GetKeywords().GetStrings())
}

func TestPointPayloadFeedsHit(t *testing.T) {
	emb := &domain.Embedding{
		ID:         "7f1c1e1e-0000-4000-8000-000000000001",
		DocumentID: "doc-1",
		Position:   3,
		Content:    "chunk text",
		Vector:     []float32{1, 2},
		CreatedAt:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	pt := toPoint(emb)

	hit := toHit(&pb.ScoredPoint{Id: pt.GetId(), Payload: pt.GetPayload(), Score: 0.25})

	assert.Equal(t, emb.ID, hit.EmbeddingID)
	assert.Equal(t, "doc-1", hit.DocumentID)
	assert.Equal(t, 3, hit.Position)
	assert.Equal(t, "chunk text", hit.Content)
	assert.InDelta(t, 0.25, hit.Distance, 1e-9)
	assert.Equal(t, "2024-01-02T03:04:05Z", pt.GetPayload()[fieldCreatedAt].GetStringValue())
}

func TestNew_RejectsZeroDimensions(t *testing.T) {
	_, err := New(context.Background(), Config{Host: "localhost", Port: 6334, Collection: "c"})
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestIndex_GuardsDimensionsBeforeNetwork(t *testing.T) {
	idx := &Index{dims: 3}

	err := idx.Upsert(context.Background(), &domain.Embedding{DocumentID: "d", Vector: []float32{1}})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = idx.Query(context.Background(), []float32{1, 2}, 5, driven.VectorFilter{})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	hits, err := idx.Query(context.Background(), []float32{1, 2, 3}, 0, driven.VectorFilter{})
	assert.NoError(t, err)
	assert.Empty(t, hits)
}

// recordingPoints captures search requests and answers with canned points.
type recordingPoints struct {
	pb.PointsClient
	last   *pb.SearchPoints
	result []*pb.ScoredPoint
}

func (r *recordingPoints) Search(_ context.Context, in *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	r.last = in
	return &pb.SearchResponse{Result: r.result}, nil
}

func TestIndex_QueryRequestsExactSearch(t *testing.T) {
	pt := toPoint(&domain.Embedding{
		ID:         "7f1c1e1e-0000-4000-8000-000000000002",
		DocumentID: "doc-2",
		Content:    "nearest",
		Vector:     []float32{0, 1},
		CreatedAt:  time.Now(),
	})
	points := &recordingPoints{result: []*pb.ScoredPoint{{Id: pt.GetId(), Payload: pt.GetPayload(), Score: 0.5}}}
	idx := &Index{points: points, collection: "chunks", dims: 2}

	hits, err := idx.Query(context.Background(), []float32{0, 1}, 4, driven.VectorFilter{DocumentIDs: []string{"doc-2"}})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc-2", hits[0].DocumentID)

	require.NotNil(t, points.last)
	assert.Equal(t, "chunks", points.last.GetCollectionName())
	assert.Equal(t, uint64(4), points.last.GetLimit())
	assert.True(t, points.last.GetParams().GetExact())
	assert.NotNil(t, points.last.GetFilter())
}
