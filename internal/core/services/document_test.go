package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

func TestDocumentService_ListAndGet(t *testing.T) {
	f := newPipelineFixture(20, 5)
	f.addDocument("doc-a", "A", deepLearning)
	svc := NewDocumentService(f.docs, f.statuses, f.index)

	docs, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc, err := svc.Get(context.Background(), "doc-a")
	require.NoError(t, err)
	assert.Equal(t, deepLearning, doc.Content)

	_, err = svc.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_GetDetails(t *testing.T) {
	f := newPipelineFixture(20, 5)
	f.addDocument("doc-a", "A", deepLearning)
	ctx := context.Background()
	svc := NewDocumentService(f.docs, f.statuses, f.index)

	before, err := svc.GetDetails(ctx, "doc-a")
	require.NoError(t, err)
	assert.Equal(t, domain.IngestionCreated, before.State)
	assert.Zero(t, before.EmbeddingCount)
	assert.Equal(t, len(deepLearning), before.ContentLength)

	require.NoError(t, f.ingestion.RunIngestion(ctx, "doc-a"))

	after, err := svc.GetDetails(ctx, "doc-a")
	require.NoError(t, err)
	assert.Equal(t, domain.IngestionIndexed, after.State)
	assert.Equal(t, after.ChunkCount, after.EmbeddingCount)
	assert.Positive(t, after.EmbeddingCount)
}

func TestDocumentService_DeleteCascades(t *testing.T) {
	f := newPipelineFixture(20, 5)
	f.addDocument("doc-a", "A", deepLearning)
	ctx := context.Background()
	require.NoError(t, f.ingestion.RunIngestion(ctx, "doc-a"))
	svc := NewDocumentService(f.docs, f.statuses, f.index)

	require.NoError(t, svc.Delete(ctx, "doc-a"))

	n, err := f.index.Count(ctx, "doc-a")
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = svc.Get(ctx, "doc-a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "doc-a"), domain.ErrNotFound)
}
