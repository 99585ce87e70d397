package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
)

func seed(t *testing.T, s *Store, id, title string, at time.Time) {
	t.Helper()
	require.NoError(t, s.DocumentStore().SaveDocument(context.Background(), &domain.Document{
		ID: id, Title: title, FileName: id + ".txt", Content: "text", UploadedAt: at,
	}))
}

func TestDocumentStore_CRUD(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	docs := s.DocumentStore()

	now := time.Now()
	seed(t, s, "a", "Alpha Notes", now)
	seed(t, s, "b", "", now.Add(time.Second))

	got, err := docs.GetDocument(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "b.txt", got.Title, "title falls back to file name")

	list, err := docs.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)

	found, err := docs.FindByTitle(ctx, "ALPHA")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "a", found[0].ID)

	require.NoError(t, docs.DeleteDocument(ctx, "a"))
	_, err = docs.GetDocument(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, docs.DeleteDocument(ctx, "a"), domain.ErrNotFound)
}

func TestIngestionStore(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	statuses := s.IngestionStore()

	now := time.Now()
	require.NoError(t, statuses.SaveStatus(ctx, &domain.IngestionStatus{DocumentID: "a", State: domain.IngestionCreated, UpdatedAt: now.Add(time.Second)}))
	require.NoError(t, statuses.SaveStatus(ctx, &domain.IngestionStatus{DocumentID: "b", State: domain.IngestionCreated, UpdatedAt: now}))
	require.NoError(t, statuses.SaveStatus(ctx, &domain.IngestionStatus{DocumentID: "c", State: domain.IngestionIndexed, UpdatedAt: now}))

	created, err := statuses.ListByState(ctx, domain.IngestionCreated)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "b", created[0].DocumentID, "oldest first")

	_, err = statuses.GetStatus(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVectorIndex_ExactTopK(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	index := s.VectorIndex(2)
	seed(t, s, "a", "A", time.Now())
	seed(t, s, "b", "B", time.Now())

	for _, e := range []domain.Embedding{
		{DocumentID: "a", Content: "tie-first", Vector: []float32{1, 0}},
		{DocumentID: "b", Content: "tie-second", Vector: []float32{0, 1}},
		{DocumentID: "a", Content: "far", Vector: []float32{9, 9}},
	} {
		require.NoError(t, index.Upsert(ctx, &e))
	}

	hits, err := index.Query(ctx, []float32{0, 0}, 2, driven.VectorFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "tie-first", hits[0].Content, "ties keep insertion order")
	assert.Equal(t, "tie-second", hits[1].Content)

	filtered, err := index.Query(ctx, []float32{0, 0}, 5, driven.VectorFilter{DocumentIDs: []string{"b"}})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "b", filtered[0].DocumentID)
}

func TestVectorIndex_Guards(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	index := s.VectorIndex(2)

	err := index.Upsert(ctx, &domain.Embedding{DocumentID: "ghost", Vector: []float32{1, 1}})
	assert.ErrorIs(t, err, domain.ErrIndex)

	err = index.Upsert(ctx, &domain.Embedding{DocumentID: "ghost", Vector: []float32{1}})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestDeleteDocument_Cascades(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	index := s.VectorIndex(1)
	seed(t, s, "a", "A", time.Now())

	require.NoError(t, index.Upsert(ctx, &domain.Embedding{DocumentID: "a", Vector: []float32{1}}))
	require.NoError(t, s.IngestionStore().SaveStatus(ctx, &domain.IngestionStatus{DocumentID: "a", State: domain.IngestionIndexed}))

	require.NoError(t, s.DocumentStore().DeleteDocument(ctx, "a"))

	n, err := index.Count(ctx, "a")
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = s.IngestionStore().GetStatus(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
