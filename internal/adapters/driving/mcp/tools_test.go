package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
)

func TestServer_handleAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("returns grounded answer with contexts", func(t *testing.T) {
		query := &mockQueryService{answer: &domain.Answer{
			Query:  "how long are refunds?",
			Title:  "policy",
			Answer: "Five days.",
			Contexts: []domain.RetrievalCandidate{
				{DocumentID: "doc-1", Title: "Refund Policy", Position: 2, Score: 9, Content: "Refunds take five days."},
			},
			JudgeFailures: 1,
		}}
		server, err := NewServer(&Ports{Query: query})
		require.NoError(t, err)

		_, out, err := server.handleAsk(ctx, nil, AskInput{Query: "how long are refunds?", Title: "policy", TopK: 8, TopN: 2})
		require.NoError(t, err)

		assert.Equal(t, "Five days.", out.Answer)
		assert.True(t, out.Grounded)
		assert.Equal(t, 1, out.JudgeFailures)
		require.Len(t, out.Contexts, 1)
		assert.Equal(t, "doc-1", out.Contexts[0].DocumentID)
		assert.Equal(t, "Refund Policy", out.Contexts[0].Title)
		assert.Equal(t, 9.0, out.Contexts[0].Score)
		assert.Equal(t, domain.Query{Text: "how long are refunds?", Title: "policy"}, query.lastQ)
		assert.Equal(t, driving.QueryOptions{TopK: 8, TopN: 2}, query.lastOpts)
	})

	t.Run("sentinel answer is not grounded", func(t *testing.T) {
		server, err := NewServer(&Ports{Query: &mockQueryService{answer: &domain.Answer{Answer: domain.NoAnswerSentinel}}})
		require.NoError(t, err)

		_, out, err := server.handleAsk(ctx, nil, AskInput{Query: "q"})
		require.NoError(t, err)
		assert.False(t, out.Grounded)
	})

	t.Run("propagates errors", func(t *testing.T) {
		server, err := NewServer(&Ports{Query: &mockQueryService{err: domain.ErrInvalidQuery}})
		require.NoError(t, err)

		_, _, err = server.handleAsk(ctx, nil, AskInput{})
		assert.ErrorIs(t, err, domain.ErrInvalidQuery)
	})
}

func TestServer_handleListDocuments(t *testing.T) {
	uploaded := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	docs := &mockDocumentService{documents: []domain.Document{
		{ID: "doc-1", Title: "", FileName: "guide.md", UploadedAt: uploaded},
		{ID: "doc-2", Title: "Handbook", FileName: "h.pdf"},
	}}
	server, err := NewServer(&Ports{Query: &mockQueryService{}, Document: docs})
	require.NoError(t, err)

	_, out, err := server.handleListDocuments(context.Background(), nil, ListDocumentsInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, "guide.md", out.Documents[0].Title)
	assert.Equal(t, uploaded, out.Documents[0].UploadedAt)
	assert.Equal(t, "Handbook", out.Documents[1].Title)

	docs.err = errors.New("db down")
	_, _, err = server.handleListDocuments(context.Background(), nil, ListDocumentsInput{})
	assert.Error(t, err)
}

func TestServer_handleIngestionStatus(t *testing.T) {
	ing := &mockIngestionService{status: &domain.IngestionStatus{
		DocumentID:  "doc-1",
		State:       domain.IngestionFailed,
		ChunkCount:  10,
		FailedChunk: 4,
		Error:       "embedding failed",
	}}
	server, err := NewServer(&Ports{Query: &mockQueryService{}, Ingestion: ing})
	require.NoError(t, err)

	_, out, err := server.handleIngestionStatus(context.Background(), nil, StatusInput{DocumentID: "doc-1"})
	require.NoError(t, err)
	assert.Equal(t, "failed", out.State)
	assert.Equal(t, 4, out.FailedChunk)
	assert.Equal(t, "embedding failed", out.Error)

	_, _, err = server.handleIngestionStatus(context.Background(), nil, StatusInput{})
	assert.Error(t, err)

	ing.err = domain.ErrNotFound
	_, _, err = server.handleIngestionStatus(context.Background(), nil, StatusInput{DocumentID: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
