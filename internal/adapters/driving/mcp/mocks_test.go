package mcp

import (
	"context"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
)

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	answer   *domain.Answer
	err      error
	lastQ    domain.Query
	lastOpts driving.QueryOptions
}

func (m *mockQueryService) Ask(ctx context.Context, q domain.Query) (*domain.Answer, error) {
	return m.AskWithOptions(ctx, q, driving.QueryOptions{})
}

func (m *mockQueryService) AskWithOptions(
	_ context.Context,
	q domain.Query,
	opts driving.QueryOptions,
) (*domain.Answer, error) {
	m.lastQ = q
	m.lastOpts = opts
	return m.answer, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	details   *driving.DocumentDetails
	err       error
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) GetDetails(_ context.Context, _ string) (*driving.DocumentDetails, error) {
	return m.details, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _ string) error {
	return m.err
}

// mockIngestionService is a mock implementation of driving.IngestionService.
type mockIngestionService struct {
	status *domain.IngestionStatus
	err    error
}

func (m *mockIngestionService) Ingest(_ context.Context, _ []domain.Upload) (*driving.IngestReport, error) {
	return &driving.IngestReport{}, m.err
}

func (m *mockIngestionService) RunIngestion(_ context.Context, _ string) error {
	return m.err
}

func (m *mockIngestionService) RetryIngestion(_ context.Context, _ string) error {
	return m.err
}

func (m *mockIngestionService) Status(_ context.Context, _ string) (*domain.IngestionStatus, error) {
	return m.status, m.err
}

func (m *mockIngestionService) Reingest(_ context.Context, _ string) error {
	return m.err
}

func (m *mockIngestionService) ListIncomplete(_ context.Context) ([]domain.IngestionStatus, error) {
	return nil, m.err
}
