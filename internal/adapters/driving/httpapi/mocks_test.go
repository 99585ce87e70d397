package httpapi

import (
	"context"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
)

type mockQueryService struct {
	answer *domain.Answer
	err    error
	got    domain.Query
	opts   driving.QueryOptions
}

func (m *mockQueryService) Ask(ctx context.Context, q domain.Query) (*domain.Answer, error) {
	return m.AskWithOptions(ctx, q, driving.QueryOptions{})
}

func (m *mockQueryService) AskWithOptions(_ context.Context, q domain.Query, opts driving.QueryOptions) (*domain.Answer, error) {
	m.got = q
	m.opts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

type mockDocumentService struct {
	documents []domain.Document
	details   *driving.DocumentDetails
	err       error
	deleted   string
}

func (m *mockDocumentService) List(context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, id string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Document{ID: id}, nil
}

func (m *mockDocumentService) GetDetails(context.Context, string) (*driving.DocumentDetails, error) {
	return m.details, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, id string) error {
	m.deleted = id
	return m.err
}

type mockIngestionService struct {
	uploads    []domain.Upload
	report     *driving.IngestReport
	status     *domain.IngestionStatus
	err        error
	reingested string
}

func (m *mockIngestionService) Ingest(_ context.Context, uploads []domain.Upload) (*driving.IngestReport, error) {
	m.uploads = uploads
	if m.err != nil {
		return nil, m.err
	}
	return m.report, nil
}

func (m *mockIngestionService) RunIngestion(context.Context, string) error   { return m.err }
func (m *mockIngestionService) RetryIngestion(context.Context, string) error { return m.err }

func (m *mockIngestionService) Status(context.Context, string) (*domain.IngestionStatus, error) {
	return m.status, m.err
}

func (m *mockIngestionService) Reingest(_ context.Context, id string) error {
	m.reingested = id
	return m.err
}

func (m *mockIngestionService) ListIncomplete(context.Context) ([]domain.IngestionStatus, error) {
	return nil, m.err
}
