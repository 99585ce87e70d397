package tui

import (
	"context"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
)

type mockQueryService struct {
	answer *domain.Answer
	err    error
	last   domain.Query
}

func (m *mockQueryService) Ask(ctx context.Context, q domain.Query) (*domain.Answer, error) {
	return m.AskWithOptions(ctx, q, driving.QueryOptions{})
}

func (m *mockQueryService) AskWithOptions(_ context.Context, q domain.Query, _ driving.QueryOptions) (*domain.Answer, error) {
	m.last = q
	if m.err != nil {
		return nil, m.err
	}
	if m.answer != nil {
		return m.answer, nil
	}
	return &domain.Answer{Query: q.Text, Answer: domain.NoAnswerSentinel}, nil
}

type mockDocumentService struct {
	docs []domain.Document
	err  error
}

func (m *mockDocumentService) List(context.Context) ([]domain.Document, error) {
	return m.docs, m.err
}

func (m *mockDocumentService) Get(_ context.Context, id string) (*domain.Document, error) {
	for i := range m.docs {
		if m.docs[i].ID == id {
			return &m.docs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) GetDetails(ctx context.Context, id string) (*driving.DocumentDetails, error) {
	doc, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &driving.DocumentDetails{ID: doc.ID, Title: doc.Title, State: domain.IngestionIndexed}, nil
}

func (m *mockDocumentService) Delete(context.Context, string) error {
	return nil
}
