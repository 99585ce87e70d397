package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
	"github.com/custodia-labs/ragline/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService lists, inspects and deletes documents.
type DocumentService struct {
	docStore driven.DocumentStore
	statuses driven.IngestionStore
	index    driven.VectorIndex
}

// NewDocumentService creates a new document service.
func NewDocumentService(
	docStore driven.DocumentStore,
	statuses driven.IngestionStore,
	index driven.VectorIndex,
) *DocumentService {
	return &DocumentService{
		docStore: docStore,
		statuses: statuses,
		index:    index,
	}
}

// List returns all documents, newest first.
func (s *DocumentService) List(ctx context.Context) ([]domain.Document, error) {
	return s.docStore.ListDocuments(ctx)
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.docStore.GetDocument(ctx, documentID)
}

// GetDetails returns document metadata with ingestion progress.
// A document with no status record is reported as created.
func (s *DocumentService) GetDetails(ctx context.Context, documentID string) (*driving.DocumentDetails, error) {
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	details := &driving.DocumentDetails{
		ID:            doc.ID,
		Title:         doc.Title,
		FileName:      doc.FileName,
		ContentLength: len([]rune(doc.Content)),
		State:         domain.IngestionCreated,
		UploadedAt:    doc.UploadedAt,
	}

	status, err := s.statuses.GetStatus(ctx, documentID)
	switch {
	case err == nil:
		details.State = status.State
		details.ChunkCount = status.ChunkCount
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("get status: %w", err)
	}

	count, err := s.index.Count(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("count embeddings: %w", err)
	}
	details.EmbeddingCount = count

	return details, nil
}

// Delete removes a document and its embeddings. Embeddings are removed
// from the index first since not every backend cascades.
func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	if _, err := s.docStore.GetDocument(ctx, documentID); err != nil {
		return err
	}
	if err := s.index.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete embeddings: %w", err)
	}
	if err := s.docStore.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	logger.Info("Deleted document %s", documentID)
	return nil
}
