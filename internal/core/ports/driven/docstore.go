package driven

import (
	"context"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// DocumentStore persists documents.
// Deleting a document also removes its embeddings and ingestion status.
type DocumentStore interface {
	// SaveDocument creates or replaces a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns all documents, newest first.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// FindByTitle returns documents whose title contains the fragment,
	// compared case-insensitively.
	FindByTitle(ctx context.Context, fragment string) ([]domain.Document, error)

	// DeleteDocument removes a document.
	DeleteDocument(ctx context.Context, id string) error
}

// IngestionStore persists ingestion status records.
type IngestionStore interface {
	// SaveStatus creates or replaces the status for a document.
	SaveStatus(ctx context.Context, status *domain.IngestionStatus) error

	// GetStatus returns the status for a document.
	// Returns domain.ErrNotFound if none was recorded.
	GetStatus(ctx context.Context, documentID string) (*domain.IngestionStatus, error)

	// ListByState returns all statuses in the given state.
	ListByState(ctx context.Context, state domain.IngestionState) ([]domain.IngestionStatus, error)
}
