package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// DocumentService manages ingested documents.
type DocumentService interface {
	// List returns all documents.
	List(ctx context.Context) ([]domain.Document, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// GetDetails returns a document with its ingestion progress.
	GetDetails(ctx context.Context, documentID string) (*DocumentDetails, error)

	// Delete removes a document and its embeddings.
	Delete(ctx context.Context, documentID string) error
}

// DocumentDetails provides a display view of a document.
type DocumentDetails struct {
	// ID is the unique document identifier.
	ID string

	// Title is the document title.
	Title string

	// FileName is the uploaded file name.
	FileName string

	// ContentLength is the extracted text length in characters.
	ContentLength int

	// State is the ingestion state.
	State domain.IngestionState

	// ChunkCount is the number of chunks produced.
	ChunkCount int

	// EmbeddingCount is the number of embeddings in the vector index.
	EmbeddingCount int

	// UploadedAt is when the document was created.
	UploadedAt time.Time
}
