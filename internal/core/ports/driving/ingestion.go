package driving

import (
	"context"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// IngestionService accepts uploads and runs the ingestion state machine.
type IngestionService interface {
	// Ingest extracts text from each upload, creates a document for every
	// file that yields text and submits it for asynchronous ingestion.
	// Per-file failures are collected in the report, not returned.
	Ingest(ctx context.Context, uploads []domain.Upload) (*IngestReport, error)

	// RunIngestion chunks, embeds and indexes one document.
	// This is the unit of work dispatch backends execute.
	RunIngestion(ctx context.Context, documentID string) error

	// RetryIngestion is RunIngestion for a redelivery: a failed document
	// is reset to created before it runs.
	RetryIngestion(ctx context.Context, documentID string) error

	// Status returns the ingestion status of a document.
	Status(ctx context.Context, documentID string) (*domain.IngestionStatus, error)

	// Reingest clears a document's embeddings and submits it again.
	Reingest(ctx context.Context, documentID string) error

	// ListIncomplete returns documents that are not fully indexed.
	ListIncomplete(ctx context.Context) ([]domain.IngestionStatus, error)
}

// IngestReport is the outcome of an upload batch.
type IngestReport struct {
	// Documents are the documents created and submitted.
	Documents []domain.Document

	// Errors holds one entry per file that could not be accepted.
	Errors []FileError
}

// FileError records why one uploaded file was rejected.
type FileError struct {
	FileName string
	Err      error
}

func (e FileError) Error() string {
	return e.FileName + ": " + e.Err.Error()
}

func (e FileError) Unwrap() error {
	return e.Err
}
