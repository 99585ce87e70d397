package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors: adapters translate
// driver and provider failures into one of these at the port boundary.
var (
	// ErrNotFound indicates a requested entity does not exist.
	// A title filter matching no document is also reported as ErrNotFound.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidQuery indicates an empty or whitespace-only query.
	// It is raised before any model is called.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrConfig indicates invalid configuration, such as a chunk overlap
	// that is not smaller than the chunk size.
	ErrConfig = errors.New("invalid configuration")

	// ErrUnsupportedType indicates an unknown file type or provider.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrEmbedding indicates the embedding model failed or was given
	// empty text.
	ErrEmbedding = errors.New("embedding failed")

	// ErrDimensionMismatch indicates a vector whose length differs from
	// the configured dimensionality. It always wraps ErrEmbedding.
	ErrDimensionMismatch = fmt.Errorf("%w: vector dimension mismatch", ErrEmbedding)

	// ErrIndex indicates a vector index or metadata store failure.
	ErrIndex = errors.New("index failure")

	// ErrGeneration indicates the generative model failed to produce an answer.
	ErrGeneration = errors.New("generation failed")

	// ErrTimeout indicates a model call exceeded its deadline.
	// Unlike the other failures it is always worth retrying.
	ErrTimeout = errors.New("timed out")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Re-ranking and answer synthesis are disabled.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Neither ingestion nor retrieval can run without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates the provider rejected a call for exceeding its quota.
	ErrRateLimited = errors.New("rate limited")
)

// IsRetryable reports whether err is a transient failure: a timeout,
// a rate limit, or an embedding or index failure that was not caused by
// bad input. Errors carrying ErrInvalidInput or ErrDimensionMismatch are
// permanent even when they also wrap ErrEmbedding.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDimensionMismatch) || errors.Is(err, ErrInvalidInput) {
		return false
	}
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrEmbedding) ||
		errors.Is(err, ErrIndex)
}

// IngestionStage names the step of the ingestion pipeline that failed.
type IngestionStage string

// Ingestion stages.
const (
	StageLoad     IngestionStage = "load"
	StageChunking IngestionStage = "chunking"
	StageEmbed    IngestionStage = "embed"
	StageIndex    IngestionStage = "index"
)

// IngestionError records which document and chunk an ingestion run
// stopped at. ChunkIndex is -1 when the failure precedes chunk processing.
type IngestionError struct {
	DocumentID string
	ChunkIndex int
	Stage      IngestionStage
	Err        error
}

func (e *IngestionError) Error() string {
	if e.ChunkIndex < 0 {
		return fmt.Sprintf("ingest %s: %s: %v", e.DocumentID, e.Stage, e.Err)
	}
	return fmt.Sprintf("ingest %s: %s chunk %d: %v", e.DocumentID, e.Stage, e.ChunkIndex, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}
