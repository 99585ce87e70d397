package driven

import (
	"context"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// VectorIndex stores embeddings and answers exact nearest-neighbour queries
// by L2 distance.
//
// Upsert is not idempotent: the same chunk written twice yields two
// entries. Callers that re-ingest must DeleteDocument first.
type VectorIndex interface {
	// Upsert inserts one embedding. Each call is atomic.
	Upsert(ctx context.Context, embedding *domain.Embedding) error

	// Query returns up to k entries ordered by ascending L2 distance.
	// A non-empty filter restricts results to the listed documents.
	Query(ctx context.Context, vector []float32, k int, filter VectorFilter) ([]VectorHit, error)

	// DeleteDocument removes every embedding owned by the document.
	DeleteDocument(ctx context.Context, documentID string) error

	// Count returns the number of embeddings stored for the document.
	Count(ctx context.Context, documentID string) (int, error)

	// Close releases resources.
	Close() error
}

// VectorFilter restricts a vector query.
type VectorFilter struct {
	// DocumentIDs limits results to these documents. Empty means all.
	DocumentIDs []string
}

// IsEmpty returns true when the filter does not restrict results.
func (f VectorFilter) IsEmpty() bool {
	return len(f.DocumentIDs) == 0
}

// VectorHit represents a nearest-neighbour result.
type VectorHit struct {
	// EmbeddingID is the matched entry.
	EmbeddingID string

	// DocumentID is the owning document.
	DocumentID string

	// Position is the chunk index within the document.
	Position int

	// Content is the chunk text.
	Content string

	// Distance is the L2 distance to the query vector.
	Distance float64
}
