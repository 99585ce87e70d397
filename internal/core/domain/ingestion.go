package domain

import "time"

// IngestionState is a document's position in the ingestion state machine:
// created -> chunking -> embedding -> indexed, or failed from any
// non-terminal state.
type IngestionState string

// Ingestion states.
const (
	IngestionCreated   IngestionState = "created"
	IngestionChunking  IngestionState = "chunking"
	IngestionEmbedding IngestionState = "embedding"
	IngestionIndexed   IngestionState = "indexed"
	IngestionFailed    IngestionState = "failed"
)

// IsTerminal returns true for indexed and failed.
func (s IngestionState) IsTerminal() bool {
	return s == IngestionIndexed || s == IngestionFailed
}

// IsValid returns true if the state is recognised.
func (s IngestionState) IsValid() bool {
	switch s {
	case IngestionCreated, IngestionChunking, IngestionEmbedding, IngestionIndexed, IngestionFailed:
		return true
	default:
		return false
	}
}

// CanTransition reports whether moving from s to next is allowed.
// Re-ingestion restarts a terminal document at created.
func (s IngestionState) CanTransition(next IngestionState) bool {
	if next == IngestionFailed {
		return !s.IsTerminal()
	}
	switch s {
	case IngestionCreated:
		return next == IngestionChunking
	case IngestionChunking:
		return next == IngestionEmbedding
	case IngestionEmbedding:
		return next == IngestionIndexed
	case IngestionIndexed, IngestionFailed:
		return next == IngestionCreated
	default:
		return false
	}
}

// String returns the string representation.
func (s IngestionState) String() string {
	return string(s)
}

// IngestionStatus is the persisted progress record for a document.
type IngestionStatus struct {
	// DocumentID identifies the document.
	DocumentID string

	// State is the current state.
	State IngestionState

	// ChunkCount is the number of chunks produced by splitting.
	ChunkCount int

	// IndexedCount is the number of embeddings written to the index.
	IndexedCount int

	// FailedChunk is the chunk index at which ingestion stopped, or -1.
	FailedChunk int

	// Error is the failure message when State is failed.
	Error string

	// StartedAt is when the current ingestion run began.
	StartedAt time.Time

	// UpdatedAt is when the status last changed.
	UpdatedAt time.Time
}

// Incomplete returns true when the document is not fully indexed.
// Queries may still see its partial embeddings.
func (s *IngestionStatus) Incomplete() bool {
	return s.State != IngestionIndexed
}

// InProgress is true while a run owns the document (chunking or embedding).
func (s IngestionState) InProgress() bool {
	return s == IngestionChunking || s == IngestionEmbedding
}

// Stalled reports an in-progress status that has not been touched for
// longer than after. Runs save progress after every embedding batch, so
// such a document was abandoned by a crashed or killed worker.
func (s *IngestionStatus) Stalled(now time.Time, after time.Duration) bool {
	return s.State.InProgress() && now.Sub(s.UpdatedAt) > after
}
