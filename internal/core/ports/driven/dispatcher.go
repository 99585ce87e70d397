package driven

import "context"

// Dispatcher defers ingestion of a document off the request path.
// Submit returns once the work is accepted; it does not wait for
// ingestion to finish. Delivery is at-most-once unless the backend is
// configured for retries.
type Dispatcher interface {
	// Submit schedules ingestion of the document.
	Submit(ctx context.Context, documentID string) error

	// Close stops accepting work and releases resources.
	Close() error
}

// IngestFunc runs ingestion for one document. Dispatch backends call it
// from their workers.
type IngestFunc func(ctx context.Context, documentID string) error
