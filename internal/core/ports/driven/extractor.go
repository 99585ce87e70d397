package driven

import (
	"context"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// TextExtractor turns an uploaded file into plain text.
// Each extractor handles specific MIME types (e.g., PDF, Markdown).
type TextExtractor interface {
	// SupportedMIMETypes returns the MIME types this extractor handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific extractors should return 50-89.
	// Fallback extractors should return 1-9.
	Priority() int

	// Extract returns the text content of the upload.
	Extract(ctx context.Context, upload *domain.Upload) (string, error)
}

// ExtractorRegistry selects the appropriate extractor for an upload.
type ExtractorRegistry interface {
	// Extract returns the upload's text using the best matching extractor.
	// Returns domain.ErrUnsupportedType when no extractor accepts it.
	Extract(ctx context.Context, upload *domain.Upload) (string, error)

	// Register adds an extractor to the registry.
	Register(extractor TextExtractor)

	// SupportedMIMETypes returns all MIME types that can be extracted.
	SupportedMIMETypes() []string
}
