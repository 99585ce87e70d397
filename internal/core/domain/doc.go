// Package domain defines the core business entities for ragline.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An uploaded file's extracted text and title
//   - Chunk: A bounded window of normalised document text
//   - Embedding: A chunk's vector as stored in the vector index
//   - IngestionStatus: Where a document is in the ingestion state machine
//   - Query, RetrievalCandidate, Answer: The query-time pipeline values
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
