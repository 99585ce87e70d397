package domain

import "time"

// Document is an uploaded file reduced to its extracted text.
// A document is immutable once ingested; only its embeddings are added
// asynchronously after upload.
type Document struct {
	// ID is the unique identifier (UUID).
	ID string

	// Title is the human-readable title. Defaults to FileName.
	Title string

	// FileName is the name of the uploaded file.
	FileName string

	// Content is the raw extracted text.
	Content string

	// UploadedAt is when the document was created.
	UploadedAt time.Time
}

// DisplayTitle returns the title, falling back to the file name.
func (d *Document) DisplayTitle() string {
	if d.Title != "" {
		return d.Title
	}
	return d.FileName
}

// Chunk is a bounded window of a document's normalised text.
// Chunks are transient: they exist between splitting and embedding.
type Chunk struct {
	// DocumentID references the parent document.
	DocumentID string

	// Position is the zero-based index of the chunk within the document.
	Position int

	// Content is the chunk text.
	Content string
}

// Embedding is a chunk's vector as stored in the vector index.
// Embeddings are owned by their document and never mutated.
type Embedding struct {
	// ID is the unique identifier (UUID).
	ID string

	// DocumentID references the owning document.
	DocumentID string

	// Position is the chunk index the vector was computed from.
	Position int

	// Content is the chunk text.
	Content string

	// Vector is the embedding. Its length equals the configured dimensionality.
	Vector []float32

	// CreatedAt is when the embedding was written.
	CreatedAt time.Time
}

// Upload is a file submitted for ingestion before its text is extracted.
type Upload struct {
	// FileName is the client-supplied file name.
	FileName string

	// MIMEType is the declared or detected content type.
	MIMEType string

	// Title overrides the default title (the file name).
	Title string

	// Data is the raw file content.
	Data []byte
}
