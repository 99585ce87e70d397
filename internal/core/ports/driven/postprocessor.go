package driven

import (
	"context"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// PostProcessor is one stage of the ingestion text pipeline. The chunker
// stage receives nil chunks and produces them from doc.Content; later
// stages rewrite the chunks they are given.
type PostProcessor interface {
	Name() string
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline turns a document into the chunks that get embedded.
type PostProcessorPipeline interface {
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
