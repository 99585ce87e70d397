package services

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/logger"
)

// DefaultTopK is the number of nearest chunks retrieved when k is unset.
const DefaultTopK = 5

// Retriever turns a question into nearest-neighbour candidates.
type Retriever struct {
	docStore driven.DocumentStore
	index    driven.VectorIndex
	embedder driven.EmbeddingService
	topK     int
}

// NewRetriever creates a retriever. topK <= 0 uses DefaultTopK.
func NewRetriever(
	docStore driven.DocumentStore,
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
	topK int,
) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{
		docStore: docStore,
		index:    index,
		embedder: embedder,
		topK:     topK,
	}
}

// Retrieve returns up to k candidates ordered by ascending distance.
//
// An empty query fails with ErrInvalidQuery before any model call. A title
// that matches no document fails with ErrNotFound; with no title an empty
// index yields an empty result.
func (r *Retriever) Retrieve(ctx context.Context, query, title string, k int) ([]domain.RetrievalCandidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidQuery)
	}
	if k <= 0 {
		k = r.topK
	}

	ctx, span := tracer.Start(ctx, "retriever.retrieve", trace.WithAttributes(
		attribute.Int("retrieval.k", k),
		attribute.Bool("retrieval.title_filter", title != ""),
	))
	defer span.End()

	var filter driven.VectorFilter
	titles := make(map[string]string)
	if title = strings.TrimSpace(title); title != "" {
		docs, err := r.docStore.FindByTitle(ctx, title)
		if err != nil {
			return nil, fmt.Errorf("resolve title: %w", err)
		}
		if len(docs) == 0 {
			return nil, fmt.Errorf("%w: no document title contains %q", domain.ErrNotFound, title)
		}
		for i := range docs {
			filter.DocumentIDs = append(filter.DocumentIDs, docs[i].ID)
			titles[docs[i].ID] = docs[i].DisplayTitle()
		}
		logger.Debug("Title %q matched %d documents", title, len(docs))
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := r.index.Query(ctx, vec, k, filter)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query index: %w", err)
	}

	candidates := make([]domain.RetrievalCandidate, len(hits))
	for i, h := range hits {
		candidates[i] = domain.RetrievalCandidate{
			DocumentID: h.DocumentID,
			Title:      r.documentTitle(ctx, titles, h.DocumentID),
			Position:   h.Position,
			Content:    h.Content,
			Distance:   h.Distance,
		}
	}
	span.SetAttributes(attribute.Int("retrieval.candidates", len(candidates)))
	logger.Debug("Retrieved %d candidates", len(candidates))
	return candidates, nil
}

// documentTitle resolves a document's display title, caching lookups in
// titles. A missing document leaves the title empty rather than failing the
// query.
func (r *Retriever) documentTitle(ctx context.Context, titles map[string]string, id string) string {
	if t, ok := titles[id]; ok {
		return t
	}
	doc, err := r.docStore.GetDocument(ctx, id)
	if err != nil {
		logger.Debug("No title for document %s: %v", id, err)
		titles[id] = ""
		return ""
	}
	titles[id] = doc.DisplayTitle()
	return titles[id]
}
