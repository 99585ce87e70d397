package services

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
	"github.com/custodia-labs/ragline/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// QueryService answers questions: retrieve, re-rank, synthesize.
type QueryService struct {
	retriever   *Retriever
	reranker    *Reranker
	synthesizer *Synthesizer
}

// NewQueryService creates a query service.
func NewQueryService(retriever *Retriever, reranker *Reranker, synthesizer *Synthesizer) *QueryService {
	return &QueryService{
		retriever:   retriever,
		reranker:    reranker,
		synthesizer: synthesizer,
	}
}

// Ask answers a query with default fan-out.
func (s *QueryService) Ask(ctx context.Context, query domain.Query) (*domain.Answer, error) {
	return s.AskWithOptions(ctx, query, driving.QueryOptions{})
}

// AskWithOptions answers a query. Errors keep their domain class so callers
// can map them: ErrInvalidQuery, ErrNotFound, ErrGeneration and retryable
// errors from the embedding model or index.
func (s *QueryService) AskWithOptions(ctx context.Context, query domain.Query, opts driving.QueryOptions) (*domain.Answer, error) {
	logger.Section("Query")
	logger.Debug("Query: %q title: %q", query.Text, query.Title)

	ctx, span := tracer.Start(ctx, "query.ask", trace.WithAttributes(
		attribute.Bool("query.title_filter", query.Title != ""),
	))
	defer span.End()

	doneRetrieve := logger.Stage("retrieve")
	candidates, err := s.retriever.Retrieve(ctx, query.Text, query.Title, opts.TopK)
	doneRetrieve()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	answer := &domain.Answer{
		Query: query.Text,
		Title: query.Title,
	}

	doneRerank := logger.Stage("rerank")
	ranked, err := s.reranker.Rerank(ctx, query.Text, candidates, opts.TopN)
	doneRerank()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	answer.Contexts = ranked.Candidates
	answer.JudgeFailures = ranked.JudgeFailures

	contexts := make([]string, 0, len(ranked.Candidates))
	for _, c := range ranked.Candidates {
		if strings.TrimSpace(c.Content) != "" {
			contexts = append(contexts, c.Content)
		}
	}

	doneAnswer := logger.Stage("answer")
	text, err := s.synthesizer.Synthesize(ctx, query.Text, contexts)
	doneAnswer()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	answer.Answer = text

	logger.Info("Answered from %d contexts (grounded=%t)", len(contexts), answer.Grounded())
	return answer, nil
}
