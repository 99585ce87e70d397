package services

import (
	"cmp"
	"context"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/logger"
)

// Reranker defaults.
const (
	DefaultTopN          = 3
	DefaultRerankWorkers = 4
)

// Relevance score bounds accepted from the judge.
const (
	MinRelevance = 1
	MaxRelevance = 10
)

// RerankResult is the re-ordered, truncated candidate list.
type RerankResult struct {
	Candidates []domain.RetrievalCandidate

	// JudgeFailures counts candidates scored 0 because the judge failed
	// or answered outside 1..10.
	JudgeFailures int
}

// Reranker re-orders candidates by an LLM relevance judgement.
type Reranker struct {
	judge   driven.RelevanceJudge
	topN    int
	workers int
}

// NewReranker creates a reranker. Non-positive topN and workers use defaults.
func NewReranker(judge driven.RelevanceJudge, topN, workers int) *Reranker {
	if topN <= 0 {
		topN = DefaultTopN
	}
	if workers <= 0 {
		workers = DefaultRerankWorkers
	}
	return &Reranker{judge: judge, topN: topN, workers: workers}
}

// Rerank scores every candidate, stable-sorts by descending score and keeps
// the first topN. A failed judgement scores 0 and never aborts the batch;
// only context cancellation does.
//
// Scores are written by candidate index, so the result does not depend on
// the order in which concurrent judgements complete.
func (r *Reranker) Rerank(
	ctx context.Context, query string, candidates []domain.RetrievalCandidate, topN int,
) (*RerankResult, error) {
	if topN <= 0 {
		topN = r.topN
	}
	if len(candidates) == 0 {
		return &RerankResult{}, nil
	}

	ctx, span := tracer.Start(ctx, "reranker.rerank")
	defer span.End()

	scored := slices.Clone(candidates)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := range scored {
		g.Go(func() error {
			score, err := r.judge.Score(gctx, query, scored[i].Content)
			switch {
			case err != nil:
				logger.Debug("Judge failed for candidate %d: %v", i, err)
			case score < MinRelevance || score > MaxRelevance:
				logger.Debug("Judge score %g out of range for candidate %d", score, i)
			default:
				scored[i].Score = score
				scored[i].Judged = true
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	failures := 0
	for i := range scored {
		if !scored[i].Judged {
			scored[i].Score = 0
			failures++
		}
	}
	if failures > 0 {
		logger.Warn("Relevance judge could not score %d of %d candidates", failures, len(scored))
	}

	slices.SortStableFunc(scored, func(a, b domain.RetrievalCandidate) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if topN < len(scored) {
		scored = scored[:topN]
	}

	span.SetAttributes(
		attribute.Int("rerank.candidates", len(candidates)),
		attribute.Int("rerank.judge_failures", failures),
	)
	return &RerankResult{Candidates: scored, JudgeFailures: failures}, nil
}
