package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
)

func candidates(contents ...string) []domain.RetrievalCandidate {
	out := make([]domain.RetrievalCandidate, len(contents))
	for i, c := range contents {
		out[i] = domain.RetrievalCandidate{DocumentID: "d", Position: i, Content: c, Distance: float64(i)}
	}
	return out
}

func contents(cs []domain.RetrievalCandidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Content
	}
	return out
}

// ==================== Retriever ====================

func TestRetriever_EmptyQueryMakesNoCalls(t *testing.T) {
	f := newPipelineFixture(20, 5)
	r := NewRetriever(f.docs, f.index, f.embedder, 0)

	for _, q := range []string{"", "   \t"} {
		_, err := r.Retrieve(context.Background(), q, "", 0)
		assert.ErrorIs(t, err, domain.ErrInvalidQuery)
	}
	assert.Zero(t, f.embedder.calls.Load())
}

func TestRetriever_EmptyIndexWithoutFilter(t *testing.T) {
	f := newPipelineFixture(20, 5)
	r := NewRetriever(f.docs, f.index, f.embedder, 0)

	got, err := r.Retrieve(context.Background(), "anything", "", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRetriever_UnmatchedTitle(t *testing.T) {
	f := newPipelineFixture(20, 5)
	f.addDocument("doc-a", "Machine Learning", deepLearning)
	r := NewRetriever(f.docs, f.index, f.embedder, 0)

	_, err := r.Retrieve(context.Background(), "deep learning", "cooking", 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, f.embedder.calls.Load())
}

func TestRetriever_OrdersByDistanceAndFilters(t *testing.T) {
	f := newPipelineFixture(200, 20)
	f.addDocument("doc-a", "Machine Learning Notes", deepLearning)
	f.addDocument("doc-b", "Cooking", "Bread needs flour, water and salt.")
	ctx := context.Background()
	require.NoError(t, f.ingestion.RunIngestion(ctx, "doc-a"))
	require.NoError(t, f.ingestion.RunIngestion(ctx, "doc-b"))

	r := NewRetriever(f.docs, f.index, f.embedder, 5)

	got, err := r.Retrieve(ctx, "What is deep learning?", "", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "doc-a", got[0].DocumentID)
	assert.Equal(t, "Machine Learning Notes", got[0].Title)
	assert.Equal(t, "Cooking", got[1].Title)
	assert.LessOrEqual(t, got[0].Distance, got[1].Distance)

	filtered, err := r.Retrieve(ctx, "What is deep learning?", "COOK", 0)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "doc-b", filtered[0].DocumentID)
	assert.Equal(t, "Cooking", filtered[0].Title)

	limited, err := r.Retrieve(ctx, "What is deep learning?", "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRetriever_TitlesLoadedOncePerDocument(t *testing.T) {
	f := newPipelineFixture(40, 5)
	f.addDocument("doc-a", "Machine Learning Notes", deepLearning)
	f.addDocument("doc-b", "Cooking", "Bread needs flour, water and salt.")
	ctx := context.Background()
	require.NoError(t, f.ingestion.RunIngestion(ctx, "doc-a"))
	require.NoError(t, f.ingestion.RunIngestion(ctx, "doc-b"))

	docs := &countingDocStore{DocumentStore: f.docs, missing: "doc-b"}
	r := NewRetriever(docs, f.index, f.embedder, 50)

	got, err := r.Retrieve(ctx, "What is deep learning?", "", 0)
	require.NoError(t, err)
	require.Greater(t, len(got), 2, "doc-a spans several chunks")
	for _, c := range got {
		if c.DocumentID == "doc-a" {
			assert.Equal(t, "Machine Learning Notes", c.Title)
		} else {
			assert.Empty(t, c.Title, "unloadable document keeps an empty title")
		}
	}
	assert.Equal(t, 2, docs.lookups)
}

// ==================== Reranker ====================

func TestReranker_SortsByScoreStably(t *testing.T) {
	judge := &scriptedJudge{scores: map[string]float64{"a": 3, "b": 8, "c": 8, "d": 5}}
	r := NewReranker(judge, 3, 4)

	got, err := r.Rerank(context.Background(), "q", candidates("a", "b", "c", "d"), 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "c", "d"}, contents(got.Candidates))
	assert.Equal(t, []float64{8, 8, 5}, []float64{got.Candidates[0].Score, got.Candidates[1].Score, got.Candidates[2].Score})
	assert.Zero(t, got.JudgeFailures)
}

func TestReranker_OrdersFractionalScores(t *testing.T) {
	judge := &scriptedJudge{scores: map[string]float64{"low": 8.2, "high": 8.7, "over": 10.5}}
	r := NewReranker(judge, 3, 3)

	got, err := r.Rerank(context.Background(), "q", candidates("low", "over", "high"), 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"high", "low", "over"}, contents(got.Candidates))
	assert.InDelta(t, 8.7, got.Candidates[0].Score, 1e-9)
	assert.InDelta(t, 8.2, got.Candidates[1].Score, 1e-9)
	assert.False(t, got.Candidates[2].Judged)
	assert.Equal(t, 1, got.JudgeFailures)
}

func TestReranker_MockedScenario(t *testing.T) {
	judge := &scriptedJudge{scores: map[string]float64{"near": 3, "far": 8}}
	r := NewReranker(judge, 2, 2)

	got, err := r.Rerank(context.Background(), "What is deep learning?", candidates("near", "far"), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"far", "near"}, contents(got.Candidates))
}

func TestReranker_IsIdempotent(t *testing.T) {
	judge := &scriptedJudge{scores: map[string]float64{"a": 5, "b": 5, "c": 9, "d": 1, "e": 5}}
	r := NewReranker(judge, 5, 3)
	in := candidates("a", "b", "c", "d", "e")

	first, err := r.Rerank(context.Background(), "q", in, 5)
	require.NoError(t, err)
	second, err := r.Rerank(context.Background(), "q", in, 5)
	require.NoError(t, err)

	assert.Equal(t, contents(first.Candidates), contents(second.Candidates))
	assert.Equal(t, []string{"c", "a", "b", "e", "d"}, contents(first.Candidates))
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, contents(in), "input is not mutated")
}

func TestReranker_ScoresBoundToCandidateNotCompletionOrder(t *testing.T) {
	judge := &scriptedJudge{
		scores: map[string]float64{"slow": 9, "fast": 2},
		delay:  map[string]time.Duration{"slow": 30 * time.Millisecond},
	}
	r := NewReranker(judge, 2, 2)

	got, err := r.Rerank(context.Background(), "q", candidates("fast", "slow"), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"slow", "fast"}, contents(got.Candidates))
	assert.Equal(t, 9.0, got.Candidates[0].Score)
}

func TestReranker_DegradesFailuresToZero(t *testing.T) {
	judge := &scriptedJudge{
		scores: map[string]float64{"good": 6, "range": 42, "low": 0},
		errs:   map[string]error{"broken": fmt.Errorf("%w: boom", domain.ErrGeneration)},
	}
	r := NewReranker(judge, 4, 2)

	got, err := r.Rerank(context.Background(), "q", candidates("broken", "range", "good", "low"), 4)
	require.NoError(t, err)

	assert.Equal(t, []string{"good", "broken", "range", "low"}, contents(got.Candidates))
	assert.Equal(t, 3, got.JudgeFailures)
	assert.True(t, got.Candidates[0].Judged)
	for _, c := range got.Candidates[1:] {
		assert.Zero(t, c.Score)
		assert.False(t, c.Judged)
	}
}

func TestReranker_TopNLargerThanInput(t *testing.T) {
	r := NewReranker(&scriptedJudge{scores: map[string]float64{"a": 1}}, 3, 1)

	got, err := r.Rerank(context.Background(), "q", candidates("a"), 10)
	require.NoError(t, err)
	assert.Len(t, got.Candidates, 1)

	empty, err := r.Rerank(context.Background(), "q", nil, 3)
	require.NoError(t, err)
	assert.Empty(t, empty.Candidates)
}

func TestReranker_Cancelled(t *testing.T) {
	judge := &scriptedJudge{delay: map[string]time.Duration{"a": time.Second}}
	r := NewReranker(judge, 1, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := r.Rerank(ctx, "q", candidates("a"), 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// ==================== Synthesizer ====================

type staticPrompts map[string]string

func (p staticPrompts) Load(name string) (string, error) {
	if t, ok := p[name]; ok {
		return t, nil
	}
	return "", errors.New("missing")
}

func (p staticPrompts) Reload() {}

func TestSynthesizer_NoContextSkipsModel(t *testing.T) {
	gen := &fakeGenerator{reply: "should not be used"}
	s := NewSynthesizer(gen)

	answer, err := s.Synthesize(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.NoAnswerSentinel, answer)
	assert.Empty(t, gen.prompts)
}

func TestSynthesizer_BuildsGroundingPrompt(t *testing.T) {
	gen := &fakeGenerator{reply: "  Deep learning is part of ML.  "}
	s := NewSynthesizer(gen)

	answer, err := s.Synthesize(context.Background(), "What is deep learning?", []string{"ctx one", "ctx two"})
	require.NoError(t, err)
	assert.Equal(t, "Deep learning is part of ML.", answer)

	require.Len(t, gen.prompts, 1)
	prompt := gen.prompts[0]
	assert.Contains(t, prompt, "ctx one\n\nctx two")
	assert.Contains(t, prompt, "What is deep learning?")
	assert.Contains(t, prompt, domain.NoAnswerSentinel)
	assert.NotContains(t, prompt, driven.PlaceholderContext)
}

func TestSynthesizer_UsesPromptStore(t *testing.T) {
	gen := &fakeGenerator{reply: "ok"}
	s := NewSynthesizer(gen)
	s.SetPromptStore(staticPrompts{driven.PromptAnswer: "C={context} Q={query}"})

	_, err := s.Synthesize(context.Background(), "why", []string{"because"})
	require.NoError(t, err)
	assert.Equal(t, "C=because Q=why", gen.prompts[0])
}

func TestSynthesizer_NormalisesSentinel(t *testing.T) {
	gen := &fakeGenerator{reply: "Sorry. " + domain.NoAnswerSentinel}
	answer, err := NewSynthesizer(gen).Synthesize(context.Background(), "q", []string{"c"})
	require.NoError(t, err)
	assert.Equal(t, domain.NoAnswerSentinel, answer)
}

func TestSynthesizer_Failures(t *testing.T) {
	_, err := NewSynthesizer(&fakeGenerator{err: domain.ErrLLMUnavailable}).Synthesize(context.Background(), "q", []string{"c"})
	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)

	_, err = NewSynthesizer(&fakeGenerator{reply: "  "}).Synthesize(context.Background(), "q", []string{"c"})
	assert.ErrorIs(t, err, domain.ErrGeneration)
}

// ==================== QueryService ====================

func newTestQueryService(f *pipelineFixture, judge driven.RelevanceJudge, gen driven.Generator) *QueryService {
	return NewQueryService(
		NewRetriever(f.docs, f.index, f.embedder, 5),
		NewReranker(judge, 3, 2),
		NewSynthesizer(gen),
	)
}

func TestQueryService_EndToEnd(t *testing.T) {
	f := newPipelineFixture(200, 20)
	f.addDocument("doc-a", "A", deepLearning)
	f.addDocument("doc-b", "B", "Bread needs flour, water and salt.")
	ctx := context.Background()
	require.NoError(t, f.ingestion.RunIngestion(ctx, "doc-a"))
	require.NoError(t, f.ingestion.RunIngestion(ctx, "doc-b"))

	judge := &scriptedJudge{scores: map[string]float64{
		deepLearning:                         8,
		"Bread needs flour, water and salt.": 3,
	}}
	gen := &fakeGenerator{reply: "Deep learning is a subset of machine learning."}

	answer, err := newTestQueryService(f, judge, gen).Ask(ctx, domain.Query{Text: "What is deep learning?"})
	require.NoError(t, err)

	assert.Equal(t, "What is deep learning?", answer.Query)
	assert.NotEmpty(t, answer.Answer)
	assert.True(t, answer.Grounded())
	require.Len(t, answer.Contexts, 2)
	assert.Equal(t, []float64{8, 3}, []float64{answer.Contexts[0].Score, answer.Contexts[1].Score})
	assert.Contains(t, gen.prompts[0], deepLearning)
}

func TestQueryService_NoContextReturnsSentinel(t *testing.T) {
	f := newPipelineFixture(20, 5)
	gen := &fakeGenerator{reply: "unused"}

	answer, err := newTestQueryService(f, &scriptedJudge{}, gen).Ask(context.Background(), domain.Query{Text: "anything"})
	require.NoError(t, err)
	assert.Equal(t, domain.NoAnswerSentinel, answer.Answer)
	assert.False(t, answer.Grounded())
	assert.Empty(t, gen.prompts)
}

func TestQueryService_ErrorClasses(t *testing.T) {
	f := newPipelineFixture(200, 20)
	f.addDocument("doc-a", "A", deepLearning)
	require.NoError(t, f.ingestion.RunIngestion(context.Background(), "doc-a"))

	judge := &scriptedJudge{}
	_, err := newTestQueryService(f, judge, &fakeGenerator{}).Ask(context.Background(), domain.Query{Text: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
	assert.Zero(t, judge.callCount())

	_, err = newTestQueryService(f, judge, &fakeGenerator{}).Ask(context.Background(), domain.Query{Text: "q", Title: "nope"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = newTestQueryService(f, judge, &fakeGenerator{err: errors.New("down")}).Ask(context.Background(), domain.Query{Text: "deep"})
	assert.ErrorIs(t, err, domain.ErrGeneration)
}

func TestQueryService_AskWithOptions(t *testing.T) {
	f := newPipelineFixture(20, 5)
	f.addDocument("doc-a", "A", deepLearning+" "+deepLearning)
	require.NoError(t, f.ingestion.RunIngestion(context.Background(), "doc-a"))

	judge := &scriptedJudge{scores: map[string]float64{}}
	svc := newTestQueryService(f, judge, &fakeGenerator{reply: "x"})

	answer, err := svc.AskWithOptions(context.Background(), domain.Query{Text: "deep learning"}, driving.QueryOptions{TopK: 2, TopN: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, judge.callCount())
	assert.Len(t, answer.Contexts, 1)
	assert.Equal(t, 2, answer.JudgeFailures, "failures count every judged candidate")
}
