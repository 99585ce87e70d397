package driven

import "context"

// RelevanceJudge rates how relevant a context passage is to a query.
// Scores range from 1 to 10 and may be fractional. Implementations return an error when
// the underlying model fails or its output cannot be read as a score in
// range; the re-ranker treats that candidate as unscored.
type RelevanceJudge interface {
	Score(ctx context.Context, query, content string) (float64, error)
}

// Generator produces an answer for a fully rendered grounding prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
