package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/logger"
)

// ContextSeparator joins contexts in the grounding prompt.
const ContextSeparator = "\n\n"

// Ensure Synthesizer accepts custom prompts.
var _ driven.PromptStoreAware = (*Synthesizer)(nil)

// Synthesizer produces an answer grounded on retrieved contexts.
type Synthesizer struct {
	generator driven.Generator
	prompts   driven.PromptStore
}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer(generator driven.Generator) *Synthesizer {
	return &Synthesizer{generator: generator}
}

// SetPromptStore sets the prompt store used for the answer template.
func (s *Synthesizer) SetPromptStore(store driven.PromptStore) {
	s.prompts = store
}

// Synthesize answers query using only contexts. With no contexts the
// no-answer sentinel is returned without calling the model. Model failures
// wrap ErrGeneration; there is no retry here.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, contexts []string) (string, error) {
	if len(contexts) == 0 {
		return domain.NoAnswerSentinel, nil
	}

	ctx, span := tracer.Start(ctx, "synthesizer.synthesize")
	defer span.End()

	prompt := driven.RenderPrompt(s.template(), strings.Join(contexts, ContextSeparator), query)

	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("%w: empty response", domain.ErrGeneration)
	}
	if strings.Contains(answer, domain.NoAnswerSentinel) {
		return domain.NoAnswerSentinel, nil
	}
	return answer, nil
}

func (s *Synthesizer) template() string {
	if s.prompts != nil {
		if t, err := s.prompts.Load(driven.PromptAnswer); err == nil {
			return t
		}
		logger.Debug("Answer prompt unavailable, using default")
	}
	return driven.DefaultPrompts[driven.PromptAnswer]
}
