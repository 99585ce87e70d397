package driven

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// PromptStore provides access to LLM prompt templates.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Unknown names return an error.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptRerank asks the model to rate a context's relevance from 1 to 10.
	PromptRerank = "rerank"

	// PromptAnswer is the grounding prompt for answer synthesis.
	PromptAnswer = "answer"
)

// Template placeholders. Both prompts accept both.
const (
	PlaceholderContext = "{context}"
	PlaceholderQuery   = "{query}"
)

// DefaultPrompts are the built-in templates, used when no store is
// configured and as the initial content of user-editable prompt files.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var DefaultPrompts = map[string]string{
	PromptRerank: `On a scale of 1 to 10, rate how relevant the context is to the question.
Reply with a single integer and nothing else.

Question: {query}

Context:
{context}

Score:`,

	PromptAnswer: `Answer the question using only the context below.
If the context does not contain the answer, reply exactly with:
I do not have enough information to answer this question.
Do not use any other knowledge.

Context:
{context}

Question: {query}

Answer:`,
}

// RenderPrompt substitutes the context and query into a template.
func RenderPrompt(template, context, query string) string {
	return strings.NewReplacer(
		PlaceholderContext, context,
		PlaceholderQuery, query,
	).Replace(template)
}

// ValidatePrompt checks that a template can still do its job: both
// placeholders present, and for the answer prompt the no-answer sentence
// the synthesizer recognises.
func ValidatePrompt(name, template string) error {
	for _, p := range []string{PlaceholderContext, PlaceholderQuery} {
		if !strings.Contains(template, p) {
			return fmt.Errorf("%w: prompt %q lacks %s", domain.ErrConfig, name, p)
		}
	}
	if name == PromptAnswer && !strings.Contains(template, domain.NoAnswerSentinel) {
		return fmt.Errorf("%w: prompt %q must instruct the model to reply %q",
			domain.ErrConfig, name, domain.NoAnswerSentinel)
	}
	return nil
}

// PromptStoreAware is implemented by services that accept a custom PromptStore.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store. Without one, DefaultPrompts apply.
	SetPromptStore(store PromptStore)
}
