package ai

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
)

// Ensure the adapters implement the capability interfaces.
var (
	_ driven.RelevanceJudge   = (*LLMJudge)(nil)
	_ driven.Generator        = (*LLMGenerator)(nil)
	_ driven.PromptStoreAware = (*LLMJudge)(nil)
)

// judgeMaxTokens caps a relevance reply; only a short number is expected.
const judgeMaxTokens = 8

var leadingScore = regexp.MustCompile(`^\s*[-+]?\d+(?:\.\d+)?`)

// LLMJudge scores passage relevance by asking an LLM for a score from 1 to 10.
type LLMJudge struct {
	llm         driven.LLMService
	temperature float64
	prompts     driven.PromptStore
}

// NewLLMJudge creates a judge backed by llm.
func NewLLMJudge(llm driven.LLMService, temperature float64) *LLMJudge {
	return &LLMJudge{llm: llm, temperature: temperature}
}

// SetPromptStore sets the store the rerank template is loaded from.
func (j *LLMJudge) SetPromptStore(store driven.PromptStore) {
	j.prompts = store
}

// Score renders the rerank prompt and parses the reply.
func (j *LLMJudge) Score(ctx context.Context, query, content string) (float64, error) {
	prompt := driven.RenderPrompt(loadTemplate(j.prompts, driven.PromptRerank), content, query)
	reply, err := j.llm.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   judgeMaxTokens,
		Temperature: j.temperature,
	})
	if err != nil {
		return 0, err
	}
	return ParseScore(reply)
}

// ParseScore reads the leading number of a judge reply, fractions included.
// Replies without one, or outside 1..10, are rejected.
func ParseScore(reply string) (float64, error) {
	m := leadingScore.FindString(reply)
	if m == "" {
		return 0, fmt.Errorf("%w: unreadable relevance score %q", domain.ErrGeneration, truncate(reply, 40))
	}
	score, err := strconv.ParseFloat(strings.TrimSpace(m), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}
	if score < 1 || score > 10 {
		return 0, fmt.Errorf("%w: relevance score %g out of range", domain.ErrGeneration, score)
	}
	return score, nil
}

// LLMGenerator answers rendered prompts with an LLM.
type LLMGenerator struct {
	llm         driven.LLMService
	temperature float64
}

// NewLLMGenerator creates a generator backed by llm.
func NewLLMGenerator(llm driven.LLMService, temperature float64) *LLMGenerator {
	return &LLMGenerator{llm: llm, temperature: temperature}
}

// Generate sends prompt as a single user message.
func (g *LLMGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.llm.Chat(ctx, []driven.ChatMessage{
		{Role: driven.RoleUser, Content: prompt},
	}, driven.ChatOptions{Temperature: g.temperature})
}

func loadTemplate(store driven.PromptStore, name string) string {
	if store != nil {
		if tmpl, err := store.Load(name); err == nil && tmpl != "" {
			return tmpl
		}
	}
	return driven.DefaultPrompts[name]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
