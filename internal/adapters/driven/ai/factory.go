// Package ai provides factory functions for creating AI service adapters
// and the call policy every model request runs under.
package ai

import (
	"context"
	"fmt"

	hashembed "github.com/custodia-labs/ragline/internal/adapters/driven/embedding/hash"
	ollamaembed "github.com/custodia-labs/ragline/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/ragline/internal/adapters/driven/embedding/openai"
	geminillm "github.com/custodia-labs/ragline/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/custodia-labs/ragline/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/ragline/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
)

// Models holds the model-backed capabilities used on the query path.
type Models struct {
	LLM       driven.LLMService
	Judge     *LLMJudge
	Generator *LLMGenerator
}

// Close releases the LLM service.
func (m *Models) Close() {
	if m != nil && m.LLM != nil {
		m.LLM.Close()
	}
}

// NewEmbedder creates the configured embedding service wrapped in policy.
func NewEmbedder(settings domain.EmbeddingSettings, policy Policy) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(&settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, fmt.Errorf("%w: provider %q is not configured", domain.ErrEmbeddingUnavailable, settings.Provider)
	}
	return NewResilientEmbedder(svc, policy), nil
}

// NewModels creates the configured LLM wrapped in policy, plus the judge
// and generator built on it. Both use the configured temperature.
func NewModels(settings domain.LLMSettings, call domain.ModelCallSettings, prompts driven.PromptStore) (*Models, error) {
	svc, err := CreateLLMService(&settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	if svc == nil {
		return nil, fmt.Errorf("%w: provider %q is not configured", domain.ErrLLMUnavailable, settings.Provider)
	}

	llm := NewResilientLLM(svc, PolicyFromSettings(call))
	judge := NewLLMJudge(llm, call.Temperature)
	judge.SetPromptStore(prompts)
	return &Models{
		LLM:       llm,
		Judge:     judge,
		Generator: NewLLMGenerator(llm, call.Temperature),
	}, nil
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderHash:
		return hashembed.NewEmbeddingService(settings.Dimensions), nil

	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})

	default:
		return nil, fmt.Errorf("%w: embedding provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderGemini:
		return geminillm.NewLLMService(context.Background(), geminillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("%w: LLM provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
}

// createOllamaEmbedding creates an Ollama embedding service. The configured
// dimensionality wins over the model table so the guard sees what the
// index was built with.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[settings.Model]
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}
