package driven

import "github.com/custodia-labs/ragline/internal/core/domain"

// AIConfigValidator checks provider settings against the live service.
// Unconfigured providers validate as nil.
type AIConfigValidator interface {
	// ValidateEmbedding also confirms the provider's vectors have the
	// configured dimensionality (ErrDimensionMismatch otherwise).
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	ValidateLLM(config *domain.LLMSettings) error
}
