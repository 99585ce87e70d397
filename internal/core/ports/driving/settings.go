package driving

import "github.com/custodia-labs/ragline/internal/core/domain"

// SettingsService reads and writes ~/.ragline/config.toml as AppSettings.
type SettingsService interface {
	// Get returns stored settings over defaults, with API keys from the
	// environment taking precedence.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetLLMProvider configures the LLM provider.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// Validate checks that current settings are consistent.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// ValidateEmbeddingConfig checks the saved embedding provider is reachable
	// and produces vectors of the configured size.
	ValidateEmbeddingConfig() error

	// ValidateLLMConfig checks the saved generative model provider is reachable.
	ValidateLLMConfig() error
}
