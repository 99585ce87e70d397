package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
)

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// DefaultValidateTimeout bounds each provider check.
const DefaultValidateTimeout = 10 * time.Second

// sampleText is embedded once to learn the provider's real vector size.
const sampleText = "ragline dimension check"

// ConfigValidator checks provider settings against live services before
// they are saved.
type ConfigValidator struct {
	timeout time.Duration
}

// NewConfigValidator creates a validator with DefaultValidateTimeout.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{timeout: DefaultValidateTimeout}
}

// ValidateEmbedding reaches the provider and embeds a sample. The vector
// must match config.Dimensions: an index built at one size cannot serve
// queries embedded at another.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(config)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	vec, err := svc.Embed(ctx, sampleText)
	if err != nil {
		return fmt.Errorf("embedding sample: %w", err)
	}
	if len(vec) != config.Dimensions {
		return fmt.Errorf("%w: %s returns %d dimensions, settings expect %d",
			domain.ErrDimensionMismatch, svc.ModelName(), len(vec), config.Dimensions)
	}
	return nil
}

// ValidateLLM pings the generative model provider.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	svc, err := CreateLLMService(config)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	return nil
}
