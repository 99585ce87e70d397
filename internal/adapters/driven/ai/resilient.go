package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/logger"
)

var tracer = otel.Tracer("github.com/custodia-labs/ragline/internal/adapters/driven/ai")

// Ensure the wrappers implement the interfaces.
var (
	_ driven.EmbeddingService = (*ResilientEmbedder)(nil)
	_ driven.LLMService       = (*ResilientLLM)(nil)
)

// Policy bounds every model call.
type Policy struct {
	// Timeout is the per-attempt deadline. Zero disables it.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// RetryDelay is the initial backoff, doubled per retry.
	RetryDelay time.Duration

	// Limiter throttles attempts. Nil means unlimited.
	Limiter *rate.Limiter
}

// PolicyFromSettings builds a Policy from model call settings.
// A limiter built here is not shared with other policies.
func PolicyFromSettings(s domain.ModelCallSettings) Policy {
	p := Policy{
		Timeout:    s.Timeout,
		MaxRetries: s.MaxRetries,
		RetryDelay: s.RetryDelay,
	}
	if s.RequestsPerSecond > 0 {
		burst := int(s.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		p.Limiter = rate.NewLimiter(rate.Limit(s.RequestsPerSecond), burst)
	}
	return p
}

// do runs fn under the policy. Failures are wrapped in fail unless they
// already carry a domain sentinel; per-attempt deadlines become ErrTimeout.
func do[T any](ctx context.Context, p Policy, span string, fail error, fn func(context.Context) (T, error)) (T, error) {
	ctx, sp := tracer.Start(ctx, span)
	defer sp.End()

	var zero T
	var lastErr error
	delay := p.RetryDelay

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			logger.Debug("%s: retry %d/%d after %v: %v", span, attempt, p.MaxRetries, delay, lastErr)
			select {
			case <-ctx.Done():
				sp.RecordError(ctx.Err())
				return zero, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		if p.Limiter != nil {
			if err := p.Limiter.Wait(ctx); err != nil {
				sp.RecordError(err)
				return zero, fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
			}
		}

		result, err := attemptOnce(ctx, p.Timeout, fn)
		if err == nil {
			sp.SetAttributes(attribute.Int("attempts", attempt+1))
			return result, nil
		}
		if ctx.Err() != nil {
			sp.RecordError(ctx.Err())
			return zero, ctx.Err()
		}
		lastErr = classify(err, fail)
		if errors.Is(lastErr, domain.ErrDimensionMismatch) {
			break
		}
	}

	sp.RecordError(lastErr)
	sp.SetStatus(codes.Error, lastErr.Error())
	return zero, lastErr
}

func attemptOnce[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	result, err := fn(attemptCtx)
	if err != nil && attemptCtx.Err() == context.DeadlineExceeded {
		return result, fmt.Errorf("%w after %v: %w", domain.ErrTimeout, timeout, err)
	}
	return result, err
}

// classify leaves errors that already name a domain failure untouched.
func classify(err, fail error) error {
	switch {
	case errors.Is(err, domain.ErrTimeout),
		errors.Is(err, domain.ErrRateLimited),
		errors.Is(err, domain.ErrEmbedding),
		errors.Is(err, domain.ErrGeneration):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %w", fail, err)
	}
}

// ResilientEmbedder applies a Policy to an embedding service.
type ResilientEmbedder struct {
	inner  driven.EmbeddingService
	policy Policy
}

// NewResilientEmbedder wraps inner.
func NewResilientEmbedder(inner driven.EmbeddingService, policy Policy) *ResilientEmbedder {
	return &ResilientEmbedder{inner: inner, policy: policy}
}

// Embed generates a vector embedding for the given text.
func (e *ResilientEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return do(ctx, e.policy, "embedding.embed", domain.ErrEmbedding, func(ctx context.Context) ([]float32, error) {
		return e.inner.Embed(ctx, text)
	})
}

// EmbedBatch generates embeddings for multiple texts.
func (e *ResilientEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return do(ctx, e.policy, "embedding.embed_batch", domain.ErrEmbedding, func(ctx context.Context) ([][]float32, error) {
		return e.inner.EmbedBatch(ctx, texts)
	})
}

// Dimensions returns the embedding vector size.
func (e *ResilientEmbedder) Dimensions() int { return e.inner.Dimensions() }

// ModelName returns the wrapped model name.
func (e *ResilientEmbedder) ModelName() string { return e.inner.ModelName() }

// Ping checks the wrapped service without retries.
func (e *ResilientEmbedder) Ping(ctx context.Context) error { return e.inner.Ping(ctx) }

// Close releases the wrapped service.
func (e *ResilientEmbedder) Close() error { return e.inner.Close() }

// ResilientLLM applies a Policy to an LLM service.
type ResilientLLM struct {
	inner  driven.LLMService
	policy Policy
}

// NewResilientLLM wraps inner.
func NewResilientLLM(inner driven.LLMService, policy Policy) *ResilientLLM {
	return &ResilientLLM{inner: inner, policy: policy}
}

// Generate produces text completion from a prompt.
func (l *ResilientLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	return do(ctx, l.policy, "llm.generate", domain.ErrGeneration, func(ctx context.Context) (string, error) {
		return l.inner.Generate(ctx, prompt, opts)
	})
}

// Chat conducts a multi-turn conversation.
func (l *ResilientLLM) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	return do(ctx, l.policy, "llm.chat", domain.ErrGeneration, func(ctx context.Context) (string, error) {
		return l.inner.Chat(ctx, messages, opts)
	})
}

// ModelName returns the wrapped model name.
func (l *ResilientLLM) ModelName() string { return l.inner.ModelName() }

// Ping checks the wrapped service without retries.
func (l *ResilientLLM) Ping(ctx context.Context) error { return l.inner.Ping(ctx) }

// Close releases the wrapped service.
func (l *ResilientLLM) Close() error { return l.inner.Close() }
