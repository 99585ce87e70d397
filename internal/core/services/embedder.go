package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
)

// Ensure SharedEmbedder implements the interface.
var _ driven.EmbeddingService = (*SharedEmbedder)(nil)

// EmbedderFactory builds the underlying embedding service.
type EmbedderFactory func() (driven.EmbeddingService, error)

// SharedEmbedder is the process-wide embedding model. The underlying service
// is built on first use and then shared read-only by ingestion and queries,
// so both sides always embed with the same model.
//
// Every returned vector is checked against the configured dimensionality.
type SharedEmbedder struct {
	dims    int
	factory EmbedderFactory

	once    sync.Once
	svc     driven.EmbeddingService
	initErr error
}

// NewSharedEmbedder creates a lazily initialised embedder producing vectors
// of the given dimensionality.
func NewSharedEmbedder(dims int, factory EmbedderFactory) *SharedEmbedder {
	return &SharedEmbedder{dims: dims, factory: factory}
}

func (e *SharedEmbedder) get() (driven.EmbeddingService, error) {
	e.once.Do(func() {
		if e.factory == nil {
			e.initErr = fmt.Errorf("%w: no embedding provider configured", domain.ErrEmbeddingUnavailable)
			return
		}
		svc, err := e.factory()
		if err != nil {
			e.initErr = fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
			return
		}
		if d := svc.Dimensions(); d != 0 && d != e.dims {
			_ = svc.Close()
			e.initErr = fmt.Errorf("%w: model %s produces %d, index expects %d",
				domain.ErrDimensionMismatch, svc.ModelName(), d, e.dims)
			return
		}
		e.svc = svc
	})
	return e.svc, e.initErr
}

// Embed returns the vector for a single text, typically a query.
func (e *SharedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %w: empty text", domain.ErrEmbedding, domain.ErrInvalidInput)
	}
	svc, err := e.get()
	if err != nil {
		return nil, err
	}
	vec, err := svc.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := e.check(vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedBatch returns one vector per text, in order.
func (e *SharedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: %w: empty text at %d", domain.ErrEmbedding, domain.ErrInvalidInput, i)
		}
	}
	svc, err := e.get()
	if err != nil {
		return nil, err
	}
	vecs, err := svc.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", domain.ErrEmbedding, len(vecs), len(texts))
	}
	for _, vec := range vecs {
		if err := e.check(vec); err != nil {
			return nil, err
		}
	}
	return vecs, nil
}

func (e *SharedEmbedder) check(vec []float32) error {
	if len(vec) != e.dims {
		return fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(vec), e.dims)
	}
	return nil
}

// Dimensions returns the configured dimensionality without initialising the model.
func (e *SharedEmbedder) Dimensions() int {
	return e.dims
}

// ModelName returns the underlying model name, or "" if it cannot be built.
func (e *SharedEmbedder) ModelName() string {
	svc, err := e.get()
	if err != nil {
		return ""
	}
	return svc.ModelName()
}

// Ping initialises the model if needed and checks it is reachable.
func (e *SharedEmbedder) Ping(ctx context.Context) error {
	svc, err := e.get()
	if err != nil {
		return err
	}
	return svc.Ping(ctx)
}

// Close releases the underlying service if it was built.
func (e *SharedEmbedder) Close() error {
	if e.svc == nil {
		return nil
	}
	return e.svc.Close()
}
