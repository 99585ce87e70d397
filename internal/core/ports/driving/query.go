package driving

import (
	"context"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// QueryService answers questions over the ingested documents.
type QueryService interface {
	// Ask retrieves, re-ranks and synthesises an answer.
	// Returns domain.ErrInvalidQuery for an empty question and
	// domain.ErrNotFound when the title filter matches no document.
	Ask(ctx context.Context, query domain.Query) (*domain.Answer, error)

	// AskWithOptions is Ask with per-call retrieval fan-out.
	AskWithOptions(ctx context.Context, query domain.Query, opts QueryOptions) (*domain.Answer, error)
}

// QueryOptions override retrieval fan-out for a single call.
// Zero values use the configured defaults.
type QueryOptions struct {
	// TopK is how many nearest chunks to retrieve.
	TopK int
	// TopN is how many re-ranked chunks reach the answer prompt.
	TopN int
}
