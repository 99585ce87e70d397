package sqlite

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
)

// vectorIndex implements driven.VectorIndex over the embeddings table.
// Queries scan every eligible row and compute exact L2 distances, which
// is fast enough for the few thousand vectors a deployment holds.
type vectorIndex struct {
	store *Store
	dims  int
}

var _ driven.VectorIndex = (*vectorIndex)(nil)

// Upsert inserts one embedding row. A missing ID is generated.
func (v *vectorIndex) Upsert(ctx context.Context, emb *domain.Embedding) error {
	if emb == nil {
		return domain.ErrInvalidInput
	}
	if err := checkDims(v.dims, emb.Vector); err != nil {
		return err
	}
	if emb.ID == "" {
		emb.ID = uuid.New().String()
	}

	_, err := v.store.db.ExecContext(ctx, `
		INSERT INTO embeddings (id, document_id, position, content, vector, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, emb.ID, emb.DocumentID, emb.Position, emb.Content,
		float32SliceToBytes(emb.Vector), formatTime(emb.CreatedAt))
	if err != nil {
		return fmt.Errorf("%w: saving embedding: %w", domain.ErrIndex, err)
	}
	return nil
}

// Query returns the k nearest embeddings by L2 distance, ascending.
// Equal distances keep insertion order.
func (v *vectorIndex) Query(ctx context.Context, vector []float32, k int, filter driven.VectorFilter) ([]driven.VectorHit, error) {
	if err := checkDims(v.dims, vector); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	query := "SELECT id, document_id, position, content, vector FROM embeddings"
	var args []any
	if !filter.IsEmpty() {
		query += " WHERE document_id IN (" + placeholders(len(filter.DocumentIDs)) + ")"
		for _, id := range filter.DocumentIDs {
			args = append(args, id)
		}
	}
	query += " ORDER BY rowid"

	rows, err := v.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying embeddings: %w", domain.ErrIndex, err)
	}
	defer rows.Close()

	var hits []driven.VectorHit
	for rows.Next() {
		var hit driven.VectorHit
		var blob []byte
		if err := rows.Scan(&hit.EmbeddingID, &hit.DocumentID, &hit.Position, &hit.Content, &blob); err != nil {
			return nil, fmt.Errorf("%w: scanning embedding: %w", domain.ErrIndex, err)
		}
		stored := bytesToFloat32Slice(blob)
		if len(stored) != len(vector) {
			// Written under a different model; never comparable.
			continue
		}
		hit.Distance = L2Distance(vector, stored)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating embeddings: %w", domain.ErrIndex, err)
	}

	slices.SortStableFunc(hits, func(a, b driven.VectorHit) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// DeleteDocument removes every embedding owned by the document.
func (v *vectorIndex) DeleteDocument(ctx context.Context, documentID string) error {
	if _, err := v.store.db.ExecContext(ctx, "DELETE FROM embeddings WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("%w: deleting embeddings: %w", domain.ErrIndex, err)
	}
	return nil
}

// Count returns the number of embeddings stored for the document.
func (v *vectorIndex) Count(ctx context.Context, documentID string) (int, error) {
	var n int
	row := v.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings WHERE document_id = ?", documentID)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: counting embeddings: %w", domain.ErrIndex, err)
	}
	return n, nil
}

// Close is a no-op; the owning Store closes the database.
func (v *vectorIndex) Close() error {
	return nil
}

// L2Distance returns the Euclidean distance between two equal-length vectors.
func L2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func checkDims(dims int, vec []float32) error {
	if dims > 0 && len(vec) != dims {
		return fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(vec), dims)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
