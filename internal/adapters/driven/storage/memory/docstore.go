// Package memory provides in-memory implementations of the storage ports.
// State lives for the lifetime of the process; it backs tests and the
// "memory" vector backend.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
)

// Store holds documents, ingestion status and embeddings behind one lock,
// so deleting a document cascades the way the SQLite schema does.
type Store struct {
	mu         sync.RWMutex
	documents  map[string]domain.Document
	statuses   map[string]domain.IngestionStatus
	embeddings []domain.Embedding
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		documents: make(map[string]domain.Document),
		statuses:  make(map[string]domain.IngestionStatus),
	}
}

// DocumentStore returns a DocumentStore view of the store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{s}
}

// IngestionStore returns an IngestionStore view of the store.
func (s *Store) IngestionStore() driven.IngestionStore {
	return &ingestionStore{s}
}

// VectorIndex returns a VectorIndex view of the store.
// dims <= 0 disables the dimension check.
func (s *Store) VectorIndex(dims int) driven.VectorIndex {
	return &vectorIndex{s, dims}
}

// ==================== Document Store ====================

type documentStore struct{ s *Store }

var _ driven.DocumentStore = (*documentStore)(nil)

func (d *documentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("%w: document requires an id", domain.ErrInvalidInput)
	}
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	stored := *doc
	stored.Title = doc.DisplayTitle()
	d.s.documents[doc.ID] = stored
	return nil
}

func (d *documentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	doc, ok := d.s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

func (d *documentStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	return d.FindByTitle(ctx, "")
}

func (d *documentStore) FindByTitle(_ context.Context, fragment string) ([]domain.Document, error) {
	needle := strings.ToLower(fragment)
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	var docs []domain.Document
	for _, doc := range d.s.documents {
		if strings.Contains(strings.ToLower(doc.Title), needle) {
			docs = append(docs, doc)
		}
	}
	slices.SortFunc(docs, func(a, b domain.Document) int {
		return b.UploadedAt.Compare(a.UploadedAt)
	})
	return docs, nil
}

func (d *documentStore) DeleteDocument(_ context.Context, id string) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	if _, ok := d.s.documents[id]; !ok {
		return domain.ErrNotFound
	}
	delete(d.s.documents, id)
	delete(d.s.statuses, id)
	d.s.deleteEmbeddingsLocked(id)
	return nil
}

// ==================== Ingestion Store ====================

type ingestionStore struct{ s *Store }

var _ driven.IngestionStore = (*ingestionStore)(nil)

func (i *ingestionStore) SaveStatus(_ context.Context, status *domain.IngestionStatus) error {
	if status == nil {
		return domain.ErrInvalidInput
	}
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	i.s.statuses[status.DocumentID] = *status
	return nil
}

func (i *ingestionStore) GetStatus(_ context.Context, documentID string) (*domain.IngestionStatus, error) {
	i.s.mu.RLock()
	defer i.s.mu.RUnlock()
	status, ok := i.s.statuses[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &status, nil
}

func (i *ingestionStore) ListByState(_ context.Context, state domain.IngestionState) ([]domain.IngestionStatus, error) {
	i.s.mu.RLock()
	defer i.s.mu.RUnlock()
	var out []domain.IngestionStatus
	for _, status := range i.s.statuses {
		if status.State == state {
			out = append(out, status)
		}
	}
	slices.SortFunc(out, func(a, b domain.IngestionStatus) int {
		return a.UpdatedAt.Compare(b.UpdatedAt)
	})
	return out, nil
}

// ==================== Vector Index ====================

type vectorIndex struct {
	s    *Store
	dims int
}

var _ driven.VectorIndex = (*vectorIndex)(nil)

func (v *vectorIndex) Upsert(_ context.Context, emb *domain.Embedding) error {
	if emb == nil {
		return domain.ErrInvalidInput
	}
	if err := v.checkDims(emb.Vector); err != nil {
		return err
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.documents[emb.DocumentID]; !ok {
		return fmt.Errorf("%w: unknown document %s", domain.ErrIndex, emb.DocumentID)
	}
	if emb.ID == "" {
		emb.ID = uuid.New().String()
	}
	stored := *emb
	stored.Vector = slices.Clone(emb.Vector)
	v.s.embeddings = append(v.s.embeddings, stored)
	return nil
}

func (v *vectorIndex) Query(_ context.Context, vector []float32, k int, filter driven.VectorFilter) ([]driven.VectorHit, error) {
	if err := v.checkDims(vector); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	var hits []driven.VectorHit
	for _, emb := range v.s.embeddings {
		if !filter.IsEmpty() && !slices.Contains(filter.DocumentIDs, emb.DocumentID) {
			continue
		}
		if len(emb.Vector) != len(vector) {
			continue
		}
		hits = append(hits, driven.VectorHit{
			EmbeddingID: emb.ID,
			DocumentID:  emb.DocumentID,
			Position:    emb.Position,
			Content:     emb.Content,
			Distance:    l2(vector, emb.Vector),
		})
	}
	slices.SortStableFunc(hits, func(a, b driven.VectorHit) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (v *vectorIndex) DeleteDocument(_ context.Context, documentID string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.deleteEmbeddingsLocked(documentID)
	return nil
}

func (v *vectorIndex) Count(_ context.Context, documentID string) (int, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	n := 0
	for _, emb := range v.s.embeddings {
		if emb.DocumentID == documentID {
			n++
		}
	}
	return n, nil
}

func (v *vectorIndex) Close() error {
	return nil
}

func (v *vectorIndex) checkDims(vec []float32) error {
	if v.dims > 0 && len(vec) != v.dims {
		return fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(vec), v.dims)
	}
	return nil
}

func (s *Store) deleteEmbeddingsLocked(documentID string) {
	s.embeddings = slices.DeleteFunc(s.embeddings, func(e domain.Embedding) bool {
		return e.DocumentID == documentID
	})
}

func l2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
