package services

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/ragline/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/postprocessors"
)

const testDims = 64

// fakeEmbedder produces deterministic vectors from word hashes.
type fakeEmbedder struct {
	dims       int
	calls      atomic.Int32
	err        error
	failOnCall int32
	panicWith  string
}

var _ driven.EmbeddingService = (*fakeEmbedder)(nil)

func newFakeEmbedder() *fakeEmbedder { return &fakeEmbedder{dims: testDims} }

func (f *fakeEmbedder) vector(text string) []float32 {
	vec := make([]float32, f.dims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(w, ".,?!")))
		vec[h.Sum32()%uint32(f.dims)]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm > 0 {
		for i := range vec {
			vec[i] /= float32(math.Sqrt(norm))
		}
	}
	return vec
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	n := f.calls.Add(1)
	if f.panicWith != "" {
		panic(f.panicWith)
	}
	if f.err != nil && (f.failOnCall == 0 || n == f.failOnCall) {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vector(t)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int              { return f.dims }
func (f *fakeEmbedder) ModelName() string            { return "fake" }
func (f *fakeEmbedder) Ping(_ context.Context) error { return nil }
func (f *fakeEmbedder) Close() error                 { return nil }

// scriptedJudge returns fixed scores keyed by content.
type scriptedJudge struct {
	mu     sync.Mutex
	scores map[string]float64
	errs   map[string]error
	delay  map[string]time.Duration
	calls  []string
}

var _ driven.RelevanceJudge = (*scriptedJudge)(nil)

func (j *scriptedJudge) Score(ctx context.Context, _ string, content string) (float64, error) {
	j.mu.Lock()
	j.calls = append(j.calls, content)
	d := j.delay[content]
	j.mu.Unlock()

	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if err := j.errs[content]; err != nil {
		return 0, err
	}
	return j.scores[content], nil
}

func (j *scriptedJudge) callCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.calls)
}

// fakeGenerator records prompts and returns a fixed reply.
type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

var _ driven.Generator = (*fakeGenerator)(nil)

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	return g.reply, g.err
}

// fakeExtractors treats every upload as UTF-8 text unless told otherwise.
type fakeExtractors struct {
	failFor map[string]error
}

var _ driven.ExtractorRegistry = (*fakeExtractors)(nil)

func (f *fakeExtractors) Extract(_ context.Context, upload *domain.Upload) (string, error) {
	if err := f.failFor[upload.FileName]; err != nil {
		return "", err
	}
	return string(upload.Data), nil
}

func (f *fakeExtractors) Register(driven.TextExtractor) {}
func (f *fakeExtractors) SupportedMIMETypes() []string  { return []string{"text/plain"} }

// recordingDispatcher records submissions without running them.
type recordingDispatcher struct {
	mu        sync.Mutex
	submitted []string
	err       error
}

var _ driven.Dispatcher = (*recordingDispatcher)(nil)

func (d *recordingDispatcher) Submit(_ context.Context, documentID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.submitted = append(d.submitted, documentID)
	return nil
}

func (d *recordingDispatcher) Close() error { return nil }

// failingIndex wraps a vector index and fails the nth Upsert.
type failingIndex struct {
	driven.VectorIndex
	failAt  int
	upserts int
}

func (f *failingIndex) Upsert(ctx context.Context, e *domain.Embedding) error {
	f.upserts++
	if f.upserts == f.failAt {
		return errors.Join(domain.ErrIndex, errors.New("disk full"))
	}
	return f.VectorIndex.Upsert(ctx, e)
}

// pipelineFixture wires services over the in-memory store.
type pipelineFixture struct {
	store      *memory.Store
	docs       driven.DocumentStore
	statuses   driven.IngestionStore
	index      driven.VectorIndex
	embedder   *fakeEmbedder
	dispatcher *recordingDispatcher
	ingestion  *IngestionService
}

func newPipelineFixture(chunkSize, overlap int) *pipelineFixture {
	store := memory.NewStore()
	f := &pipelineFixture{
		store:      store,
		docs:       store.DocumentStore(),
		statuses:   store.IngestionStore(),
		index:      store.VectorIndex(testDims),
		embedder:   newFakeEmbedder(),
		dispatcher: &recordingDispatcher{},
	}
	pipeline, err := postprocessors.DefaultPipeline(domain.ChunkerSettings{ChunkSize: chunkSize, Overlap: overlap})
	if err != nil {
		panic(err)
	}
	f.ingestion = NewIngestionService(f.docs, f.statuses, f.index, f.embedder, pipeline, &fakeExtractors{})
	f.ingestion.SetDispatcher(f.dispatcher)
	return f
}

// addDocument stores a document with a created status.
func (f *pipelineFixture) addDocument(id, title, content string) {
	ctx := context.Background()
	if err := f.docs.SaveDocument(ctx, &domain.Document{
		ID: id, Title: title, FileName: id + ".txt", Content: content, UploadedAt: time.Now(),
	}); err != nil {
		panic(err)
	}
	if err := f.statuses.SaveStatus(ctx, &domain.IngestionStatus{
		DocumentID: id, State: domain.IngestionCreated, FailedChunk: -1, UpdatedAt: time.Now(),
	}); err != nil {
		panic(err)
	}
}

// panickingDocStore panics on every document lookup.
type panickingDocStore struct {
	driven.DocumentStore
}

func (panickingDocStore) GetDocument(context.Context, string) (*domain.Document, error) {
	panic("store corrupted")
}

// countingDocStore counts document lookups and hides one document.
type countingDocStore struct {
	driven.DocumentStore
	missing string
	lookups int
}

func (c *countingDocStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	c.lookups++
	if id == c.missing {
		return nil, domain.ErrNotFound
	}
	return c.DocumentStore.GetDocument(ctx, id)
}
