package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
)

type fixture struct {
	query     *mockQueryService
	documents *mockDocumentService
	ingestion *mockIngestionService
	server    *Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		query:     &mockQueryService{answer: &domain.Answer{}},
		documents: &mockDocumentService{},
		ingestion: &mockIngestionService{report: &driving.IngestReport{}},
	}
	srv, err := NewServer(&Ports{Query: f.query, Document: f.documents, Ingestion: f.ingestion}, "test")
	require.NoError(t, err)
	f.server = srv
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestNewServer_RequiresPorts(t *testing.T) {
	_, err := NewServer(&Ports{Query: &mockQueryService{}}, "test")
	assert.ErrorIs(t, err, ErrMissingPorts)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", decode[map[string]string](t, rec)["version"])
}

func TestQuery(t *testing.T) {
	f := newFixture(t)
	f.query.answer = &domain.Answer{
		Query:    "refund window?",
		Title:    "policy",
		Answer:   "30 days.",
		Contexts: []domain.RetrievalCandidate{{DocumentID: "d1", Title: "Refund Policy", Position: 0, Score: 8.5, Content: "30 days"}},
	}

	body := `{"query":"refund window?","title":"policy","top_k":7}`
	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[queryResponse](t, rec)
	assert.Equal(t, "refund window?", resp.Query)
	assert.Equal(t, "policy", resp.Title)
	assert.Equal(t, "30 days.", resp.Answer)
	require.Len(t, resp.Contexts, 1)
	assert.Equal(t, "Refund Policy", resp.Contexts[0].Title)
	assert.Equal(t, 8.5, resp.Contexts[0].Score)
	assert.Equal(t, 7, f.query.opts.TopK)
	assert.Equal(t, "policy", f.query.got.Title)
}

func TestQuery_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		retryAfter bool
	}{
		{"empty query", domain.ErrInvalidQuery, http.StatusBadRequest, false},
		{"unknown title", fmt.Errorf("title %q: %w", "x", domain.ErrNotFound), http.StatusNotFound, false},
		{"generation", domain.ErrGeneration, http.StatusBadGateway, false},
		{"timeout", domain.ErrTimeout, http.StatusServiceUnavailable, true},
		{"embedding outage", domain.ErrEmbedding, http.StatusServiceUnavailable, true},
		{"empty embedding input", fmt.Errorf("%w: %w: empty text", domain.ErrEmbedding, domain.ErrInvalidInput), http.StatusBadRequest, false},
		{"rate limited", domain.ErrRateLimited, http.StatusServiceUnavailable, true},
		{"llm unavailable", domain.ErrLLMUnavailable, http.StatusServiceUnavailable, true},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.query.err = tt.err

			rec := f.do(httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"query":"q"}`)))
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.retryAfter {
				assert.Equal(t, retryAfterSeconds, rec.Header().Get("Retry-After"))
			} else {
				assert.Empty(t, rec.Header().Get("Retry-After"))
			}
			assert.NotEmpty(t, decode[errorResponse](t, rec).Error)
		})
	}
}

func TestQuery_BadJSON(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader("")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuery_NoContextSentinel(t *testing.T) {
	f := newFixture(t)
	f.query.answer = &domain.Answer{Query: "q", Answer: domain.NoAnswerSentinel}

	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"query":"q"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.NoAnswerSentinel, decode[queryResponse](t, rec).Answer)
}

func multipartRequest(t *testing.T, title string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if title != "" {
		require.NoError(t, mw.WriteField("title", title))
	}
	for name, content := range files {
		w, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUpload_Created(t *testing.T) {
	f := newFixture(t)
	f.ingestion.report = &driving.IngestReport{
		Documents: []domain.Document{{ID: "d1", Title: "Guide", FileName: "a.txt"}},
		Errors:    []driving.FileError{{FileName: "b.bin", Err: domain.ErrUnsupportedType}},
	}

	rec := f.do(multipartRequest(t, "Guide", map[string]string{"a.txt": "hello", "b.bin": "\x00"}))

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode[uploadResponse](t, rec)
	require.Len(t, resp.Documents, 1)
	assert.Equal(t, "d1", resp.Documents[0].ID)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "b.bin", resp.Errors[0].FileName)

	require.Len(t, f.ingestion.uploads, 2)
	for _, u := range f.ingestion.uploads {
		assert.Equal(t, "Guide", u.Title)
	}
}

func TestUpload_AllFailed(t *testing.T) {
	f := newFixture(t)
	f.ingestion.report = &driving.IngestReport{
		Errors: []driving.FileError{{FileName: "a.bin", Err: domain.ErrUnsupportedType}},
	}

	rec := f.do(multipartRequest(t, "", map[string]string{"a.bin": "\x00"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, decode[uploadResponse](t, rec).Errors, 1)
}

func TestUpload_NoFiles(t *testing.T) {
	f := newFixture(t)
	rec := f.do(multipartRequest(t, "title only", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, f.ingestion.uploads)
}

func TestUpload_NotMultipart(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/documents", strings.NewReader("x")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocuments(t *testing.T) {
	f := newFixture(t)
	f.documents.documents = []domain.Document{{ID: "d1", FileName: "a.md"}}
	f.documents.details = &driving.DocumentDetails{ID: "d1", Title: "a.md", State: domain.IngestionIndexed, ChunkCount: 3, EmbeddingCount: 3}
	f.ingestion.status = &domain.IngestionStatus{DocumentID: "d1", State: domain.IngestionEmbedding, ChunkCount: 3, IndexedCount: 1, FailedChunk: -1}

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]documentResponse](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "a.md", list[0].Title)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/documents/d1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	details := decode[documentDetailsResponse](t, rec)
	assert.Equal(t, "indexed", details.State)
	assert.Equal(t, 3, details.EmbeddingCount)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/documents/d1/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[statusResponse](t, rec)
	assert.Equal(t, "embedding", status.State)
	assert.Equal(t, 1, status.IndexedCount)

	rec = f.do(httptest.NewRequest(http.MethodDelete, "/api/documents/d1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "d1", f.documents.deleted)

	rec = f.do(httptest.NewRequest(http.MethodPost, "/api/documents/d1/reingest", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "d1", f.ingestion.reingested)
}

func TestDocuments_NotFound(t *testing.T) {
	f := newFixture(t)
	f.documents.err = domain.ErrNotFound

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/documents/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodDelete, "/api/documents/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/query", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
