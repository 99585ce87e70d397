package cli

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
)

type mockQueryService struct {
	answer   *domain.Answer
	err      error
	lastQ    domain.Query
	lastOpts driving.QueryOptions
}

func (m *mockQueryService) Ask(ctx context.Context, q domain.Query) (*domain.Answer, error) {
	return m.AskWithOptions(ctx, q, driving.QueryOptions{})
}

func (m *mockQueryService) AskWithOptions(_ context.Context, q domain.Query, opts driving.QueryOptions) (*domain.Answer, error) {
	m.lastQ, m.lastOpts = q, opts
	if m.err != nil {
		return nil, m.err
	}
	if m.answer != nil {
		return m.answer, nil
	}
	return &domain.Answer{
		Query:  q.Text,
		Title:  q.Title,
		Answer: "The refund window is 30 days.",
		Contexts: []domain.RetrievalCandidate{
			{DocumentID: "doc-1", Title: "Refund Policy", Position: 2, Content: "Refunds are accepted within 30 days.", Distance: 0.21, Score: 9, Judged: true},
		},
	}, nil
}

type mockDocumentService struct {
	docs    []domain.Document
	deleted []string
}

func (m *mockDocumentService) List(context.Context) ([]domain.Document, error) {
	return m.docs, nil
}

func (m *mockDocumentService) Get(_ context.Context, id string) (*domain.Document, error) {
	for i := range m.docs {
		if m.docs[i].ID == id {
			return &m.docs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) GetDetails(ctx context.Context, id string) (*driving.DocumentDetails, error) {
	doc, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &driving.DocumentDetails{
		ID:             doc.ID,
		Title:          doc.Title,
		FileName:       doc.FileName,
		ContentLength:  len(doc.Content),
		State:          domain.IngestionIndexed,
		ChunkCount:     3,
		EmbeddingCount: 3,
		UploadedAt:     doc.UploadedAt,
	}, nil
}

func (m *mockDocumentService) Delete(ctx context.Context, id string) error {
	if _, err := m.Get(ctx, id); err != nil {
		return err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

type mockIngestionService struct {
	uploads    []domain.Upload
	reingested []string
	// states is returned by Status in order; the last entry repeats.
	states []domain.IngestionState
	calls  int
}

func (m *mockIngestionService) Ingest(_ context.Context, uploads []domain.Upload) (*driving.IngestReport, error) {
	m.uploads = append(m.uploads, uploads...)
	report := &driving.IngestReport{}
	for _, u := range uploads {
		if strings.HasSuffix(u.FileName, ".bin") {
			report.Errors = append(report.Errors, driving.FileError{FileName: u.FileName, Err: domain.ErrUnsupportedType})
			continue
		}
		report.Documents = append(report.Documents, domain.Document{
			ID:       "doc-" + u.FileName,
			FileName: u.FileName,
			Title:    u.Title,
		})
	}
	return report, nil
}

func (m *mockIngestionService) RunIngestion(context.Context, string) error   { return nil }
func (m *mockIngestionService) RetryIngestion(context.Context, string) error { return nil }

func (m *mockIngestionService) Status(_ context.Context, id string) (*domain.IngestionStatus, error) {
	state := domain.IngestionIndexed
	if len(m.states) > 0 {
		state = m.states[min(m.calls, len(m.states)-1)]
	}
	m.calls++
	status := &domain.IngestionStatus{
		DocumentID:   id,
		State:        state,
		ChunkCount:   3,
		IndexedCount: 3,
		FailedChunk:  -1,
		UpdatedAt:    time.Now(),
	}
	if state == domain.IngestionFailed {
		status.Error = "embedding provider unavailable"
		status.FailedChunk = 1
	}
	return status, nil
}

func (m *mockIngestionService) Reingest(_ context.Context, id string) error {
	m.reingested = append(m.reingested, id)
	return nil
}

func (m *mockIngestionService) ListIncomplete(context.Context) ([]domain.IngestionStatus, error) {
	return []domain.IngestionStatus{
		{DocumentID: "doc-stuck", State: domain.IngestionEmbedding, UpdatedAt: time.Now().Add(-time.Hour)},
	}, nil
}

type mockSettingsService struct {
	settings    domain.AppSettings
	validateErr error
	embedding   []string
	llm         []string
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(s *domain.AppSettings) error {
	m.settings = *s
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(p domain.AIProvider, model, key string) error {
	m.embedding = []string{string(p), model, key}
	return nil
}

func (m *mockSettingsService) SetLLMProvider(p domain.AIProvider, model, key string) error {
	m.llm = []string{string(p), model, key}
	return nil
}

func (m *mockSettingsService) Validate() error                 { return m.validateErr }
func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }
func (m *mockSettingsService) ValidateEmbeddingConfig() error  { return nil }
func (m *mockSettingsService) ValidateLLMConfig() error        { return nil }

type testServices struct {
	query     *mockQueryService
	documents *mockDocumentService
	ingestion *mockIngestionService
	settings  *mockSettingsService
}

// setupTestServices installs mocks and returns them with a cleanup func.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		query: &mockQueryService{},
		documents: &mockDocumentService{docs: []domain.Document{
			{ID: "doc-1", Title: "Employee Handbook", FileName: "handbook.pdf", Content: "Refunds are accepted within 30 days."},
			{ID: "doc-2", FileName: "notes.md", Content: "meeting notes"},
		}},
		ingestion: &mockIngestionService{},
		settings:  &mockSettingsService{settings: domain.DefaultAppSettings()},
	}
	SetServices(Services{
		Query:     ts.query,
		Ingestion: ts.ingestion,
		Document:  ts.documents,
		Settings:  ts.settings,
	})
	return ts, func() {
		SetServices(Services{})
		SetRuntimeConfig(nil)
	}
}

// execute runs the root command with args and returns stdout and stderr.
func execute(args ...string) (string, string, error) {
	return executeInput("", args...)
}

// executeInput is execute with input on stdin.
func executeInput(input string, args ...string) (string, string, error) {
	resetFlags()
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// resetFlags restores flag variables, which persist across Execute calls.
func resetFlags() {
	verbose = false
	askTitle, askJSON, askShowContexts, askTopK, askTopN = "", false, false, 0, 0
	ingestTitle, ingestWait, ingestWatchDir, ingestExisting = "", false, "", false
	ingestTimeout = 10 * time.Minute
	serveAddr, serveMaxUploadBytes = "", 0
	tuiTitle = ""
}
