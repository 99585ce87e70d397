package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
	"github.com/custodia-labs/ragline/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// DefaultEmbedBatchSize is how many chunks are embedded per model call.
const DefaultEmbedBatchSize = 32

// DefaultStaleAfter is how long a chunking or embedding status may go
// without progress before it is treated as abandoned.
const DefaultStaleAfter = 30 * time.Minute

// IngestionService creates documents from uploads and indexes them.
type IngestionService struct {
	docStore   driven.DocumentStore
	statuses   driven.IngestionStore
	index      driven.VectorIndex
	embedder   driven.EmbeddingService
	pipeline   driven.PostProcessorPipeline
	extractors driven.ExtractorRegistry
	dispatcher driven.Dispatcher
	batchSize  int
	staleAfter time.Duration
	now        func() time.Time
}

// NewIngestionService creates an ingestion service. The dispatcher is set
// afterwards with SetDispatcher because dispatchers call back into
// RunIngestion.
func NewIngestionService(
	docStore driven.DocumentStore,
	statuses driven.IngestionStore,
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
	pipeline driven.PostProcessorPipeline,
	extractors driven.ExtractorRegistry,
) *IngestionService {
	return &IngestionService{
		docStore:   docStore,
		statuses:   statuses,
		index:      index,
		embedder:   embedder,
		pipeline:   pipeline,
		extractors: extractors,
		batchSize:  DefaultEmbedBatchSize,
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
	}
}

// SetDispatcher sets the dispatcher used to defer ingestion.
// Without one, created documents wait for the resubmit task or an explicit run.
func (s *IngestionService) SetDispatcher(d driven.Dispatcher) {
	s.dispatcher = d
}

// SetBatchSize sets the number of chunks per embedding call.
func (s *IngestionService) SetBatchSize(n int) {
	if n > 0 {
		s.batchSize = n
	}
}

// SetStaleAfter sets how long an in-progress status may go without
// progress before Reingest and ResubmitStale may take the document over.
func (s *IngestionService) SetStaleAfter(d time.Duration) {
	if d > 0 {
		s.staleAfter = d
	}
}

// Ingest extracts text from each upload, creates a document for every file
// with usable text and submits it for ingestion. Files that fail are
// reported individually and create no document.
func (s *IngestionService) Ingest(ctx context.Context, uploads []domain.Upload) (*driving.IngestReport, error) {
	if len(uploads) == 0 {
		return nil, fmt.Errorf("%w: no files", domain.ErrInvalidInput)
	}

	report := &driving.IngestReport{}
	for i := range uploads {
		doc, err := s.createDocument(ctx, &uploads[i])
		if err != nil {
			logger.Warn("Skipping %s: %v", uploads[i].FileName, err)
			report.Errors = append(report.Errors, driving.FileError{FileName: uploads[i].FileName, Err: err})
			continue
		}
		report.Documents = append(report.Documents, *doc)
		s.submit(ctx, doc.ID)
	}

	logger.Info("Created %d documents, %d files failed", len(report.Documents), len(report.Errors))
	return report, nil
}

func (s *IngestionService) createDocument(ctx context.Context, upload *domain.Upload) (*domain.Document, error) {
	text, err := s.extractors.Extract(ctx, upload)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: no extractable text", domain.ErrInvalidInput)
	}

	doc := &domain.Document{
		ID:         uuid.New().String(),
		Title:      strings.TrimSpace(upload.Title),
		FileName:   upload.FileName,
		Content:    text,
		UploadedAt: s.now().UTC(),
	}
	doc.Title = doc.DisplayTitle()

	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	status := &domain.IngestionStatus{
		DocumentID:  doc.ID,
		State:       domain.IngestionCreated,
		FailedChunk: -1,
		UpdatedAt:   doc.UploadedAt,
	}
	if err := s.statuses.SaveStatus(ctx, status); err != nil {
		return nil, fmt.Errorf("save status: %w", err)
	}
	return doc, nil
}

// submit hands a document to the dispatcher. Failures leave the document in
// created, where the resubmit task can find it.
func (s *IngestionService) submit(ctx context.Context, documentID string) {
	if s.dispatcher == nil {
		logger.Debug("No dispatcher; %s left in created", documentID)
		return
	}
	if err := s.dispatcher.Submit(ctx, documentID); err != nil {
		logger.Warn("Submit %s failed: %v", documentID, err)
	}
}

// RunIngestion chunks, embeds and indexes one document. It is the unit of
// work dispatchers invoke.
//
// Progress is persisted after every batch. On failure the remaining chunks
// are abandoned, the status records the failing chunk and an
// *domain.IngestionError is returned. An already indexed document is left
// untouched so duplicate deliveries do not duplicate embeddings.
func (s *IngestionService) RunIngestion(ctx context.Context, documentID string) (err error) {
	ctx, span := tracer.Start(ctx, "ingestion.run", trace.WithAttributes(
		attribute.String("document.id", documentID),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	defer logger.Stage("ingest " + documentID)()

	// A panic must not leave the document in an in-progress state that
	// every later run refuses to touch.
	var status *domain.IngestionStatus
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		logger.Error("Ingestion of %s panicked: %v", documentID, r)
		cause := fmt.Errorf("panic: %v", r)
		if status != nil && !status.State.IsTerminal() {
			stage, chunk := panicPosition(status)
			err = s.fail(ctx, status, stage, chunk, cause)
			return
		}
		err = &domain.IngestionError{DocumentID: documentID, ChunkIndex: -1, Stage: domain.StageLoad, Err: cause}
	}()

	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return &domain.IngestionError{DocumentID: documentID, ChunkIndex: -1, Stage: domain.StageLoad, Err: err}
	}

	status, err = s.statuses.GetStatus(ctx, documentID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = &domain.IngestionStatus{DocumentID: documentID, State: domain.IngestionCreated}
	case err != nil:
		return &domain.IngestionError{DocumentID: documentID, ChunkIndex: -1, Stage: domain.StageLoad, Err: err}
	case status.State == domain.IngestionIndexed:
		logger.Debug("Document %s already indexed", documentID)
		return nil
	case status.State != domain.IngestionCreated:
		return &domain.IngestionError{
			DocumentID: documentID,
			ChunkIndex: -1,
			Stage:      domain.StageLoad,
			Err:        fmt.Errorf("%w: ingestion is %s, reingest to restart", domain.ErrInvalidInput, status.State),
		}
	}

	logger.Info("Ingesting %s (%s)", doc.Title, documentID)
	status.ChunkCount, status.IndexedCount, status.FailedChunk, status.Error = 0, 0, -1, ""
	status.StartedAt = s.now().UTC()

	// A crashed earlier run may have left rows behind.
	if err := s.index.DeleteDocument(ctx, documentID); err != nil {
		return s.fail(ctx, status, domain.StageIndex, -1, err)
	}

	if err := s.advance(ctx, status, domain.IngestionChunking); err != nil {
		return s.fail(ctx, status, domain.StageChunking, -1, err)
	}
	chunks, err := s.pipeline.Process(ctx, doc)
	if err != nil {
		return s.fail(ctx, status, domain.StageChunking, -1, err)
	}
	if len(chunks) == 0 {
		return s.fail(ctx, status, domain.StageChunking, -1,
			fmt.Errorf("%w: document has no content", domain.ErrInvalidInput))
	}
	status.ChunkCount = len(chunks)
	logger.Debug("Split %s into %d chunks", documentID, len(chunks))

	if err := s.advance(ctx, status, domain.IngestionEmbedding); err != nil {
		return s.fail(ctx, status, domain.StageEmbed, 0, err)
	}

	for start := 0; start < len(chunks); start += s.batchSize {
		end := min(start+s.batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = batch[i].Content
		}
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return s.fail(ctx, status, domain.StageEmbed, start, err)
		}

		for i := range batch {
			emb := &domain.Embedding{
				ID:         uuid.New().String(),
				DocumentID: documentID,
				Position:   batch[i].Position,
				Content:    batch[i].Content,
				Vector:     vectors[i],
				CreatedAt:  s.now().UTC(),
			}
			if err := s.index.Upsert(ctx, emb); err != nil {
				return s.fail(ctx, status, domain.StageIndex, start+i, err)
			}
			status.IndexedCount++
		}

		status.UpdatedAt = s.now().UTC()
		if err := s.statuses.SaveStatus(ctx, status); err != nil {
			logger.Warn("Save progress for %s: %v", documentID, err)
		}
	}

	if err := s.advance(ctx, status, domain.IngestionIndexed); err != nil {
		return s.fail(ctx, status, domain.StageIndex, -1, err)
	}
	span.SetAttributes(attribute.Int("ingestion.chunks", status.ChunkCount))
	logger.Info("Indexed %s: %d chunks", documentID, status.IndexedCount)
	return nil
}

// panicPosition maps the state a run was in to the stage and chunk the
// failure is recorded against. During embedding the first chunk not yet
// indexed is blamed.
func panicPosition(status *domain.IngestionStatus) (domain.IngestionStage, int) {
	switch status.State {
	case domain.IngestionChunking:
		return domain.StageChunking, -1
	case domain.IngestionEmbedding:
		return domain.StageEmbed, status.IndexedCount
	default:
		return domain.StageLoad, -1
	}
}

// advance moves status to next and persists it.
func (s *IngestionService) advance(ctx context.Context, status *domain.IngestionStatus, next domain.IngestionState) error {
	if !status.State.CanTransition(next) {
		return fmt.Errorf("%w: cannot move from %s to %s", domain.ErrInvalidInput, status.State, next)
	}
	status.State = next
	status.UpdatedAt = s.now().UTC()
	return s.statuses.SaveStatus(ctx, status)
}

// fail records the failure against the document and builds the returned error.
func (s *IngestionService) fail(
	ctx context.Context, status *domain.IngestionStatus, stage domain.IngestionStage, chunk int, cause error,
) error {
	ingErr := &domain.IngestionError{
		DocumentID: status.DocumentID,
		ChunkIndex: chunk,
		Stage:      stage,
		Err:        cause,
	}

	status.State = domain.IngestionFailed
	status.FailedChunk = chunk
	status.Error = ingErr.Error()
	status.UpdatedAt = s.now().UTC()

	// The caller's context may be the reason we failed.
	saveCtx := context.WithoutCancel(ctx)
	if err := s.statuses.SaveStatus(saveCtx, status); err != nil {
		logger.Error("Record failure for %s: %v", status.DocumentID, err)
	}
	logger.Warn("%v (%d of %d chunks indexed)", ingErr, status.IndexedCount, status.ChunkCount)
	return ingErr
}

// Status returns the persisted ingestion status of a document.
func (s *IngestionService) Status(ctx context.Context, documentID string) (*domain.IngestionStatus, error) {
	return s.statuses.GetStatus(ctx, documentID)
}

// Reingest clears a document's embeddings and submits it again.
// A document whose ingestion is in progress is rejected unless it has
// stalled (no progress for the stale-after window).
func (s *IngestionService) Reingest(ctx context.Context, documentID string) error {
	if _, err := s.docStore.GetDocument(ctx, documentID); err != nil {
		return err
	}

	status, err := s.statuses.GetStatus(ctx, documentID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if status != nil && status.State.InProgress() {
		if !status.Stalled(s.now(), s.staleAfter) {
			return fmt.Errorf("%w: ingestion is %s", domain.ErrInvalidInput, status.State)
		}
		logger.Warn("Taking over %s, stalled in %s since %s", documentID, status.State, status.UpdatedAt.Format(time.RFC3339))
	}

	if err := s.reset(ctx, documentID); err != nil {
		return err
	}

	logger.Info("Re-ingesting %s", documentID)
	s.submit(ctx, documentID)
	return nil
}

// RetryIngestion runs ingestion again for a redelivered document. A failed
// document is reset to created first; any other state behaves like
// RunIngestion. Dispatch backends use it for attempts after the first.
func (s *IngestionService) RetryIngestion(ctx context.Context, documentID string) error {
	status, err := s.statuses.GetStatus(ctx, documentID)
	if err == nil && status.State == domain.IngestionFailed {
		logger.Info("Retrying failed ingestion of %s", documentID)
		if err := s.reset(ctx, documentID); err != nil {
			return &domain.IngestionError{DocumentID: documentID, ChunkIndex: -1, Stage: domain.StageLoad, Err: err}
		}
	}
	return s.RunIngestion(ctx, documentID)
}

// reset clears the document's embeddings and puts it back at created.
func (s *IngestionService) reset(ctx context.Context, documentID string) error {
	if err := s.index.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("clear embeddings: %w", err)
	}

	status := &domain.IngestionStatus{
		DocumentID:  documentID,
		State:       domain.IngestionCreated,
		FailedChunk: -1,
		UpdatedAt:   s.now().UTC(),
	}
	if err := s.statuses.SaveStatus(ctx, status); err != nil {
		return fmt.Errorf("reset status: %w", err)
	}
	return nil
}

// ListIncomplete returns every document that is not indexed, including
// failures, oldest update first within each state.
func (s *IngestionService) ListIncomplete(ctx context.Context) ([]domain.IngestionStatus, error) {
	var out []domain.IngestionStatus
	for _, state := range []domain.IngestionState{
		domain.IngestionCreated,
		domain.IngestionChunking,
		domain.IngestionEmbedding,
		domain.IngestionFailed,
	} {
		statuses, err := s.statuses.ListByState(ctx, state)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", state, err)
		}
		out = append(out, statuses...)
	}
	return out, nil
}

// ResubmitStale submits documents that have sat in created for longer than
// olderThan. Documents stalled in chunking or embedding are reset to
// created and submitted too. It returns how many were submitted.
func (s *IngestionService) ResubmitStale(ctx context.Context, olderThan time.Duration) (int, error) {
	if s.dispatcher == nil {
		return 0, nil
	}
	now := s.now()

	var due []string
	created, err := s.statuses.ListByState(ctx, domain.IngestionCreated)
	if err != nil {
		return 0, err
	}
	for _, st := range created {
		if !st.UpdatedAt.After(now.Add(-olderThan)) {
			due = append(due, st.DocumentID)
		}
	}
	for _, state := range []domain.IngestionState{domain.IngestionChunking, domain.IngestionEmbedding} {
		running, err := s.statuses.ListByState(ctx, state)
		if err != nil {
			return 0, err
		}
		for i := range running {
			if !running[i].Stalled(now, s.staleAfter) {
				continue
			}
			logger.Warn("Resetting %s, stalled in %s", running[i].DocumentID, state)
			if err := s.reset(ctx, running[i].DocumentID); err != nil {
				return 0, fmt.Errorf("reset %s: %w", running[i].DocumentID, err)
			}
			due = append(due, running[i].DocumentID)
		}
	}

	n := 0
	for _, id := range due {
		if err := s.dispatcher.Submit(ctx, id); err != nil {
			return n, fmt.Errorf("submit %s: %w", id, err)
		}
		n++
	}
	if n > 0 {
		logger.Info("Resubmitted %d stale documents", n)
	}
	return n, nil
}
