package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/ragline/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
)

// timeLayout is fixed width so timestamp columns sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is a unified SQLite-based storage that provides access to
// all metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.ragline/data/ragline.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".ragline", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "ragline.db")

	// WAL lets the query path read while ingestion workers write.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// IngestionStore returns an IngestionStore interface backed by this store.
func (s *Store) IngestionStore() driven.IngestionStore {
	return &ingestionStore{store: s}
}

// VectorIndex returns a VectorIndex backed by the embeddings table.
// Vectors whose length differs from dims are rejected; dims <= 0 disables the check.
func (s *Store) VectorIndex(dims int) driven.VectorIndex {
	return &vectorIndex{store: s, dims: dims}
}

// SchedulerStore returns a SchedulerStore interface backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// migrate runs all pending migrations, each in its own transaction.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) applyMigration(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// SaveDocument stores or replaces a document.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("%w: document requires an id", domain.ErrInvalidInput)
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, file_name, content, uploaded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			file_name = excluded.file_name,
			content = excluded.content
	`, doc.ID, doc.DisplayTitle(), doc.FileName, doc.Content, formatTime(doc.UploadedAt))
	if err != nil {
		return fmt.Errorf("%w: saving document: %w", domain.ErrIndex, err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, title, file_name, content, uploaded_at
		FROM documents WHERE id = ?
	`, id)

	return scanDocument(row)
}

// ListDocuments returns all documents, newest first.
func (s *documentStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	return s.queryDocuments(ctx, func(*domain.Document) bool { return true })
}

// FindByTitle returns documents whose title contains fragment, ignoring case.
// SQLite's lower() only folds ASCII, so matching happens here.
func (s *documentStore) FindByTitle(ctx context.Context, fragment string) ([]domain.Document, error) {
	needle := strings.ToLower(fragment)
	return s.queryDocuments(ctx, func(doc *domain.Document) bool {
		return strings.Contains(strings.ToLower(doc.Title), needle)
	})
}

func (s *documentStore) queryDocuments(ctx context.Context, keep func(*domain.Document) bool) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, title, file_name, content, uploaded_at
		FROM documents ORDER BY uploaded_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying documents: %w", domain.ErrIndex, err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		if keep(doc) {
			docs = append(docs, *doc)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating documents: %w", domain.ErrIndex, err)
	}
	return docs, nil
}

// DeleteDocument removes a document. Embeddings and status rows cascade.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%w: deleting document: %w", domain.ErrIndex, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ==================== Ingestion Store ====================

// ingestionStore implements driven.IngestionStore.
type ingestionStore struct {
	store *Store
}

var _ driven.IngestionStore = (*ingestionStore)(nil)

// SaveStatus creates or replaces the status for a document.
func (s *ingestionStore) SaveStatus(ctx context.Context, status *domain.IngestionStatus) error {
	if status == nil {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO ingestion_status
			(document_id, state, chunk_count, indexed_count, failed_chunk, error, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			state = excluded.state,
			chunk_count = excluded.chunk_count,
			indexed_count = excluded.indexed_count,
			failed_chunk = excluded.failed_chunk,
			error = excluded.error,
			started_at = excluded.started_at,
			updated_at = excluded.updated_at
	`, status.DocumentID, string(status.State), status.ChunkCount, status.IndexedCount,
		status.FailedChunk, nullString(status.Error), formatNullableTime(status.StartedAt),
		formatTime(status.UpdatedAt))
	if err != nil {
		return fmt.Errorf("%w: saving ingestion status: %w", domain.ErrIndex, err)
	}
	return nil
}

// GetStatus returns the status for a document.
func (s *ingestionStore) GetStatus(ctx context.Context, documentID string) (*domain.IngestionStatus, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT document_id, state, chunk_count, indexed_count, failed_chunk, error, started_at, updated_at
		FROM ingestion_status WHERE document_id = ?
	`, documentID)

	return scanIngestionStatus(row)
}

// ListByState returns all statuses in the given state, oldest update first.
func (s *ingestionStore) ListByState(ctx context.Context, state domain.IngestionState) ([]domain.IngestionStatus, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT document_id, state, chunk_count, indexed_count, failed_chunk, error, started_at, updated_at
		FROM ingestion_status WHERE state = ?
		ORDER BY updated_at
	`, string(state))
	if err != nil {
		return nil, fmt.Errorf("%w: querying ingestion status: %w", domain.ErrIndex, err)
	}
	defer rows.Close()

	var statuses []domain.IngestionStatus //nolint:prealloc // size unknown from query
	for rows.Next() {
		status, err := scanIngestionStatus(rows)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, *status)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating ingestion status: %w", domain.ErrIndex, err)
	}
	return statuses, nil
}

// ==================== Helper Functions ====================

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// float32SliceToBytes converts a float32 slice to bytes for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts bytes back to a float32 slice.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

func scanDocument(row scanner) (*domain.Document, error) {
	var doc domain.Document
	var uploadedAt string

	if err := row.Scan(&doc.ID, &doc.Title, &doc.FileName, &doc.Content, &uploadedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning document: %w", domain.ErrIndex, err)
	}
	doc.UploadedAt = parseTime(uploadedAt)

	return &doc, nil
}

func scanIngestionStatus(row scanner) (*domain.IngestionStatus, error) {
	var status domain.IngestionStatus
	var state, updatedAt string
	var errMsg, startedAt sql.NullString

	if err := row.Scan(&status.DocumentID, &state, &status.ChunkCount, &status.IndexedCount,
		&status.FailedChunk, &errMsg, &startedAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning ingestion status: %w", domain.ErrIndex, err)
	}

	status.State = domain.IngestionState(state)
	if errMsg.Valid {
		status.Error = errMsg.String
	}
	status.StartedAt = parseNullableTime(startedAt)
	status.UpdatedAt = parseTime(updatedAt)

	return &status, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
