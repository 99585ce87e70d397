// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - DocumentStore: Document persistence and title lookup
//   - IngestionStore: Ingestion state machine persistence
//   - VectorIndex: Embedding rows with an exact L2 scan
//   - SchedulerStore: Background task state and history
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Embeddings and ingestion status reference documents with ON DELETE CASCADE,
// so deleting a document removes everything derived from it.
//
// # Data Location
//
// By default, the database is stored at ~/.ragline/data/ragline.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
