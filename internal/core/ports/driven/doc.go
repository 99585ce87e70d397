// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - DocumentStore: Document persistence
//   - IngestionStore: Ingestion state machine persistence
//   - VectorIndex: Embedding storage and exact nearest-neighbour search
//   - EmbeddingService: Generates vector embeddings (ingestion and query)
//   - Dispatcher: Defers ingestion work off the request path
//   - TextExtractor / ExtractorRegistry: Turns uploaded files into text
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Without it, questions cannot be answered but ingestion still runs.
//   - RelevanceJudge: Without it, candidates keep their retrieval order.
//   - SchedulerStore: Without it, scheduled tasks run from memory only.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or extractor package
package driven
