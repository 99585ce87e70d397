// Package services implements the driving port interfaces.
// Services contain the core retrieval-augmented generation logic and
// orchestrate calls to driven ports (adapters).
//
// The query path is Retriever -> Reranker -> Synthesizer, composed by
// QueryService. The ingestion path is IngestionService.RunIngestion,
// invoked through a driven.Dispatcher.
package services

import "go.opentelemetry.io/otel"

// tracer names spans for every service in this package. It is a no-op until
// a tracer provider is installed.
var tracer = otel.Tracer("github.com/custodia-labs/ragline/internal/core/services")
