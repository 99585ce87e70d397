// Package tui provides an interactive terminal interface for asking
// questions against ingested documents.
package tui

import (
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI uses.
type Ports struct {
	// Query answers questions. Required.
	Query driving.QueryService

	// Document lists ingested documents. Optional; the documents view is
	// disabled without it.
	Document driving.DocumentService

	// Ingestion re-submits documents from the documents view. Optional.
	Ingestion driving.IngestionService
}

// Validate ensures the required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Query == nil {
		return ErrMissingQueryService
	}
	return nil
}
