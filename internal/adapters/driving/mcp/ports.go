package mcp

import (
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server calls.
type Ports struct {
	// Query answers questions.
	Query driving.QueryService

	// Document lists and reads documents. Optional.
	Document driving.DocumentService

	// Ingestion reports ingestion progress. Optional.
	Ingestion driving.IngestionService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	return nil
}
