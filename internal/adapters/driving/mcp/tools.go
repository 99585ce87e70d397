package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Query string `json:"query" jsonschema:"the question to answer from the ingested documents"`
	Title string `json:"title,omitempty" jsonschema:"only use documents whose title contains this text"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of chunks to retrieve (default from settings)"`
	TopN  int    `json:"top_n,omitempty" jsonschema:"number of re-ranked chunks used for the answer"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Query         string          `json:"query"`
	Title         string          `json:"title,omitempty"`
	Answer        string          `json:"answer"`
	Grounded      bool            `json:"grounded"`
	JudgeFailures int             `json:"judge_failures,omitempty"`
	Contexts      []ContextOutput `json:"contexts,omitempty"`
}

// ContextOutput is one chunk the answer was grounded on.
type ContextOutput struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title,omitempty"`
	Position   int     `json:"position"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct{}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput summarises one document.
type DocumentOutput struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	FileName   string    `json:"file_name"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// StatusInput is the input schema for the ingestion_status tool.
type StatusInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document to report on"`
}

// StatusOutput is the output schema for the ingestion_status tool.
type StatusOutput struct {
	DocumentID   string `json:"document_id"`
	State        string `json:"state"`
	ChunkCount   int    `json:"chunk_count"`
	IndexedCount int    `json:"indexed_count"`
	FailedChunk  int    `json:"failed_chunk"`
	Error        string `json:"error,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using only the ingested documents",
	}, s.handleAsk)

	if s.ports.Document != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_documents",
			Description: "List ingested documents",
		}, s.handleListDocuments)
	}

	if s.ports.Ingestion != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingestion_status",
			Description: "Report the ingestion progress of a document",
		}, s.handleIngestionStatus)
	}
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.Query.AskWithOptions(ctx,
		domain.Query{Text: input.Query, Title: input.Title},
		driving.QueryOptions{TopK: input.TopK, TopN: input.TopN},
	)
	if err != nil {
		return nil, AskOutput{}, err
	}

	out := AskOutput{
		Query:         answer.Query,
		Title:         answer.Title,
		Answer:        answer.Answer,
		Grounded:      answer.Grounded(),
		JudgeFailures: answer.JudgeFailures,
		Contexts:      make([]ContextOutput, len(answer.Contexts)),
	}
	for i, c := range answer.Contexts {
		out.Contexts[i] = ContextOutput{
			DocumentID: c.DocumentID,
			Title:      c.Title,
			Position:   c.Position,
			Score:      c.Score,
			Content:    c.Content,
		}
	}
	return nil, out, nil
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.ports.Document.List(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	out := ListDocumentsOutput{
		Documents: make([]DocumentOutput, len(docs)),
		Count:     len(docs),
	}
	for i := range docs {
		out.Documents[i] = DocumentOutput{
			ID:         docs[i].ID,
			Title:      docs[i].DisplayTitle(),
			FileName:   docs[i].FileName,
			UploadedAt: docs[i].UploadedAt,
		}
	}
	return nil, out, nil
}

// handleIngestionStatus handles the ingestion_status tool invocation.
func (s *Server) handleIngestionStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	if input.DocumentID == "" {
		return nil, StatusOutput{}, errors.New("document_id is required")
	}
	status, err := s.ports.Ingestion.Status(ctx, input.DocumentID)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, StatusOutput{
		DocumentID:   status.DocumentID,
		State:        status.State.String(),
		ChunkCount:   status.ChunkCount,
		IndexedCount: status.IndexedCount,
		FailedChunk:  status.FailedChunk,
		Error:        status.Error,
	}, nil
}
