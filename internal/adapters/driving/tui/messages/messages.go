// Package messages defines Bubbletea message types for the TUI.
package messages

import (
	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
)

// AskRequested asks the query service a question.
type AskRequested struct {
	Query   string
	Title   string
	Options driving.QueryOptions
}

// AnswerCompleted carries an answer back to the model.
type AnswerCompleted struct {
	Answer *domain.Answer
	Err    error
}

// ContextSelected is sent when a retrieved context is expanded.
type ContextSelected struct {
	Index int
}

// DocumentsLoaded carries the document list with ingestion details.
type DocumentsLoaded struct {
	Documents []driving.DocumentDetails
	Err       error
}

// DocumentReingested reports the result of re-submitting a document.
type DocumentReingested struct {
	DocumentID string
	Err        error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewAsk is the question input and answer view.
	ViewAsk ViewType = iota
	// ViewDocuments lists ingested documents and their state.
	ViewDocuments
	// ViewHelp is the keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewAsk:
		return "ask"
	case ViewDocuments:
		return "documents"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred reports an error to display.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
