// Package html extracts text from HTML pages by converting them to
// Markdown and stripping the remaining syntax.
package html

import (
	"context"
	"fmt"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/extractors/markdown"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// Extractor handles HTML documents.
type Extractor struct {
	converter *md.Converter
}

// New creates a new HTML extractor.
func New() *Extractor {
	conv := md.NewConverter("", true, nil)
	conv.Remove("script", "style", "noscript", "head", "nav", "footer", "iframe")
	return &Extractor{converter: conv}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50
}

// Extract converts the page to Markdown, then to plain text.
func (e *Extractor) Extract(_ context.Context, upload *domain.Upload) (string, error) {
	if upload == nil {
		return "", domain.ErrInvalidInput
	}
	out, err := e.converter.ConvertString(string(upload.Data))
	if err != nil {
		return "", fmt.Errorf("%w: html conversion: %v", domain.ErrInvalidInput, err)
	}
	return markdown.Strip(out), nil
}

// ToText converts an HTML fragment to plain text with a default extractor.
func ToText(fragment string) string {
	text, err := New().Extract(context.Background(), &domain.Upload{Data: []byte(fragment)})
	if err != nil {
		return ""
	}
	return text
}
