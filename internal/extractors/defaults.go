package extractors

import (
	"github.com/custodia-labs/ragline/internal/extractors/docx"
	"github.com/custodia-labs/ragline/internal/extractors/eml"
	"github.com/custodia-labs/ragline/internal/extractors/html"
	"github.com/custodia-labs/ragline/internal/extractors/markdown"
	"github.com/custodia-labs/ragline/internal/extractors/pdf"
	"github.com/custodia-labs/ragline/internal/extractors/plaintext"
)

// DefaultRegistry returns a registry with every built-in extractor.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(pdf.New())
	r.Register(docx.New())
	r.Register(eml.New())
	return r
}
