package extractors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

type fakeExtractor struct {
	types    []string
	priority int
	out      string
	err      error
}

func (f *fakeExtractor) SupportedMIMETypes() []string { return f.types }
func (f *fakeExtractor) Priority() int                { return f.priority }
func (f *fakeExtractor) Extract(context.Context, *domain.Upload) (string, error) {
	return f.out, f.err
}

func TestRegistry_PicksHighestPriority(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeExtractor{types: []string{"text/plain"}, priority: 5, out: "low"})
	r.Register(&fakeExtractor{types: []string{"text/plain"}, priority: 50, out: "high"})

	text, err := r.Extract(context.Background(), &domain.Upload{FileName: "a.txt", MIMEType: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, "high", text)
}

func TestRegistry_UnsupportedType(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeExtractor{types: []string{"text/plain"}, priority: 5})

	_, err := r.Extract(context.Background(), &domain.Upload{FileName: "a.bin", MIMEType: "image/png"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestRegistry_NilUpload(t *testing.T) {
	_, err := NewRegistry().Extract(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRegistry_WrapsExtractorError(t *testing.T) {
	boom := errors.New("boom")
	r := NewRegistry()
	r.Register(&fakeExtractor{types: []string{"text/plain"}, priority: 5, err: boom})

	_, err := r.Extract(context.Background(), &domain.Upload{FileName: "a.txt"})
	assert.ErrorIs(t, err, boom)
}

func TestRegistry_SupportedMIMETypesSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeExtractor{types: []string{"text/plain", "application/pdf"}})
	assert.Equal(t, []string{"application/pdf", "text/plain"}, r.SupportedMIMETypes())
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name   string
		upload domain.Upload
		want   string
	}{
		{"declared wins", domain.Upload{FileName: "x.md", MIMEType: "text/html; charset=utf-8"}, "text/html"},
		{"octet-stream falls back to extension", domain.Upload{FileName: "notes.MD", MIMEType: "application/octet-stream"}, "text/markdown"},
		{"extension map", domain.Upload{FileName: "report.pdf"}, "application/pdf"},
		{"docx", domain.Upload{FileName: "a.docx"}, "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{"sniffed", domain.Upload{FileName: "noext", Data: []byte("just some words")}, "text/plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectMIMEType(&tt.upload))
		})
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	types := r.SupportedMIMETypes()
	for _, want := range []string{"text/plain", "text/markdown", "text/html", "application/pdf", "message/rfc822"} {
		assert.Contains(t, types, want)
	}

	text, err := r.Extract(context.Background(), &domain.Upload{
		FileName: "guide.md",
		Data:     []byte("# Setup\n\nRun **make** first."),
	})
	require.NoError(t, err)
	assert.Equal(t, "Setup\n\nRun make first.", text)
}
