package pdf

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output []byte
	err    error
	args   []string
}

func (m *mockRunner) Run(_ context.Context, _ []byte, _ string, args ...string) ([]byte, error) {
	m.args = args
	return m.output, m.err
}

var pdfHeader = []byte("%PDF-1.4\n")

func TestExtract_UsesTool(t *testing.T) {
	runner := &mockRunner{output: []byte("Page one  \n\fPage two\n")}
	text, err := NewWithRunner(runner).Extract(context.Background(), &domain.Upload{FileName: "a.pdf", Data: pdfHeader})
	require.NoError(t, err)
	assert.Equal(t, "Page one\n\nPage two", text)
	assert.Equal(t, []string{"-layout", "-enc", "UTF-8", "-", "-"}, runner.args)
}

func TestExtract_FallsBackWhenToolFails(t *testing.T) {
	e := NewWithRunner(&mockRunner{err: errors.New("exit 1")})
	e.fallback = func([]byte) (string, error) { return "fallback text", nil }

	text, err := e.Extract(context.Background(), &domain.Upload{FileName: "a.pdf", Data: pdfHeader})
	require.NoError(t, err)
	assert.Equal(t, "fallback text", text)
}

func TestExtract_FallbackError(t *testing.T) {
	e := NewWithRunner(&mockRunner{err: errors.New("exit 1")})
	e.fallback = func([]byte) (string, error) { return "", errors.New("bad xref") }

	_, err := e.Extract(context.Background(), &domain.Upload{FileName: "a.pdf", Data: pdfHeader})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExtract_NotPDF(t *testing.T) {
	_, err := NewWithRunner(&mockRunner{}).Extract(context.Background(), &domain.Upload{Data: []byte("hello")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExtract_Nil(t *testing.T) {
	_, err := New().Extract(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReadPlainText_Malformed(t *testing.T) {
	_, err := readPlainText([]byte("%PDF-1.4 truncated"))
	assert.Error(t, err)
}

func TestInstallInstructions(t *testing.T) {
	assert.Contains(t, InstallInstructions(), "poppler")
}
