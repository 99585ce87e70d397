// Package pdf extracts text from PDF files. It prefers poppler's
// pdftotext when installed and falls back to a pure Go reader.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	lpdf "github.com/ledongthuc/pdf"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// ErrPDFToolNotFound is returned by CheckAvailable when pdftotext is missing.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

const toolName = "pdftotext"

// CommandRunner runs an external command with data on stdin.
type CommandRunner interface {
	Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// Extractor handles PDF documents.
type Extractor struct {
	runner   CommandRunner
	useTool  bool
	fallback func([]byte) (string, error)
}

// New creates a PDF extractor that uses pdftotext when it is on PATH.
func New() *Extractor {
	return &Extractor{
		runner:   execRunner{},
		useTool:  CheckAvailable() == nil,
		fallback: readPlainText,
	}
}

// NewWithRunner creates a PDF extractor that always calls runner first.
func NewWithRunner(runner CommandRunner) *Extractor {
	return &Extractor{runner: runner, useTool: true, fallback: readPlainText}
}

// CheckAvailable reports whether pdftotext can be found.
func CheckAvailable() error {
	if _, err := exec.LookPath(toolName); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns how to install pdftotext.
func InstallInstructions() string {
	return `pdftotext gives better PDF text extraction. Install poppler:
  macOS:  brew install poppler
  Debian: apt install poppler-utils
  Fedora: dnf install poppler-utils`
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50
}

// Extract returns the text of every page, in order.
func (e *Extractor) Extract(ctx context.Context, upload *domain.Upload) (string, error) {
	if upload == nil {
		return "", domain.ErrInvalidInput
	}
	if !bytes.HasPrefix(upload.Data, []byte("%PDF")) {
		return "", fmt.Errorf("%w: %s is not a PDF", domain.ErrInvalidInput, upload.FileName)
	}

	if e.useTool {
		out, err := e.runner.Run(ctx, upload.Data, toolName, "-layout", "-enc", "UTF-8", "-", "-")
		if err == nil {
			return cleanup(string(out)), nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logger.Warn("pdftotext failed for %s, using built-in reader: %v", upload.FileName, err)
	}

	text, err := e.fallback(upload.Data)
	if err != nil {
		return "", fmt.Errorf("%w: pdf %s: %v", domain.ErrInvalidInput, upload.FileName, err)
	}
	return cleanup(text), nil
}

func readPlainText(data []byte) (text string, err error) {
	// The reader panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// cleanup drops form feeds and trailing spaces pdftotext leaves behind.
func cleanup(text string) string {
	text = strings.ReplaceAll(text, "\f", "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
