package extractors

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/logger"
)

var _ driven.ExtractorRegistry = (*Registry)(nil)

// extensionTypes covers extensions the system MIME table often lacks.
var extensionTypes = map[string]string{
	".txt":      "text/plain",
	".text":     "text/plain",
	".log":      "text/plain",
	".csv":      "text/csv",
	".json":     "application/json",
	".yaml":     "text/yaml",
	".yml":      "text/yaml",
	".toml":     "text/toml",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".html":     "text/html",
	".htm":      "text/html",
	".xhtml":    "application/xhtml+xml",
	".pdf":      "application/pdf",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".eml":      "message/rfc822",
}

// Registry selects the highest-priority extractor for an upload's MIME type.
type Registry struct {
	mu     sync.RWMutex
	byType map[string][]driven.TextExtractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[string][]driven.TextExtractor)}
}

// Register adds an extractor under each of its MIME types.
func (r *Registry) Register(extractor driven.TextExtractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range extractor.SupportedMIMETypes() {
		list := append(r.byType[t], extractor)
		sort.SliceStable(list, func(i, j int) bool { return list[i].Priority() > list[j].Priority() })
		r.byType[t] = list
	}
}

// Extract resolves the upload's MIME type and runs the best extractor.
func (r *Registry) Extract(ctx context.Context, upload *domain.Upload) (string, error) {
	if upload == nil {
		return "", domain.ErrInvalidInput
	}
	mimeType := DetectMIMEType(upload)

	r.mu.RLock()
	candidates := r.byType[mimeType]
	r.mu.RUnlock()
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: %s (%s)", domain.ErrUnsupportedType, upload.FileName, mimeType)
	}

	logger.Debug("Extracting %s as %s", upload.FileName, mimeType)
	text, err := candidates[0].Extract(ctx, upload)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", upload.FileName, err)
	}
	return text, nil
}

// SupportedMIMETypes returns all registered MIME types, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byType))
	for t := range r.byType {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// DetectMIMEType returns the upload's media type without parameters.
// A declared type wins unless it is generic; then the file extension is
// consulted, and finally the content is sniffed.
func DetectMIMEType(upload *domain.Upload) string {
	if t := mediaType(upload.MIMEType); t != "" && t != "application/octet-stream" {
		return t
	}
	ext := strings.ToLower(filepath.Ext(upload.FileName))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	if t := mediaType(mime.TypeByExtension(ext)); t != "" {
		return t
	}
	return mediaType(http.DetectContentType(upload.Data))
}

func mediaType(s string) string {
	if s == "" {
		return ""
	}
	t, _, err := mime.ParseMediaType(s)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return t
}
