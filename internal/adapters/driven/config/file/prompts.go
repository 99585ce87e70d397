package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore serves the rerank and answer templates from
// <dir>/<name>.txt. The directory is seeded with the built-in templates
// on first Load, so users have something to edit. An edited template
// that fails driven.ValidatePrompt is ignored in favour of the default.
type PromptStore struct {
	dir string

	seedOnce sync.Once
	seedErr  error

	mu    sync.RWMutex
	cache map[string]string
}

// NewPromptStore does no I/O. An empty dir means ~/.ragline/prompts.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".ragline", "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]string)}, nil
}

// Load returns the named template. Unknown names are an error; known
// names always resolve, to the default if the file is missing or broken.
func (s *PromptStore) Load(name string) (string, error) {
	fallback, known := driven.DefaultPrompts[name]
	if !known {
		return "", fmt.Errorf("unknown prompt %q", name)
	}

	s.seedOnce.Do(s.seed)
	if s.seedErr != nil {
		logger.Debug("prompts: %v", s.seedErr)
		return fallback, nil
	}

	s.mu.RLock()
	prompt, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return prompt, nil
	}

	prompt = s.read(name, fallback)

	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()
	return prompt, nil
}

// read returns the file's template, or fallback when it is unusable.
func (s *PromptStore) read(name, fallback string) string {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("prompts: reading %s: %v", s.path(name), err)
		}
		return fallback
	}
	prompt := strings.TrimSpace(string(data))
	if err := driven.ValidatePrompt(name, prompt); err != nil {
		logger.Warn("prompts: %v; using the built-in %s prompt", err, name)
		return fallback
	}
	return prompt
}

// Reload drops cached templates so edits are picked up.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

// seed writes missing default templates and the README. Existing files
// are never overwritten.
func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		s.seedErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}
	files := map[string]string{"README.md": promptReadme}
	for name, content := range driven.DefaultPrompts {
		files[name+".txt"] = content
	}
	for file, content := range files {
		path := filepath.Join(s.dir, file)
		if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			s.seedErr = fmt.Errorf("write %s: %w", file, err)
			return
		}
	}
}

const promptReadme = "# ragline prompts\n\n" +
	"Templates used by the relevance judge and the answer synthesiser.\n\n" +
	"- `rerank.txt` asks the model to score a context from 1 to 10.\n" +
	"- `answer.txt` is the grounding prompt for answers.\n\n" +
	"Both must contain the `{context}` and `{query}` placeholders. The answer\n" +
	"prompt must keep the sentence \"I do not have enough information to answer\n" +
	"this question.\" so unanswerable questions are recognised. A template that\n" +
	"breaks these rules is ignored and the built-in one is used instead.\n"
