package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func capture(t *testing.T, verboseMode bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(verboseMode)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	capture(t, false)
	if IsVerbose() {
		t.Fatal("expected verbose to be false")
	}
	SetVerbose(true)
	if !IsVerbose() {
		t.Fatal("expected verbose to be true after SetVerbose(true)")
	}
}

func TestLevels(t *testing.T) {
	tests := []struct {
		name    string
		log     func(string, ...any)
		verbose bool
		want    string
	}{
		{"debug verbose", Debug, true, "[DEBUG] chunk 3 of doc-1\n"},
		{"debug quiet", Debug, false, ""},
		{"info verbose", Info, true, "[INFO] chunk 3 of doc-1\n"},
		{"info quiet", Info, false, ""},
		{"warn verbose", Warn, true, "[WARN] chunk 3 of doc-1\n"},
		{"warn quiet", Warn, false, ""},
		{"error verbose", Error, true, "[ERROR] chunk 3 of doc-1\n"},
		{"error quiet", Error, false, "[ERROR] chunk 3 of doc-1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(t, tt.verbose)
			tt.log("chunk %d of %s", 3, "doc-1")
			if got := buf.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSection(t *testing.T) {
	buf := capture(t, true)
	Section("Query")
	if got := buf.String(); got != "\n=== Query ===\n" {
		t.Errorf("unexpected section output: %q", got)
	}

	buf = capture(t, false)
	Section("Query")
	if buf.Len() != 0 {
		t.Errorf("expected no section output when quiet, got %q", buf.String())
	}
}

func TestStage(t *testing.T) {
	buf := capture(t, true)
	done := Stage("rerank")
	done()
	got := buf.String()
	if !strings.HasPrefix(got, "[DEBUG] rerank took ") {
		t.Errorf("unexpected stage output: %q", got)
	}
}

func TestSetOutput(t *testing.T) {
	buf := capture(t, true)
	Info("to buffer")
	if !strings.Contains(buf.String(), "to buffer") {
		t.Error("expected output to go to the configured writer")
	}
}

func TestConcurrentLogging(t *testing.T) {
	buf := capture(t, true)
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			Debug("worker")
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	if n := strings.Count(buf.String(), "[DEBUG] worker\n"); n != 8 {
		t.Errorf("expected 8 lines, got %d", n)
	}
}
