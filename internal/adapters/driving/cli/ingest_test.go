package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func fastPolling(t *testing.T) {
	t.Helper()
	orig := pollInterval
	pollInterval = time.Millisecond
	t.Cleanup(func() { pollInterval = orig })
}

func TestIngestCmd_Use(t *testing.T) {
	assert.Equal(t, "ingest [files...]", ingestCmd.Use)
}

func TestIngestCmd_QueuesFiles(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	dir := t.TempDir()
	a := writeFile(t, dir, "a.md", "# A")
	b := writeFile(t, dir, "b.txt", "B")

	out, _, err := execute("ingest", "--title", "Shared", a, b)

	require.NoError(t, err)
	assert.Contains(t, out, "✓ a.md → doc-a.md")
	assert.Contains(t, out, "Queued 2 document(s)")
	require.Len(t, ts.ingestion.uploads, 2)
	assert.Equal(t, "Shared", ts.ingestion.uploads[0].Title)
	assert.Equal(t, []byte("# A"), ts.ingestion.uploads[0].Data)
}

func TestIngestCmd_PartialFailure(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	dir := t.TempDir()
	good := writeFile(t, dir, "good.txt", "text")
	bad := writeFile(t, dir, "blob.bin", "\x00\x01")
	missing := filepath.Join(dir, "missing.txt")

	out, errOut, err := execute("ingest", good, bad, missing)

	require.NoError(t, err)
	assert.Contains(t, out, "good.txt")
	assert.Contains(t, errOut, "blob.bin")
	assert.Contains(t, errOut, "missing.txt")
}

func TestIngestCmd_AllFail(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	bad := writeFile(t, t.TempDir(), "blob.bin", "x")

	_, _, err := execute("ingest", bad)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no documents ingested")
}

func TestIngestCmd_NoReadableFiles(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute("ingest", filepath.Join(t.TempDir(), "nope.txt"))

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngestCmd_NoArgs(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute("ingest")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no files given")
}

func TestIngestCmd_WaitIndexed(t *testing.T) {
	fastPolling(t)
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ingestion.states = []domain.IngestionState{domain.IngestionChunking, domain.IngestionEmbedding, domain.IngestionIndexed}
	path := writeFile(t, t.TempDir(), "a.txt", "A")

	out, _, err := execute("ingest", "--wait", path)

	require.NoError(t, err)
	assert.Contains(t, out, "indexed a.txt (3 chunks)")
	assert.GreaterOrEqual(t, ts.ingestion.calls, 3)
}

func TestIngestCmd_WaitFailed(t *testing.T) {
	fastPolling(t)
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ingestion.states = []domain.IngestionState{domain.IngestionFailed}
	path := writeFile(t, t.TempDir(), "a.txt", "A")

	_, errOut, err := execute("ingest", "--wait", path)

	assert.Error(t, err)
	assert.Contains(t, errOut, "embedding provider unavailable")
}

func TestIngestCmd_WaitTimeout(t *testing.T) {
	fastPolling(t)
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ingestion.states = []domain.IngestionState{domain.IngestionEmbedding}
	path := writeFile(t, t.TempDir(), "a.txt", "A")

	_, _, err := execute("ingest", "--wait", "--timeout", "20ms", path)

	assert.ErrorIs(t, err, domain.ErrTimeout)
}

func TestIngestCmd_WatchMissingDir(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute("ingest", "--watch", filepath.Join(t.TempDir(), "absent"))

	assert.Error(t, err)
}
