package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragline/internal/adapters/driving/watch"
	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Ingest documents",
	Long: `Extract text from files and queue them for chunking, embedding and
indexing.

Supported formats include plain text, Markdown, HTML, PDF, DOCX and EML.
Files that cannot be read or have no extractable text are reported and
skipped; the rest are ingested.

Use --wait to block until every document is indexed or has failed, and
--watch to keep ingesting files dropped into a directory.

Examples:
  ragline ingest handbook.pdf policies/*.md
  ragline ingest --title "Employee Handbook" --wait handbook.docx
  ragline ingest --watch ./inbox`,
	RunE: runIngest,
}

var (
	ingestTitle    string
	ingestWait     bool
	ingestTimeout  time.Duration
	ingestWatchDir string
	ingestExisting bool
)

// pollInterval is how often --wait checks ingestion status.
var pollInterval = 250 * time.Millisecond

func init() {
	ingestCmd.Flags().StringVarP(&ingestTitle, "title", "t", "", "Document title (defaults to the file name)")
	ingestCmd.Flags().BoolVarP(&ingestWait, "wait", "w", false, "Wait until ingestion finishes")
	ingestCmd.Flags().DurationVar(&ingestTimeout, "timeout", 10*time.Minute, "Maximum time to wait with --wait")
	ingestCmd.Flags().StringVar(&ingestWatchDir, "watch", "", "Watch a directory and ingest new or modified files")
	ingestCmd.Flags().BoolVar(&ingestExisting, "existing", false, "With --watch, also ingest files already in the directory")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errNoIngestionService
	}
	ctx := commandContext(cmd)

	if ingestWatchDir != "" {
		return runIngestWatch(cmd, ingestWatchDir)
	}
	if len(args) == 0 {
		return errors.New("no files given; pass file paths or --watch DIR")
	}

	uploads := make([]domain.Upload, 0, len(args))
	failed := 0
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			cmd.PrintErrf("  ✗ %s: %v\n", path, err)
			failed++
			continue
		}
		uploads = append(uploads, domain.Upload{
			FileName: filepath.Base(path),
			Title:    ingestTitle,
			Data:     data,
		})
	}
	if len(uploads) == 0 {
		return fmt.Errorf("%w: no readable files", domain.ErrInvalidInput)
	}

	report, err := ingestionService.Ingest(ctx, uploads)
	if err != nil {
		return fmt.Errorf("failed to ingest: %w", err)
	}
	for _, fe := range report.Errors {
		cmd.PrintErrf("  ✗ %s: %v\n", fe.FileName, fe.Err)
		failed++
	}
	for i := range report.Documents {
		doc := &report.Documents[i]
		cmd.Printf("  ✓ %s → %s\n", doc.FileName, doc.ID)
	}

	if ingestWait && len(report.Documents) > 0 {
		if err := waitForIngestion(cmd, report.Documents); err != nil {
			return err
		}
	} else if len(report.Documents) > 0 {
		cmd.Printf("\nQueued %d document(s). Check progress with 'ragline document status <id>'.\n", len(report.Documents))
	}

	if len(report.Documents) == 0 {
		return fmt.Errorf("no documents ingested (%d failed)", failed)
	}
	return nil
}

// waitForIngestion polls until every document is terminal.
func waitForIngestion(cmd *cobra.Command, docs []domain.Document) error {
	ctx, cancel := context.WithTimeout(commandContext(cmd), ingestTimeout)
	defer cancel()

	pending := make(map[string]string, len(docs))
	for i := range docs {
		pending[docs[i].ID] = docs[i].FileName
	}
	failures := 0

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for len(pending) > 0 {
		for id, name := range pending {
			status, err := ingestionService.Status(ctx, id)
			if err != nil {
				if ctx.Err() != nil {
					return fmt.Errorf("%w: %d document(s) still ingesting", domain.ErrTimeout, len(pending))
				}
				return fmt.Errorf("failed to get status of %s: %w", id, err)
			}
			switch status.State {
			case domain.IngestionIndexed:
				cmd.Printf("  indexed %s (%d chunks)\n", name, status.ChunkCount)
				delete(pending, id)
			case domain.IngestionFailed:
				cmd.PrintErrf("  failed  %s: %s\n", name, status.Error)
				delete(pending, id)
				failures++
			case domain.IngestionCreated, domain.IngestionChunking, domain.IngestionEmbedding:
			}
		}
		if len(pending) == 0 {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %d document(s) still ingesting", domain.ErrTimeout, len(pending))
		case <-ticker.C:
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d document(s) failed to ingest", failures)
	}
	return nil
}

func runIngestWatch(cmd *cobra.Command, dir string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := watch.New(dir, ingestionService)
	w.OnIngested = func(path string, report *driving.IngestReport) {
		for _, fe := range report.Errors {
			cmd.PrintErrf("  ✗ %s: %v\n", fe.FileName, fe.Err)
		}
		for i := range report.Documents {
			cmd.Printf("  ✓ %s → %s\n", filepath.Base(path), report.Documents[i].ID)
		}
	}

	if ingestExisting {
		if err := w.IngestExisting(ctx); err != nil {
			return fmt.Errorf("failed to ingest existing files: %w", err)
		}
	}

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", dir)
	if err := w.Run(ctx); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}
