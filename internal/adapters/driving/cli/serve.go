package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragline/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/ragline/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API for uploads, document management and questions.

Endpoints:
  POST   /api/documents                 upload files (multipart "files")
  GET    /api/documents                 list documents
  GET    /api/documents/{id}            document details
  GET    /api/documents/{id}/status     ingestion status
  DELETE /api/documents/{id}            delete a document
  POST   /api/documents/{id}/reingest   reingest a document
  POST   /api/query                     {"query": "...", "title": "..."}
  GET    /healthz

With the local dispatch backend ingestion runs inside this process. The
scheduler resubmits ingestions left unfinished by a crash.`,
	RunE: runServe,
}

var (
	serveAddr           string
	serveMaxUploadBytes int64
)

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Listen address (default from settings)")
	serveCmd.Flags().Int64Var(&serveMaxUploadBytes, "max-upload-bytes", 0, "Maximum upload request size (0 = default)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if queryService == nil {
		return errNoQueryService
	}

	server, err := httpapi.NewServer(&httpapi.Ports{
		Query:     queryService,
		Document:  documentService,
		Ingestion: ingestionService,
	}, version)
	if err != nil {
		return err
	}
	if serveMaxUploadBytes > 0 {
		server.SetMaxUploadBytes(serveMaxUploadBytes)
	}

	addr := serveAddr
	if addr == "" && runtimeConfig != nil {
		addr = runtimeConfig.HTTPAddr
	}
	if addr == "" {
		addr = ":8080"
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stopScheduler := startScheduler(ctx)
	defer stopScheduler()

	cmd.Printf("ragline %s listening on %s\n", version, addr)
	return server.ListenAndServe(ctx, addr)
}

// startScheduler runs the scheduler in the background when enabled and
// returns a function that stops it.
func startScheduler(ctx context.Context) func() {
	if runtimeConfig == nil || runtimeConfig.Scheduler == nil || !runtimeConfig.SchedulerConfig.Enabled {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		if err := runtimeConfig.Scheduler.Start(ctx); err != nil {
			logger.Warn("scheduler stopped: %v", err)
		}
	}()
	return func() {
		cancel()
		if err := runtimeConfig.Scheduler.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "scheduler stop error: %v\n", err)
		}
	}
}
