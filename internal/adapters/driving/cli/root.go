// Package cli provides the ragline command line interface.
// It is a driving adapter: commands call the core through driving ports
// that main wires with SetServices before Execute.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
	"github.com/custodia-labs/ragline/internal/logger"
)

var (
	version = "dev"
	verbose bool

	queryService     driving.QueryService
	ingestionService driving.IngestionService
	documentService  driving.DocumentService
	settingsService  driving.SettingsService

	runtimeConfig *RuntimeConfig
)

// Services holds the driving ports commands use.
type Services struct {
	Query     driving.QueryService
	Ingestion driving.IngestionService
	Document  driving.DocumentService
	Settings  driving.SettingsService
}

// RuntimeConfig holds what long-running commands start besides the core
// services.
type RuntimeConfig struct {
	// Scheduler resubmits stale ingestions while serving.
	Scheduler       driving.Scheduler
	SchedulerConfig domain.SchedulerConfig

	// Worker consumes the external dispatch queue until ctx is done.
	// Nil when ingestion runs in-process.
	Worker func(ctx context.Context) error

	// DispatchBackend names the configured backend for display.
	DispatchBackend domain.DispatchBackend

	// HTTPAddr is the default listen address for serve.
	HTTPAddr string
}

var rootCmd = &cobra.Command{
	Use:   "ragline",
	Short: "Ask questions about your documents",
	Long: `ragline ingests documents into a vector index and answers questions
using only their content.

Documents are split into overlapping chunks, embedded and stored. A
question retrieves the nearest chunks, an LLM judges each for relevance
and the best are used to write the answer. When the documents do not
cover the question, ragline says so instead of guessing.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print debug output to stderr")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetServices wires the driving ports.
func SetServices(s Services) {
	queryService = s.Query
	ingestionService = s.Ingestion
	documentService = s.Document
	settingsService = s.Settings
}

// SetRuntimeConfig wires the components long-running commands start.
func SetRuntimeConfig(cfg *RuntimeConfig) {
	runtimeConfig = cfg
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

var (
	errNoQueryService     = errors.New("query service not configured")
	errNoIngestionService = errors.New("ingestion service not configured")
	errNoDocumentService  = errors.New("document service not configured")
	errNoSettingsService  = errors.New("settings service not configured")
)

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
