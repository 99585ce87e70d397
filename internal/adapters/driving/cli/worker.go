package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run an ingestion worker",
	Long: `Consume ingestion jobs from the configured dispatch backend.

Only needed with the redis or temporal backends, where uploads accepted
by 'ragline serve' or 'ragline ingest' are processed by separate worker
processes. The local backend ingests inside the submitting process.`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	if runtimeConfig == nil || runtimeConfig.Worker == nil {
		return errors.New("no external dispatch backend configured; set dispatch.backend to redis or temporal")
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Printf("ragline worker (%s) started\n", runtimeConfig.DispatchBackend)
	return runtimeConfig.Worker(ctx)
}
