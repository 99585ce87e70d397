package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragline/internal/adapters/driving/tui"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal UI.

Type a question and press Enter. The answer is shown above the contexts
it was grounded on.

Controls:
  Enter    - Ask / expand context
  ↑/k, ↓/j - Navigate contexts
  n, Esc   - New question
  Tab      - Documents view
  r        - Reingest selected document
  ?        - Help
  Ctrl+C   - Quit`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return launchTUI(cmd, tuiTitle, driving.QueryOptions{})
	},
}

var tuiTitle string

func init() {
	tuiCmd.Flags().StringVarP(&tuiTitle, "title", "t", "", "Only use documents whose title contains this text")
	rootCmd.AddCommand(tuiCmd)
}

func launchTUI(cmd *cobra.Command, title string, opts driving.QueryOptions) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	app, err := tui.NewApp(&tui.Ports{
		Query:     queryService,
		Document:  documentService,
		Ingestion: ingestionService,
	})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(commandContext(cmd)).WithOptions(tui.Options{Title: title, Query: opts})

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
