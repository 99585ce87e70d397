package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

const timeLayout = "2006-01-02 15:04:05"

var documentCmd = &cobra.Command{
	Use:     "document",
	Aliases: []string{"documents", "doc"},
	Short:   "Manage ingested documents",
	Long:    `List, inspect, delete or reingest documents.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info and ingestion progress",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentContentCmd = &cobra.Command{
	Use:   "content [doc-id]",
	Short: "Print extracted document text",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentContent,
}

var documentStatusCmd = &cobra.Command{
	Use:   "status [doc-id]",
	Short: "Show ingestion status",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentStatus,
}

var documentIncompleteCmd = &cobra.Command{
	Use:   "incomplete",
	Short: "List documents that are not fully indexed",
	Args:  cobra.NoArgs,
	RunE:  runDocumentIncomplete,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and its embeddings",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

var documentReingestCmd = &cobra.Command{
	Use:   "reingest [doc-id]",
	Short: "Clear a document's embeddings and ingest it again",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentReingest,
}

func init() {
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentContentCmd)
	documentCmd.AddCommand(documentStatusCmd)
	documentCmd.AddCommand(documentIncompleteCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	documentCmd.AddCommand(documentReingestCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errNoDocumentService
	}
	ctx := commandContext(cmd)

	docs, err := documentService.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	if len(docs) == 0 {
		cmd.Println("No documents ingested.")
		return nil
	}

	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    Title: %s\n", docs[i].DisplayTitle())
		if docs[i].FileName != "" {
			cmd.Printf("    File:  %s\n", docs[i].FileName)
		}
		cmd.Println()
	}
	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errNoDocumentService
	}

	details, err := documentService.GetDetails(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", details.ID)
	cmd.Printf("  Title:      %s\n", details.Title)
	cmd.Printf("  File:       %s\n", details.FileName)
	cmd.Printf("  Length:     %d characters\n", details.ContentLength)
	cmd.Printf("  State:      %s\n", details.State)
	cmd.Printf("  Chunks:     %d\n", details.ChunkCount)
	cmd.Printf("  Embeddings: %d\n", details.EmbeddingCount)
	cmd.Printf("  Uploaded:   %s\n", details.UploadedAt.Format(timeLayout))
	return nil
}

func runDocumentContent(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errNoDocumentService
	}

	doc, err := documentService.Get(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document content: %w", err)
	}
	cmd.Println(doc.Content)
	return nil
}

func runDocumentStatus(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errNoIngestionService
	}

	status, err := ingestionService.Status(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	cmd.Printf("Document: %s\n", status.DocumentID)
	cmd.Printf("  State:   %s\n", status.State)
	cmd.Printf("  Indexed: %d/%d chunks\n", status.IndexedCount, status.ChunkCount)
	if status.Error != "" {
		cmd.Printf("  Error:   %s (chunk %d)\n", status.Error, status.FailedChunk)
	}
	if !status.StartedAt.IsZero() {
		cmd.Printf("  Started: %s\n", status.StartedAt.Format(timeLayout))
	}
	cmd.Printf("  Updated: %s\n", status.UpdatedAt.Format(timeLayout))
	return nil
}

func runDocumentIncomplete(cmd *cobra.Command, _ []string) error {
	if ingestionService == nil {
		return errNoIngestionService
	}

	statuses, err := ingestionService.ListIncomplete(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list incomplete documents: %w", err)
	}
	if len(statuses) == 0 {
		cmd.Println("All documents are indexed.")
		return nil
	}
	for i := range statuses {
		s := &statuses[i]
		age := time.Since(s.UpdatedAt).Round(time.Second)
		cmd.Printf("  %s  %-9s  updated %s ago\n", s.DocumentID, s.State, age)
	}
	printLastResubmit(cmd)
	return nil
}

// printLastResubmit notes when stuck documents were last swept, if the
// scheduler store is available.
func printLastResubmit(cmd *cobra.Command) {
	if runtimeConfig == nil || runtimeConfig.Scheduler == nil {
		return
	}
	last, err := runtimeConfig.Scheduler.LastRun(commandContext(cmd), domain.TaskIDIngestionResubmit)
	if err != nil || last == nil {
		cmd.Println("\nThe resubmit sweep has not run yet.")
		return
	}
	outcome := fmt.Sprintf("%d document(s) resubmitted", last.ItemsProcessed)
	if !last.Success {
		outcome = "failed: " + last.Error
	}
	cmd.Printf("\nLast resubmit sweep: %s, took %s (%s)\n",
		last.StartedAt.Format(timeLayout), last.Duration().Round(time.Millisecond), outcome)
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errNoDocumentService
	}

	if err := documentService.Delete(commandContext(cmd), args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	cmd.Printf("Document %s deleted.\n", args[0])
	return nil
}

func runDocumentReingest(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errNoIngestionService
	}

	if err := ingestionService.Reingest(commandContext(cmd), args[0]); err != nil {
		return fmt.Errorf("failed to reingest document: %w", err)
	}
	cmd.Printf("Document %s queued for reingestion.\n", args[0])
	return nil
}
