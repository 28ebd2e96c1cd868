package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/finrag/internal/core/domain"
)

var documentJSON bool

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage indexed documents",
	Long:  `List, inspect, or delete uploaded documents and view index totals.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentShowCmd = &cobra.Command{
	Use:   "show [doc-id]",
	Short: "Show document metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentShow,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and all its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

var documentStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index totals",
	Args:  cobra.NoArgs,
	RunE:  runDocumentStats,
}

func init() {
	documentListCmd.Flags().BoolVar(&documentJSON, "json", false, "output as JSON")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentShowCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	documentCmd.AddCommand(documentStatsCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docs, err := documentService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if documentJSON {
		data, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal documents: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(docs) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}

	cmd.Println("Documents:")
	cmd.Println()
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].DocumentID)
		cmd.Printf("    Filename: %s\n", docs[i].Filename)
		cmd.Printf("    Type: %s\n", docs[i].FileType)
		cmd.Printf("    Chunks: %d\n", docs[i].ChunkCount)
		if !docs[i].UploadedAt.IsZero() {
			cmd.Printf("    Uploaded: %s\n", docs[i].UploadedAt.Local().Format(time.DateTime))
		}
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentShow(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	meta, err := documentService.Get(cmd.Context(), args[0])
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("document not found: %s", args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("ID: %s\n", meta.DocumentID)
	cmd.Printf("Filename: %s\n", meta.Filename)
	cmd.Printf("Type: %s\n", meta.FileType)
	if !meta.UploadedAt.IsZero() {
		cmd.Printf("Uploaded: %s\n", meta.UploadedAt.Local().Format(time.DateTime))
	}
	if meta.FileSizeBytes > 0 {
		cmd.Printf("Size: %d bytes\n", meta.FileSizeBytes)
	}
	if meta.UserID != "" {
		cmd.Printf("User: %s\n", meta.UserID)
	}
	if meta.Username != "" {
		cmd.Printf("Username: %s\n", meta.Username)
	}
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	n, err := documentService.Delete(cmd.Context(), args[0])
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("document not found: %s", args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Deleted document %s (%d chunks)\n", args[0], n)
	return nil
}

func runDocumentStats(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	stats, err := documentService.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get index stats: %w", err)
	}

	cmd.Printf("Documents: %d\n", stats.TotalDocuments)
	cmd.Printf("Chunks: %d\n", stats.TotalChunks)
	return nil
}
