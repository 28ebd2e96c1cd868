package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/finrag/internal/core/domain"
)

var (
	uploadDocumentID string
	uploadUser       string
	uploadUsername   string
	uploadJSON       bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload [file...]",
	Short: "Upload documents into the index",
	Long: `Extracts, chunks and embeds each file so it can be used to answer questions.

Supported types can be listed with 'finrag upload --types'. Re-uploading with
--id replaces the chunks of an existing document.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if listTypes, _ := cmd.Flags().GetBool("types"); listTypes {
			return nil
		}
		if len(args) == 0 {
			return errors.New("requires at least 1 file")
		}
		if uploadDocumentID != "" && len(args) > 1 {
			return errors.New("--id can only be used with a single file")
		}
		return nil
	},
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadDocumentID, "id", "", "document id (replaces an existing document)")
	uploadCmd.Flags().StringVarP(&uploadUser, "user", "u", "", "user id recorded with the document")
	uploadCmd.Flags().StringVar(&uploadUsername, "username", "", "username recorded with the document")
	uploadCmd.Flags().BoolVar(&uploadJSON, "json", false, "output results as JSON")
	uploadCmd.Flags().Bool("types", false, "list supported file types and exit")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	if listTypes, _ := cmd.Flags().GetBool("types"); listTypes {
		cmd.Printf("Supported file types: %s\n", strings.Join(ingestService.SupportedFileTypes(), ", "))
		return nil
	}

	interactive := isTerminal(cmd.OutOrStdout())
	var results []*domain.IngestResult
	failed := 0

	for _, path := range args {
		name := filepath.Base(path)
		if !ingestService.ValidateFileType(name) {
			cmd.PrintErrf("%s: %v\n", path, domain.ErrUnsupportedFileType)
			failed++
			continue
		}

		content, err := os.ReadFile(path)
		if err != nil {
			cmd.PrintErrf("%s: %v\n", path, err)
			failed++
			continue
		}

		if interactive && !uploadJSON {
			cmd.Printf("Uploading %s... ", name)
		}

		result, err := ingestService.Ingest(cmd.Context(), domain.Upload{
			DocumentID: uploadDocumentID,
			Filename:   name,
			Content:    content,
			UserID:     uploadUser,
			Username:   uploadUsername,
		})
		if err != nil {
			if interactive && !uploadJSON {
				cmd.Println("FAILED")
			}
			cmd.PrintErrf("%s: %v\n", path, err)
			failed++
			continue
		}

		results = append(results, result)
		if uploadJSON {
			continue
		}
		if interactive {
			cmd.Println("OK")
		}
		cmd.Printf("Uploaded %s as %s (%d chunks)\n", result.Filename, result.DocumentID, result.ChunksCreated)
	}

	if uploadJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(args))
	}
	return nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
