package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/finrag/internal/core/domain"
)

var (
	askSession  string
	askDocument string
	askUser     string
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about your documents",
	Long: `Answers a finance question using the most relevant uploaded documents.

Pass --session to continue a conversation; the session id is printed after
every answer. When no document matches, a general finance answer is given
for finance questions and other topics are politely declined.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "session id to continue")
	askCmd.Flags().StringVarP(&askDocument, "document", "d", "", "restrict retrieval to one document id")
	askCmd.Flags().StringVarP(&askUser, "user", "u", "", "user id for new sessions")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	req := domain.QueryRequest{
		Query:      strings.Join(args, " "),
		SessionID:  askSession,
		UserID:     askUser,
		DocumentID: askDocument,
	}

	result, err := chatService.Query(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printAnswer(cmd, result)
	return nil
}

func printAnswer(cmd *cobra.Command, result *domain.QueryResult) {
	cmd.Println(result.Response)
	cmd.Println()

	if len(result.Sources) > 0 {
		cmd.Println("Sources:")
		for i, src := range result.Sources {
			cmd.Printf("  [%d] %s (%.2f)\n", i+1, src.Filename, src.RelevanceScore)
			cmd.Printf("      %s\n", oneLine(src.ChunkText))
		}
		cmd.Println()
	}

	cmd.Printf("Session: %s\n", result.SessionID)
}

// oneLine collapses whitespace so previews print on a single line.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
