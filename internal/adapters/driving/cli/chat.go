package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/finrag/internal/adapters/driving/tui"
)

var (
	chatSessionID  string
	chatUserID     string
	chatDocumentID string
)

var chatCmd = &cobra.Command{
	Use:     "chat",
	Aliases: []string{"tui"},
	Short:   "Start an interactive chat",
	Long: `Launch the interactive terminal chat.

Questions are answered from your uploaded documents and every turn is kept
in a session, so follow-up questions keep their context.

Controls:
  Enter        - Send question
  Esc          - Clear input
  Ctrl+N       - Start a new session
  Ctrl+S       - Show/hide sources
  PgUp/PgDown  - Scroll conversation
  Ctrl+C       - Quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatSessionID, "session", "s", "", "Resume an existing session")
	chatCmd.Flags().StringVarP(&chatUserID, "user", "u", "", "User id recorded on new sessions")
	chatCmd.Flags().StringVarP(&chatDocumentID, "document", "d", "", "Restrict answers to one document")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	ports := tui.NewPorts(chatService, documentService, sessionService)
	app, err := tui.NewApp(ports, tui.Options{
		SessionID:  chatSessionID,
		UserID:     chatUserID,
		DocumentID: chatDocumentID,
	})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	if err := app.WithContext(cmd.Context()).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
