package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/finrag/internal/core/domain"
)

// defaultCleanupDays applies when neither --days nor settings provide one.
const defaultCleanupDays = 30

var (
	sessionUser         string
	sessionHistoryLimit int
	sessionCleanupDays  int
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage conversation sessions",
	Long:  `Create, list, inspect, delete, or clean up conversation sessions.`,
}

var sessionNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a new session",
	Args:  cobra.NoArgs,
	RunE:  runSessionNew,
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessionList,
}

var sessionHistoryCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "Show the conversation history of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionHistory,
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete [session-id]",
	Short: "Delete a session and its messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionDelete,
}

var sessionCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete inactive sessions",
	Long: `Deletes sessions with no activity in the last N days.

Defaults to the session.cleanup_days setting.`,
	Args: cobra.NoArgs,
	RunE: runSessionCleanup,
}

func init() {
	sessionNewCmd.Flags().StringVarP(&sessionUser, "user", "u", "", "user id")
	sessionListCmd.Flags().StringVarP(&sessionUser, "user", "u", "", "only list sessions of this user")
	sessionHistoryCmd.Flags().IntVarP(&sessionHistoryLimit, "limit", "n", 20, "maximum number of turns")
	sessionCleanupCmd.Flags().IntVar(&sessionCleanupDays, "days", 0, "inactivity cutoff in days")

	sessionCmd.AddCommand(sessionNewCmd)
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionHistoryCmd)
	sessionCmd.AddCommand(sessionDeleteCmd)
	sessionCmd.AddCommand(sessionCleanupCmd)
	rootCmd.AddCommand(sessionCmd)
}

func runSessionNew(cmd *cobra.Command, _ []string) error {
	if sessionService == nil {
		return errors.New("session service not configured")
	}

	id, err := sessionService.Create(cmd.Context(), sessionUser)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	cmd.Println(id)
	return nil
}

func runSessionList(cmd *cobra.Command, _ []string) error {
	if sessionService == nil {
		return errors.New("session service not configured")
	}

	sessions, err := sessionService.List(cmd.Context(), sessionUser)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(sessions) == 0 {
		cmd.Println("No sessions found.")
		return nil
	}

	cmd.Println("Sessions:")
	cmd.Println()
	for i := range sessions {
		cmd.Printf("  %s\n", sessions[i].ID)
		if sessions[i].UserID != "" {
			cmd.Printf("    User: %s\n", sessions[i].UserID)
		}
		cmd.Printf("    Created: %s\n", sessions[i].CreatedAt.Local().Format(time.DateTime))
		cmd.Printf("    Last activity: %s\n", sessions[i].LastActivity.Local().Format(time.DateTime))
		cmd.Println()
	}

	cmd.Printf("Total: %d sessions\n", len(sessions))
	return nil
}

func runSessionHistory(cmd *cobra.Command, args []string) error {
	if sessionService == nil {
		return errors.New("session service not configured")
	}

	history, err := sessionService.History(cmd.Context(), args[0], sessionHistoryLimit)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return fmt.Errorf("session not found: %s", args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}

	if len(history) == 0 {
		cmd.Println("No messages yet.")
		return nil
	}

	for _, entry := range history {
		cmd.Printf("%s: %s\n\n", entry.Role, entry.Content)
	}
	return nil
}

func runSessionDelete(cmd *cobra.Command, args []string) error {
	if sessionService == nil {
		return errors.New("session service not configured")
	}

	err := sessionService.Delete(cmd.Context(), args[0])
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("session not found: %s", args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	cmd.Printf("Deleted session %s\n", args[0])
	return nil
}

func runSessionCleanup(cmd *cobra.Command, _ []string) error {
	if sessionService == nil {
		return errors.New("session service not configured")
	}

	days := sessionCleanupDays
	if days == 0 {
		days = configuredCleanupDays()
	}

	n, err := sessionService.Cleanup(cmd.Context(), days)
	if err != nil {
		return fmt.Errorf("failed to clean up sessions: %w", err)
	}

	cmd.Printf("Removed %d sessions inactive for more than %d days\n", n, days)
	return nil
}

func configuredCleanupDays() int {
	if settingsService == nil {
		return defaultCleanupDays
	}
	settings, err := settingsService.Get()
	if err != nil || settings.Storage.SessionCleanupDays < 1 {
		return defaultCleanupDays
	}
	return settings.Storage.SessionCleanupDays
}
