// Package cli provides the finrag command-line interface.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/finrag/internal/core/ports/driving"
	"github.com/custodia-labs/finrag/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services wired by cmd/finrag. Commands check for nil before use.
var (
	chatService     driving.ChatService
	ingestService   driving.IngestService
	documentService driving.DocumentService
	sessionService  driving.SessionService
	settingsService driving.SettingsService
)

// verbose enables debug logging for a single invocation.
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "finrag",
	Short: "Financial document chatbot",
	Long: `finrag answers finance questions grounded in documents you upload.

Upload statements, reports and spreadsheets, then ask questions about them.
Conversations are kept in sessions so follow-up questions keep their context.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

// Services holds the core services exposed to the CLI.
type Services struct {
	Chat     driving.ChatService
	Ingest   driving.IngestService
	Document driving.DocumentService
	Session  driving.SessionService
	Settings driving.SettingsService
}

// SetServices installs the services used by every command.
func SetServices(s Services) {
	chatService = s.Chat
	ingestService = s.Ingest
	documentService = s.Document
	sessionService = s.Session
	settingsService = s.Settings
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
