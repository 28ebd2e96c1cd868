package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/finrag/internal/adapters/driving/watch"
)

var (
	watchUser     string
	watchScan     bool
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [folder]",
	Short: "Ingest documents dropped into a folder",
	Long: `Watches a folder and uploads supported files as they are created or changed.

A file that is saved again replaces its previous chunks. Use --scan to ingest
files already in the folder. Press Ctrl+C to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchUser, "user", "u", "", "User id recorded with uploaded documents")
	watchCmd.Flags().BoolVar(&watchScan, "scan", false, "Ingest existing files on start")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "Quiet period before ingesting")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	w := watch.New(args[0], ingestService,
		watch.WithUser(watchUser),
		watch.WithInitialScan(watchScan),
		watch.WithDebounce(watchDebounce),
		watch.WithResultHandler(func(r watch.Result) {
			if r.Err != nil {
				cmd.PrintErrf("Failed %s: %v\n", r.Path, r.Err)
				return
			}
			cmd.Printf("Uploaded %s as %s (%d chunks)\n", r.Path, r.Ingest.DocumentID, r.Ingest.ChunksCreated)
		}),
	)
	defer w.Close()

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", w.Root())
	if err := w.Run(cmd.Context()); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}
