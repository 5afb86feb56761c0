package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spiffcs/boardsync/internal/duration"
	"github.com/spiffcs/boardsync/internal/output"
)

// NewCmdHistory creates the history command.
func NewCmdHistory() *cobra.Command {
	var since, format string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past run reports",
		Long: `List recorded runs, newest first. Runs are kept in the user cache
directory; the most recent 500 are retained.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var from time.Time
			if since != "" {
				var err error
				if from, err = duration.Parse(since); err != nil {
					return fmt.Errorf("invalid --since: %w", err)
				}
			}
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}

			store, err := openHistory()
			if err != nil {
				return fmt.Errorf("failed to open history: %w", err)
			}
			runs, err := store.List(from, limit)
			if err != nil {
				return fmt.Errorf("failed to read history: %w", err)
			}
			return output.NewFormatter(f).FormatHistory(runs, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&since, "since", "s", "", "Only runs started within this window (e.g., 1d, 1w, 30d)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	cmd.Flags().StringVarP(&format, "format", "o", "table", "Output format (table, json, markdown)")

	return cmd
}
