package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"githubtray/db"
	"githubtray/logger"
	"githubtray/models"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently delivered notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := root.load(false)
			if err != nil {
				return err
			}
			defer logger.Sync()

			cfg := src.Current()
			if cfg.HistoryDriver == "" {
				return fmt.Errorf("delivery history is disabled, set history_driver to enable it")
			}
			history, err := db.New(cmd.Context(), cfg.HistoryDriver, cfg.HistoryDSN)
			if err != nil {
				return err
			}
			defer history.Close()

			items, err := history.RecentNotifications(cmd.Context(), limit)
			if err != nil {
				return err
			}
			stats, err := history.GetStats(cmd.Context())
			if err != nil {
				return err
			}

			return writeHistory(cmd.OutOrStdout(), items, stats)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	return cmd
}

// writeHistory prints one table row per delivery. Multi-line bodies are
// joined with " / " so they stay on their row.
func writeHistory(out io.Writer, items []models.DeliveredNotification, stats *db.Stats) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DELIVERED\tLANE\tTITLE\tBODY")
	for _, n := range items {
		body := strings.ReplaceAll(strings.TrimRight(n.Body, "\n"), "\n", " / ")
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", n.DeliveredAt.Local().Format("2006-01-02 15:04:05"), n.Lane, n.Title, body)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "\n%d notifications, %d workflow transitions recorded\n", stats.Notifications, stats.Transitions)
	return err
}
