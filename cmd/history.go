package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evrange/core/history"
	"github.com/kilianp07/evrange/pkg/export"
)

func newHistoryCmd(opts *options) *cobra.Command {
	var (
		q      history.Query
		since  time.Duration
		format string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored estimates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.History.Backend == history.BackendNone {
				return fmt.Errorf("history is disabled in the configuration")
			}
			if _, err := os.Stat(cfg.History.Path); err != nil {
				return fmt.Errorf("history %s: %w", cfg.History.Path, err)
			}
			store, err := history.NewStore(cfg.History)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			if since > 0 {
				q.Start = time.Now().Add(-since)
			}
			recs, err := store.Query(cmd.Context(), q)
			if err != nil {
				return err
			}
			switch format {
			case export.FormatJSON:
				return export.WriteJSON(cmd.OutOrStdout(), recs)
			case export.FormatCSV:
				return export.WriteHistoryCSV(cmd.OutOrStdout(), recs)
			default:
				return fmt.Errorf("unsupported format %q", format)
			}
		},
	}
	cmd.Flags().StringVarP(&q.Model, "model", "m", "", "only estimates of this model")
	cmd.Flags().StringVar(&q.VehicleID, "vehicle", "", "only estimates for this vehicle")
	cmd.Flags().IntVarP(&q.Limit, "limit", "n", 0, "keep the n most recent estimates")
	cmd.Flags().DurationVar(&since, "since", 0, "only estimates newer than this duration")
	cmd.Flags().StringVarP(&format, "format", "o", export.FormatCSV, "output format: csv or json")
	return cmd
}
