package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/notedraft/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent note drafting runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, closeHistory := openHistory(cfg)
		defer closeHistory()
		if store == nil {
			return fmt.Errorf("no run history at %s", cfg.HistoryDB)
		}

		ctx := context.Background()
		if prune, _ := cmd.Flags().GetDuration("prune"); prune > 0 {
			n, err := store.DeleteBefore(ctx, time.Now().Add(-prune))
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d run(s)\n", n)
			return nil
		}

		limit, _ := cmd.Flags().GetInt("limit")
		status, _ := cmd.Flags().GetString("status")
		source, _ := cmd.Flags().GetString("source")
		runs, err := store.List(ctx, history.ListFilter{
			Status: history.Status(status),
			Source: history.Source(source),
			Limit:  limit,
		})
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTARTED\tSOURCE\tCASE\tBACKEND\tSTATUS\tATTEMPTS")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
				r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Source, r.CaseName, r.Backend, r.Status, r.Attempts)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	historyCmd.Flags().String("status", "", "only runs with this status (running, succeeded, exhausted, failed)")
	historyCmd.Flags().String("source", "", "only runs from this surface (cli, demo, http, mcp)")
	historyCmd.Flags().Duration("prune", 0, "delete runs older than this instead of listing")
	rootCmd.AddCommand(historyCmd)
}
