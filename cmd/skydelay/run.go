package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once over the configured input and publish the marts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := a.runner.RunOnce(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s published at %s\n", snap.RunID, snap.GeneratedAt.Format(time.RFC3339))
			counts := snap.RowCounts()
			tables := make([]string, 0, len(counts))
			for table := range counts {
				tables = append(tables, table)
			}
			sort.Strings(tables)
			for _, table := range tables {
				fmt.Fprintf(out, "  %-28s %d rows\n", table, counts[table])
			}
			fmt.Fprintf(out, "  %-28s %d\n", "malformed records dropped", snap.Dropped)
			return nil
		},
	}
}
