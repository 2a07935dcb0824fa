// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-scraper/internal/ledger"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List scrape run history for a directory",
	Long: `Runs prints the history recorded in the SQLite ledger inside the target
directory, most recent first.`,
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().String("dir", ".", "target directory holding the ledger")
	runsCmd.Flags().Int("limit", 20, "maximum number of runs to list")

	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	pdir, _ := cmd.Flags().GetString("dir")
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := ledger.Open(pdir)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	defer store.Close()

	summaries, err := store.ListRuns(limit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	if len(summaries) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tQUERY\tTOTAL\tDOWNLOADED\tCACHED\tFAILED\tRUN ID")
	for _, rs := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			rs.StartedAt.Local().Format(time.DateTime), rs.Query,
			rs.Total, rs.Downloaded, rs.Cached, rs.Failed, rs.ID)
	}
	return tw.Flush()
}
