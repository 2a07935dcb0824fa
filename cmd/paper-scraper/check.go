// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-scraper/internal/download"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that downloaded PDFs are well-formed",
	Long: `Check parses every .pdf file in the target directory and reports the
ones that are truncated, corrupted, or not PDFs at all (for example an
HTML error page saved under a .pdf name).`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().String("dir", ".", "directory containing PDFs to verify")

	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	pdir, _ := cmd.Flags().GetString("dir")

	paths, err := filepath.Glob(filepath.Join(pdir, "*.pdf"))
	if err != nil {
		return fmt.Errorf("listing PDFs: %w", err)
	}
	if len(paths) == 0 {
		fmt.Println("No PDF files found.")
		return nil
	}

	bad := 0
	for _, path := range paths {
		if err := download.VerifyFile(path); err != nil {
			bad++
			fmt.Fprintf(os.Stderr, "BAD  %v\n", err)
			continue
		}
		fmt.Printf("OK   %s\n", path)
	}

	fmt.Printf("\n%d of %d files verified\n", len(paths)-bad, len(paths))
	if bad > 0 {
		return fmt.Errorf("%d invalid PDF file(s)", bad)
	}
	return nil
}
