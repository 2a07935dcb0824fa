// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-scraper/internal/download"
	"github.com/pdiddy/paper-scraper/internal/ledger"
	"github.com/pdiddy/paper-scraper/internal/pipeline"
	"github.com/pdiddy/paper-scraper/internal/ratelimit"
	"github.com/pdiddy/paper-scraper/internal/resolve"
	"github.com/pdiddy/paper-scraper/internal/search"
	"github.com/pdiddy/paper-scraper/pkg/types"
)

const manifestFile = "manifest.yaml"

var fetchCmd = &cobra.Command{
	Use:   "fetch <query>",
	Short: "Search for papers and download their PDFs",
	Long: `Fetch searches the enabled metadata providers for papers matching the
query, resolves each result to a full-text URL, and downloads the PDFs
into the target directory. Files already present are kept as cache hits.
A manifest.yaml describing the run is written next to the PDFs.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().Int("limit", 10, "maximum number of papers to fetch")
	fetchCmd.Flags().String("dir", ".", "target directory for PDFs")
	fetchCmd.Flags().Int("workers", 4, "number of concurrent downloads")
	fetchCmd.Flags().Duration("timeout", 0, "overall run deadline (default none)")
	fetchCmd.Flags().String("template", "", "fallback URL template with a {doi} placeholder")
	fetchCmd.Flags().Bool("verify", false, "parse each downloaded PDF to verify it is well-formed")
	fetchCmd.Flags().Bool("no-semantic-scholar", false, "disable the Semantic Scholar provider")
	fetchCmd.Flags().Bool("no-openalex", false, "disable the OpenAlex provider")
	fetchCmd.Flags().Bool("no-crossref", false, "disable the Crossref provider")

	rootCmd.AddCommand(fetchCmd)
}

// fetchConfig builds the run's immutable configuration snapshot: defaults,
// overlaid by the config file and environment via viper, overlaid by flags
// the user set explicitly. Secrets fill credential fields left empty.
func fetchConfig(cmd *cobra.Command) (types.PipelineConfig, error) {
	cfg := types.DefaultConfig()
	err := viper.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
		dc.Squash = true
	})
	if err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("timeout") {
		cfg.RunTimeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("template") {
		cfg.Resolve.TemplateURL, _ = flags.GetString("template")
	}
	if flags.Changed("verify") {
		cfg.Download.VerifyPDF, _ = flags.GetBool("verify")
	}
	if noSS, _ := flags.GetBool("no-semantic-scholar"); noSS {
		cfg.Search.EnableSemanticScholar = false
	}
	if noOA, _ := flags.GetBool("no-openalex"); noOA {
		cfg.Search.EnableOpenAlex = false
	}
	if noCR, _ := flags.GetBool("no-crossref"); noCR {
		cfg.Search.EnableCrossref = false
	}

	if cfg.Search.SemanticScholarAPIKey == "" {
		cfg.Search.SemanticScholarAPIKey = loadedSecrets.SemanticScholarAPIKey
	}
	if cfg.Search.OpenAlexEmail == "" {
		cfg.Search.OpenAlexEmail = loadedSecrets.OpenAlexEmail
	}
	if cfg.Search.CrossrefMailto == "" {
		cfg.Search.CrossrefMailto = loadedSecrets.CrossrefMailto
	}
	cfg.Resolve.OpenAlexEmail = cfg.Search.OpenAlexEmail
	if cfg.Download.UserAgent == "" {
		cfg.Download.UserAgent = cfg.Search.UserAgent
	}
	return cfg, nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	limit, _ := cmd.Flags().GetInt("limit")
	pdir, _ := cmd.Flags().GetString("dir")

	cfg, err := fetchConfig(cmd)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: cfg.Search.Timeout}
	limiter := ratelimit.New(cfg.RateLimit)

	var providers []search.Provider
	if cfg.Search.EnableSemanticScholar {
		providers = append(providers, &search.SemanticScholarProvider{Client: client, Config: cfg.Search})
	}
	if cfg.Search.EnableOpenAlex {
		providers = append(providers, &search.OpenAlexProvider{Client: client, Config: cfg.Search})
	}
	if cfg.Search.EnableCrossref {
		providers = append(providers, &search.CrossrefProvider{Client: client, Config: cfg.Search})
	}
	if len(providers) == 0 {
		return fmt.Errorf("all metadata providers are disabled")
	}

	chain := resolve.NewChain(cfg.Resolve, client, limiter, logger)
	dl := download.New(client, limiter, cfg.Download, logger)
	p := pipeline.New(providers, chain, dl, cfg.Workers, logger)

	ctx := cmd.Context()
	if cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}

	manifest, err := p.Run(ctx, query, limit, pdir)
	if err != nil {
		return err
	}

	pipeline.FormatTable(manifest, os.Stdout)

	manifestPath := filepath.Join(pdir, manifestFile)
	if err := manifest.WriteFile(manifestPath); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not write manifest: %v\n", err)
	}

	if store, err := ledger.Open(pdir); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not open run ledger: %v\n", err)
	} else {
		if err := store.RecordRun(manifest); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not record run: %v\n", err)
		}
		store.Close()
	}

	return nil
}
