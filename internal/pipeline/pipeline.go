// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline wires search, resolution, and download into a single
// run that produces a manifest describing the fate of every record.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paper-scraper/internal/download"
	"github.com/pdiddy/paper-scraper/internal/resolve"
	"github.com/pdiddy/paper-scraper/internal/search"
	"github.com/pdiddy/paper-scraper/pkg/types"
)

// PreconditionError reports an input problem detected before any network
// activity. It is the only error class Run returns.
type PreconditionError struct {
	Field  string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %s: %s", e.Field, e.Reason)
}

// Pipeline runs the full search-resolve-download sequence.
type Pipeline struct {
	providers  []search.Provider
	chain      *resolve.Chain
	downloader *download.Downloader
	workers    int
	log        zerolog.Logger
}

// New builds a Pipeline. Workers below one are raised to one.
func New(providers []search.Provider, chain *resolve.Chain, dl *download.Downloader, workers int, log zerolog.Logger) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{providers: providers, chain: chain, downloader: dl, workers: workers, log: log}
}

// Run executes one scrape. Per-record failures are recorded in the
// manifest, never returned as errors; only violated preconditions abort
// the run. The returned manifest lists entries in aggregated search order
// regardless of which download finished first.
func (p *Pipeline) Run(ctx context.Context, query string, limit int, pdir string) (*types.Manifest, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &PreconditionError{Field: "query", Reason: "must not be empty"}
	}
	if limit <= 0 {
		return nil, &PreconditionError{Field: "limit", Reason: "must be positive"}
	}
	if err := ensureWritableDir(pdir); err != nil {
		return nil, &PreconditionError{Field: "dir", Reason: err.Error()}
	}

	manifest := &types.Manifest{
		RunID:     uuid.NewString(),
		Query:     query,
		Limit:     limit,
		TargetDir: pdir,
		StartedAt: time.Now().UTC(),
	}

	p.log.Info().Str("run_id", manifest.RunID).Str("query", query).Int("limit", limit).Msg("starting run")

	results := search.SearchAll(ctx, p.providers, query, limit)
	for _, r := range results {
		if r.Err != nil {
			p.log.Warn().Str("provider", r.Provider).Err(r.Err).Msg("provider unavailable")
		}
	}
	records := search.Aggregate(results, limit)
	p.log.Info().Int("records", len(records)).Msg("search complete")

	entries := make([]types.ManifestEntry, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			entries[i] = p.process(gctx, rec, pdir)
			return nil
		})
	}
	g.Wait()

	manifest.Entries = entries
	manifest.FinishedAt = time.Now().UTC()
	p.log.Info().
		Int("downloaded", manifest.Downloaded()).
		Int("cached", manifest.Cached()).
		Int("failed", manifest.Failed()).
		Msg("run complete")
	return manifest, nil
}

// process carries one record through resolution and download.
func (p *Pipeline) process(ctx context.Context, rec types.PaperRecord, pdir string) types.ManifestEntry {
	entry := types.ManifestEntry{Record: rec}

	if ctx.Err() != nil {
		entry.Download = types.DownloadOutcome{Status: types.StatusTimeout, Error: ctx.Err().Error()}
		return entry
	}

	entry.Resolution = p.chain.Resolve(ctx, rec)
	if !entry.Resolution.Resolved() {
		entry.Download = types.DownloadOutcome{Status: types.StatusSkipped, Error: "no full-text URL resolved"}
		return entry
	}

	entry.Download = p.downloader.Fetch(ctx, entry.Resolution.URL, pdir, rec.Slug())
	return entry
}

// ensureWritableDir creates pdir if needed and probes that files can
// actually be created in it.
func ensureWritableDir(pdir string) error {
	if err := os.MkdirAll(pdir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %v", err)
	}
	probe, err := os.CreateTemp(pdir, ".probe-*")
	if err != nil {
		return fmt.Errorf("directory not writable: %v", err)
	}
	probe.Close()
	os.Remove(probe.Name())
	return nil
}

// FormatTable writes a human-readable per-record summary of a manifest.
func FormatTable(m *types.Manifest, w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tDOI\tSTRATEGY\tSTATUS\tPATH")
	for _, e := range m.Entries {
		title := e.Record.Title
		if r := []rune(title); len(r) > 48 {
			title = string(r[:45]) + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			title, orDash(e.Record.DOI), orDash(e.Resolution.Strategy),
			string(e.Download.Status), orDash(e.Download.Path))
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d downloaded, %d cached, %d failed (of %d records)\n",
		m.Downloaded(), m.Cached(), m.Failed(), len(m.Entries))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
