// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries academic metadata providers and merges their
// ranked results into a single deduplicated record list.
package search

import (
	"context"
	"errors"
	"sync"

	"github.com/pdiddy/paper-scraper/pkg/types"
)

// ErrProviderUnavailable marks a provider that could not be reached or
// authenticated. The aggregator treats such a provider as contributing
// zero records; it is never pipeline-fatal.
var ErrProviderUnavailable = errors.New("provider unavailable")

// Provider searches a single metadata API. Each provider owns exactly one
// external API's request and response shape and normalizes results into
// PaperRecords. Re-invoking Search issues a new remote call.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]types.PaperRecord, error)
}

// ProviderResult pairs one provider's records with its error, if any.
type ProviderResult struct {
	Provider string
	Records  []types.PaperRecord
	Err      error
}

// SearchAll fans the query out to all providers concurrently. The returned
// slice is ordered by the providers argument, not by completion order, so
// aggregation is deterministic.
func SearchAll(ctx context.Context, providers []Provider, query string, limit int) []ProviderResult {
	results := make([]ProviderResult, len(providers))
	var wg sync.WaitGroup

	for i, p := range providers {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()
			records, err := p.Search(ctx, query, limit)
			results[i] = ProviderResult{Provider: p.Name(), Records: records, Err: err}
		}(i, p)
	}
	wg.Wait()
	return results
}

// Aggregate merges per-provider results into one ordered record list of at
// most limit entries. Provider order is the primary sort key and provider
// rank the secondary; records colliding on identity keep the more complete
// of the two at the first-seen position. Failed providers contribute
// nothing. An empty result is not an error.
func Aggregate(results []ProviderResult, limit int) []types.PaperRecord {
	seen := make(map[string]int) // identity → index in merged
	var merged []types.PaperRecord

	for _, pr := range results {
		if pr.Err != nil {
			continue
		}
		records := pr.Records
		if limit > 0 && len(records) > limit {
			// Per-provider cap: no provider contributes more than
			// the requested limit.
			records = records[:limit]
		}
		for _, rec := range records {
			key := rec.Identity()
			if idx, ok := seen[key]; ok {
				if moreComplete(rec, merged[idx]) {
					merged[idx] = rec
				}
				continue
			}
			seen[key] = len(merged)
			merged = append(merged, rec)
		}
	}

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// moreComplete reports whether candidate should replace incumbent on an
// identity collision: a non-empty DOI beats an empty one, then the higher
// populated-field count wins. Ties keep the incumbent.
func moreComplete(candidate, incumbent types.PaperRecord) bool {
	if (candidate.DOI != "") != (incumbent.DOI != "") {
		return candidate.DOI != ""
	}
	return candidate.FieldCount() > incumbent.FieldCount()
}
