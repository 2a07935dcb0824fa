// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/paper-scraper/internal/httputil"
	"github.com/pdiddy/paper-scraper/pkg/types"
)

// crossrefAPIBase is the Crossref works search endpoint. Declared as a var
// so tests can substitute an httptest server.
var crossrefAPIBase = "https://api.crossref.org/works"

// CrossrefProvider queries the Crossref works API. Crossref knows no
// full-text locations but has the broadest DOI coverage, so its records
// anchor deduplication for papers the other providers return without DOIs.
type CrossrefProvider struct {
	Client *http.Client
	Config types.SearchConfig
}

// Name returns the provider identifier.
func (p *CrossrefProvider) Name() string { return "crossref" }

// Search queries the works endpoint and normalizes the results.
func (p *CrossrefProvider) Search(ctx context.Context, query string, limit int) ([]types.PaperRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{
		"query":  {query},
		"rows":   {fmt.Sprintf("%d", limit)},
		"select": {"DOI,title,author,issued,container-title"},
	}
	if p.Config.CrossrefMailto != "" {
		params.Set("mailto", p.Config.CrossrefMailto)
	}
	reqURL := crossrefAPIBase + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", p.Config.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, p.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: crossref: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: crossref returned HTTP %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var cr crossrefResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("%w: parsing crossref response: %v", ErrProviderUnavailable, err)
	}

	var records []types.PaperRecord
	for i, item := range cr.Message.Items {
		rec := types.PaperRecord{
			DOI:      types.NormalizeDOI(item.DOI),
			Provider: p.Name(),
			Rank:     i,
		}
		if len(item.Title) > 0 {
			rec.Title = item.Title[0]
		}
		if len(item.ContainerTitle) > 0 {
			rec.Venue = item.ContainerTitle[0]
		}
		for _, a := range item.Author {
			name := strings.TrimSpace(a.Given + " " + a.Family)
			if name != "" {
				rec.Authors = append(rec.Authors, name)
			}
		}
		if len(item.Issued.DateParts) > 0 && len(item.Issued.DateParts[0]) > 0 {
			rec.Year = item.Issued.DateParts[0][0]
		}
		records = append(records, rec)
	}
	return records, nil
}

// Crossref API JSON structures.
type crossrefResponse struct {
	Message crossrefMessage `json:"message"`
}

type crossrefMessage struct {
	Items []crossrefItem `json:"items"`
}

type crossrefItem struct {
	DOI            string           `json:"DOI"`
	Title          []string         `json:"title"`
	ContainerTitle []string         `json:"container-title"`
	Author         []crossrefAuthor `json:"author"`
	Issued         crossrefDate     `json:"issued"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}
