// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pdiddy/paper-scraper/internal/httputil"
	"github.com/pdiddy/paper-scraper/pkg/types"
)

// openAlexSearchBase is the OpenAlex works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

// OpenAlexProvider queries the OpenAlex works API. OpenAlex is DOI-centric
// and carries open-access locations directly in the search response.
type OpenAlexProvider struct {
	Client *http.Client
	Config types.SearchConfig
}

// Name returns the provider identifier.
func (p *OpenAlexProvider) Name() string { return "openalex" }

// Search queries the works endpoint and normalizes the results.
func (p *OpenAlexProvider) Search(ctx context.Context, query string, limit int) ([]types.PaperRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 200 {
		limit = 200
	}

	params := url.Values{
		"search":   {query},
		"per_page": {fmt.Sprintf("%d", limit)},
		"page":     {"1"},
	}
	if p.Config.OpenAlexEmail != "" {
		params.Set("mailto", p.Config.OpenAlexEmail)
	}
	reqURL := openAlexSearchBase + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", p.Config.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, p.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: openalex: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: openalex returned HTTP %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, fmt.Errorf("%w: parsing openalex response: %v", ErrProviderUnavailable, err)
	}

	var records []types.PaperRecord
	for i, work := range oar.Results {
		rec := types.PaperRecord{
			Title:    work.DisplayName,
			DOI:      types.NormalizeDOI(work.DOI),
			Year:     work.PublicationYear,
			Provider: p.Name(),
			Rank:     i,
		}
		for _, authorship := range work.Authorships {
			if authorship.Author.DisplayName != "" {
				rec.Authors = append(rec.Authors, authorship.Author.DisplayName)
			}
		}
		if work.PrimaryLocation != nil && work.PrimaryLocation.Source != nil {
			rec.Venue = work.PrimaryLocation.Source.DisplayName
		}
		if work.OpenAccess.OAURL != "" {
			rec.OpenAccessURL = work.OpenAccess.OAURL
		}
		records = append(records, rec)
	}
	return records, nil
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID              string               `json:"id"`
	DisplayName     string               `json:"display_name"`
	DOI             string               `json:"doi"`
	PublicationYear int                  `json:"publication_year"`
	Authorships     []openAlexAuthorship `json:"authorships"`
	PrimaryLocation *openAlexLocation    `json:"primary_location"`
	OpenAccess      openAlexOpenAccess   `json:"open_access"`
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	DisplayName string `json:"display_name"`
}

type openAlexLocation struct {
	Source *openAlexSource `json:"source"`
}

type openAlexSource struct {
	DisplayName string `json:"display_name"`
}

type openAlexOpenAccess struct {
	IsOA  bool   `json:"is_oa"`
	OAURL string `json:"oa_url"`
}
