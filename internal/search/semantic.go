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

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,authors,venue,year,externalIds,openAccessPdf"

// SemanticScholarProvider queries the Semantic Scholar Graph API.
type SemanticScholarProvider struct {
	Client *http.Client
	Config types.SearchConfig
}

// Name returns the provider identifier.
func (p *SemanticScholarProvider) Name() string { return "semantic_scholar" }

// Search queries the Graph API and normalizes the results. Network and
// HTTP failures are reported as ErrProviderUnavailable.
func (p *SemanticScholarProvider) Search(ctx context.Context, query string, limit int) ([]types.PaperRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{
		"query":  {query},
		"limit":  {fmt.Sprintf("%d", limit)},
		"fields": {semanticFields},
	}
	reqURL := semanticAPIBase + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", p.Config.UserAgent)
	if p.Config.SemanticScholarAPIKey != "" {
		req.Header.Set("x-api-key", p.Config.SemanticScholarAPIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, p.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: semantic scholar: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: semantic scholar returned HTTP %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("%w: parsing semantic scholar response: %v", ErrProviderUnavailable, err)
	}

	var records []types.PaperRecord
	for i, paper := range sr.Data {
		rec := types.PaperRecord{
			Title:    paper.Title,
			Venue:    paper.Venue,
			Year:     paper.Year,
			DOI:      types.NormalizeDOI(paper.ExternalIDs.DOI),
			ArxivID:  paper.ExternalIDs.ArXiv,
			PubMedID: paper.ExternalIDs.PubMed,
			PMCID:    strings.TrimPrefix(paper.ExternalIDs.PubMedCentral, "PMC"),
			Provider: p.Name(),
			Rank:     i,
		}
		for _, a := range paper.Authors {
			rec.Authors = append(rec.Authors, a.Name)
		}
		if paper.OpenAccessPDF != nil {
			rec.OpenAccessURL = paper.OpenAccessPDF.URL
		}
		records = append(records, rec)
	}
	return records, nil
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total int             `json:"total"`
	Data  []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID       string              `json:"paperId"`
	Title         string              `json:"title"`
	Venue         string              `json:"venue"`
	Year          int                 `json:"year"`
	Authors       []semanticAuthor    `json:"authors"`
	ExternalIDs   semanticExternalIDs `json:"externalIds"`
	OpenAccessPDF *semanticOpenAccess `json:"openAccessPdf"`
}

type semanticAuthor struct {
	Name string `json:"name"`
}

type semanticExternalIDs struct {
	DOI           string `json:"DOI"`
	ArXiv         string `json:"ArXiv"`
	PubMed        string `json:"PubMed"`
	PubMedCentral string `json:"PubMedCentral"`
}

type semanticOpenAccess struct {
	URL string `json:"url"`
}
