// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pdiddy/paper-scraper/internal/httputil"
	"github.com/pdiddy/paper-scraper/internal/ratelimit"
	"github.com/pdiddy/paper-scraper/pkg/types"
)

// openAlexAPIBase is the OpenAlex single-work endpoint. Declared as a var
// so tests can substitute an httptest server.
var openAlexAPIBase = "https://api.openalex.org/works/"

// openAlexStrategy looks a DOI up in OpenAlex and returns the best
// open-access PDF location, if the work has one.
type openAlexStrategy struct {
	client  *http.Client
	limiter *ratelimit.Limiter
	cfg     types.ResolveConfig
}

func (*openAlexStrategy) Name() string { return "openalex" }

func (s *openAlexStrategy) Resolve(ctx context.Context, rec types.PaperRecord) (string, error) {
	doi := types.NormalizeDOI(rec.DOI)
	if doi == "" {
		return "", ErrNoDOI
	}

	apiURL := openAlexAPIBase + "https://doi.org/" + doi
	if s.cfg.OpenAlexEmail != "" {
		apiURL += "?mailto=" + url.QueryEscape(s.cfg.OpenAlexEmail)
	}

	u, err := url.Parse(apiURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if err := s.limiter.Acquire(ctx, u.Hostname()); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, s.client, req, 0)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: openalex has no work for %s", ErrNotFound, doi)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("openalex returned HTTP %d", resp.StatusCode)
	}

	var work openAlexWork
	if err := json.NewDecoder(resp.Body).Decode(&work); err != nil {
		return "", fmt.Errorf("parsing openalex response: %w", err)
	}

	if work.BestOALocation == nil || work.BestOALocation.PDFURL == "" {
		return "", fmt.Errorf("%w: no open-access PDF for %s", ErrNotFound, doi)
	}
	return work.BestOALocation.PDFURL, nil
}

// openAlexWork captures the fields needed from an OpenAlex work record.
type openAlexWork struct {
	BestOALocation *openAlexOALocation `json:"best_oa_location"`
}

type openAlexOALocation struct {
	PDFURL     string `json:"pdf_url"`
	LandingURL string `json:"landing_page_url"`
}
