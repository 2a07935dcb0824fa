// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/paper-scraper/internal/ratelimit"
	"github.com/pdiddy/paper-scraper/pkg/types"
)

// xivDomains lists the Cold Spring Harbor preprint servers that share the
// 10.1101 DOI prefix. Both use the same content URL layout; which one
// hosts a given DOI is not derivable from the DOI, so the strategy probes
// them in order. Declared as a var so tests can substitute httptest servers.
var xivDomains = []string{"https://www.biorxiv.org", "https://www.medrxiv.org"}

// xivDOIPrefix is the DOI prefix shared by bioRxiv and medRxiv.
const xivDOIPrefix = "10.1101/"

// xivStrategy resolves bioRxiv/medRxiv preprints to their content PDF
// URLs, probing each candidate domain with a HEAD request.
type xivStrategy struct {
	client    *http.Client
	limiter   *ratelimit.Limiter
	userAgent string
}

func (*xivStrategy) Name() string { return "xiv" }

func (s *xivStrategy) Resolve(ctx context.Context, rec types.PaperRecord) (string, error) {
	doi := types.NormalizeDOI(rec.DOI)
	if doi == "" {
		return "", ErrNoDOI
	}
	if !strings.HasPrefix(doi, xivDOIPrefix) {
		return "", fmt.Errorf("%w: not a bioRxiv/medRxiv DOI", ErrNotFound)
	}

	var lastErr error
	for _, domain := range xivDomains {
		candidate := fmt.Sprintf("%s/content/%s.full.pdf", domain, doi)
		ok, err := s.probe(ctx, candidate)
		if err != nil {
			lastErr = err
			continue
		}
		if ok {
			return candidate, nil
		}
	}
	if lastErr != nil {
		return "", lastErr
	}
	return "", fmt.Errorf("%w: no preprint server hosts %s", ErrNotFound, doi)
}

// probe issues a rate-limited HEAD request and reports whether the
// location serves a PDF.
func (s *xivStrategy) probe(ctx context.Context, rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if err := s.limiter.Acquire(ctx, u.Hostname()); err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return false, err
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, nil
	}
	return strings.Contains(resp.Header.Get("Content-Type"), "pdf"), nil
}
