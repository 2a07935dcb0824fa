// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/pdiddy/paper-scraper/internal/httputil"
	"github.com/pdiddy/paper-scraper/internal/ratelimit"
	"github.com/pdiddy/paper-scraper/pkg/types"
)

// NCBI endpoints. Declared as vars so tests can substitute httptest servers.
var (
	pmcArticleBase = "https://www.ncbi.nlm.nih.gov/pmc/articles/"
	pubmedBase     = "https://pubmed.ncbi.nlm.nih.gov/"
)

var (
	pmcPDFLinkRE = regexp.MustCompile(`href="([^"]*\.pdf)"`)
	pmcIDRE      = regexp.MustCompile(`PMC\d+`)
)

// ncbiMaxBody bounds how much of an NCBI HTML page is scanned for links.
const ncbiMaxBody = 1 << 20

// ncbiResolver fetches NCBI pages for the pmc and pubmed strategies. A
// PubMed Central article page links its own PDF; a PubMed abstract page
// names the PMC ID when a free full text exists.
type ncbiResolver struct {
	client    *http.Client
	limiter   *ratelimit.Limiter
	userAgent string
}

// pmcPDFLink scrapes the PMC article page for its PDF link, resolved
// against the page URL.
func (n *ncbiResolver) pmcPDFLink(ctx context.Context, pmcID string) (string, error) {
	pageURL := pmcArticleBase + "PMC" + strings.TrimPrefix(pmcID, "PMC")
	body, err := n.get(ctx, pageURL)
	if err != nil {
		return "", err
	}

	m := pmcPDFLinkRE.FindSubmatch(body)
	if m == nil {
		return "", fmt.Errorf("%w: no PDF link on PMC page for %s", ErrNotFound, pmcID)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	ref, err := url.Parse(string(m[1]))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// pmcIDFromPubMed scrapes the PubMed abstract page for a PMC ID.
func (n *ncbiResolver) pmcIDFromPubMed(ctx context.Context, pubmedID string) (string, error) {
	body, err := n.get(ctx, pubmedBase+pubmedID+"/")
	if err != nil {
		return "", err
	}
	m := pmcIDRE.Find(body)
	if m == nil {
		return "", fmt.Errorf("%w: no PMC ID on PubMed page for %s", ErrNotFound, pubmedID)
	}
	return strings.TrimPrefix(string(m), "PMC"), nil
}

func (n *ncbiResolver) get(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if err := n.limiter.Acquire(ctx, u.Hostname()); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := httputil.DoWithRetry(ctx, n.client, req, 0)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: NCBI has no page at %s", ErrNotFound, rawURL)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("NCBI returned HTTP %d for %s", resp.StatusCode, rawURL)
	}
	return io.ReadAll(io.LimitReader(resp.Body, ncbiMaxBody))
}

// pmcStrategy resolves a PubMed Central ID to the article's PDF link.
type pmcStrategy struct {
	*ncbiResolver
}

func (*pmcStrategy) Name() string { return "pmc" }

func (s *pmcStrategy) Resolve(ctx context.Context, rec types.PaperRecord) (string, error) {
	if rec.PMCID == "" {
		return "", ErrNoDOI
	}
	return s.pmcPDFLink(ctx, rec.PMCID)
}

// pubmedStrategy resolves a PubMed ID by finding the corresponding PMC ID
// on the abstract page, then delegating to the PMC lookup.
type pubmedStrategy struct {
	*ncbiResolver
}

func (*pubmedStrategy) Name() string { return "pubmed" }

func (s *pubmedStrategy) Resolve(ctx context.Context, rec types.PaperRecord) (string, error) {
	if rec.PubMedID == "" {
		return "", ErrNoDOI
	}
	pmcID, err := s.pmcIDFromPubMed(ctx, rec.PubMedID)
	if err != nil {
		return "", err
	}
	return s.pmcPDFLink(ctx, pmcID)
}
