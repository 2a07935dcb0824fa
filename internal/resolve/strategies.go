// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/pdiddy/paper-scraper/pkg/types"
)

// Base URLs for identifier resolution. Declared as vars so tests can
// substitute httptest servers.
var (
	arxivPDFBase = "https://arxiv.org/pdf/"
	doiBase      = "https://doi.org/"
)

// arxivDOIPrefix marks DOIs that arXiv mints for its own preprints,
// e.g. "10.48550/arxiv.2301.07041".
const arxivDOIPrefix = "10.48550/arxiv."

// arxivStrategy builds an arxiv.org PDF URL from an arXiv ID, either
// reported directly by the provider or embedded in an arXiv-minted DOI.
// No network call.
type arxivStrategy struct{}

func (arxivStrategy) Name() string { return "arxiv" }

func (arxivStrategy) Resolve(_ context.Context, rec types.PaperRecord) (string, error) {
	if rec.ArxivID != "" {
		return arxivPDFBase + rec.ArxivID, nil
	}
	doi := types.NormalizeDOI(rec.DOI)
	if doi == "" {
		return "", ErrNoDOI
	}
	if strings.HasPrefix(doi, arxivDOIPrefix) {
		return arxivPDFBase + strings.TrimPrefix(doi, arxivDOIPrefix), nil
	}
	return "", fmt.Errorf("%w: not an arXiv identifier", ErrNotFound)
}

// openAccessStrategy uses the full-text URL the search provider already
// reported with the record. No network call.
type openAccessStrategy struct{}

func (openAccessStrategy) Name() string { return "openaccess" }

func (openAccessStrategy) Resolve(_ context.Context, rec types.PaperRecord) (string, error) {
	if rec.OpenAccessURL == "" {
		return "", fmt.Errorf("%w: provider reported no open-access location", ErrNotFound)
	}
	if _, err := url.ParseRequestURI(rec.OpenAccessURL); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return rec.OpenAccessURL, nil
}

// templatePlaceholder is substituted with the record's DOI in the
// user-supplied URL pattern.
const templatePlaceholder = "{doi}"

// templateStrategy expands a user-configured URL pattern, the externally
// configurable DOI-to-PDF hook. The chain omits this strategy entirely
// when no pattern is configured.
type templateStrategy struct {
	pattern string
}

func (templateStrategy) Name() string { return "template" }

func (s templateStrategy) Resolve(_ context.Context, rec types.PaperRecord) (string, error) {
	doi := types.NormalizeDOI(rec.DOI)
	if doi == "" {
		return "", ErrNoDOI
	}
	if !strings.Contains(s.pattern, templatePlaceholder) {
		return "", fmt.Errorf("%w: template has no %s placeholder", ErrUnsupported, templatePlaceholder)
	}
	expanded := strings.ReplaceAll(s.pattern, templatePlaceholder, doi)
	if _, err := url.ParseRequestURI(expanded); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return expanded, nil
}

// doiStrategy falls back to the doi.org resolver and relies on the
// downloader following redirects to the publisher. No network call.
type doiStrategy struct{}

func (doiStrategy) Name() string { return "doi" }

func (doiStrategy) Resolve(_ context.Context, rec types.PaperRecord) (string, error) {
	doi := types.NormalizeDOI(rec.DOI)
	if doi == "" {
		return "", ErrNoDOI
	}
	return doiBase + doi, nil
}
