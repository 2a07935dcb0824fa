// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-scraper pipeline.
package types

import (
	"fmt"
	"strings"
	"unicode"
)

// PaperRecord is a normalized search result from one metadata provider.
// Records are immutable after the provider builds them; missing optional
// fields (DOI, year) are empty values, never absent records.
type PaperRecord struct {
	// Title is the paper title as returned by the provider.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in provider order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// DOI is the bare DOI (no https://doi.org/ prefix), or empty if unknown.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// ArxivID is the arXiv identifier (e.g. "2301.07041") if the provider
	// reported one.
	ArxivID string `json:"arxiv_id,omitempty" yaml:"arxiv_id,omitempty"`

	// PubMedID is the PubMed identifier, or empty if unknown.
	PubMedID string `json:"pubmed_id,omitempty" yaml:"pubmed_id,omitempty"`

	// PMCID is the PubMed Central identifier without the "PMC" prefix,
	// or empty if unknown.
	PMCID string `json:"pmc_id,omitempty" yaml:"pmc_id,omitempty"`

	// Venue is the journal or conference name, or empty if unknown.
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	// Year is the publication year, or 0 if unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// OpenAccessURL is a full-text PDF location the provider already knows
	// about (e.g. Semantic Scholar's openAccessPdf), or empty.
	OpenAccessURL string `json:"open_access_url,omitempty" yaml:"open_access_url,omitempty"`

	// Provider identifies which search provider produced this record.
	Provider string `json:"provider" yaml:"provider"`

	// Rank is the record's zero-based position in that provider's results.
	Rank int `json:"rank" yaml:"rank"`
}

// Identity returns the deduplication and cache key for the record:
// the normalized DOI when present, otherwise normalized title plus year.
func (r PaperRecord) Identity() string {
	if doi := NormalizeDOI(r.DOI); doi != "" {
		return "doi:" + doi
	}
	return fmt.Sprintf("title:%s:%d", NormalizeTitle(r.Title), r.Year)
}

// Slug returns a filesystem-safe filename stem derived from the record's
// identity. It is stable across runs so downloads can be cache-checked.
func (r PaperRecord) Slug() string {
	if doi := NormalizeDOI(r.DOI); doi != "" {
		return strings.NewReplacer("/", "-", ":", "-").Replace(doi)
	}
	stem := slugify(r.Title)
	if stem == "" {
		stem = "untitled"
	}
	if r.Year > 0 {
		return fmt.Sprintf("%s-%d", stem, r.Year)
	}
	return stem
}

// FieldCount counts the populated metadata fields. The aggregator uses it
// to pick the more complete record when two records collide on identity.
func (r PaperRecord) FieldCount() int {
	n := 0
	for _, s := range []string{r.Title, r.DOI, r.ArxivID, r.PubMedID, r.PMCID, r.Venue, r.OpenAccessURL} {
		if s != "" {
			n++
		}
	}
	if len(r.Authors) > 0 {
		n++
	}
	if r.Year > 0 {
		n++
	}
	return n
}

// HasResolvableID reports whether any resolver strategy could possibly act
// on the record. A record failing this check short-circuits resolution
// without a network call.
func (r PaperRecord) HasResolvableID() bool {
	return r.DOI != "" || r.ArxivID != "" || r.PubMedID != "" || r.PMCID != "" || r.OpenAccessURL != ""
}

// NormalizeDOI lowercases a DOI and strips resolver URL prefixes and
// surrounding whitespace. It returns "" for an empty input.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(strings.ToLower(doi))
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "doi:"} {
		doi = strings.TrimPrefix(doi, prefix)
	}
	return doi
}

// NormalizeTitle returns a lowercased, punctuation-stripped version of the
// title with whitespace collapsed to single spaces.
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

const maxSlugLen = 80

// slugify converts free text into a hyphenated filename fragment.
func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	slug := strings.Join(strings.Fields(b.String()), "-")
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	return slug
}
