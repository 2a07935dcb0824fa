// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-scraper/internal/ratelimit"
	"github.com/pdiddy/paper-scraper/pkg/types"
)

func testLimiter() *ratelimit.Limiter {
	return ratelimit.New(types.RateLimitConfig{DefaultInterval: time.Millisecond})
}

func testChain(cfg types.ResolveConfig, client *http.Client) *Chain {
	return NewChain(cfg, client, testLimiter(), zerolog.Nop())
}

func TestChain_NoIdentifierShortCircuits(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer ts.Close()

	oldXiv, oldOA := xivDomains, openAlexAPIBase
	xivDomains = []string{ts.URL}
	openAlexAPIBase = ts.URL + "/works/"
	defer func() { xivDomains, openAlexAPIBase = oldXiv, oldOA }()

	chain := testChain(types.ResolveConfig{}, ts.Client())
	res := chain.Resolve(context.Background(), types.PaperRecord{Title: "No Identifiers", Year: 2024})

	if res.Resolved() {
		t.Fatalf("resolved %q for a record with no identifiers", res.URL)
	}
	if !res.NoIdentifier() {
		t.Errorf("NoIdentifier() = false, attempts = %+v", res.Attempts)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Errorf("short-circuit made %d network calls, want 0", n)
	}
}

func TestChain_ArxivIDWinsFirst(t *testing.T) {
	chain := testChain(types.ResolveConfig{}, &http.Client{})
	res := chain.Resolve(context.Background(), types.PaperRecord{
		Title: "P", ArxivID: "2301.07041", DOI: "10.48550/arXiv.2301.07041",
	})

	if !res.Resolved() {
		t.Fatalf("not resolved: %+v", res.Attempts)
	}
	if res.Strategy != "arxiv" {
		t.Errorf("strategy = %q, want arxiv", res.Strategy)
	}
	if res.URL != arxivPDFBase+"2301.07041" {
		t.Errorf("url = %q", res.URL)
	}
	if len(res.Attempts) != 0 {
		t.Errorf("first-strategy success recorded %d prior attempts", len(res.Attempts))
	}
}

func TestChain_ArxivMintedDOI(t *testing.T) {
	chain := testChain(types.ResolveConfig{}, &http.Client{})
	res := chain.Resolve(context.Background(), types.PaperRecord{DOI: "10.48550/arXiv.1706.03762"})

	if res.Strategy != "arxiv" {
		t.Fatalf("strategy = %q, want arxiv (attempts %+v)", res.Strategy, res.Attempts)
	}
	if res.URL != arxivPDFBase+"1706.03762" {
		t.Errorf("url = %q", res.URL)
	}
}

func TestChain_OpenAccessURLUsed(t *testing.T) {
	chain := testChain(types.ResolveConfig{}, &http.Client{})
	res := chain.Resolve(context.Background(), types.PaperRecord{
		Title:         "P",
		OpenAccessURL: "https://example.com/paper.pdf",
	})

	if res.Strategy != "openaccess" {
		t.Fatalf("strategy = %q, want openaccess (attempts %+v)", res.Strategy, res.Attempts)
	}
	if res.URL != "https://example.com/paper.pdf" {
		t.Errorf("url = %q", res.URL)
	}
}

func TestChain_XivProbe(t *testing.T) {
	probed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("probe used %s, want HEAD", r.Method)
		}
		w.Header().Set("Content-Type", "application/pdf")
	}))
	defer probed.Close()
	missing := httptest.NewServer(http.NotFoundHandler())
	defer missing.Close()

	oldXiv := xivDomains
	// First domain misses, second hosts the preprint.
	xivDomains = []string{missing.URL, probed.URL}
	defer func() { xivDomains = oldXiv }()

	chain := testChain(types.ResolveConfig{}, &http.Client{})
	res := chain.Resolve(context.Background(), types.PaperRecord{DOI: "10.1101/2020.04.05.026146"})

	if res.Strategy != "xiv" {
		t.Fatalf("strategy = %q, want xiv (attempts %+v)", res.Strategy, res.Attempts)
	}
	want := fmt.Sprintf("%s/content/10.1101/2020.04.05.026146.full.pdf", probed.URL)
	if res.URL != want {
		t.Errorf("url = %q, want %q", res.URL, want)
	}
}

func TestChain_OpenAlexLookup(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"best_oa_location": {"pdf_url": "https://repo.example.com/full.pdf"}}`))
	}))
	defer ts.Close()

	oldOA, oldXiv := openAlexAPIBase, xivDomains
	openAlexAPIBase = ts.URL + "/works/"
	xivDomains = nil // skip probing for a non-xiv DOI anyway
	defer func() { openAlexAPIBase, xivDomains = oldOA, oldXiv }()

	chain := testChain(types.ResolveConfig{}, ts.Client())
	res := chain.Resolve(context.Background(), types.PaperRecord{DOI: "10.1038/nature14539"})

	if res.Strategy != "openalex" {
		t.Fatalf("strategy = %q, want openalex (attempts %+v)", res.Strategy, res.Attempts)
	}
	if res.URL != "https://repo.example.com/full.pdf" {
		t.Errorf("url = %q", res.URL)
	}
	// Every earlier strategy must have been tried and recorded first.
	var tried []string
	for _, a := range res.Attempts {
		tried = append(tried, a.Strategy)
	}
	want := []string{"arxiv", "xiv", "pmc", "pubmed"}
	if len(tried) != len(want) {
		t.Fatalf("prior attempts = %v, want %v", tried, want)
	}
	for i := range want {
		if tried[i] != want[i] {
			t.Fatalf("prior attempts = %v, want %v", tried, want)
		}
	}
}

func TestChain_TemplateExpansion(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound) // openalex misses
	}))
	defer ts.Close()

	oldOA, oldXiv := openAlexAPIBase, xivDomains
	openAlexAPIBase = ts.URL + "/works/"
	xivDomains = nil
	defer func() { openAlexAPIBase, xivDomains = oldOA, oldXiv }()

	cfg := types.ResolveConfig{TemplateURL: "https://mirror.example.com/{doi}/download"}
	chain := testChain(cfg, ts.Client())
	res := chain.Resolve(context.Background(), types.PaperRecord{DOI: "10.1038/nature14539"})

	if res.Strategy != "template" {
		t.Fatalf("strategy = %q, want template (attempts %+v)", res.Strategy, res.Attempts)
	}
	if res.URL != "https://mirror.example.com/10.1038/nature14539/download" {
		t.Errorf("url = %q", res.URL)
	}
}

func TestChain_TemplateDisabledWhenUnset(t *testing.T) {
	chain := testChain(types.ResolveConfig{}, &http.Client{})
	for _, s := range chain.strategies {
		if s.Name() == "template" {
			t.Fatal("template strategy present without a configured pattern")
		}
	}
}

func TestChain_DOIFallback(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	oldOA, oldXiv := openAlexAPIBase, xivDomains
	openAlexAPIBase = ts.URL + "/works/"
	xivDomains = nil
	defer func() { openAlexAPIBase, xivDomains = oldOA, oldXiv }()

	chain := testChain(types.ResolveConfig{}, ts.Client())
	res := chain.Resolve(context.Background(), types.PaperRecord{DOI: "10.1145/3292500"})

	if res.Strategy != "doi" {
		t.Fatalf("strategy = %q, want doi (attempts %+v)", res.Strategy, res.Attempts)
	}
	if res.URL != doiBase+"10.1145/3292500" {
		t.Errorf("url = %q", res.URL)
	}
}

func TestChain_AttemptLogCarriesReasons(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	oldOA, oldXiv := openAlexAPIBase, xivDomains
	openAlexAPIBase = ts.URL + "/works/"
	xivDomains = nil
	defer func() { openAlexAPIBase, xivDomains = oldOA, oldXiv }()

	// Open-access URL only, and it is malformed: the chain exhausts.
	chain := testChain(types.ResolveConfig{}, ts.Client())
	res := chain.Resolve(context.Background(), types.PaperRecord{OpenAccessURL: "::not a url::"})

	if res.Resolved() {
		t.Fatalf("resolved %q unexpectedly", res.URL)
	}
	if res.NoIdentifier() {
		t.Error("NoIdentifier() = true for a record with an open-access URL")
	}

	reasons := make(map[string]types.FailureReason)
	for _, a := range res.Attempts {
		reasons[a.Strategy] = a.Reason
	}
	if reasons["openaccess"] != types.ReasonUnsupported {
		t.Errorf("openaccess reason = %q, want unsupported_format", reasons["openaccess"])
	}
	if reasons["arxiv"] != types.ReasonNoDOI {
		t.Errorf("arxiv reason = %q, want no_doi", reasons["arxiv"])
	}
	if reasons["doi"] != types.ReasonNoDOI {
		t.Errorf("doi reason = %q, want no_doi", reasons["doi"])
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want types.FailureReason
	}{
		{"no doi", ErrNoDOI, types.ReasonNoDOI},
		{"wrapped no doi", fmt.Errorf("%w: context", ErrNoDOI), types.ReasonNoDOI},
		{"not found", ErrNotFound, types.ReasonNotFound},
		{"unsupported", ErrUnsupported, types.ReasonUnsupported},
		{"anything else", fmt.Errorf("connection reset"), types.ReasonNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err); got != tt.want {
				t.Errorf("classify(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
