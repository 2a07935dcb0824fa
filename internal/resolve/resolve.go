// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve turns paper records into full-text PDF URLs by trying a
// fixed-priority chain of strategies until one succeeds.
package resolve

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-scraper/internal/ratelimit"
	"github.com/pdiddy/paper-scraper/pkg/types"
)

// Sentinel errors strategies use to report why they could not produce a
// URL. Anything else is classified as a network error.
var (
	ErrNoDOI       = errors.New("record has no usable identifier")
	ErrNotFound    = errors.New("no full-text location found")
	ErrUnsupported = errors.New("unsupported location format")
)

// Strategy attempts to turn one record's identifier into a PDF URL.
// Strategies either return a URL or fail with a classifiable error; they
// never download the PDF themselves.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, rec types.PaperRecord) (string, error)
}

// Chain tries strategies strictly in priority order and stops at the first
// success. Every failed attempt is recorded so callers can tell a missing
// identifier from an identified-but-unresolvable paper.
type Chain struct {
	strategies []Strategy
	log        zerolog.Logger
}

// NewChain builds the default strategy chain in the fixed priority order:
// arxiv, xiv preprint servers, provider-reported open access, PubMed
// Central, PubMed, OpenAlex lookup, the user template, then the doi.org
// resolver. An empty TemplateURL disables the template strategy rather
// than failing.
func NewChain(cfg types.ResolveConfig, client *http.Client, limiter *ratelimit.Limiter, log zerolog.Logger) *Chain {
	ncbi := &ncbiResolver{client: client, limiter: limiter, userAgent: cfg.UserAgent}
	strategies := []Strategy{
		arxivStrategy{},
		&xivStrategy{client: client, limiter: limiter, userAgent: cfg.UserAgent},
		openAccessStrategy{},
		&pmcStrategy{ncbi},
		&pubmedStrategy{ncbi},
		&openAlexStrategy{client: client, limiter: limiter, cfg: cfg},
	}
	if cfg.TemplateURL != "" {
		strategies = append(strategies, templateStrategy{pattern: cfg.TemplateURL})
	}
	strategies = append(strategies, doiStrategy{})
	return &Chain{strategies: strategies, log: log}
}

// NewChainWith builds a chain from an explicit strategy list, used by the
// orchestrator tests to control ordering and side effects.
func NewChainWith(log zerolog.Logger, strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies, log: log}
}

// Resolve runs the chain for one record. A record with no usable
// identifier short-circuits to a terminal no_doi failure without any
// network call.
func (c *Chain) Resolve(ctx context.Context, rec types.PaperRecord) types.ResolutionResult {
	if !rec.HasResolvableID() {
		return types.ResolutionResult{Attempts: []types.ResolutionAttempt{{
			Strategy: "chain",
			Reason:   types.ReasonNoDOI,
			Detail:   "record has no DOI, arXiv, PubMed, or PMC ID and no open-access URL",
		}}}
	}

	var attempts []types.ResolutionAttempt
	for _, s := range c.strategies {
		url, err := s.Resolve(ctx, rec)
		if err == nil {
			c.log.Debug().Str("strategy", s.Name()).Str("url", url).
				Str("identity", rec.Identity()).Msg("resolved")
			return types.ResolutionResult{URL: url, Strategy: s.Name(), Attempts: attempts}
		}
		attempts = append(attempts, types.ResolutionAttempt{
			Strategy: s.Name(),
			Reason:   classify(err),
			Detail:   err.Error(),
		})
	}

	c.log.Debug().Str("identity", rec.Identity()).Int("attempts", len(attempts)).
		Msg("resolution exhausted")
	return types.ResolutionResult{Attempts: attempts}
}

// classify maps a strategy error onto the manifest failure taxonomy.
func classify(err error) types.FailureReason {
	switch {
	case errors.Is(err, ErrNoDOI):
		return types.ReasonNoDOI
	case errors.Is(err, ErrNotFound):
		return types.ReasonNotFound
	case errors.Is(err, ErrUnsupported):
		return types.ReasonUnsupported
	default:
		return types.ReasonNetwork
	}
}
