// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ratelimit gates outbound requests per remote host so the pipeline
// never hammers a provider or publisher, and widens a host's interval when
// the host signals overload.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/paper-scraper/pkg/types"
)

// hostState tracks one host's limiter and penalty window.
type hostState struct {
	limiter *rate.Limiter
	// base is the configured minimum inter-request interval.
	base time.Duration
	// interval is the current interval; equals base unless penalized.
	interval time.Duration
	// penaltyUntil is when the penalty decays; zero when unpenalized.
	penaltyUntil time.Time
}

// Limiter enforces a minimum inter-request interval per distinct remote
// host. It is safe for concurrent use by any number of in-flight tasks.
type Limiter struct {
	cfg types.RateLimitConfig

	mu    sync.Mutex
	hosts map[string]*hostState
}

// New builds a Limiter from cfg, applying defaults for zero values.
func New(cfg types.RateLimitConfig) *Limiter {
	if cfg.DefaultInterval <= 0 {
		cfg.DefaultInterval = 2 * time.Second
	}
	if cfg.PenaltyFactor < 1 {
		cfg.PenaltyFactor = 2
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 2 * time.Minute
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &Limiter{cfg: cfg, hosts: make(map[string]*hostState)}
}

// Acquire blocks until a request to host is permitted or ctx is done.
// The first request to a host is admitted immediately.
func (l *Limiter) Acquire(ctx context.Context, host string) error {
	hs := l.state(host)
	return hs.limiter.Wait(ctx)
}

// Penalize widens host's interval after a rate-limit response. Repeat
// penalties keep widening up to MaxInterval and extend the cooldown.
func (l *Limiter) Penalize(host string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	hs := l.stateLocked(host)
	widened := time.Duration(float64(hs.interval) * l.cfg.PenaltyFactor)
	if widened > l.cfg.MaxInterval {
		widened = l.cfg.MaxInterval
	}
	hs.interval = widened
	hs.penaltyUntil = time.Now().Add(l.cfg.Cooldown)
	hs.limiter.SetLimit(rate.Every(widened))
}

// Interval reports host's current inter-request interval.
func (l *Limiter) Interval(host string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stateLocked(host).interval
}

// state returns host's state, creating it on first use and decaying an
// expired penalty back to the baseline interval.
func (l *Limiter) state(host string) *hostState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stateLocked(host)
}

func (l *Limiter) stateLocked(host string) *hostState {
	hs, ok := l.hosts[host]
	if !ok {
		base := l.cfg.DefaultInterval
		if override, ok := l.cfg.HostIntervals[host]; ok && override > 0 {
			base = override
		}
		// Burst of 1 admits the first request without waiting and
		// spaces every subsequent request by the interval.
		hs = &hostState{
			limiter:  rate.NewLimiter(rate.Every(base), 1),
			base:     base,
			interval: base,
		}
		l.hosts[host] = hs
	}

	if !hs.penaltyUntil.IsZero() && time.Now().After(hs.penaltyUntil) {
		hs.interval = hs.base
		hs.penaltyUntil = time.Time{}
		hs.limiter.SetLimit(rate.Every(hs.base))
	}
	return hs
}
