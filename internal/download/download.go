// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package download fetches resolved URLs to local PDF files with caching,
// retry with backoff, content validation, and atomic writes.
package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-scraper/internal/ratelimit"
	"github.com/pdiddy/paper-scraper/pkg/types"
)

// pdfMagic is the byte prefix every PDF file starts with.
var pdfMagic = []byte("%PDF-")

// errNotPDF marks responses whose content is not a PDF. Never retried.
var errNotPDF = errors.New("response is not a PDF")

// errBadRequest marks URLs no request can be built from. Never retried.
var errBadRequest = errors.New("unusable download URL")

// statusError is a non-2xx response. 429 and 5xx are transient; other
// statuses fail the download immediately.
type statusError struct {
	code int
}

func (e *statusError) Error() string { return fmt.Sprintf("HTTP %d", e.code) }

func (e *statusError) transient() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

// Downloader fetches URLs to a target directory. It is safe for concurrent
// use by workers targeting different identities.
type Downloader struct {
	client  *http.Client
	limiter *ratelimit.Limiter
	cfg     types.DownloadConfig
	log     zerolog.Logger
}

// New builds a Downloader, applying defaults for zero config values.
func New(client *http.Client, limiter *ratelimit.Limiter, cfg types.DownloadConfig, log zerolog.Logger) *Downloader {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 10 * time.Second
	}
	return &Downloader{client: client, limiter: limiter, cfg: cfg, log: log}
}

// CachePath returns the deterministic location a record's PDF occupies in
// dir. The same slug always maps to the same path across runs.
func CachePath(dir, slug string) string {
	return filepath.Join(dir, slug+".pdf")
}

// Fetch downloads rawURL into dir under the slug-derived filename. An
// existing file satisfies the request with zero network activity. The
// returned outcome is data, never an error: retry exhaustion, bad content,
// and deadline expiry all land in its Status and Error fields.
func (d *Downloader) Fetch(ctx context.Context, rawURL, dir, slug string) types.DownloadOutcome {
	dest := CachePath(dir, slug)
	if fi, err := os.Stat(dest); err == nil {
		d.log.Debug().Str("path", dest).Msg("cache hit")
		return types.DownloadOutcome{Status: types.StatusCached, Path: dest, Bytes: fi.Size()}
	}

	host := hostOf(rawURL)
	var lastErr error

	for attempt := 0; attempt <= d.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := d.sleep(ctx, d.backoff(attempt)); err != nil {
				return timeoutOutcome(err, attempt-1)
			}
		}
		if err := d.limiter.Acquire(ctx, host); err != nil {
			return timeoutOutcome(err, attempt)
		}

		body, err := d.fetchOnce(ctx, rawURL)
		if err == nil {
			size, werr := d.write(dest, body)
			if werr != nil {
				return types.DownloadOutcome{Status: types.StatusFailed, Retries: attempt, Error: werr.Error()}
			}
			d.log.Info().Str("url", rawURL).Str("path", dest).Int("retries", attempt).Msg("downloaded")
			return types.DownloadOutcome{Status: types.StatusDownloaded, Path: dest, Bytes: size, Retries: attempt}
		}
		lastErr = err

		var se *statusError
		if errors.As(err, &se) {
			if se.code == http.StatusTooManyRequests {
				d.limiter.Penalize(host)
				d.log.Warn().Str("host", host).Msg("rate limited, widening interval")
			}
			if !se.transient() {
				return types.DownloadOutcome{Status: types.StatusFailed, Retries: attempt, Error: err.Error()}
			}
		} else if errors.Is(err, errNotPDF) || errors.Is(err, errBadRequest) {
			return types.DownloadOutcome{Status: types.StatusFailed, Retries: attempt, Error: err.Error()}
		}
		if ctx.Err() != nil {
			return timeoutOutcome(ctx.Err(), attempt)
		}
	}

	return types.DownloadOutcome{
		Status:  types.StatusFailed,
		Retries: d.cfg.MaxRetries,
		Error:   fmt.Sprintf("retries exhausted: %v", lastErr),
	}
}

// fetchOnce performs one GET and returns the validated PDF bytes.
func (d *Downloader) fetchOnce(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	req.Header.Set("User-Agent", d.cfg.UserAgent)
	req.Header.Set("Accept", "application/pdf")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "pdf") && !bytes.HasPrefix(body, pdfMagic) {
		return nil, fmt.Errorf("%w: content-type %q without PDF magic bytes", errNotPDF, contentType)
	}
	return body, nil
}

// write lands body at dest via a temp file and atomic rename so a crash
// never leaves a partial file at the final path.
func (d *Downloader) write(dest string, body []byte) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".scrape-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(body)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("writing download: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("closing temp file: %w", closeErr)
	}

	if d.cfg.VerifyPDF {
		if err := VerifyFile(tmpPath); err != nil {
			os.Remove(tmpPath)
			return 0, fmt.Errorf("%w: %v", errNotPDF, err)
		}
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("renaming temp file: %w", err)
	}
	return int64(len(body)), nil
}

// backoff returns the delay before retry n (n ≥ 1): base doubled per
// retry, capped, plus up to half the base of jitter.
func (d *Downloader) backoff(n int) time.Duration {
	delay := d.cfg.BackoffBase << (n - 1)
	if delay > d.cfg.BackoffMax {
		delay = d.cfg.BackoffMax
	}
	return delay + time.Duration(rand.Int63n(int64(d.cfg.BackoffBase)/2+1))
}

func (d *Downloader) sleep(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func timeoutOutcome(err error, retries int) types.DownloadOutcome {
	return types.DownloadOutcome{Status: types.StatusTimeout, Retries: retries, Error: err.Error()}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
