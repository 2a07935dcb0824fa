// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"
)

// FailureReason classifies why a resolver strategy could not produce a URL.
type FailureReason string

const (
	ReasonNoDOI       FailureReason = "no_doi"
	ReasonNotFound    FailureReason = "not_found"
	ReasonNetwork     FailureReason = "network_error"
	ReasonUnsupported FailureReason = "unsupported_format"
)

// ResolutionAttempt records one strategy's failed attempt.
type ResolutionAttempt struct {
	Strategy string        `json:"strategy" yaml:"strategy"`
	Reason   FailureReason `json:"reason" yaml:"reason"`
	Detail   string        `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// ResolutionResult is the outcome of running the resolver chain for one
// record: a URL plus the strategy that produced it, or a terminal failure
// carrying the ordered attempt log.
type ResolutionResult struct {
	// URL is the resolved full-text PDF location, or empty on failure.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Strategy names the strategy that produced URL.
	Strategy string `json:"strategy,omitempty" yaml:"strategy,omitempty"`

	// Attempts lists the strategies tried before success or exhaustion,
	// in chain order, each with its failure reason.
	Attempts []ResolutionAttempt `json:"attempts,omitempty" yaml:"attempts,omitempty"`
}

// Resolved reports whether the chain produced a URL.
func (r ResolutionResult) Resolved() bool { return r.URL != "" }

// NoIdentifier reports whether resolution failed because the record carried
// nothing any strategy could act on. Callers use this to distinguish a
// metadata problem from an unresolvable-but-identified paper.
func (r ResolutionResult) NoIdentifier() bool {
	if r.Resolved() || len(r.Attempts) == 0 {
		return false
	}
	for _, a := range r.Attempts {
		if a.Reason != ReasonNoDOI {
			return false
		}
	}
	return true
}

// DownloadStatus indicates how a download attempt ended.
type DownloadStatus string

const (
	StatusDownloaded DownloadStatus = "downloaded"
	StatusCached     DownloadStatus = "cached"
	StatusFailed     DownloadStatus = "failed"
	StatusTimeout    DownloadStatus = "timeout"
	// StatusSkipped marks records that never reached the downloader
	// because resolution failed.
	StatusSkipped DownloadStatus = "skipped"
)

// DownloadOutcome is the outcome of fetching one URL.
type DownloadOutcome struct {
	Status DownloadStatus `json:"status" yaml:"status"`

	// Path is the local file location for downloaded and cached outcomes.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Bytes is the file size for downloaded and cached outcomes.
	Bytes int64 `json:"bytes,omitempty" yaml:"bytes,omitempty"`

	// Retries counts retry attempts beyond the first try.
	Retries int `json:"retries,omitempty" yaml:"retries,omitempty"`

	// Error carries the last error for failed and timeout outcomes.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ManifestEntry ties one aggregated record to its resolution and download
// outcomes. Entries are written exactly once by the orchestrator.
type ManifestEntry struct {
	Record     PaperRecord      `json:"record" yaml:"record"`
	Resolution ResolutionResult `json:"resolution" yaml:"resolution"`
	Download   DownloadOutcome  `json:"download" yaml:"download"`
}

// Manifest is the complete, ordered per-record result set for one run.
// Entry order equals the aggregator's output order.
type Manifest struct {
	RunID      string          `json:"run_id" yaml:"run_id"`
	Query      string          `json:"query" yaml:"query"`
	Limit      int             `json:"limit" yaml:"limit"`
	TargetDir  string          `json:"target_dir" yaml:"target_dir"`
	StartedAt  time.Time       `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time       `json:"finished_at" yaml:"finished_at"`
	Entries    []ManifestEntry `json:"entries" yaml:"entries"`
}

// Downloaded counts entries fetched over the network this run.
func (m *Manifest) Downloaded() int { return m.countStatus(StatusDownloaded) }

// Cached counts entries satisfied from the on-disk cache.
func (m *Manifest) Cached() int { return m.countStatus(StatusCached) }

// Failed counts entries with a failed resolution or download, including
// timeouts.
func (m *Manifest) Failed() int {
	n := 0
	for _, e := range m.Entries {
		switch e.Download.Status {
		case StatusFailed, StatusTimeout, StatusSkipped:
			n++
		}
	}
	return n
}

func (m *Manifest) countStatus(s DownloadStatus) int {
	n := 0
	for _, e := range m.Entries {
		if e.Download.Status == s {
			n++
		}
	}
	return n
}

// WriteFile serializes the manifest as YAML to path.
func (m *Manifest) WriteFile(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
