// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-scraper/pkg/types"
)

func sampleManifest(runID, query string) *types.Manifest {
	return &types.Manifest{
		RunID:      runID,
		Query:      query,
		Limit:      2,
		TargetDir:  "/tmp/papers",
		StartedAt:  time.Now().UTC().Add(-time.Minute),
		FinishedAt: time.Now().UTC(),
		Entries: []types.ManifestEntry{
			{
				Record:     types.PaperRecord{Title: "First", DOI: "10.1/first", Provider: "crossref"},
				Resolution: types.ResolutionResult{URL: "https://doi.org/10.1/first", Strategy: "doi"},
				Download:   types.DownloadOutcome{Status: types.StatusDownloaded, Path: "/tmp/papers/10.1-first.pdf", Bytes: 2048},
			},
			{
				Record:     types.PaperRecord{Title: "Second", Provider: "openalex"},
				Resolution: types.ResolutionResult{Attempts: []types.ResolutionAttempt{{Strategy: "chain", Reason: types.ReasonNoDOI}}},
				Download:   types.DownloadOutcome{Status: types.StatusSkipped, Error: "no full-text URL resolved"},
			},
		},
	}
}

func TestRecordRunAndListRuns(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.RecordRun(sampleManifest("run-1", "first query")))
	require.NoError(t, store.RecordRun(sampleManifest("run-2", "second query")))

	runs, err := store.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	for _, r := range runs {
		assert.Equal(t, 2, r.Total)
		assert.Equal(t, 1, r.Downloaded)
		assert.Equal(t, 0, r.Cached)
		assert.Equal(t, 1, r.Failed)
		assert.False(t, r.StartedAt.IsZero())
	}
}

func TestListRuns_Limit(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		m := sampleManifest(id, "q")
		m.StartedAt = time.Now().UTC().Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.RecordRun(m))
	}

	runs, err := store.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	// Most recent first.
	assert.Equal(t, "run-c", runs[0].ID)
	assert.Equal(t, "run-b", runs[1].ID)
}

func TestRecordRun_DuplicateRunIDFails(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	m := sampleManifest("run-1", "q")
	require.NoError(t, store.RecordRun(m))
	assert.Error(t, store.RecordRun(m))
}

func TestOpen_ReopensExistingDatabase(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, store.RecordRun(sampleManifest("run-1", "persisted")))
	require.NoError(t, store.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	runs, err := reopened.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "persisted", runs[0].Query)
}
