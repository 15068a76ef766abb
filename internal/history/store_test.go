package history

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/simdem/internal/models"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func summary(doc string, started time.Time, results ...models.TestResult) models.RunSummary {
	s := models.RunSummary{
		RunID:     "run-1",
		Document:  doc,
		Mode:      models.ModeTest,
		Results:   results,
		StartedAt: started,
		Duration:  1500 * time.Millisecond,
	}
	for _, r := range results {
		if r.Passed {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}

func TestNewStore(t *testing.T) {
	tests := []struct {
		name    string
		dbPath  string
		wantErr bool
	}{
		{name: "creates database successfully", dbPath: filepath.Join(t.TempDir(), "history.db")},
		{name: "handles in-memory database", dbPath: MemoryPath},
		{name: "creates parent directories if needed", dbPath: filepath.Join(t.TempDir(), "nested", "dir", "history.db")},
		{name: "returns error for unwritable path", dbPath: "/proc/simdem/history.db", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewStore(tt.dbPath)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer store.Close()

			var version int
			require.NoError(t, store.db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&version))
			assert.Equal(t, len(migrations), version)
			assert.Equal(t, tt.dbPath, store.Path())
		})
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	first, err := NewStore(path)
	require.NoError(t, err)
	_, err = first.RecordRun(context.Background(), summary("/docs/README.md", time.Now()))
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewStore(path)
	require.NoError(t, err)
	defer second.Close()

	runs, err := second.ListRuns(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRecordRunAndResults(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	id, err := store.RecordRun(ctx, summary("/docs/README.md", started,
		models.TestResult{Command: "echo hi\n", Expected: "hi\n", Actual: "hi\n", Ratio: 1, Threshold: 0.66, Passed: true},
		models.TestResult{Command: "date\n", Expected: "Mon\n", Actual: "Tue\n", Ratio: 0.5, Threshold: math.NaN()},
	))
	require.NoError(t, err)
	assert.Positive(t, id)

	runs, err := store.ListRuns(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	assert.Equal(t, id, run.ID)
	assert.Equal(t, "run-1", run.RunID)
	assert.Equal(t, "/docs/README.md", run.Document)
	assert.Equal(t, models.ModeTest, run.Mode)
	assert.Equal(t, 1, run.Passed)
	assert.Equal(t, 1, run.Failed)
	assert.True(t, started.Equal(run.StartedAt), "started_at = %v", run.StartedAt)
	assert.Equal(t, 1500*time.Millisecond, run.Duration)

	results, err := store.GetResults(ctx, id)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "echo hi\n", results[0].Command)
	assert.Equal(t, "/docs/README.md", results[0].Document)
	assert.InDelta(t, 0.66, results[0].Threshold, 1e-9)
	assert.True(t, results[0].Passed)
	assert.Equal(t, "Tue\n", results[1].Actual)
	assert.True(t, math.IsNaN(results[1].Threshold), "malformed threshold should round-trip as NaN")
	assert.False(t, results[1].Passed)
}

func TestListRunsFilter(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pass := models.TestResult{Ratio: 1, Threshold: 0.66, Passed: true}
	fail := models.TestResult{Ratio: 0.1, Threshold: 0.66}

	for i, s := range []models.RunSummary{
		summary("/docs/a.md", base, pass),
		summary("/docs/b.md", base.Add(time.Minute), fail),
		summary("/docs/a.md", base.Add(2*time.Minute), fail),
	} {
		_, err := store.RecordRun(ctx, s)
		require.NoError(t, err, "run %d", i)
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "all newest first", filter: Filter{}, want: []string{"/docs/a.md", "/docs/b.md", "/docs/a.md"}},
		{name: "by document", filter: Filter{Document: "/docs/b.md"}, want: []string{"/docs/b.md"}},
		{name: "failed only", filter: Filter{FailedOnly: true}, want: []string{"/docs/a.md", "/docs/b.md"}},
		{name: "limit", filter: Filter{Limit: 1}, want: []string{"/docs/a.md"}},
		{name: "no match", filter: Filter{Document: "/docs/c.md"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := store.ListRuns(ctx, tt.filter)
			require.NoError(t, err)
			var got []string
			for _, r := range runs {
				got = append(got, r.Document)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetDocumentStats(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pass := models.TestResult{Ratio: 1, Threshold: 0.66, Passed: true}
	fail := models.TestResult{Ratio: 0.1, Threshold: 0.66}

	_, err := store.RecordRun(ctx, summary("/docs/a.md", base, pass, fail))
	require.NoError(t, err)
	_, err = store.RecordRun(ctx, summary("/docs/a.md", base.Add(time.Hour), pass, pass))
	require.NoError(t, err)
	_, err = store.RecordRun(ctx, summary("/docs/b.md", base.Add(time.Minute), fail))
	require.NoError(t, err)

	stats, err := store.GetDocumentStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "/docs/a.md", stats[0].Document)
	assert.Equal(t, 2, stats[0].Runs)
	assert.Equal(t, 3, stats[0].Passed)
	assert.Equal(t, 1, stats[0].Failed)
	assert.True(t, base.Add(time.Hour).Equal(stats[0].LastRun), "last run = %v", stats[0].LastRun)

	assert.Equal(t, "/docs/b.md", stats[1].Document)
	assert.Equal(t, 1, stats[1].Runs)
}

func TestCleanupOldRuns(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	fail := models.TestResult{Ratio: 0.1, Threshold: 0.66}

	oldID, err := store.RecordRun(ctx, summary("/docs/old.md", time.Now().AddDate(0, 0, -30), fail))
	require.NoError(t, err)
	_, err = store.RecordRun(ctx, summary("/docs/new.md", time.Now(), fail))
	require.NoError(t, err)

	n, err := store.CleanupOldRuns(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = store.CleanupOldRuns(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	runs, err := store.ListRuns(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "/docs/new.md", runs[0].Document)

	results, err := store.GetResults(ctx, oldID)
	require.NoError(t, err)
	assert.Empty(t, results, "results of deleted runs cascade")
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	for _, s := range []string{
		"2026-03-01 12:30:00+00:00",
		"2026-03-01T12:30:00+00:00",
		"2026-03-01 12:30:00",
		"2026-03-01T12:30:00Z",
	} {
		assert.True(t, want.Equal(parseTimestamp(s)), "parseTimestamp(%q)", s)
	}
	assert.True(t, parseTimestamp("yesterday").IsZero())
}
