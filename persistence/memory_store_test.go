package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/reliquary/framework"
)

func newTestStore(t *testing.T) *SQLiteMemoryStore {
	t.Helper()
	store, err := NewSQLiteMemoryStore(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestExtractPattern(t *testing.T) {
	cases := map[string]string{
		"/home/me/project/node_modules": "*/node_modules",
		"/home/me/project/.venv":        "*/.venv",
		"/home/me/project/build":        "*/build",
		"/home/me/.cache/pip":           "*/pip",
		"/home/me/Library/Caches":       "*/cache/*",
		"/home/me/Downloads/ubuntu.iso": "*.iso",
		"/home/me/misc/archive":         "*/archive",
	}
	for path, want := range cases {
		assert.Equal(t, want, ExtractPattern(path), "path %s", path)
	}
}

func TestSaveAndFindByPattern(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := framework.PatternEntry{
		PathPattern:   "*/node_modules",
		DirectoryType: "node_modules",
		UserDecision:  "approved",
		ApprovalCount: 3,
	}
	require.NoError(t, store.Save(ctx, entry))

	got, err := store.FindByPattern(ctx, "*/node_modules")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "node_modules", got.DirectoryType)
	assert.Equal(t, 3, got.ApprovalCount)
	assert.False(t, got.CreatedAt.IsZero())

	missing, err := store.FindByPattern(ctx, "*/nothing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRecordDecisionBumpsCounters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordDecision(ctx, "/a/node_modules", "", "node_modules", true))
	require.NoError(t, store.RecordDecision(ctx, "/b/node_modules", "", "node_modules", true))
	require.NoError(t, store.RecordDecision(ctx, "/c/node_modules", "", "node_modules", false))

	entry, err := store.FindByPattern(ctx, "*/node_modules")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 2, entry.ApprovalCount)
	assert.Equal(t, 1, entry.RejectionCount)
	assert.Equal(t, "rejected", entry.UserDecision)
	assert.InDelta(t, 2.0/3.0, entry.ApprovalRate(), 1e-9)
}

func TestFindSimilarRanksStrategies(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, framework.PatternEntry{PathPattern: "*/node_modules", UserDecision: "approved"}))
	require.NoError(t, store.Save(ctx, framework.PatternEntry{PathPattern: "*.log", UserDecision: "approved"}))
	require.NoError(t, store.Save(ctx, framework.PatternEntry{PathPattern: "*/logs", UserDecision: "rejected"}))

	// exact pattern beats everything
	scored, err := store.FindSimilar(ctx, "/srv/app/node_modules")
	require.NoError(t, err)
	require.NotEmpty(t, scored)
	assert.Equal(t, "*/node_modules", scored[0].Entry.PathPattern)
	assert.Equal(t, 1.0, scored[0].Score)
	assert.Equal(t, "exact_pattern", scored[0].Strategy)

	// a duplicate pattern keeps its best score; parent-dir matches rank below
	scored, err = store.FindSimilar(ctx, "/var/logs/app.log")
	require.NoError(t, err)
	require.Len(t, scored, 2)
	assert.Equal(t, "*.log", scored[0].Entry.PathPattern)
	assert.Equal(t, 1.0, scored[0].Score)
	assert.Equal(t, "*/logs", scored[1].Entry.PathPattern)
	assert.Equal(t, 0.6, scored[1].Score)
}

func TestFindSimilarNoMatches(t *testing.T) {
	store := newTestStore(t)
	scored, err := store.FindSimilar(context.Background(), "/nowhere/special")
	require.NoError(t, err)
	assert.Empty(t, scored)
}

func TestReflectionHistoryAndAccuracy(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	records := []framework.ReflectionRecord{
		{Path: "/a", OriginalConfidence: "safe", WasDowngraded: true, UserAgreed: true},
		{Path: "/a", OriginalConfidence: "safe", WasDowngraded: true, UserAgreed: false},
		{Path: "/b", OriginalConfidence: "likely_safe", WasDowngraded: false},
	}
	for _, r := range records {
		require.NoError(t, store.RecordReflection(ctx, r))
	}

	history, err := store.ReflectionHistory(ctx, "/a", 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	metrics, err := store.ReflectionAccuracy(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3.0, metrics["total_reflections"])
	assert.InDelta(t, 2.0/3.0, metrics["downgrade_rate"], 1e-9)
	assert.InDelta(t, 0.5, metrics["agreement_rate"], 1e-9)
}
