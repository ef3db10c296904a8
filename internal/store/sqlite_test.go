package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/awt/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err, "should create parent directory")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Migrate(ctx)
	assert.NoError(t, err)
}

// --- Session history ---

func TestSessionRecordCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &models.SessionRecord{
		SessionID:    "0193a8b2-1111-7aaa-bbbb-0123456789ab",
		Tool:         "claude",
		Branch:       "feature/a",
		WorktreePath: "/tmp/repo.worktrees/feature-a",
	}
	err := s.CreateSessionRecord(ctx, rec)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.RecordedAt.IsZero())

	got, err := s.GetSessionRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.SessionID, got.SessionID)
	assert.Equal(t, "claude", got.Tool)
	assert.Equal(t, "feature/a", got.Branch)

	err = s.DeleteSessionRecord(ctx, rec.ID)
	require.NoError(t, err)

	err = s.DeleteSessionRecord(ctx, rec.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCreateSessionRecord_RequiresSessionID(t *testing.T) {
	s := newTestStore(t)
	err := s.CreateSessionRecord(context.Background(), &models.SessionRecord{Tool: "claude"})
	assert.Error(t, err)
}

func TestLatestSessionRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := &models.SessionRecord{
		SessionID:    "older",
		Tool:         "codex",
		WorktreePath: "/wt",
		RecordedAt:   time.Now().Add(-time.Hour).UTC(),
	}
	newer := &models.SessionRecord{
		SessionID:    "newer",
		Tool:         "codex",
		WorktreePath: "/wt",
		RecordedAt:   time.Now().UTC(),
	}
	require.NoError(t, s.CreateSessionRecord(ctx, older))
	require.NoError(t, s.CreateSessionRecord(ctx, newer))

	got, err := s.LatestSessionRecord(ctx, "codex", "/wt")
	require.NoError(t, err)
	assert.Equal(t, "newer", got.SessionID)
}

func TestListSessionRecords_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, rec := range []*models.SessionRecord{
		{SessionID: "a", Tool: "claude", Branch: "feature/a"},
		{SessionID: "b", Tool: "claude", Branch: "feature/b"},
		{SessionID: "c", Tool: "codex", Branch: "feature/a"},
	} {
		require.NoError(t, s.CreateSessionRecord(ctx, rec))
	}

	all, err := s.ListSessionRecords(ctx, SessionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	claude, err := s.ListSessionRecords(ctx, SessionFilter{Tool: "claude"})
	require.NoError(t, err)
	assert.Len(t, claude, 2)

	branchA, err := s.ListSessionRecords(ctx, SessionFilter{Branch: "feature/a"})
	require.NoError(t, err)
	assert.Len(t, branchA, 2)

	limited, err := s.ListSessionRecords(ctx, SessionFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

// --- Merge runs ---

func TestCreateMergeRun_WithEntries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := &models.MergeRun{
		SourceBranch: "main",
		DryRun:       true,
		TotalCount:   3,
		SuccessCount: 1,
		SkippedCount: 1,
		FailedCount:  1,
		StartedAt:    time.Now().Add(-time.Minute).UTC(),
		FinishedAt:   time.Now().UTC(),
	}
	entries := []*models.MergeLogEntry{
		{Branch: "feature/a", Status: "success", PushStatus: "not_executed", WorktreeCreated: true},
		{Branch: "feature/b", Status: "skipped", PushStatus: "not_executed"},
		{Branch: "hotfix/c", Status: "failed", PushStatus: "not_executed", Error: "network timeout"},
	}
	require.NoError(t, s.CreateMergeRun(ctx, run, entries))
	assert.NotEmpty(t, run.ID)

	got, err := s.GetMergeRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "main", got.SourceBranch)
	assert.True(t, got.DryRun)
	assert.Equal(t, 3, got.TotalCount)

	logs, err := s.ListMergeLogEntries(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	// Insertion order is preserved
	assert.Equal(t, "feature/a", logs[0].Branch)
	assert.True(t, logs[0].WorktreeCreated)
	assert.Equal(t, "hotfix/c", logs[2].Branch)
	assert.Equal(t, "network timeout", logs[2].Error)
}

func TestListMergeRuns_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := &models.MergeRun{SourceBranch: "main", StartedAt: time.Now().Add(-time.Hour).UTC(), FinishedAt: time.Now().Add(-time.Hour).UTC()}
	recent := &models.MergeRun{SourceBranch: "develop", StartedAt: time.Now().UTC(), FinishedAt: time.Now().UTC()}
	require.NoError(t, s.CreateMergeRun(ctx, old, nil))
	require.NoError(t, s.CreateMergeRun(ctx, recent, nil))

	runs, err := s.ListMergeRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "develop", runs[0].SourceBranch)

	limited, err := s.ListMergeRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
