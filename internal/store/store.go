package store

import (
	"context"

	"github.com/joescharf/awt/internal/models"
)

// SessionFilter specifies filters for listing session history.
type SessionFilter struct {
	Tool   string
	Branch string
	Limit  int
}

// Store defines the persistence interface for awt history.
type Store interface {
	// Session history
	CreateSessionRecord(ctx context.Context, rec *models.SessionRecord) error
	GetSessionRecord(ctx context.Context, id string) (*models.SessionRecord, error)
	LatestSessionRecord(ctx context.Context, tool, worktreePath string) (*models.SessionRecord, error)
	ListSessionRecords(ctx context.Context, filter SessionFilter) ([]*models.SessionRecord, error)
	DeleteSessionRecord(ctx context.Context, id string) error

	// Merge runs
	CreateMergeRun(ctx context.Context, run *models.MergeRun, entries []*models.MergeLogEntry) error
	GetMergeRun(ctx context.Context, id string) (*models.MergeRun, error)
	ListMergeRuns(ctx context.Context, limit int) ([]*models.MergeRun, error)
	ListMergeLogEntries(ctx context.Context, runID string) ([]*models.MergeLogEntry, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
