package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/awt/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single
	// connection serializes all DB access through Go's connection pool.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// boolToInt converts a bool to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Session history ---

func (s *SQLiteStore) CreateSessionRecord(ctx context.Context, rec *models.SessionRecord) error {
	if rec.SessionID == "" {
		return fmt.Errorf("session record requires a session id")
	}
	if rec.ID == "" {
		rec.ID = newULID()
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO session_records
		(id, session_id, tool, branch, worktree_path, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.Tool, rec.Branch, rec.WorktreePath, rec.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert session record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetSessionRecord(ctx context.Context, id string) (*models.SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, session_id, tool, branch, worktree_path, recorded_at
		FROM session_records WHERE id = ?`, id)
	return scanSessionRecord(row)
}

func (s *SQLiteStore) LatestSessionRecord(ctx context.Context, tool, worktreePath string) (*models.SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, session_id, tool, branch, worktree_path, recorded_at
		FROM session_records WHERE tool = ? AND worktree_path = ?
		ORDER BY recorded_at DESC LIMIT 1`, tool, worktreePath)
	return scanSessionRecord(row)
}

func (s *SQLiteStore) ListSessionRecords(ctx context.Context, filter SessionFilter) ([]*models.SessionRecord, error) {
	query := `SELECT id, session_id, tool, branch, worktree_path, recorded_at FROM session_records WHERE 1=1`
	var args []any
	if filter.Tool != "" {
		query += " AND tool = ?"
		args = append(args, filter.Tool)
	}
	if filter.Branch != "" {
		query += " AND branch = ?"
		args = append(args, filter.Branch)
	}
	query += " ORDER BY recorded_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list session records: %w", err)
	}
	defer rows.Close()

	var records []*models.SessionRecord
	for rows.Next() {
		rec, err := scanSessionRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) DeleteSessionRecord(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM session_records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete session record: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSessionRecord(row rowScanner) (*models.SessionRecord, error) {
	var rec models.SessionRecord
	err := row.Scan(&rec.ID, &rec.SessionID, &rec.Tool, &rec.Branch, &rec.WorktreePath, &rec.RecordedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// --- Merge runs ---

// CreateMergeRun inserts a run and its per-branch log entries in one transaction.
func (s *SQLiteStore) CreateMergeRun(ctx context.Context, run *models.MergeRun, entries []*models.MergeLogEntry) error {
	if run.ID == "" {
		run.ID = newULID()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin merge run tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO merge_runs
		(id, source_branch, dry_run, auto_push, remote, cancelled,
		 total_count, success_count, skipped_count, failed_count, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SourceBranch, boolToInt(run.DryRun), boolToInt(run.AutoPush), run.Remote,
		boolToInt(run.Cancelled), run.TotalCount, run.SuccessCount, run.SkippedCount,
		run.FailedCount, run.StartedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("insert merge run: %w", err)
	}

	for i, e := range entries {
		if e.ID == "" {
			e.ID = newULID()
		}
		e.RunID = run.ID
		_, err = tx.ExecContext(ctx, `INSERT INTO merge_log_entries
			(id, run_id, position, branch, status, push_status, worktree_created, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.RunID, i, e.Branch, e.Status, e.PushStatus, boolToInt(e.WorktreeCreated), e.Error)
		if err != nil {
			return fmt.Errorf("insert merge log entry: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetMergeRun(ctx context.Context, id string) (*models.MergeRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, source_branch, dry_run, auto_push, remote, cancelled,
		total_count, success_count, skipped_count, failed_count, started_at, finished_at
		FROM merge_runs WHERE id = ?`, id)
	return scanMergeRun(row)
}

func (s *SQLiteStore) ListMergeRuns(ctx context.Context, limit int) ([]*models.MergeRun, error) {
	query := `SELECT id, source_branch, dry_run, auto_push, remote, cancelled,
		total_count, success_count, skipped_count, failed_count, started_at, finished_at
		FROM merge_runs ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list merge runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.MergeRun
	for rows.Next() {
		run, err := scanMergeRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) ListMergeLogEntries(ctx context.Context, runID string) ([]*models.MergeLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, run_id, branch, status, push_status, worktree_created, error
		FROM merge_log_entries WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("list merge log entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.MergeLogEntry
	for rows.Next() {
		var e models.MergeLogEntry
		var created int
		if err := rows.Scan(&e.ID, &e.RunID, &e.Branch, &e.Status, &e.PushStatus, &created, &e.Error); err != nil {
			return nil, err
		}
		e.WorktreeCreated = created != 0
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func scanMergeRun(row rowScanner) (*models.MergeRun, error) {
	var run models.MergeRun
	var dryRun, autoPush, cancelled int
	err := row.Scan(&run.ID, &run.SourceBranch, &dryRun, &autoPush, &run.Remote, &cancelled,
		&run.TotalCount, &run.SuccessCount, &run.SkippedCount, &run.FailedCount,
		&run.StartedAt, &run.FinishedAt)
	if err != nil {
		return nil, err
	}
	run.DryRun = dryRun != 0
	run.AutoPush = autoPush != 0
	run.Cancelled = cancelled != 0
	return &run, nil
}

// Ensure SQLiteStore satisfies the interface.
var _ Store = (*SQLiteStore)(nil)
