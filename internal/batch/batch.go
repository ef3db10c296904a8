// Package batch merges a source branch into every eligible local branch's
// worktree, one branch at a time. Worktrees share repository-level state
// (refs, index locks), so sequential processing is the concurrency control;
// per-branch outcomes are reported through a progress channel and collected
// into a final result that callers render or persist.
package batch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joescharf/awt/internal/git"
	"github.com/joescharf/awt/internal/logger"
)

// Per-branch merge outcomes.
const (
	StatusSuccess = "success"
	StatusSkipped = "skipped" // merge conflict, aborted and left clean
	StatusFailed  = "failed"  // non-conflict failure
)

// Push outcomes. PushNotExecuted holds unless auto-push was requested and the
// merge itself succeeded.
const (
	PushSuccess     = "success"
	PushFailed      = "failed"
	PushNotExecuted = "not_executed"
)

// Config describes one batch merge invocation.
type Config struct {
	// SourceBranch to merge from. Empty means pick automatically via
	// DetermineSourceBranch.
	SourceBranch string

	// TargetBranches to merge into. Empty means all eligible local branches
	// in discovery order.
	TargetBranches []string

	DryRun   bool
	AutoPush bool
	Remote   string // required when AutoPush is set
}

// BranchStatus is the immutable outcome for one processed branch.
type BranchStatus struct {
	Branch          string
	Status          string
	WorktreeCreated bool
	PushStatus      string
	Error           string
}

// Progress is the snapshot emitted after each processed branch.
type Progress struct {
	Branch    BranchStatus
	Completed int
	Total     int
	Success   int
	Skipped   int
	Failed    int
}

// Result is the full report of a batch run. Statuses covers every processed
// branch; when Cancelled is set, branches past the cancellation point are
// simply absent.
type Result struct {
	SourceBranch string
	Statuses     []BranchStatus
	TotalCount   int
	SuccessCount int
	SkippedCount int
	FailedCount  int
	Cancelled    bool
}

// Orchestrator runs batch merges against one repository.
type Orchestrator struct {
	RepoPath string
	Git      git.Client

	log *slog.Logger
}

// NewOrchestrator returns an Orchestrator for the repository at repoPath.
func NewOrchestrator(repoPath string, gitClient git.Client) *Orchestrator {
	return &Orchestrator{
		RepoPath: repoPath,
		Git:      gitClient,
		log:      logger.WithComponent("batch"),
	}
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.log == nil {
		o.log = logger.WithComponent("batch")
	}
	return o.log
}

// DetermineSourceBranch picks the merge source: main, else develop, else a
// branch literally named master.
func (o *Orchestrator) DetermineSourceBranch() (string, error) {
	branches, err := o.Git.ListLocalBranches(o.RepoPath)
	if err != nil {
		return "", fmt.Errorf("list branches: %w", err)
	}

	var develop, master string
	for _, b := range branches {
		switch {
		case b.Class == git.ClassMain:
			return b.Name, nil
		case b.Class == git.ClassDevelop:
			develop = b.Name
		case b.Name == "master":
			master = b.Name
		}
	}
	if develop != "" {
		return develop, nil
	}
	if master != "" {
		return master, nil
	}
	return "", fmt.Errorf("no main, develop, or master branch found in %s", o.RepoPath)
}

// TargetBranches returns all local branches outside the source family
// (main/develop/master), preserving discovery order. The current branch is
// not excluded; being checked out does not make a branch ineligible.
func (o *Orchestrator) TargetBranches() ([]string, error) {
	branches, err := o.Git.ListLocalBranches(o.RepoPath)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}

	var targets []string
	for _, b := range branches {
		if b.Class == git.ClassMain || b.Class == git.ClassDevelop || b.Name == "master" {
			continue
		}
		targets = append(targets, b.Name)
	}
	return targets, nil
}

// EnsureWorktree returns the worktree path tracking branch, creating one at
// the deterministic location when none exists. created reports whether a new
// worktree was made; the call is idempotent.
func (o *Orchestrator) EnsureWorktree(branch string) (path string, created bool, err error) {
	worktrees, err := o.Git.WorktreeList(o.RepoPath)
	if err != nil {
		return "", false, fmt.Errorf("list worktrees: %w", err)
	}
	for _, wt := range worktrees {
		if wt.Branch == branch {
			return wt.Path, false, nil
		}
	}

	repoRoot, err := o.Git.RepoRoot(o.RepoPath)
	if err != nil {
		return "", false, fmt.Errorf("resolve repo root: %w", err)
	}
	path = git.GenerateWorktreePath(repoRoot, branch)

	// The branch already exists; the worktree just checks it out.
	err = o.Git.WorktreeCreate(git.WorktreeCreateOptions{
		Branch:      branch,
		Path:        path,
		RepoRoot:    repoRoot,
		IsNewBranch: false,
	})
	if err != nil {
		return "", false, fmt.Errorf("create worktree for %s: %w", branch, err)
	}
	return path, true, nil
}

// MergeBranch merges source into branch's worktree and reports the outcome.
// A conflict is skipped (worktree restored via merge abort); a dry-run
// success is rolled back with a hard reset; a push failure after a successful
// merge never demotes the merge status.
func (o *Orchestrator) MergeBranch(branch, source string, cfg Config) BranchStatus {
	st := BranchStatus{Branch: branch, PushStatus: PushNotExecuted}
	log := o.logger()

	wtPath, created, err := o.EnsureWorktree(branch)
	if err != nil {
		st.Status = StatusFailed
		st.Error = err.Error()
		return st
	}
	st.WorktreeCreated = created

	if err := o.Git.MergeFromBranch(wtPath, source, cfg.DryRun); err != nil {
		if o.Git.HasMergeConflict(wtPath) {
			st.Status = StatusSkipped
			if abortErr := o.Git.AbortMerge(wtPath); abortErr != nil {
				log.Warn("merge abort failed", "branch", branch, "error", abortErr)
				st.Error = abortErr.Error()
			}
			return st
		}
		st.Status = StatusFailed
		st.Error = err.Error()
		return st
	}

	st.Status = StatusSuccess

	if cfg.DryRun {
		// Never leave a dry run's merge staged or committed.
		if resetErr := o.Git.ResetToHead(wtPath); resetErr != nil {
			log.Warn("dry-run rollback failed", "branch", branch, "error", resetErr)
			st.Error = resetErr.Error()
		}
		return st
	}

	if cfg.AutoPush {
		st.PushStatus = PushSuccess
		current, err := o.Git.CurrentBranch(wtPath)
		if err == nil {
			err = o.Git.PushBranchToRemote(wtPath, current, cfg.Remote)
		}
		if err != nil {
			log.Warn("push failed after merge", "branch", branch, "error", err)
			st.PushStatus = PushFailed
			st.Error = err.Error()
		}
	}
	return st
}

// ExecuteBatchMerge runs the whole batch: fetch once, then merge source into
// each target sequentially, emitting one Progress per processed branch before
// moving to the next. Cancellation is checked between branches; an in-flight
// git call is allowed to finish, completed merges are not rolled back, and
// the partial result is returned with Cancelled set.
//
// progress may be nil; when given it is closed before returning.
func (o *Orchestrator) ExecuteBatchMerge(ctx context.Context, cfg Config, progress chan<- Progress) (*Result, error) {
	if progress != nil {
		defer close(progress)
	}

	if cfg.AutoPush && cfg.Remote == "" {
		return nil, fmt.Errorf("auto-push requires a remote")
	}

	source := cfg.SourceBranch
	if source == "" {
		var err error
		if source, err = o.DetermineSourceBranch(); err != nil {
			return nil, err
		}
	}

	targets := cfg.TargetBranches
	if len(targets) == 0 {
		var err error
		if targets, err = o.TargetBranches(); err != nil {
			return nil, err
		}
	}

	log := o.logger()

	// Fetching is advisory: the merges operate on local branches, so a
	// network failure here must not kill the batch.
	if err := o.Git.FetchAllRemotes(o.RepoPath); err != nil {
		log.Warn("fetch before batch merge failed", "error", err)
	}

	result := &Result{SourceBranch: source, TotalCount: len(targets)}
	log.Info("batch merge starting", "source", source, "targets", len(targets), "dryRun", cfg.DryRun)

	for _, branch := range targets {
		select {
		case <-ctx.Done():
			result.Cancelled = true
			log.Info("batch merge cancelled", "completed", len(result.Statuses), "total", result.TotalCount)
			return result, nil
		default:
		}

		st := o.MergeBranch(branch, source, cfg)
		result.Statuses = append(result.Statuses, st)
		switch st.Status {
		case StatusSuccess:
			result.SuccessCount++
		case StatusSkipped:
			result.SkippedCount++
		case StatusFailed:
			result.FailedCount++
		}

		if progress != nil {
			progress <- Progress{
				Branch:    st,
				Completed: len(result.Statuses),
				Total:     result.TotalCount,
				Success:   result.SuccessCount,
				Skipped:   result.SkippedCount,
				Failed:    result.FailedCount,
			}
		}
	}

	log.Info("batch merge finished",
		"success", result.SuccessCount, "skipped", result.SkippedCount, "failed", result.FailedCount)
	return result, nil
}
