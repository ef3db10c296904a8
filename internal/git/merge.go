package git

import (
	"os"
	"path/filepath"
)

// MergeFromBranch merges sourceBranch into the branch checked out at worktreePath.
// With dryRun the merge is performed with --no-commit so the caller can inspect
// the outcome and roll back with ResetToHead. Returns an error on conflict or
// any other merge failure; use HasMergeConflict to tell the two apart.
func (c *RealClient) MergeFromBranch(worktreePath, sourceBranch string, dryRun bool) error {
	args := []string{"merge"}
	if dryRun {
		args = append(args, "--no-commit", "--no-ff")
	} else {
		args = append(args, "--no-edit")
	}
	args = append(args, sourceBranch)
	_, err := gitCmd(worktreePath, args...)
	return err
}

// HasMergeConflict reports whether the worktree has unmerged paths or an
// in-progress merge left behind by a failed merge attempt.
func (c *RealClient) HasMergeConflict(worktreePath string) bool {
	out, err := gitCmd(worktreePath, "ls-files", "-u")
	if err == nil && out != "" {
		return true
	}

	gitDir, err := gitCmd(worktreePath, "rev-parse", "--git-dir")
	if err != nil {
		return false
	}
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(worktreePath, gitDir)
	}
	_, statErr := os.Stat(filepath.Join(gitDir, "MERGE_HEAD"))
	return statErr == nil
}

// AbortMerge aborts an in-progress merge, restoring the worktree to its
// pre-merge state.
func (c *RealClient) AbortMerge(worktreePath string) error {
	_, err := gitCmd(worktreePath, "merge", "--abort")
	return err
}

// ResetToHead hard-resets the worktree to HEAD, discarding staged and
// uncommitted merge results. Used to roll back dry-run merges.
func (c *RealClient) ResetToHead(worktreePath string) error {
	_, err := gitCmd(worktreePath, "reset", "--hard", "HEAD")
	return err
}
