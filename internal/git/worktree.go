package git

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *RealClient) WorktreeList(path string) ([]WorktreeInfo, error) {
	out, err := gitCmd(path, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	return ParseWorktreeListPorcelain(out), nil
}

func (c *RealClient) WorktreeCreate(opts WorktreeCreateOptions) error {
	if opts.Branch == "" || opts.Path == "" {
		return fmt.Errorf("worktree create: branch and path are required")
	}
	args := []string{"worktree", "add"}
	if opts.IsNewBranch {
		args = append(args, "-b", opts.Branch, opts.Path)
		if opts.BaseBranch != "" {
			args = append(args, opts.BaseBranch)
		}
	} else {
		args = append(args, opts.Path, opts.Branch)
	}
	_, err := gitCmd(opts.RepoRoot, args...)
	return err
}

func (c *RealClient) WorktreeRemove(path, worktreePath string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, worktreePath)
	_, err := gitCmd(path, args...)
	return err
}

// ParseWorktreeListPorcelain parses the output of `git worktree list --porcelain`.
func ParseWorktreeListPorcelain(output string) []WorktreeInfo {
	var worktrees []WorktreeInfo
	var current WorktreeInfo

	for _, line := range strings.Split(output, "\n") {
		switch {
		case strings.HasPrefix(line, "worktree "):
			current.Path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "HEAD "):
			current.HEAD = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			branch := strings.TrimPrefix(line, "branch ")
			current.Branch = strings.TrimPrefix(branch, "refs/heads/")
		case line == "":
			if current.Path != "" {
				worktrees = append(worktrees, current)
				current = WorktreeInfo{}
			}
		}
	}
	if current.Path != "" {
		worktrees = append(worktrees, current)
	}
	return worktrees
}

// GenerateWorktreePath returns the deterministic worktree location for a branch:
// a sibling "<repo>.worktrees" directory with a filesystem-safe branch name.
func GenerateWorktreePath(repoRoot, branch string) string {
	return filepath.Join(repoRoot+".worktrees", BranchToDirname(branch))
}

// BranchToDirname converts a branch name to a filesystem-safe directory name.
func BranchToDirname(branch string) string {
	return strings.ReplaceAll(branch, "/", "-")
}
