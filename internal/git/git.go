package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// BranchClass categorizes a local branch for merge-source selection.
type BranchClass string

const (
	ClassMain    BranchClass = "main"
	ClassDevelop BranchClass = "develop"
	ClassOther   BranchClass = "other"
)

// Branch holds a local branch name and its classification.
type Branch struct {
	Name  string
	Class BranchClass
}

// WorktreeInfo holds parsed worktree metadata from `git worktree list --porcelain`.
type WorktreeInfo struct {
	Path   string
	Branch string
	HEAD   string
}

// WorktreeCreateOptions configures worktree creation.
type WorktreeCreateOptions struct {
	Branch      string
	Path        string
	RepoRoot    string
	IsNewBranch bool
	BaseBranch  string // only used when IsNewBranch is true
}

// Client defines the interface for git operations on arbitrary repos.
// All methods take a path parameter since awt operates on multiple worktrees.
type Client interface {
	RepoRoot(path string) (string, error)
	CurrentBranch(path string) (string, error)
	ListLocalBranches(path string) ([]Branch, error)
	IsDirty(path string) (bool, error)

	WorktreeList(path string) ([]WorktreeInfo, error)
	WorktreeCreate(opts WorktreeCreateOptions) error
	WorktreeRemove(path, worktreePath string, force bool) error

	MergeFromBranch(worktreePath, sourceBranch string, dryRun bool) error
	HasMergeConflict(worktreePath string) bool
	AbortMerge(worktreePath string) error
	ResetToHead(worktreePath string) error

	FetchAllRemotes(path string) error
	PushBranchToRemote(worktreePath, branch, remote string) error
}

// RealClient implements Client using real git commands.
type RealClient struct{}

// NewClient returns a new RealClient.
func NewClient() *RealClient {
	return &RealClient{}
}

func gitCmd(path string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", path}, args...)
	out, err := exec.Command("git", fullArgs...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *RealClient) RepoRoot(path string) (string, error) {
	return gitCmd(path, "rev-parse", "--show-toplevel")
}

func (c *RealClient) CurrentBranch(path string) (string, error) {
	branch, err := gitCmd(path, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	if branch == "HEAD" {
		return "", fmt.Errorf("HEAD is detached (not on a branch)")
	}
	return branch, nil
}

func (c *RealClient) ListLocalBranches(path string) ([]Branch, error) {
	out, err := gitCmd(path, "branch", "--format=%(refname:short)")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	var branches []Branch
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		branches = append(branches, Branch{Name: line, Class: Classify(line)})
	}
	return branches, nil
}

func (c *RealClient) IsDirty(path string) (bool, error) {
	out, err := gitCmd(path, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

func (c *RealClient) FetchAllRemotes(path string) error {
	_, err := gitCmd(path, "fetch", "--all", "--prune")
	return err
}

func (c *RealClient) PushBranchToRemote(worktreePath, branch, remote string) error {
	_, err := gitCmd(worktreePath, "push", remote, branch)
	return err
}

// Classify maps a branch name to its class. Only the exact names "main" and
// "develop" carry a special class; everything else (including "master") is
// classified Other and handled by name where it matters.
func Classify(name string) BranchClass {
	switch name {
	case "main":
		return ClassMain
	case "develop":
		return ClassDevelop
	default:
		return ClassOther
	}
}
