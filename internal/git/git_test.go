package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initTestRepo creates a git repo in dir with a user config so commits work on CI.
func initTestRepo(t *testing.T, dir string) {
	t.Helper()
	cmds := [][]string{
		{"git", "-C", dir, "init", "-b", "main"},
		{"git", "-C", dir, "config", "user.email", "test@test.com"},
		{"git", "-C", dir, "config", "user.name", "Test"},
		{"git", "-C", dir, "commit", "--allow-empty", "-m", "init"},
	}
	for _, args := range cmds {
		require.NoError(t, exec.Command(args[0], args[1:]...).Run())
	}
}

func commitFile(t *testing.T, dir, name, content, msg string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	require.NoError(t, exec.Command("git", "-C", dir, "add", ".").Run())
	require.NoError(t, exec.Command("git", "-C", dir, "commit", "-m", msg).Run())
}

func TestParseWorktreeListPorcelain(t *testing.T) {
	input := `worktree /Users/joe/projects/myrepo
HEAD abc123def456
branch refs/heads/main

worktree /Users/joe/projects/myrepo.worktrees/feature-x
HEAD def789abc012
branch refs/heads/feature/x

`
	worktrees := ParseWorktreeListPorcelain(input)
	assert.Len(t, worktrees, 2)

	assert.Equal(t, "/Users/joe/projects/myrepo", worktrees[0].Path)
	assert.Equal(t, "main", worktrees[0].Branch)
	assert.Equal(t, "abc123def456", worktrees[0].HEAD)

	assert.Equal(t, "/Users/joe/projects/myrepo.worktrees/feature-x", worktrees[1].Path)
	assert.Equal(t, "feature/x", worktrees[1].Branch)
}

func TestParseWorktreeListPorcelain_Empty(t *testing.T) {
	worktrees := ParseWorktreeListPorcelain("")
	assert.Nil(t, worktrees)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ClassMain, Classify("main"))
	assert.Equal(t, ClassDevelop, Classify("develop"))
	assert.Equal(t, ClassOther, Classify("master"))
	assert.Equal(t, ClassOther, Classify("feature/x"))
	assert.Equal(t, ClassOther, Classify("mainline"))
}

func TestGenerateWorktreePath(t *testing.T) {
	p := GenerateWorktreePath("/home/joe/repo", "feature/login")
	assert.Equal(t, filepath.Join("/home/joe/repo.worktrees", "feature-login"), p)
}

func TestListLocalBranches(t *testing.T) {
	dir := t.TempDir()
	initTestRepo(t, dir)
	require.NoError(t, exec.Command("git", "-C", dir, "branch", "feature/a").Run())
	require.NoError(t, exec.Command("git", "-C", dir, "branch", "develop").Run())

	c := NewClient()
	branches, err := c.ListLocalBranches(dir)
	require.NoError(t, err)
	require.Len(t, branches, 3)

	byName := map[string]BranchClass{}
	for _, b := range branches {
		byName[b.Name] = b.Class
	}
	assert.Equal(t, ClassMain, byName["main"])
	assert.Equal(t, ClassDevelop, byName["develop"])
	assert.Equal(t, ClassOther, byName["feature/a"])
}

func TestCurrentBranch(t *testing.T) {
	dir := t.TempDir()
	initTestRepo(t, dir)

	c := NewClient()
	branch, err := c.CurrentBranch(dir)
	require.NoError(t, err)
	assert.Equal(t, "main", branch)
}

func TestWorktreeCreateAndList(t *testing.T) {
	dir := t.TempDir()
	repo := filepath.Join(dir, "repo")
	require.NoError(t, os.MkdirAll(repo, 0755))
	initTestRepo(t, repo)
	require.NoError(t, exec.Command("git", "-C", repo, "branch", "feature/a").Run())

	c := NewClient()
	wtPath := GenerateWorktreePath(repo, "feature/a")
	err := c.WorktreeCreate(WorktreeCreateOptions{
		Branch:   "feature/a",
		Path:     wtPath,
		RepoRoot: repo,
	})
	require.NoError(t, err)

	worktrees, err := c.WorktreeList(repo)
	require.NoError(t, err)
	require.Len(t, worktrees, 2)
	assert.Equal(t, "feature/a", worktrees[1].Branch)

	branch, err := c.CurrentBranch(wtPath)
	require.NoError(t, err)
	assert.Equal(t, "feature/a", branch)
}

func TestMergeFromBranch_CleanMerge(t *testing.T) {
	dir := t.TempDir()
	repo := filepath.Join(dir, "repo")
	require.NoError(t, os.MkdirAll(repo, 0755))
	initTestRepo(t, repo)
	commitFile(t, repo, "base.txt", "base\n", "base")

	// Branch with an independent change
	require.NoError(t, exec.Command("git", "-C", repo, "branch", "feature/a").Run())
	commitFile(t, repo, "main.txt", "main\n", "main change")

	c := NewClient()
	wtPath := GenerateWorktreePath(repo, "feature/a")
	require.NoError(t, c.WorktreeCreate(WorktreeCreateOptions{Branch: "feature/a", Path: wtPath, RepoRoot: repo}))

	err := c.MergeFromBranch(wtPath, "main", false)
	require.NoError(t, err)
	assert.False(t, c.HasMergeConflict(wtPath))

	_, statErr := os.Stat(filepath.Join(wtPath, "main.txt"))
	assert.NoError(t, statErr)
}

func TestMergeFromBranch_DryRunThenReset(t *testing.T) {
	dir := t.TempDir()
	repo := filepath.Join(dir, "repo")
	require.NoError(t, os.MkdirAll(repo, 0755))
	initTestRepo(t, repo)
	commitFile(t, repo, "base.txt", "base\n", "base")

	require.NoError(t, exec.Command("git", "-C", repo, "branch", "feature/a").Run())
	commitFile(t, repo, "main.txt", "main\n", "main change")

	c := NewClient()
	wtPath := GenerateWorktreePath(repo, "feature/a")
	require.NoError(t, c.WorktreeCreate(WorktreeCreateOptions{Branch: "feature/a", Path: wtPath, RepoRoot: repo}))

	require.NoError(t, c.MergeFromBranch(wtPath, "main", true))
	require.NoError(t, c.ResetToHead(wtPath))

	// Dry run rolled back: no merge commit, staged file gone
	dirty, err := c.IsDirty(wtPath)
	require.NoError(t, err)
	assert.False(t, dirty)
	_, statErr := os.Stat(filepath.Join(wtPath, "main.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestMergeFromBranch_ConflictThenAbort(t *testing.T) {
	dir := t.TempDir()
	repo := filepath.Join(dir, "repo")
	require.NoError(t, os.MkdirAll(repo, 0755))
	initTestRepo(t, repo)
	commitFile(t, repo, "file.txt", "base\n", "base")

	require.NoError(t, exec.Command("git", "-C", repo, "branch", "feature/a").Run())
	commitFile(t, repo, "file.txt", "main version\n", "main change")

	c := NewClient()
	wtPath := GenerateWorktreePath(repo, "feature/a")
	require.NoError(t, c.WorktreeCreate(WorktreeCreateOptions{Branch: "feature/a", Path: wtPath, RepoRoot: repo}))
	commitFile(t, wtPath, "file.txt", "feature version\n", "feature change")

	err := c.MergeFromBranch(wtPath, "main", false)
	require.Error(t, err)
	assert.True(t, c.HasMergeConflict(wtPath))

	require.NoError(t, c.AbortMerge(wtPath))
	assert.False(t, c.HasMergeConflict(wtPath))

	dirty, derr := c.IsDirty(wtPath)
	require.NoError(t, derr)
	assert.False(t, dirty)
}

func TestBranchToDirname(t *testing.T) {
	assert.Equal(t, "feature-login", BranchToDirname("feature/login"))
	assert.Equal(t, "hotfix-a-b", BranchToDirname("hotfix/a/b"))
	assert.Equal(t, "main", BranchToDirname("main"))
}
