package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/awt/internal/git"
	"github.com/joescharf/awt/internal/output"
)

var (
	worktreeBase  string
	worktreeForce bool
)

var worktreeCmd = &cobra.Command{
	Use:     "worktree",
	Aliases: []string{"wt"},
	Short:   "Manage git worktrees",
	Long:    "List, create, and remove worktrees for the current repository.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return worktreeListRun(".")
	},
}

var worktreeListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List worktrees",
	RunE: func(cmd *cobra.Command, args []string) error {
		return worktreeListRun(".")
	},
}

var worktreeCreateCmd = &cobra.Command{
	Use:   "create <branch>",
	Short: "Create a worktree for a branch, creating the branch if needed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return worktreeCreateRun(args[0])
	},
}

var worktreeRemoveCmd = &cobra.Command{
	Use:     "remove <branch>",
	Aliases: []string{"rm"},
	Short:   "Remove the worktree tracking a branch",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return worktreeRemoveRun(args[0])
	},
}

func init() {
	worktreeCreateCmd.Flags().StringVar(&worktreeBase, "base", "", "Base branch when creating a new branch (default: current branch)")
	worktreeRemoveCmd.Flags().BoolVar(&worktreeForce, "force", false, "Remove even with uncommitted changes")
	worktreeCmd.AddCommand(worktreeListCmd)
	worktreeCmd.AddCommand(worktreeCreateCmd)
	worktreeCmd.AddCommand(worktreeRemoveCmd)
	rootCmd.AddCommand(worktreeCmd)
}

func worktreeListRun(path string) error {
	gc := git.NewClient()
	wts, err := gc.WorktreeList(path)
	if err != nil {
		return fmt.Errorf("list worktrees: %w", err)
	}

	if len(wts) == 0 {
		ui.Info("No worktrees found.")
		return nil
	}

	table := ui.Table([]string{"Branch", "Path", "HEAD"})
	for _, w := range wts {
		branch := w.Branch
		if branch == "" {
			branch = "(detached)"
		}
		head := w.HEAD
		if len(head) > 8 {
			head = head[:8]
		}
		_ = table.Append([]string{output.Cyan(branch), w.Path, head})
	}
	_ = table.Render()
	return nil
}

func worktreeCreateRun(branch string) error {
	gc := git.NewClient()
	repoRoot, err := gc.RepoRoot(".")
	if err != nil {
		return err
	}

	// Reuse an existing worktree rather than failing.
	wts, err := gc.WorktreeList(repoRoot)
	if err != nil {
		return fmt.Errorf("list worktrees: %w", err)
	}
	for _, w := range wts {
		if w.Branch == branch {
			ui.Info("Worktree already exists at %s", w.Path)
			return nil
		}
	}

	branches, err := gc.ListLocalBranches(repoRoot)
	if err != nil {
		return err
	}
	isNew := true
	for _, b := range branches {
		if b.Name == branch {
			isNew = false
			break
		}
	}

	path := git.GenerateWorktreePath(repoRoot, branch)
	if dryRun {
		ui.DryRunMsg("Would create worktree %s at %s", branch, path)
		return nil
	}

	ui.Info("Creating worktree %s...", output.Cyan(branch))
	err = gc.WorktreeCreate(git.WorktreeCreateOptions{
		Branch:      branch,
		Path:        path,
		RepoRoot:    repoRoot,
		IsNewBranch: isNew,
		BaseBranch:  worktreeBase,
	})
	if err != nil {
		return fmt.Errorf("create worktree: %w", err)
	}

	ui.Success("Created worktree at %s", path)
	return nil
}

func worktreeRemoveRun(branch string) error {
	gc := git.NewClient()
	repoRoot, err := gc.RepoRoot(".")
	if err != nil {
		return err
	}

	wts, err := gc.WorktreeList(repoRoot)
	if err != nil {
		return fmt.Errorf("list worktrees: %w", err)
	}

	for _, w := range wts {
		if w.Branch != branch {
			continue
		}
		if !worktreeForce {
			if dirty, err := gc.IsDirty(w.Path); err == nil && dirty {
				return fmt.Errorf("worktree %s has uncommitted changes (use --force)", w.Path)
			}
		}
		if dryRun {
			ui.DryRunMsg("Would remove worktree %s", w.Path)
			return nil
		}
		if err := gc.WorktreeRemove(repoRoot, w.Path, worktreeForce); err != nil {
			return fmt.Errorf("remove worktree: %w", err)
		}
		ui.Success("Removed worktree %s", w.Path)
		return nil
	}
	return fmt.Errorf("no worktree tracks branch %q", branch)
}
