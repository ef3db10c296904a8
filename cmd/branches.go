package cmd

import (
	"github.com/spf13/cobra"

	"github.com/joescharf/awt/internal/git"
	"github.com/joescharf/awt/internal/output"
)

var branchesCmd = &cobra.Command{
	Use:   "branches",
	Short: "List local branches with merge eligibility",
	RunE: func(cmd *cobra.Command, args []string) error {
		return branchesRun()
	},
}

func init() {
	rootCmd.AddCommand(branchesCmd)
}

func branchesRun() error {
	gc := git.NewClient()
	repoRoot, err := gc.RepoRoot(".")
	if err != nil {
		return err
	}

	branches, err := gc.ListLocalBranches(repoRoot)
	if err != nil {
		return err
	}
	if len(branches) == 0 {
		ui.Info("No local branches.")
		return nil
	}

	worktreeByBranch := map[string]string{}
	if wts, err := gc.WorktreeList(repoRoot); err == nil {
		for _, w := range wts {
			worktreeByBranch[w.Branch] = w.Path
		}
	}
	current, _ := gc.CurrentBranch(repoRoot)

	table := ui.Table([]string{"Branch", "Class", "Role", "Worktree"})
	for _, b := range branches {
		role := "merge target"
		if b.Class == git.ClassMain || b.Class == git.ClassDevelop || b.Name == "master" {
			role = "merge source"
		}
		name := b.Name
		if b.Name == current {
			name = name + " *"
		}
		_ = table.Append([]string{
			output.Cyan(name),
			string(b.Class),
			role,
			worktreeByBranch[b.Name],
		})
	}
	_ = table.Render()
	return nil
}
