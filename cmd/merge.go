package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/awt/internal/batch"
	"github.com/joescharf/awt/internal/git"
	"github.com/joescharf/awt/internal/models"
	"github.com/joescharf/awt/internal/output"
)

var (
	mergeSource   string
	mergeTargets  []string
	mergeAutoPush bool
	mergeRemote   string
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge a source branch into every other branch's worktree",
	Long: `Merge main (or develop, or master) into every eligible local branch,
one worktree at a time. Conflicting branches are skipped and left clean;
with --dry-run every merge is rolled back after conflict detection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mergeRun(cmd.Context())
	},
}

var mergeHistoryCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List past merge runs, or show one run's per-branch log",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return mergeHistoryShowRun(args[0])
		}
		return mergeHistoryListRun()
	},
}

var mergeHistoryLimit int

func init() {
	mergeCmd.Flags().StringVarP(&mergeSource, "source", "s", "", "Source branch (default: main, develop, or master)")
	mergeCmd.Flags().StringSliceVar(&mergeTargets, "target", nil, "Target branch (repeatable; default: all eligible branches)")
	mergeCmd.Flags().BoolVar(&mergeAutoPush, "push", false, "Push each branch after a successful merge")
	mergeCmd.Flags().StringVar(&mergeRemote, "remote", "", "Remote to push to (default from config)")
	mergeHistoryCmd.Flags().IntVar(&mergeHistoryLimit, "limit", 10, "Maximum runs to list")
	mergeCmd.AddCommand(mergeHistoryCmd)
	rootCmd.AddCommand(mergeCmd)
}

func mergeRun(ctx context.Context) error {
	gc := git.NewClient()
	repoRoot, err := gc.RepoRoot(".")
	if err != nil {
		return err
	}

	remote := mergeRemote
	if remote == "" {
		remote = viper.GetString("merge.remote")
	}
	cfg := batch.Config{
		SourceBranch:   mergeSource,
		TargetBranches: mergeTargets,
		DryRun:         dryRun,
		AutoPush:       mergeAutoPush || viper.GetBool("merge.auto_push"),
		Remote:         remote,
	}

	// Ctrl-C stops between branches; the in-flight merge finishes first.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	o := batch.NewOrchestrator(repoRoot, gc)

	if dryRun {
		ui.DryRunMsg("Merges will be rolled back after conflict detection")
	}

	progress := make(chan batch.Progress)
	done := make(chan struct{})
	var result *batch.Result
	var runErr error

	startedAt := time.Now().UTC()
	go func() {
		defer close(done)
		result, runErr = o.ExecuteBatchMerge(ctx, cfg, progress)
	}()

	for p := range progress {
		st := p.Branch
		label := output.StatusColor(st.Status)
		switch st.Status {
		case batch.StatusSuccess:
			ui.Success("[%d/%d] %s: %s", p.Completed, p.Total, output.Cyan(st.Branch), label)
		case batch.StatusSkipped:
			ui.Warning("[%d/%d] %s: %s (merge conflict)", p.Completed, p.Total, output.Cyan(st.Branch), label)
		default:
			ui.Error("[%d/%d] %s: %s (%s)", p.Completed, p.Total, output.Cyan(st.Branch), label, st.Error)
		}
	}
	<-done

	if runErr != nil {
		return runErr
	}
	finishedAt := time.Now().UTC()

	if result.Cancelled {
		ui.Warning("Cancelled after %d of %d branches", len(result.Statuses), result.TotalCount)
	}
	renderMergeSummary(result)

	if !dryRun {
		if err := recordMergeRun(result, cfg, startedAt, finishedAt); err != nil {
			ui.Warning("Could not record merge run: %v", err)
		}
	}

	if result.FailedCount > 0 {
		return fmt.Errorf("%d of %d branches failed", result.FailedCount, result.TotalCount)
	}
	return nil
}

func renderMergeSummary(result *batch.Result) {
	table := ui.Table([]string{"Branch", "Status", "Push", "Worktree"})
	for _, st := range result.Statuses {
		wt := ""
		if st.WorktreeCreated {
			wt = "created"
		}
		_ = table.Append([]string{
			st.Branch,
			output.StatusColor(st.Status),
			st.PushStatus,
			wt,
		})
	}
	_ = table.Render()

	ui.Info("%s: %d merged, %d skipped, %d failed (of %d)",
		output.Cyan(result.SourceBranch),
		result.SuccessCount, result.SkippedCount, result.FailedCount, result.TotalCount)
}

func recordMergeRun(result *batch.Result, cfg batch.Config, startedAt, finishedAt time.Time) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	run := &models.MergeRun{
		SourceBranch: result.SourceBranch,
		DryRun:       cfg.DryRun,
		AutoPush:     cfg.AutoPush,
		Remote:       cfg.Remote,
		Cancelled:    result.Cancelled,
		TotalCount:   result.TotalCount,
		SuccessCount: result.SuccessCount,
		SkippedCount: result.SkippedCount,
		FailedCount:  result.FailedCount,
		StartedAt:    startedAt,
		FinishedAt:   finishedAt,
	}
	entries := make([]*models.MergeLogEntry, 0, len(result.Statuses))
	for _, st := range result.Statuses {
		entries = append(entries, &models.MergeLogEntry{
			Branch:          st.Branch,
			Status:          st.Status,
			PushStatus:      st.PushStatus,
			WorktreeCreated: st.WorktreeCreated,
			Error:           st.Error,
		})
	}
	return s.CreateMergeRun(context.Background(), run, entries)
}

func mergeHistoryListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	runs, err := s.ListMergeRuns(context.Background(), mergeHistoryLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		ui.Info("No merge runs recorded.")
		return nil
	}

	table := ui.Table([]string{"Run", "Started", "Source", "Merged", "Skipped", "Failed", "Notes"})
	for _, run := range runs {
		notes := ""
		if run.Cancelled {
			notes = "cancelled"
		}
		_ = table.Append([]string{
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			output.Cyan(run.SourceBranch),
			formatCount(run.SuccessCount),
			formatCount(run.SkippedCount),
			formatCount(run.FailedCount),
			notes,
		})
	}
	_ = table.Render()
	return nil
}

func mergeHistoryShowRun(runID string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	run, err := s.GetMergeRun(ctx, runID)
	if err != nil {
		return err
	}
	entries, err := s.ListMergeLogEntries(ctx, runID)
	if err != nil {
		return err
	}

	ui.Info("%s into %d branches at %s",
		output.Cyan(run.SourceBranch), run.TotalCount, run.StartedAt.Local().Format(time.RFC3339))

	table := ui.Table([]string{"Branch", "Status", "Push", "Error"})
	for _, e := range entries {
		_ = table.Append([]string{e.Branch, output.StatusColor(e.Status), e.PushStatus, e.Error})
	}
	_ = table.Render()
	return nil
}

func formatCount(n int) string {
	if n == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", n)
}
