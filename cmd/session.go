package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/awt/internal/models"
	"github.com/joescharf/awt/internal/output"
	"github.com/joescharf/awt/internal/resolver"
	"github.com/joescharf/awt/internal/store"
)

var (
	sessionTool   string
	sessionCwd    string
	sessionBranch string
	sessionSince  string
	sessionUntil  string
	sessionNear   string
	sessionRecord bool

	sessionWaitTimeout time.Duration
	sessionWaitPoll    time.Duration

	sessionHistoryLimit int
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Find, wait for, and record coding-agent sessions",
	Long: `Locate the session id a coding agent wrote to its own on-disk store,
so the session can be resumed in the right worktree later.`,
}

var sessionFindCmd = &cobra.Command{
	Use:   "find",
	Short: "Find the latest session for a tool",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionFindRun()
	},
}

var sessionWaitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Poll until a session appears or the timeout elapses",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionWaitRun(cmd.Context())
	},
}

var sessionCheckCmd = &cobra.Command{
	Use:   "check <session-id>",
	Short: "Check whether a session file still exists for an id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionCheckRun(args[0])
	},
}

var sessionHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionHistoryRun()
	},
}

func init() {
	for _, c := range []*cobra.Command{sessionFindCmd, sessionWaitCmd, sessionCheckCmd} {
		c.Flags().StringVarP(&sessionTool, "tool", "t", "claude", "Agent tool id")
		c.Flags().StringVar(&sessionCwd, "cwd", "", "Working directory to search for (default: current directory)")
	}
	sessionFindCmd.Flags().StringVarP(&sessionBranch, "branch", "b", "", "Search all worktrees tracking this branch")
	sessionFindCmd.Flags().StringVar(&sessionSince, "since", "", "Only sessions modified at or after this time (RFC 3339)")
	sessionFindCmd.Flags().StringVar(&sessionUntil, "until", "", "Only sessions modified at or before this time (RFC 3339)")
	sessionFindCmd.Flags().StringVar(&sessionNear, "near", "", "Prefer the session closest to this time (RFC 3339)")
	sessionFindCmd.Flags().BoolVar(&sessionRecord, "record", false, "Record the found session in history")

	sessionWaitCmd.Flags().DurationVar(&sessionWaitTimeout, "timeout", 0, "Give up after this long (default from config)")
	sessionWaitCmd.Flags().DurationVar(&sessionWaitPoll, "poll", 0, "Poll interval (default from config)")
	sessionWaitCmd.Flags().BoolVar(&sessionRecord, "record", false, "Record the found session in history")

	sessionHistoryCmd.Flags().StringVarP(&sessionTool, "tool", "t", "", "Filter by tool")
	sessionHistoryCmd.Flags().StringVarP(&sessionBranch, "branch", "b", "", "Filter by branch")
	sessionHistoryCmd.Flags().IntVar(&sessionHistoryLimit, "limit", 20, "Maximum rows")

	sessionCmd.AddCommand(sessionFindCmd)
	sessionCmd.AddCommand(sessionWaitCmd)
	sessionCmd.AddCommand(sessionCheckCmd)
	sessionCmd.AddCommand(sessionHistoryCmd)
	rootCmd.AddCommand(sessionCmd)
}

func sessionSearchCwd() (string, error) {
	if sessionCwd != "" {
		return sessionCwd, nil
	}
	return os.Getwd()
}

func parseTimeFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &t, nil
}

func sessionSearchOptions() (resolver.Options, error) {
	cwd, err := sessionSearchCwd()
	if err != nil {
		return resolver.Options{}, err
	}
	opts := resolver.Options{
		Cwd:    cwd,
		Branch: sessionBranch,
		Window: time.Duration(viper.GetInt("resolver.window_ms")) * time.Millisecond,
	}
	if opts.Since, err = parseTimeFlag("since", sessionSince); err != nil {
		return opts, err
	}
	if opts.Until, err = parseTimeFlag("until", sessionUntil); err != nil {
		return opts, err
	}
	if opts.PreferClosestTo, err = parseTimeFlag("near", sessionNear); err != nil {
		return opts, err
	}
	return opts, nil
}

func sessionFindRun() error {
	r, err := getResolver()
	if err != nil {
		return err
	}
	opts, err := sessionSearchOptions()
	if err != nil {
		return err
	}

	info, err := r.FindLatestSession(resolver.Tool(sessionTool), opts)
	if err != nil {
		return err
	}
	if info == nil {
		ui.Info("No session found for %s", output.Cyan(sessionTool))
		return nil
	}

	ui.Success("Session %s (modified %s)", output.Cyan(info.ID), info.ModTime.Format(time.RFC3339))
	if sessionRecord {
		return recordSession(info.ID, opts.Cwd)
	}
	return nil
}

func sessionWaitRun(ctx context.Context) error {
	r, err := getResolver()
	if err != nil {
		return err
	}
	cwd, err := sessionSearchCwd()
	if err != nil {
		return err
	}

	timeout := sessionWaitTimeout
	if timeout == 0 {
		timeout = time.Duration(viper.GetInt("resolver.timeout_ms")) * time.Millisecond
	}
	poll := sessionWaitPoll
	if poll == 0 {
		poll = time.Duration(viper.GetInt("resolver.poll_interval_ms")) * time.Millisecond
	}

	ui.Info("Waiting up to %s for a %s session...", timeout, output.Cyan(sessionTool))
	id, err := r.WaitForSessionID(ctx, resolver.Tool(sessionTool), cwd, resolver.WaitOptions{
		Timeout:      timeout,
		PollInterval: poll,
	})
	if err != nil {
		return err
	}
	if id == "" {
		ui.Warning("No session appeared within %s", timeout)
		return nil
	}

	ui.Success("Session %s", output.Cyan(id))
	if sessionRecord {
		return recordSession(id, cwd)
	}
	return nil
}

func sessionCheckRun(id string) error {
	r, err := getResolver()
	if err != nil {
		return err
	}
	cwd, err := sessionSearchCwd()
	if err != nil {
		return err
	}

	if r.SessionFileExists(resolver.Tool(sessionTool), id, cwd) {
		ui.Success("Session file exists for %s", output.Cyan(id))
		return nil
	}
	ui.Warning("No session file for %s", id)
	return nil
}

// recordSession persists a located session id to the history store.
func recordSession(id, worktreePath string) error {
	if dryRun {
		ui.DryRunMsg("Would record session %s", id)
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	rec := &models.SessionRecord{
		SessionID:    id,
		Tool:         sessionTool,
		Branch:       sessionBranch,
		WorktreePath: worktreePath,
	}
	if err := s.CreateSessionRecord(context.Background(), rec); err != nil {
		return fmt.Errorf("record session: %w", err)
	}
	ui.VerboseLog("Recorded session %s as %s", id, rec.ID)
	return nil
}

func sessionHistoryRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	records, err := s.ListSessionRecords(context.Background(), store.SessionFilter{
		Tool:   sessionTool,
		Branch: sessionBranch,
		Limit:  sessionHistoryLimit,
	})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		ui.Info("No recorded sessions.")
		return nil
	}

	table := ui.Table([]string{"Recorded", "Tool", "Session", "Branch", "Worktree"})
	for _, rec := range records {
		_ = table.Append([]string{
			rec.RecordedAt.Local().Format("2006-01-02 15:04"),
			output.Cyan(rec.Tool),
			rec.SessionID,
			rec.Branch,
			rec.WorktreePath,
		})
	}
	_ = table.Render()
	return nil
}
